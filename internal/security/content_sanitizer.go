// Package security は利用者入力のサニタイズを提供する。
//
// 求人の説明文は軽い書式（段落、改行、リスト、強調）のみ許可したHTMLとして保存し、
// サクセスストーリーなどの自由記述はタグを全て取り除いたプレーンテキストとして保存する。
// どちらもbluemondayの許可リストポリシーで処理する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizer は保存前の入力サニタイズのインターフェース。
type ContentSanitizer interface {
	// PlainText は全てのタグを除去したテキストを返す。
	// 実体参照は元の文字に戻すため、出力時のテンプレートエスケープと二重にならない。
	PlainText(raw string) string
	// RichText は許可タグ（p, br, ul, ol, li, strong, em, b, i）のみを残したHTMLを返す。
	// 属性は全て除去する。
	RichText(raw string) string
}

type contentSanitizer struct {
	strict *bluemonday.Policy
	rich   *bluemonday.Policy
}

// NewContentSanitizer は新しいContentSanitizerを生成する。
// bluemondayのポリシーは生成後に変更しないため、並行利用できる。
func NewContentSanitizer() ContentSanitizer {
	rich := bluemonday.NewPolicy()
	rich.AllowElements("p", "br", "ul", "ol", "li", "strong", "em", "b", "i")

	return &contentSanitizer{
		strict: bluemonday.StrictPolicy(),
		rich:   rich,
	}
}

func (s *contentSanitizer) PlainText(raw string) string {
	return strings.TrimSpace(html.UnescapeString(s.strict.Sanitize(raw)))
}

func (s *contentSanitizer) RichText(raw string) string {
	return strings.TrimSpace(s.rich.Sanitize(raw))
}
