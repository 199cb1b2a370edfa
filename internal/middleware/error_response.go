package middleware

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/hitoshi/jobboard/internal/model"
)

// errorPage はミドルウェアが返す最小限のエラーページ。
// 通常のエラーはハンドラーのレイアウト付きテンプレートで描画する。
var errorPage = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html lang="ja">
<head><meta charset="utf-8"><title>{{.Code}}</title></head>
<body>
<h1>{{.Message}}</h1>
<p>{{.Action}}</p>
<p><a href="/">トップへ戻る</a></p>
</body>
</html>
`))

// WriteErrorPage は統一エラーフォーマットの内容をHTMLで書き込む。
func WriteErrorPage(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := errorPage.Execute(w, apiErr); err != nil {
		slog.Error("failed to render error page", slog.String("error", err.Error()))
	}
}

// WriteInternalServerError は内部サーバーエラーのページを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorPage(w, http.StatusInternalServerError, InternalError())
}

// InternalError は内部エラーを表すAPIErrorを返す。
func InternalError() *model.APIError {
	return &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

func csrfError() *model.APIError {
	return &model.APIError{
		Code:     "CSRF_FAILED",
		Message:  "フォームの有効期限が切れているか、不正なリクエストです。",
		Category: "auth",
		Action:   "ページを再読み込みしてから再度送信してください。",
	}
}

func payloadTooLargeError() *model.APIError {
	return &model.APIError{
		Code:     "PAYLOAD_TOO_LARGE",
		Message:  "送信されたデータが大きすぎます。",
		Category: "validation",
		Action:   "ファイルサイズを小さくして再度送信してください。",
	}
}

func rateLimitError() *model.APIError {
	return &model.APIError{
		Code:     "RATE_LIMIT_EXCEEDED",
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
