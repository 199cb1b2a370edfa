package auth

import (
	"fmt"

	"github.com/gorilla/securecookie"
)

// sessionCookieName は署名対象に含めるCookie名。
// 別名のCookieへ値を移し替えても検証に通らない。
const sessionCookieName = "session"

// CookieSigner はセッションCookieの値に署名を付与・検証する。
// 署名鍵にはSESSION_SECRETを使う。鍵を変更すると既存のセッションは全て無効になる。
type CookieSigner struct {
	codec *securecookie.SecureCookie
}

// NewCookieSigner はCookieSignerを生成する。
// maxAgeを過ぎた署名は検証に失敗する。0の場合は署名時刻を検証しない。
func NewCookieSigner(secret string, maxAge int) *CookieSigner {
	codec := securecookie.New([]byte(secret), nil)
	codec.MaxAge(maxAge)
	return &CookieSigner{codec: codec}
}

// Sign はセッションIDを署名付きのCookie値に変換する。
func (s *CookieSigner) Sign(value string) (string, error) {
	signed, err := s.codec.Encode(sessionCookieName, value)
	if err != nil {
		return "", fmt.Errorf("failed to sign cookie: %w", err)
	}
	return signed, nil
}

// Verify は署名を検証し、元の値を返す。
// 形式不正、署名不一致、期限切れの場合はfalseを返す。
func (s *CookieSigner) Verify(signed string) (string, bool) {
	var value string
	if err := s.codec.Decode(sessionCookieName, signed, &value); err != nil {
		return "", false
	}
	return value, value != ""
}
