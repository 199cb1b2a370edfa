// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/hitoshi/jobboard/internal/model"
)

// SessionCookieName はセッションIDを保持するCookieの名前。
// 値は署名付きのセッションIDで、HttpOnlyで発行する。
const SessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// principalContextKey はリクエストコンテキストに認証済み主体を格納するためのキー。
var principalContextKey = contextKey("principal")

// PrincipalResolver はセッションIDから主体を解決するインターフェース。
type PrincipalResolver interface {
	CurrentPrincipal(ctx context.Context, sessionID string) (*model.Principal, error)
}

// CookieVerifier は署名付きCookie値を検証するインターフェース。
type CookieVerifier interface {
	Verify(signed string) (string, bool)
}

// NewSessionMiddleware はCookieからセッションを読み取り、主体をリクエストコンテキストに注入する。
// 未ログインのリクエストも主体なしでそのまま通す。アクセス制御はルートごとに行う。
func NewSessionMiddleware(resolver PrincipalResolver, verifier CookieVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := SessionIDFromRequest(r, verifier)
			if sessionID == "" {
				next.ServeHTTP(w, r)
				return
			}

			principal, err := resolver.CurrentPrincipal(r.Context(), sessionID)
			if err != nil {
				slog.Error("failed to resolve session",
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}
			if principal == nil {
				next.ServeHTTP(w, r)
				return
			}

			if info := requestInfoFromContext(r.Context()); info != nil {
				info.username = principal.Username
			}
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
		})
	}
}

// SessionIDFromRequest は署名を検証したセッションIDを返す。無効な場合は空文字を返す。
func SessionIDFromRequest(r *http.Request, verifier CookieVerifier) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	id, ok := verifier.Verify(cookie.Value)
	if !ok {
		return ""
	}
	return id
}

// NewRequireLoginMiddleware は未ログインのリクエストをログインページへリダイレクトする。
// ロールの判定はサービス層で行う。
func NewRequireLoginMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if PrincipalFromContext(r.Context()) == nil {
				target := "/login"
				if r.Method == http.MethodGet {
					target += "?next=" + url.QueryEscape(r.URL.RequestURI())
				}
				http.Redirect(w, r, target, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PrincipalFromContext はリクエストコンテキストから認証済み主体を取得する。
// 未ログインの場合はnilを返す。
func PrincipalFromContext(ctx context.Context) *model.Principal {
	p, _ := ctx.Value(principalContextKey).(*model.Principal)
	return p
}

// ContextWithPrincipal はコンテキストに認証済み主体を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithPrincipal(ctx context.Context, p *model.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}
