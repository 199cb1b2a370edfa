// Package handler はHTMLフォームのHTTPハンドラーとルーティングを提供する。
package handler

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/jobboard/internal/middleware"
	"github.com/hitoshi/jobboard/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// notices はクエリパラメータ notice で表示できる固定メッセージ。
// 任意の文字列を画面に出さないよう、キーでのみ指定する。
var notices = map[string]string{
	"registered":         "登録が完了しました。ログインしてください。",
	"registered_pending": "登録を受け付けました。管理者の承認後にログインできます。",
	"logged_out":         "ログアウトしました。",
	"job_posted":         "求人を掲載しました。",
	"job_updated":        "求人を更新しました。",
	"job_deleted":        "求人を削除しました。",
	"applied":            "応募が完了しました。",
	"bookmarked":         "ブックマークしました。",
	"already_bookmarked": "この求人は既にブックマークされています。",
	"unbookmarked":       "ブックマークを解除しました。",
	"app_approved":       "応募を承認しました。",
	"app_rejected":       "応募を不採用にしました。",
	"agency_verified":    "エージェンシーを承認しました。",
	"agency_rejected":    "エージェンシーの登録を却下しました。",
	"story_posted":       "ストーリーを投稿しました。",
	"story_updated":      "ストーリーを更新しました。",
	"story_deleted":      "ストーリーを削除しました。",
	"profile_updated":    "プロフィールを更新しました。",
}

// pageData は全テンプレートに渡す共通データ。
type pageData struct {
	Principal *model.Principal
	CSRFToken string
	CSRFField string
	Notice    string
	Error     *model.APIError
	Data      any
}

// Renderer は埋め込みテンプレートでページを描画する。
// ページごとに layout.html と組み合わせたテンプレートを起動時に1回だけ構築する。
type Renderer struct {
	pages map[string]*template.Template
}

var templateFuncs = template.FuncMap{
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02")
	},
	"datetime": func(t time.Time) string {
		return t.Format("2006-01-02 15:04")
	},
	"stars": func(n int) string {
		if n < 0 {
			n = 0
		}
		return strings.Repeat("★", n) + strings.Repeat("☆", max(0, 5-n))
	},
	// safeHTML はサニタイズ済みで保存された求人本文のみに使う
	"safeHTML": func(s string) template.HTML {
		return template.HTML(s)
	},
}

// NewRenderer はテンプレートを解析してRendererを生成する。
func NewRenderer() (*Renderer, error) {
	names, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	pages := make(map[string]*template.Template, len(names))
	for _, name := range names {
		page := strings.TrimSuffix(strings.TrimPrefix(name, "templates/"), ".html")
		if page == "layout" {
			continue
		}
		tmpl, err := template.New("layout.html").Funcs(templateFuncs).ParseFS(templateFS, "templates/layout.html", name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", page, err)
		}
		pages[page] = tmpl
	}
	return &Renderer{pages: pages}, nil
}

// MustNewRenderer はNewRendererの失敗時にpanicする。
// テンプレートはバイナリに埋め込まれているため、失敗はビルドの不備を意味する。
func MustNewRenderer() *Renderer {
	r, err := NewRenderer()
	if err != nil {
		panic(err)
	}
	return r
}

// Render はページを描画する。
// 描画が完了してからヘッダーを書き込むため、テンプレートエラー時は500を返せる。
func (rd *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	rd.render(w, r, status, page, pageData{Data: data})
}

// RenderForm は入力エラー付きでフォームを再描画する。
func (rd *Renderer) RenderForm(w http.ResponseWriter, r *http.Request, status int, page string, apiErr *model.APIError, data any) {
	rd.render(w, r, status, page, pageData{Error: apiErr, Data: data})
}

func (rd *Renderer) render(w http.ResponseWriter, r *http.Request, status int, page string, pd pageData) {
	tmpl, ok := rd.pages[page]
	if !ok {
		slog.Error("template not found", slog.String("page", page))
		middleware.WriteInternalServerError(w)
		return
	}

	pd.Principal = middleware.PrincipalFromContext(r.Context())
	pd.CSRFToken = middleware.CSRFTokenFromContext(r.Context())
	pd.CSRFField = middleware.CSRFFormField
	pd.Notice = notices[r.URL.Query().Get("notice")]

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, pd); err != nil {
		slog.Error("failed to render template",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// handleServiceError はサービス層から返されたエラーをHTTPステータスに変換し、エラーページを描画する。
func (rd *Renderer) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		// 未ログインはエラーページではなくログインへ誘導する
		if apiErr.Code == model.ErrCodeUnauthenticated {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		rd.render(w, r, mapAPIErrorToHTTPStatus(apiErr), "error", pageData{Error: apiErr})
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	rd.render(w, r, http.StatusInternalServerError, "error", pageData{Error: middleware.InternalError()})
}

// handleFormError は入力検証・認証系のエラーならフォームを再描画し、それ以外はエラーページにする。
func (rd *Renderer) handleFormError(w http.ResponseWriter, r *http.Request, page string, form any, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case model.ErrCodeValidation, model.ErrCodeDuplicateAccount, model.ErrCodeInvalidCredentials,
			model.ErrCodeAgencyPending, model.ErrCodeMissingCV, model.ErrCodeAlreadyApplied:
			rd.RenderForm(w, r, mapAPIErrorToHTTPStatus(apiErr), page, apiErr, form)
			return
		}
	}
	rd.handleServiceError(w, r, err)
}

// renderNotFound はルートが存在しない場合のページを描画する。
func (rd *Renderer) renderNotFound(w http.ResponseWriter, r *http.Request) {
	rd.render(w, r, http.StatusNotFound, "error", pageData{Error: &model.APIError{
		Code:     "PAGE_NOT_FOUND",
		Message:  "ページが見つかりません。",
		Category: "not_found",
		Action:   "URLを確認してください。",
	}})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeValidation, model.ErrCodeMissingCV:
		return http.StatusBadRequest
	case model.ErrCodeDuplicateAccount, model.ErrCodeAlreadyApplied, model.ErrCodeApplicationFinalized:
		return http.StatusConflict
	case model.ErrCodeInvalidCredentials, model.ErrCodeUnauthenticated:
		return http.StatusUnauthorized
	case model.ErrCodeAgencyPending, model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeJobNotFound, model.ErrCodeApplicationNotFound, model.ErrCodeStoryNotFound,
		model.ErrCodeAgencyNotPending, model.ErrCodeUserNotFound, model.ErrCodeCVNotFound, "PAGE_NOT_FOUND":
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
