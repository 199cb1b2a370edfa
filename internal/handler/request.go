package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/jobboard/internal/model"
)

// pathID はURLパラメータの数値IDを取り出す。
// 数値でない場合はnotFoundの生成関数で作ったエラーを返す。
func pathID(r *http.Request, key string, notFound func(int64) *model.APIError) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	if err != nil || id <= 0 {
		return 0, notFound(0)
	}
	return id, nil
}

// redirectWithNotice は303で遷移し、遷移先に通知キーを付ける。
func redirectWithNotice(w http.ResponseWriter, r *http.Request, target, notice string) {
	if notice != "" {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + "notice=" + url.QueryEscape(notice)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// localPath はオープンリダイレクトを防ぐため、サイト内の絶対パスだけを受け付ける。
func localPath(raw, fallback string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return fallback
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return raw
}

// homeFor はログイン後の既定の遷移先を返す。
func homeFor(p *model.Principal) string {
	switch {
	case p.IsAdministrator():
		return "/admin/dashboard"
	case p.IsAgency():
		return "/agency/dashboard"
	default:
		return "/jobs"
	}
}

func formValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.PostFormValue(key))
}
