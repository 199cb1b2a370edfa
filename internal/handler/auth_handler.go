package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/jobboard/internal/auth"
	"github.com/hitoshi/jobboard/internal/middleware"
	"github.com/hitoshi/jobboard/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, in auth.RegisterInput) (*model.Principal, error)
	Login(ctx context.Context, username, password string) (*model.Session, *model.Principal, error)
	Logout(ctx context.Context, sessionID string) error
	UpdateProfile(ctx context.Context, p *model.Principal, in auth.ProfileInput) (*model.Principal, error)
}

// CookieSigner はセッションCookieの署名と検証を行うインターフェース。
type CookieSigner interface {
	Sign(value string) (string, error)
	Verify(signed string) (string, bool)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler は登録・ログイン・プロフィールのHTTPハンドラー。
type AuthHandler struct {
	service  AuthServiceInterface
	signer   CookieSigner
	renderer *Renderer
	config   AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, signer CookieSigner, renderer *Renderer, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service:  service,
		signer:   signer,
		renderer: renderer,
		config:   config,
	}
}

type loginForm struct {
	Username string
	Next     string
}

// RegisterForm は登録フォームを表示する。
// GET /register
func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, r, http.StatusOK, "register", auth.RegisterInput{Role: model.PrincipalUser})
}

// Register はユーザーまたはエージェンシーを登録する。
// POST /register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	in := auth.RegisterInput{
		Role:         model.PrincipalKind(formValue(r, "role")),
		Username:     formValue(r, "username"),
		Email:        formValue(r, "email"),
		Password:     r.PostFormValue("password"),
		Phone:        formValue(r, "phone"),
		FirstName:    formValue(r, "firstname"),
		LastName:     formValue(r, "lastname"),
		CompanyName:  formValue(r, "company_name"),
		TradeLicense: formValue(r, "trade_license"),
	}

	p, err := h.service.Register(r.Context(), in)
	if err != nil {
		in.Password = ""
		h.renderer.handleFormError(w, r, "register", in, err)
		return
	}

	notice := "registered"
	if p.IsAgency() {
		notice = "registered_pending"
	}
	redirectWithNotice(w, r, "/login", notice)
}

// LoginForm はログインフォームを表示する。
// GET /login
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if p := middleware.PrincipalFromContext(r.Context()); p != nil {
		http.Redirect(w, r, homeFor(p), http.StatusSeeOther)
		return
	}
	h.renderer.Render(w, r, http.StatusOK, "login", loginForm{Next: localPath(r.URL.Query().Get("next"), "")})
}

// Login は認証に成功したら署名付きセッションCookieを発行する。
// POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	form := loginForm{
		Username: formValue(r, "username"),
		Next:     localPath(r.PostFormValue("next"), ""),
	}

	session, p, err := h.service.Login(r.Context(), form.Username, r.PostFormValue("password"))
	if err != nil {
		h.renderer.handleFormError(w, r, "login", form, err)
		return
	}

	signed, err := h.signer.Sign(session.ID)
	if err != nil {
		h.renderer.handleServiceError(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    signed,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, localPath(form.Next, homeFor(p)), http.StatusSeeOther)
}

// Logout はセッションを破棄する。
// POST /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if sessionID := middleware.SessionIDFromRequest(r, h.signer); sessionID != "" {
		if err := h.service.Logout(r.Context(), sessionID); err != nil {
			slog.Error("failed to logout", slog.String("error", err.Error()))
			// ログアウト失敗してもCookieはクリアする
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	redirectWithNotice(w, r, "/login", "logged_out")
}

// Profile はプロフィールを表示する。
// GET /profile
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())
	h.renderer.Render(w, r, http.StatusOK, "profile", profileFormFrom(p))
}

// UpdateProfile はプロフィールを更新する。
// POST /profile
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())
	in := auth.ProfileInput{
		FirstName: formValue(r, "firstname"),
		LastName:  formValue(r, "lastname"),
		Phone:     formValue(r, "phone"),
		Email:     formValue(r, "email"),
	}

	if _, err := h.service.UpdateProfile(r.Context(), p, in); err != nil {
		h.renderer.handleFormError(w, r, "profile", in, err)
		return
	}
	redirectWithNotice(w, r, "/profile", "profile_updated")
}

// ForgotPassword はパスワード再設定の案内ページ。メールは送信しない。
// GET|POST /forgot-password
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, r, http.StatusOK, "password", passwordPage{
		Title:     "パスワードをお忘れの方",
		Submitted: r.Method == http.MethodPost,
		Action:    "/forgot-password",
	})
}

// ResetPassword はパスワード再設定の案内ページ。パスワードは変更しない。
// GET|POST /reset-password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, r, http.StatusOK, "password", passwordPage{
		Title:     "パスワードの再設定",
		Submitted: r.Method == http.MethodPost,
		Action:    "/reset-password",
	})
}

type passwordPage struct {
	Title     string
	Submitted bool
	Action    string
}

func profileFormFrom(p *model.Principal) auth.ProfileInput {
	return auth.ProfileInput{
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Phone:     p.Phone,
		Email:     p.Email,
	}
}
