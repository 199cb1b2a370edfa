package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/hitoshi/jobboard/internal/metrics"
	"github.com/hitoshi/jobboard/internal/middleware"
)

// HealthChecker はヘルスチェックで使うDB疎通確認のインターフェース。*sql.DBが満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	Metrics           metrics.MetricsCollector
	MetricsHandler    http.Handler
	HealthChecker     HealthChecker
	PrincipalResolver middleware.PrincipalResolver
	CookieSigner      CookieSigner
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 求人
	JobService JobServiceInterface
	BaseURL    string

	// 応募・ブックマーク・通知
	ApplicationService  ApplicationServiceInterface
	CVLocator           CVLocator
	BookmarkService     BookmarkServiceInterface
	NotificationService NotificationServiceInterface

	// サクセスストーリー・管理者
	StoryService StoryServiceInterface
	AdminService AdminServiceInterface

	// Renderer が nil の場合は埋め込みテンプレートから生成する
	Renderer *Renderer
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RealIP → Recovery → Logging → SecurityHeaders → CSRF → Session → RateLimit(General)
//
// /health と /metrics はCSRF・セッションの外に配置する。
// ロールの判定はサービス層で行い、ここではログイン有無のみを判定する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	renderer := deps.Renderer
	if renderer == nil {
		renderer = MustNewRenderer()
	}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger, deps.Metrics))
	r.Use(middleware.NewSecurityHeadersMiddleware())

	r.Get("/health", healthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.CookieSigner, renderer, deps.AuthConfig)
	jobHandler := NewJobHandler(deps.JobService, renderer, deps.BaseURL)
	appHandler := NewApplicationHandler(deps.ApplicationService, deps.CVLocator, renderer)
	bookmarkHandler := NewBookmarkHandler(deps.BookmarkService, renderer)
	notificationHandler := NewNotificationHandler(deps.NotificationService, renderer)
	storyHandler := NewStoryHandler(deps.StoryService, renderer)
	adminHandler := NewAdminHandler(deps.AdminService, renderer)

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(middleware.NewSessionMiddleware(deps.PrincipalResolver, deps.CookieSigner))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.NotFound(renderer.renderNotFound)

		// --- 認証不要のルート ---
		r.Get("/", jobHandler.Index)
		r.Get("/jobs", jobHandler.List)
		r.Get("/jobs/feed.xml", jobHandler.Feed)
		r.Get("/jobs/{id}", jobHandler.Detail)
		r.Get("/stories", storyHandler.List)

		r.Get("/register", authHandler.RegisterForm)
		r.Get("/login", authHandler.LoginForm)
		r.With(deps.RateLimiter.AuthMiddleware()).Post("/register", authHandler.Register)
		r.With(deps.RateLimiter.AuthMiddleware()).Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)

		r.Get("/forgot-password", authHandler.ForgotPassword)
		r.Post("/forgot-password", authHandler.ForgotPassword)
		r.Get("/reset-password", authHandler.ResetPassword)
		r.Post("/reset-password", authHandler.ResetPassword)

		// --- ログインが必要なルート ---
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewRequireLoginMiddleware())

			r.Get("/profile", authHandler.Profile)
			r.Post("/profile", authHandler.UpdateProfile)
			r.Get("/notifications", notificationHandler.List)
			r.Get("/uploads/{filename}", appHandler.ServeCV)

			// 求職者
			// /jobs/{id} の詳細ルートと衝突するためMountせずに並べる
			r.Get("/jobs/{id}/apply", appHandler.ApplyForm)
			r.Post("/jobs/{id}/apply", appHandler.Apply)
			r.Post("/jobs/{id}/bookmark", bookmarkHandler.Add)
			r.Post("/jobs/{id}/unbookmark", bookmarkHandler.Remove)
			r.Get("/my/applications", appHandler.MyApplications)

			// サクセスストーリー
			r.Post("/stories", storyHandler.Create)
			r.Get("/stories/{id}/edit", storyHandler.EditForm)
			r.Post("/stories/{id}/edit", storyHandler.Update)
			r.Post("/stories/{id}/delete", storyHandler.Delete)

			// エージェンシー
			r.Route("/agency", func(r chi.Router) {
				r.Get("/dashboard", jobHandler.Dashboard)
				r.Get("/jobs/new", jobHandler.NewForm)
				r.Post("/jobs/new", jobHandler.Create)
				r.Get("/jobs/{id}/edit", jobHandler.EditForm)
				r.Post("/jobs/{id}/edit", jobHandler.Update)
				r.Post("/jobs/{id}/delete", jobHandler.Delete)
				r.Get("/jobs/{id}/applications", appHandler.ListForJob)
				r.Post("/applications/{id}/approve", appHandler.Approve)
				r.Post("/applications/{id}/reject", appHandler.Reject)
			})

			// 管理者
			r.Route("/admin", func(r chi.Router) {
				r.Get("/dashboard", adminHandler.Dashboard)
				r.Post("/agencies/{id}/verify", adminHandler.VerifyAgency)
				r.Post("/agencies/{id}/reject", adminHandler.RejectAgency)
			})
		})
	})

	return r
}

// healthHandler はDB疎通を確認し、200または503を返す。
func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
			defer cancel()
			if err := checker.PingContext(ctx); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("unavailable\n"))
				return
			}
		}
		_, _ = w.Write([]byte("ok\n"))
	}
}
