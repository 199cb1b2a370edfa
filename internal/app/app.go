package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hitoshi/jobboard/internal/admin"
	"github.com/hitoshi/jobboard/internal/application"
	"github.com/hitoshi/jobboard/internal/auth"
	"github.com/hitoshi/jobboard/internal/bookmark"
	"github.com/hitoshi/jobboard/internal/config"
	"github.com/hitoshi/jobboard/internal/database"
	"github.com/hitoshi/jobboard/internal/handler"
	"github.com/hitoshi/jobboard/internal/job"
	"github.com/hitoshi/jobboard/internal/logger"
	"github.com/hitoshi/jobboard/internal/metrics"
	"github.com/hitoshi/jobboard/internal/middleware"
	"github.com/hitoshi/jobboard/internal/notification"
	"github.com/hitoshi/jobboard/internal/repository"
	"github.com/hitoshi/jobboard/internal/security"
	"github.com/hitoshi/jobboard/internal/storage"
	"github.com/hitoshi/jobboard/internal/story"
	"github.com/hitoshi/jobboard/internal/worker/cleanup"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再設定する
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// openDB はDB接続を開き、疎通を確認する。
func openDB(cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// newMetrics はプロセス専用のレジストリにアプリケーションとランタイムのメトリクスを登録する。
func newMetrics() (*metrics.Collector, http.Handler) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return metrics.NewCollector(reg), metrics.Handler(reg)
}

// adminSeed は設定から管理者アカウントの初期値を組み立てる。パスワードはハッシュ化する。
func adminSeed(cfg *config.Config) (database.AdminSeed, error) {
	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return database.AdminSeed{}, fmt.Errorf("failed to hash admin password: %w", err)
	}
	return database.AdminSeed{
		Username:     cfg.AdminUsername,
		Email:        cfg.AdminEmail,
		PasswordHash: hash,
	}, nil
}

// seedAdmin は初期管理者アカウントを作成する。既に管理者がいれば何もしない。
func seedAdmin(ctx context.Context, db database.Executor, cfg *config.Config) error {
	seed, err := adminSeed(cfg)
	if err != nil {
		return err
	}

	created, err := database.SeedAdmin(ctx, db, seed)
	if err != nil {
		return err
	}
	if created {
		slog.Info("admin account created", slog.String("username", cfg.AdminUsername))
	}
	return nil
}

// newCleanupJob は期限切れ求人とセッションの削除ジョブを構築する。
func newCleanupJob(db *sql.DB, collector metrics.MetricsCollector) *cleanup.CleanupJob {
	jobRepo := repository.NewPostgresJobRepo(db)
	notificationService := notification.NewService(repository.NewPostgresNotificationRepo(db), collector)
	return cleanup.NewCleanupJob(db, jobRepo, notificationService, collector, slog.Default())
}

// runServe はWebサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established")

	if err := seedAdmin(context.Background(), db, cfg); err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}

	// 2. リポジトリの初期化
	accountRepo := repository.NewPostgresAccountRepo(db)
	userRepo := repository.NewPostgresUserRepo(db)
	agencyRepo := repository.NewPostgresAgencyRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	jobRepo := repository.NewPostgresJobRepo(db)
	appRepo := repository.NewPostgresApplicationRepo(db)
	bookmarkRepo := repository.NewPostgresBookmarkRepo(db)
	notificationRepo := repository.NewPostgresNotificationRepo(db)
	storyRepo := repository.NewPostgresStoryRepo(db)
	statsRepo := repository.NewPostgresStatsRepo(db)

	// 3. 基盤の初期化
	collector, metricsHandler := newMetrics()
	sanitizer := security.NewContentSanitizer()
	cvStore, err := storage.NewLocalStore(cfg.UploadDir, cfg.UploadMaxBytes)
	if err != nil {
		return fmt.Errorf("failed to prepare upload directory: %w", err)
	}
	signer := auth.NewCookieSigner(cfg.SessionSecret, cfg.SessionMaxAge)

	// 4. ドメインサービスの初期化
	authService := auth.NewService(
		accountRepo, userRepo, agencyRepo, sessionRepo, collector,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
	)
	jobService := job.NewService(jobRepo, sanitizer, collector)
	appService := application.NewService(jobRepo, appRepo, cvStore, collector)
	bookmarkService := bookmark.NewService(bookmarkRepo)
	notificationService := notification.NewService(notificationRepo, collector)
	storyService := story.NewService(storyRepo, sanitizer)
	adminService := admin.NewService(agencyRepo, userRepo, statsRepo)

	// 5. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitAuth),
	)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		Logger:            slog.Default(),
		Metrics:           collector,
		MetricsHandler:    metricsHandler,
		HealthChecker:     db,
		PrincipalResolver: authService,
		CookieSigner:      signer,
		RateLimiter:       rateLimiter,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
			// 履歴書のアップロードにフォーム項目分の余裕を足す
			MaxBodyBytes: cfg.UploadMaxBytes + 1<<20,
		},

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		JobService: jobService,
		BaseURL:    cfg.BaseURL,

		ApplicationService:  appService,
		CVLocator:           cvStore,
		BookmarkService:     bookmarkService,
		NotificationService: notificationService,

		StoryService: storyService,
		AdminService: adminService,
	}

	router := handler.NewRouter(deps)

	// 6. 期限切れデータの掃除をサーバー内で行う場合はバックグラウンドで起動
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.SweepInServer {
		go newCleanupJob(db, collector).Start(ctx, cfg.SweepInterval)
	}

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("web server starting",
			slog.String("addr", server.Addr),
			slog.Bool("sweep_in_server", cfg.SweepInServer),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down web server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("web server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、期限切れ求人とセッションの掃除を定期実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established (worker)")

	collector, _ := newMetrics()
	cleanupJob := newCleanupJob(db, collector)

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting", slog.Duration("sweep_interval", cfg.SweepInterval))

	// 掃除ジョブをメインgoroutineで実行（ブロッキング）
	cleanupJob.Start(ctx, cfg.SweepInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行し、初期管理者を作成する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := seedAdmin(context.Background(), db, cfg); err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
