// Package cleanup は締切日を過ぎた求人と期限切れセッションの定期削除ジョブを提供する。
// 求人の応募・ブックマークはCASCADE削除で自動的に処理される。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/jobboard/internal/metrics"
	"github.com/hitoshi/jobboard/internal/model"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// ExpiredJobDeleter は締切日を過ぎた求人を削除し、削除した求人を返す。
type ExpiredJobDeleter interface {
	DeleteExpired(ctx context.Context) ([]model.Job, error)
}

// Notifier は削除した求人のエージェンシーへの通知に使う。
type Notifier interface {
	Notify(ctx context.Context, owner model.OwnerRef, message, category string) error
}

// CleanupJob は期限切れデータの削除ジョブ。
// 何度実行しても結果が変わらない。
type CleanupJob struct {
	db       Executor
	jobs     ExpiredJobDeleter
	notifier Notifier
	metrics  metrics.MetricsCollector
	logger   *slog.Logger
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(
	db Executor,
	jobs ExpiredJobDeleter,
	notifier Notifier,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *CleanupJob {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &CleanupJob{
		db:       db,
		jobs:     jobs,
		notifier: notifier,
		metrics:  collector,
		logger:   logger,
	}
}

// Start はintervalごとにRunを実行する。起動直後に1回実行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("クリーンアップジョブを開始しました", slog.Duration("interval", interval))

	// エラーはRun内でログ出力済み
	_ = j.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("クリーンアップジョブを停止しました")
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}

// Run は締切日を過ぎた求人を削除して各エージェンシーに通知し、期限切れセッションを削除する。
// 通知の失敗は削除を巻き戻さず、ログに残して続行する。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	expired, err := j.jobs.DeleteExpired(ctx)
	if err != nil {
		j.logger.Error("期限切れ求人の削除に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("期限切れ求人の削除に失敗: %w", err)
	}

	for _, job := range expired {
		msg := fmt.Sprintf("Your job '%s' has expired and was removed.", job.Title)
		if err := j.notifier.Notify(ctx, model.AgencyOwner(job.AgencyID), msg, model.NotificationInfo); err != nil {
			j.logger.Warn("求人削除の通知に失敗しました",
				slog.Int64("job_id", job.ID),
				slog.Int64("agency_id", job.AgencyID),
				slog.String("error", err.Error()),
			)
		}
	}

	result, err := j.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < now()`)
	if err != nil {
		j.logger.Error("期限切れセッションの削除に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("期限切れセッションの削除に失敗: %w", err)
	}
	sessionsDeleted, err := result.RowsAffected()
	if err != nil {
		j.logger.Error("削除件数の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("削除件数の取得に失敗: %w", err)
	}

	j.metrics.RecordSweep(int64(len(expired)), sessionsDeleted)

	duration := time.Since(start)
	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Int("deleted_jobs", len(expired)),
		slog.Int64("deleted_sessions", sessionsDeleted),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
