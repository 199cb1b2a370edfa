package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/jobboard/internal/model"
)

// PostgresStatsRepo はPostgreSQLを使用した集計リポジトリ。
type PostgresStatsRepo struct {
	db *sql.DB
}

// NewPostgresStatsRepo はPostgresStatsRepoを生成する。
func NewPostgresStatsRepo(db *sql.DB) *PostgresStatsRepo {
	return &PostgresStatsRepo{db: db}
}

// AdminStats は管理者ダッシュボードの集計値を1クエリで返す。
func (r *PostgresStatsRepo) AdminStats(ctx context.Context) (model.AdminStats, error) {
	var s model.AdminStats
	err := r.db.QueryRowContext(ctx,
		`SELECT
		   (SELECT count(*) FROM agencies WHERE status = 'pending'),
		   (SELECT count(*) FROM agencies WHERE status = 'verified'),
		   (SELECT count(*) FROM users WHERE NOT is_admin),
		   (SELECT count(*) FROM jobs WHERE deadline >= CURRENT_DATE)`,
	).Scan(&s.PendingAgencies, &s.VerifiedAgencies, &s.Users, &s.Jobs)
	if err != nil {
		return model.AdminStats{}, fmt.Errorf("failed to compute admin stats: %w", err)
	}
	return s, nil
}

// compile-time interface check
var _ StatsRepository = (*PostgresStatsRepo)(nil)
