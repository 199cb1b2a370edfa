package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresBookmarkRepo はPostgreSQLを使用したブックマークリポジトリ。
type PostgresBookmarkRepo struct {
	db *sql.DB
}

// NewPostgresBookmarkRepo はPostgresBookmarkRepoを生成する。
func NewPostgresBookmarkRepo(db *sql.DB) *PostgresBookmarkRepo {
	return &PostgresBookmarkRepo{db: db}
}

// Add はブックマークを作成する。既に存在する場合はfalseを返す。
// 求人が存在しないか締切日を過ぎている場合はErrJobNotLiveを返す。
func (r *PostgresBookmarkRepo) Add(ctx context.Context, userID, jobID int64) (bool, error) {
	var live, added bool
	err := r.db.QueryRowContext(ctx,
		`WITH live AS (
		     SELECT j.id FROM jobs j WHERE j.id = $2 AND `+liveJob+`
		 ), ins AS (
		     INSERT INTO job_bookmarks (user_id, job_id)
		     SELECT $1, id FROM live
		     ON CONFLICT (user_id, job_id) DO NOTHING
		     RETURNING id
		 )
		 SELECT EXISTS (SELECT 1 FROM live), EXISTS (SELECT 1 FROM ins)`,
		userID, jobID,
	).Scan(&live, &added)
	if err != nil {
		return false, fmt.Errorf("failed to add bookmark: %w", err)
	}
	if !live {
		return false, ErrJobNotLive
	}
	return added, nil
}

// Remove はブックマークを削除する。
func (r *PostgresBookmarkRepo) Remove(ctx context.Context, userID, jobID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM job_bookmarks WHERE user_id = $1 AND job_id = $2`,
		userID, jobID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove bookmark: %w", err)
	}
	return nil
}

// compile-time interface check
var _ BookmarkRepository = (*PostgresBookmarkRepo)(nil)
