package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/jobboard/internal/model"
)

// PostgresStoryRepo はPostgreSQLを使用したサクセスストーリーリポジトリ。
type PostgresStoryRepo struct {
	db *sql.DB
}

// NewPostgresStoryRepo はPostgresStoryRepoを生成する。
func NewPostgresStoryRepo(db *sql.DB) *PostgresStoryRepo {
	return &PostgresStoryRepo{db: db}
}

// ownerPredicate は作成者を保持する列名を返す。
func ownerPredicate(author model.OwnerRef) string {
	if author.Kind() == model.PrincipalAgency {
		return "agency_id"
	}
	return "user_id"
}

// List は全てのストーリーを作成者名付きで新しい順に返す。
// 作成者名はユーザー名、エージェンシーの場合は会社名。
func (r *PostgresStoryRepo) List(ctx context.Context) ([]model.StoryView, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT s.id, s.content, s.rating, s.created_at, s.updated_at, s.user_id, s.agency_id,
		        COALESCE(u.username, a.company_name, '')
		 FROM success_stories s
		 LEFT JOIN users u ON u.id = s.user_id
		 LEFT JOIN agencies a ON a.id = s.agency_id
		 ORDER BY s.created_at DESC, s.id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	defer rows.Close()

	var stories []model.StoryView
	for rows.Next() {
		var v model.StoryView
		var userID, agencyID sql.NullInt64
		if err := rows.Scan(&v.ID, &v.Content, &v.Rating, &v.CreatedAt, &v.UpdatedAt, &userID, &agencyID, &v.AuthorName); err != nil {
			return nil, fmt.Errorf("failed to scan story: %w", err)
		}
		v.Author, err = OwnerFromNullColumns(userID, agencyID)
		if err != nil {
			return nil, err
		}
		stories = append(stories, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stories: %w", err)
	}
	return stories, nil
}

// FindOwned は作成者が一致するストーリーを取得する。
func (r *PostgresStoryRepo) FindOwned(ctx context.Context, id int64, author model.OwnerRef) (*model.SuccessStory, error) {
	s := &model.SuccessStory{Author: author}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, content, rating, created_at, updated_at
		 FROM success_stories
		 WHERE id = $1 AND `+ownerPredicate(author)+` = $2`,
		id, author.ID(),
	).Scan(&s.ID, &s.Content, &s.Rating, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find story: %w", err)
	}
	return s, nil
}

// Create はストーリーを作成する。
func (r *PostgresStoryRepo) Create(ctx context.Context, story *model.SuccessStory) error {
	userID, agencyID := story.Author.Columns()
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO success_stories (content, rating, user_id, agency_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		story.Content, story.Rating, userID, agencyID,
	).Scan(&story.ID, &story.CreatedAt, &story.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert story: %w", err)
	}
	return nil
}

// Update は作成者が一致するストーリーの本文と評価を更新する。
func (r *PostgresStoryRepo) Update(ctx context.Context, story *model.SuccessStory) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE success_stories SET content = $1, rating = $2, updated_at = now()
		 WHERE id = $3 AND `+ownerPredicate(story.Author)+` = $4`,
		story.Content, story.Rating, story.ID, story.Author.ID(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to update story: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// Delete は作成者が一致するストーリーを削除する。
func (r *PostgresStoryRepo) Delete(ctx context.Context, id int64, author model.OwnerRef) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM success_stories WHERE id = $1 AND `+ownerPredicate(author)+` = $2`,
		id, author.ID(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete story: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// compile-time interface check
var _ StoryRepository = (*PostgresStoryRepo)(nil)
