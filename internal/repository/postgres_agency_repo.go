package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/jobboard/internal/model"
)

const agencyColumns = `id, username, password_hash, email, phone, company_name, trade_license, status, created_at`

// PostgresAgencyRepo はPostgreSQLを使用したエージェンシーリポジトリ。
type PostgresAgencyRepo struct {
	db *sql.DB
}

// NewPostgresAgencyRepo はPostgresAgencyRepoを生成する。
func NewPostgresAgencyRepo(db *sql.DB) *PostgresAgencyRepo {
	return &PostgresAgencyRepo{db: db}
}

func scanAgency(row rowScanner) (*model.Agency, error) {
	a := &model.Agency{}
	err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Email, &a.Phone,
		&a.CompanyName, &a.TradeLicense, &a.Status, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// FindByUsername はユーザー名でエージェンシーを取得する。見つからない場合はnilを返す。
func (r *PostgresAgencyRepo) FindByUsername(ctx context.Context, username string) (*model.Agency, error) {
	agency, err := scanAgency(r.db.QueryRowContext(ctx,
		`SELECT `+agencyColumns+` FROM agencies WHERE username = $1`,
		username,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find agency by username: %w", err)
	}
	return agency, nil
}

// FindByID は指定IDのエージェンシーを取得する。見つからない場合はnilを返す。
func (r *PostgresAgencyRepo) FindByID(ctx context.Context, id int64) (*model.Agency, error) {
	agency, err := scanAgency(r.db.QueryRowContext(ctx,
		`SELECT `+agencyColumns+` FROM agencies WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find agency by ID: %w", err)
	}
	return agency, nil
}

// ListByStatus は指定状態のエージェンシーを返す。
func (r *PostgresAgencyRepo) ListByStatus(ctx context.Context, status model.AccountStatus) ([]*model.Agency, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+agencyColumns+` FROM agencies WHERE status = $1 ORDER BY created_at, id`,
		status,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list agencies: %w", err)
	}
	defer rows.Close()

	var agencies []*model.Agency
	for rows.Next() {
		a, err := scanAgency(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan agency: %w", err)
		}
		agencies = append(agencies, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate agencies: %w", err)
	}
	return agencies, nil
}

// Verify は承認待ちのエージェンシーを承認済みにし、本人に通知する。
func (r *PostgresAgencyRepo) Verify(ctx context.Context, id int64, message string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE agencies SET status = 'verified' WHERE id = $1 AND status = 'pending'`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to verify agency: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return false, nil
	}

	if err := insertNotification(ctx, tx, model.AgencyOwner(id), message, model.NotificationSuccess); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, nil
}

// DeletePending は承認待ちのエージェンシーを削除する。
// 関連する通知・ストーリーはCASCADE削除される。
func (r *PostgresAgencyRepo) DeletePending(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM agencies WHERE id = $1 AND status = 'pending'`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete agency: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// compile-time interface check
var _ AgencyRepository = (*PostgresAgencyRepo)(nil)
