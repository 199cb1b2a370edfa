package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/jobboard/internal/model"
)

// registrationLockKey は登録処理を直列化するアドバイザリロックのキー。
// ユーザー名とメールアドレスの一意性は2テーブルにまたがるため、
// ユニーク制約だけでは検査と挿入の間の競合を防げない。
const registrationLockKey = 7100401

// PostgresAccountRepo はPostgreSQLを使用したアカウント登録リポジトリ。
type PostgresAccountRepo struct {
	db *sql.DB
}

// NewPostgresAccountRepo はPostgresAccountRepoを生成する。
func NewPostgresAccountRepo(db *sql.DB) *PostgresAccountRepo {
	return &PostgresAccountRepo{db: db}
}

// CreateUser は一般ユーザーを作成する。
func (r *PostgresAccountRepo) CreateUser(ctx context.Context, user *model.User) error {
	tx, err := r.beginRegistration(ctx, user.Username, user.Email)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx,
		`INSERT INTO users (username, password_hash, email, phone, firstname, lastname)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, is_admin, status, created_at`,
		user.Username, user.PasswordHash, user.Email, user.Phone, user.FirstName, user.LastName,
	).Scan(&user.ID, &user.IsAdmin, &user.Status, &user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// CreateAgency はエージェンシーを承認待ちで作成し、管理者に通知する。
// 管理者が存在しない場合は通知を省略する。
func (r *PostgresAccountRepo) CreateAgency(ctx context.Context, agency *model.Agency, adminMessage string) error {
	tx, err := r.beginRegistration(ctx, agency.Username, agency.Email)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx,
		`INSERT INTO agencies (username, password_hash, email, phone, company_name, trade_license, status)
		 VALUES ($1, $2, $3, $4, $5, $6, 'pending')
		 RETURNING id, status, created_at`,
		agency.Username, agency.PasswordHash, agency.Email, agency.Phone, agency.CompanyName, agency.TradeLicense,
	).Scan(&agency.ID, &agency.Status, &agency.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert agency: %w", err)
	}

	var adminID int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM users WHERE is_admin`).Scan(&adminID)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return fmt.Errorf("failed to find admin: %w", err)
	default:
		if err := insertNotification(ctx, tx, model.UserOwner(adminID), adminMessage, model.NotificationInfo); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// beginRegistration はトランザクションを開始してアドバイザリロックを取得し、
// ユーザー名とメールアドレスが両テーブルで未使用であることを確認する。
// 使用済みの場合はトランザクションをロールバックしてErrDuplicateを返す。
func (r *PostgresAccountRepo) beginRegistration(ctx context.Context, username, email string) (*sql.Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, registrationLockKey); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to acquire registration lock: %w", err)
	}

	var taken bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 OR email = $2)
		     OR EXISTS (SELECT 1 FROM agencies WHERE username = $1 OR email = $2)`,
		username, email,
	).Scan(&taken)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to check account uniqueness: %w", err)
	}
	if taken {
		tx.Rollback()
		return nil, ErrDuplicate
	}

	return tx, nil
}

// compile-time interface check
var _ AccountRepository = (*PostgresAccountRepo)(nil)
