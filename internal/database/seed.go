package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Executor はSQLの実行を抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// AdminSeed は初期管理者アカウントの設定。
// パスワードはハッシュ化済みの値を渡す。
type AdminSeed struct {
	Username     string
	Email        string
	PasswordHash string
}

// SeedAdmin は管理者が存在しない場合にのみ管理者アカウントを作成する。
// 競合先をusers_single_admin部分ユニークインデックスに限定しているため、
// 複数プロセスから同時に呼ばれても管理者は1人に保たれ、
// 一般ユーザーとのユーザー名・メールアドレスの重複はエラーになる。
// 作成した場合はtrueを返す。
func SeedAdmin(ctx context.Context, db Executor, seed AdminSeed) (bool, error) {
	if seed.Username == "" || seed.Email == "" || seed.PasswordHash == "" {
		return false, fmt.Errorf("admin seed requires username, email and password hash")
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, email, firstname, lastname, is_admin, status)
		 SELECT $1, $2, $3, 'Admin', 'User', TRUE, 'verified'
		 WHERE NOT EXISTS (SELECT 1 FROM agencies WHERE username = $1 OR email = $3)
		 ON CONFLICT (is_admin) WHERE is_admin DO NOTHING`,
		seed.Username, seed.PasswordHash, seed.Email,
	)
	if err != nil {
		return false, fmt.Errorf("failed to seed admin: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n > 0 {
		return true, nil
	}

	var exists bool
	if err := db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE is_admin)`,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check admin: %w", err)
	}
	if !exists {
		return false, fmt.Errorf("admin %q was not created: username or email is used by an agency", seed.Username)
	}
	return false, nil
}
