package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/jobboard/internal/model"
)

// PostgresNotificationRepo はPostgreSQLを使用した通知リポジトリ。
type PostgresNotificationRepo struct {
	db *sql.DB
}

// NewPostgresNotificationRepo はPostgresNotificationRepoを生成する。
func NewPostgresNotificationRepo(db *sql.DB) *PostgresNotificationRepo {
	return &PostgresNotificationRepo{db: db}
}

// Create は通知を作成する。
func (r *PostgresNotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	return insertNotification(ctx, r.db, n.Owner, n.Message, n.Category)
}

// ListByOwner は所有者宛ての通知を作成日時の新しい順に返す。
func (r *PostgresNotificationRepo) ListByOwner(ctx context.Context, owner model.OwnerRef) ([]*model.Notification, error) {
	column := "user_id"
	if owner.Kind() == model.PrincipalAgency {
		column = "agency_id"
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, message, category, is_read, created_at, user_id, agency_id
		 FROM notifications
		 WHERE `+column+` = $1
		 ORDER BY created_at DESC, id DESC`,
		owner.ID(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*model.Notification
	for rows.Next() {
		n := &model.Notification{}
		var userID, agencyID sql.NullInt64
		if err := rows.Scan(&n.ID, &n.Message, &n.Category, &n.IsRead, &n.CreatedAt, &userID, &agencyID); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.Owner, err = OwnerFromNullColumns(userID, agencyID)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notifications: %w", err)
	}
	return notifications, nil
}

// OwnerFromNullColumns はNULL許容の(user_id, agency_id)列からOwnerRefを復元する。
func OwnerFromNullColumns(userID, agencyID sql.NullInt64) (model.OwnerRef, error) {
	var u, a *int64
	if userID.Valid {
		u = &userID.Int64
	}
	if agencyID.Valid {
		a = &agencyID.Int64
	}
	return model.OwnerFromColumns(u, a)
}

// compile-time interface check
var _ NotificationRepository = (*PostgresNotificationRepo)(nil)
