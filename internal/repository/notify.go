package repository

import (
	"context"
	"fmt"

	"github.com/hitoshi/jobboard/internal/model"
)

// insertNotification は通知を1件追加する。
// ワークフロー系のメソッドからトランザクション内で呼ばれる。
func insertNotification(ctx context.Context, q execer, owner model.OwnerRef, message, category string) error {
	if owner.IsZero() {
		return fmt.Errorf("notification owner is not set")
	}
	if category == "" {
		category = model.NotificationInfo
	}
	userID, agencyID := owner.Columns()
	_, err := q.ExecContext(ctx,
		`INSERT INTO notifications (message, category, user_id, agency_id)
		 VALUES ($1, $2, $3, $4)`,
		message, category, userID, agencyID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}
