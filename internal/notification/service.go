// Package notification は主体ごとの通知の作成と一覧を提供する。
package notification

import (
	"context"
	"fmt"

	"github.com/hitoshi/jobboard/internal/metrics"
	"github.com/hitoshi/jobboard/internal/model"
	"github.com/hitoshi/jobboard/internal/repository"
)

// Service は通知のサービス層。
type Service struct {
	repo    repository.NotificationRepository
	metrics metrics.MetricsCollector
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.NotificationRepository, collector metrics.MetricsCollector) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{repo: repo, metrics: collector}
}

// Notify は所有者宛てに通知を1件作成する。categoryが空の場合はinfoになる。
func (s *Service) Notify(ctx context.Context, owner model.OwnerRef, message, category string) error {
	if owner.IsZero() {
		return fmt.Errorf("通知の宛先が指定されていません")
	}
	if category == "" {
		category = model.NotificationInfo
	}

	n := &model.Notification{
		Owner:    owner,
		Message:  message,
		Category: category,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("通知の作成に失敗しました: %w", err)
	}
	s.metrics.RecordNotifications(1)
	return nil
}

// List はログイン中の主体宛ての通知を新しい順に返す。
func (s *Service) List(ctx context.Context, p *model.Principal) ([]*model.Notification, error) {
	if p == nil {
		return nil, model.NewUnauthenticatedError()
	}

	notifications, err := s.repo.ListByOwner(ctx, p.Owner())
	if err != nil {
		return nil, fmt.Errorf("通知一覧の取得に失敗しました: %w", err)
	}
	return notifications, nil
}
