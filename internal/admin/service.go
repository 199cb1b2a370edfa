// Package admin は管理者ダッシュボードとエージェンシーの承認フローを提供する。
package admin

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/jobboard/internal/model"
	"github.com/hitoshi/jobboard/internal/repository"
)

const verifiedMessage = "Congratulations! Your agency account has been approved by the admin."

// Dashboard は管理者ダッシュボードの表示内容。
type Dashboard struct {
	Stats            model.AdminStats
	PendingAgencies  []*model.Agency
	VerifiedAgencies []*model.Agency
	JobSeekers       []*model.User
}

// Service は管理者機能のサービス層。
type Service struct {
	agencyRepo repository.AgencyRepository
	userRepo   repository.UserRepository
	statsRepo  repository.StatsRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	agencyRepo repository.AgencyRepository,
	userRepo repository.UserRepository,
	statsRepo repository.StatsRepository,
) *Service {
	return &Service{
		agencyRepo: agencyRepo,
		userRepo:   userRepo,
		statsRepo:  statsRepo,
	}
}

// Dashboard は集計値と、承認待ち・承認済みエージェンシー、求職者の一覧を返す。
func (s *Service) Dashboard(ctx context.Context, p *model.Principal) (*Dashboard, error) {
	if err := model.RequireAdmin(p); err != nil {
		return nil, err
	}

	stats, err := s.statsRepo.AdminStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("集計値の取得に失敗しました: %w", err)
	}
	pending, err := s.agencyRepo.ListByStatus(ctx, model.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("承認待ちエージェンシーの取得に失敗しました: %w", err)
	}
	verified, err := s.agencyRepo.ListByStatus(ctx, model.StatusVerified)
	if err != nil {
		return nil, fmt.Errorf("承認済みエージェンシーの取得に失敗しました: %w", err)
	}
	seekers, err := s.userRepo.ListJobSeekers(ctx)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}

	return &Dashboard{
		Stats:            stats,
		PendingAgencies:  pending,
		VerifiedAgencies: verified,
		JobSeekers:       seekers,
	}, nil
}

// VerifyAgency は承認待ちのエージェンシーを承認し、本人に通知する。
func (s *Service) VerifyAgency(ctx context.Context, p *model.Principal, agencyID int64) error {
	if err := model.RequireAdmin(p); err != nil {
		return err
	}

	ok, err := s.agencyRepo.Verify(ctx, agencyID, verifiedMessage)
	if err != nil {
		return fmt.Errorf("エージェンシーの承認に失敗しました: %w", err)
	}
	if !ok {
		return model.NewAgencyNotPendingError(agencyID)
	}

	slog.Info("agency verified", slog.Int64("agency_id", agencyID))
	return nil
}

// RejectAgency は承認待ちのエージェンシーを削除する。
func (s *Service) RejectAgency(ctx context.Context, p *model.Principal, agencyID int64) error {
	if err := model.RequireAdmin(p); err != nil {
		return err
	}

	ok, err := s.agencyRepo.DeletePending(ctx, agencyID)
	if err != nil {
		return fmt.Errorf("エージェンシーの削除に失敗しました: %w", err)
	}
	if !ok {
		return model.NewAgencyNotPendingError(agencyID)
	}

	slog.Info("agency rejected", slog.Int64("agency_id", agencyID))
	return nil
}
