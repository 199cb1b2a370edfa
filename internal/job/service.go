// Package job は求人の掲載・閲覧・編集のドメインロジックを提供する。
package job

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/jobboard/internal/metrics"
	"github.com/hitoshi/jobboard/internal/model"
	"github.com/hitoshi/jobboard/internal/repository"
	"github.com/hitoshi/jobboard/internal/security"
	"github.com/hitoshi/jobboard/internal/validate"
)

// DateLayout は締切日の入力形式。
const DateLayout = "2006-01-02"

// Input は求人の作成・編集フォームの入力。
type Input struct {
	Title       string `form:"title" validate:"required,max=100"`
	Country     string `form:"country" validate:"required,max=50"`
	Deadline    string `form:"deadline" validate:"required,datetime=2006-01-02"`
	Description string `form:"description" validate:"required,max=20000"`
}

// Service は求人のサービス層。
type Service struct {
	repo      repository.JobRepository
	sanitizer security.ContentSanitizer
	metrics   metrics.MetricsCollector
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.JobRepository, sanitizer security.ContentSanitizer, collector metrics.MetricsCollector) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
		metrics:   collector,
		now:       time.Now,
	}
}

// List は公開中の求人を新しい順に返す。
// 閲覧者が求職者の場合は応募済み・ブックマーク済みの状態を付与する。
func (s *Service) List(ctx context.Context, p *model.Principal) ([]model.JobListing, error) {
	var viewer *int64
	if p.IsJobSeeker() {
		id := p.ID
		viewer = &id
	}

	jobs, err := s.repo.ListLive(ctx, viewer)
	if err != nil {
		return nil, fmt.Errorf("求人一覧の取得に失敗しました: %w", err)
	}
	return jobs, nil
}

// Detail は閲覧数を1増やしてから求人詳細を返す。
func (s *Service) Detail(ctx context.Context, id int64) (*model.JobListing, error) {
	ok, err := s.repo.IncrementViews(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("閲覧数の更新に失敗しました: %w", err)
	}
	if !ok {
		return nil, model.NewJobNotFoundError(id)
	}

	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("求人の取得に失敗しました: %w", err)
	}
	if job == nil {
		return nil, model.NewJobNotFoundError(id)
	}
	return job, nil
}

// Create はエージェンシーの求人を作成し、全ての求職者に通知する。
func (s *Service) Create(ctx context.Context, p *model.Principal, in Input) (*model.Job, error) {
	if err := model.RequireAgency(p); err != nil {
		return nil, err
	}
	job, err := s.buildJob(in)
	if err != nil {
		return nil, err
	}
	job.AgencyID = p.ID

	msg := fmt.Sprintf("New job posted: %s in %s!", job.Title, job.Country)
	notified, err := s.repo.CreateWithFanout(ctx, job, msg)
	if err != nil {
		return nil, fmt.Errorf("求人の作成に失敗しました: %w", err)
	}
	s.metrics.RecordNotifications(notified)

	slog.Info("job posted",
		slog.Int64("job_id", job.ID),
		slog.Int64("agency_id", p.ID),
		slog.Int("notified", notified),
	)
	return job, nil
}

// FindOwned は編集フォーム用に所有する求人を返す。
func (s *Service) FindOwned(ctx context.Context, p *model.Principal, id int64) (*model.Job, error) {
	if err := model.RequireAgency(p); err != nil {
		return nil, err
	}

	job, err := s.repo.FindOwned(ctx, id, p.ID)
	if err != nil {
		return nil, fmt.Errorf("求人の取得に失敗しました: %w", err)
	}
	if job == nil {
		return nil, model.NewJobNotFoundError(id)
	}
	return job, nil
}

// Update は所有する求人を更新する。所有していない場合はJOB_NOT_FOUNDを返す。
func (s *Service) Update(ctx context.Context, p *model.Principal, id int64, in Input) (*model.Job, error) {
	if err := model.RequireAgency(p); err != nil {
		return nil, err
	}
	job, err := s.buildJob(in)
	if err != nil {
		return nil, err
	}
	job.ID = id
	job.AgencyID = p.ID

	ok, err := s.repo.Update(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("求人の更新に失敗しました: %w", err)
	}
	if !ok {
		return nil, model.NewJobNotFoundError(id)
	}
	return job, nil
}

// Delete は所有する求人を削除する。応募とブックマークも連鎖して削除される。
func (s *Service) Delete(ctx context.Context, p *model.Principal, id int64) error {
	if err := model.RequireAgency(p); err != nil {
		return err
	}

	ok, err := s.repo.Delete(ctx, id, p.ID)
	if err != nil {
		return fmt.Errorf("求人の削除に失敗しました: %w", err)
	}
	if !ok {
		return model.NewJobNotFoundError(id)
	}
	slog.Info("job deleted", slog.Int64("job_id", id), slog.Int64("agency_id", p.ID))
	return nil
}

// Dashboard はエージェンシーの求人を応募数付きで返す。
func (s *Service) Dashboard(ctx context.Context, p *model.Principal) ([]model.AgencyJobSummary, error) {
	if err := model.RequireAgency(p); err != nil {
		return nil, err
	}

	jobs, err := s.repo.ListByAgency(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("求人一覧の取得に失敗しました: %w", err)
	}
	return jobs, nil
}

// buildJob は入力を検証し、サニタイズ済みのJobを組み立てる。
// 締切日は今日以降でなければならない。
func (s *Service) buildJob(in Input) (*model.Job, error) {
	in.Title = s.sanitizer.PlainText(in.Title)
	in.Country = s.sanitizer.PlainText(in.Country)
	in.Description = s.sanitizer.RichText(in.Description)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	deadline, err := time.Parse(DateLayout, in.Deadline)
	if err != nil {
		return nil, model.NewValidationError("deadline", "日付の形式ではありません")
	}
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if deadline.Before(today) {
		return nil, model.NewValidationError("deadline", "今日以降の日付を指定してください")
	}

	return &model.Job{
		Title:       in.Title,
		Country:     in.Country,
		Deadline:    deadline,
		Description: in.Description,
	}, nil
}
