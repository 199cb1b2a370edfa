// Package application は求人への応募と、エージェンシーによる審査を提供する。
package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/hitoshi/jobboard/internal/metrics"
	"github.com/hitoshi/jobboard/internal/model"
	"github.com/hitoshi/jobboard/internal/repository"
	"github.com/hitoshi/jobboard/internal/storage"
	"github.com/hitoshi/jobboard/internal/validate"
)

// 応募者への審査結果の通知文
const (
	approvedMessage = "Congratulations! Your job application has been approved."
	rejectedMessage = "Your job application has been rejected."
)

// ApplyInput は応募フォームの入力。履歴書ファイルは別に受け取る。
type ApplyInput struct {
	Name    string `form:"name" validate:"required,max=100"`
	Email   string `form:"email" validate:"required,email,max=120"`
	Contact string `form:"contact" validate:"required,max=20"`
}

// Service は応募のサービス層。
type Service struct {
	jobRepo repository.JobRepository
	appRepo repository.ApplicationRepository
	cvStore storage.CVStore
	metrics metrics.MetricsCollector
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	jobRepo repository.JobRepository,
	appRepo repository.ApplicationRepository,
	cvStore storage.CVStore,
	collector metrics.MetricsCollector,
) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{
		jobRepo: jobRepo,
		appRepo: appRepo,
		cvStore: cvStore,
		metrics: collector,
	}
}

// Prepare は応募フォームの表示前に、求人の存在と未応募であることを確認する。
func (s *Service) Prepare(ctx context.Context, p *model.Principal, jobID int64) (*model.JobListing, error) {
	if err := model.RequireJobSeeker(p); err != nil {
		return nil, err
	}
	return s.findApplicableJob(ctx, p, jobID)
}

// Apply は履歴書を保存して応募を作成する。
// 応募と同時に同じ求人のブックマークを削除し、求人のエージェンシーに通知する。
func (s *Service) Apply(ctx context.Context, p *model.Principal, jobID int64, in ApplyInput, cv io.Reader) (*model.Application, error) {
	if err := model.RequireJobSeeker(p); err != nil {
		return nil, err
	}
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	job, err := s.findApplicableJob(ctx, p, jobID)
	if err != nil {
		return nil, err
	}
	if cv == nil {
		return nil, model.NewMissingCVError()
	}

	filename, err := s.cvStore.Save(p.Username, jobID, cv)
	switch {
	case errors.Is(err, storage.ErrNotPDF):
		return nil, model.NewValidationError("cv", "PDFファイルを指定してください")
	case errors.Is(err, storage.ErrTooLarge):
		return nil, model.NewValidationError("cv", "ファイルサイズが上限を超えています")
	case err != nil:
		return nil, fmt.Errorf("履歴書の保存に失敗しました: %w", err)
	}

	app := &model.Application{
		Name:    in.Name,
		Email:   in.Email,
		Contact: in.Contact,
		CVPath:  filename,
		Status:  model.ApplicationPending,
		UserID:  p.ID,
		JobID:   jobID,
	}
	msg := fmt.Sprintf("A new application has been submitted for your job: '%s'.", job.Title)

	created, err := s.appRepo.Submit(ctx, app, msg)
	if err != nil || !created {
		if rmErr := s.cvStore.Remove(filename); rmErr != nil {
			slog.Warn("failed to remove orphan cv",
				slog.String("file", filename),
				slog.String("error", rmErr.Error()),
			)
		}
	}
	if errors.Is(err, repository.ErrJobNotLive) {
		return nil, model.NewJobNotFoundError(jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("応募の作成に失敗しました: %w", err)
	}
	if !created {
		return nil, model.NewAlreadyAppliedError()
	}

	s.metrics.RecordApplication(string(model.ApplicationPending))
	slog.Info("application submitted",
		slog.Int64("application_id", app.ID),
		slog.Int64("job_id", jobID),
		slog.Int64("user_id", p.ID),
	)
	return app, nil
}

// Approve は審査待ちの応募を採用にし、応募者に通知する。
func (s *Service) Approve(ctx context.Context, p *model.Principal, applicationID int64) error {
	return s.decide(ctx, p, applicationID, model.ApplicationApproved, approvedMessage)
}

// Reject は審査待ちの応募を不採用にし、応募者に通知する。
func (s *Service) Reject(ctx context.Context, p *model.Principal, applicationID int64) error {
	return s.decide(ctx, p, applicationID, model.ApplicationRejected, rejectedMessage)
}

// decide は応募の審査結果を確定する。審査済みの応募は変更できない。
func (s *Service) decide(ctx context.Context, p *model.Principal, id int64, status model.ApplicationStatus, message string) error {
	if err := model.RequireAgency(p); err != nil {
		return err
	}

	app, err := s.appRepo.FindForAgency(ctx, id, p.ID)
	if err != nil {
		return fmt.Errorf("応募の取得に失敗しました: %w", err)
	}
	if app == nil {
		return model.NewApplicationNotFoundError(id)
	}
	if app.Status != model.ApplicationPending {
		return model.NewApplicationFinalizedError(app.Status)
	}

	ok, err := s.appRepo.Decide(ctx, id, p.ID, status, message)
	if err != nil {
		return fmt.Errorf("応募の審査に失敗しました: %w", err)
	}
	if !ok {
		// 確認後に別リクエストで審査された
		return model.NewApplicationFinalizedError(status)
	}

	s.metrics.RecordApplication(string(status))
	slog.Info("application decided",
		slog.Int64("application_id", id),
		slog.String("status", string(status)),
	)
	return nil
}

// ListForJob は所有する求人の応募者一覧を返す。
func (s *Service) ListForJob(ctx context.Context, p *model.Principal, jobID int64) (*model.Job, []model.ApplicantView, error) {
	if err := model.RequireAgency(p); err != nil {
		return nil, nil, err
	}

	job, err := s.jobRepo.FindOwned(ctx, jobID, p.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("求人の取得に失敗しました: %w", err)
	}
	if job == nil {
		return nil, nil, model.NewJobNotFoundError(jobID)
	}

	applicants, err := s.appRepo.ListForJob(ctx, jobID)
	if err != nil {
		return nil, nil, fmt.Errorf("応募者一覧の取得に失敗しました: %w", err)
	}
	return job, applicants, nil
}

// MyApplications は求職者の応募とブックマークを新しい順にまとめて返す。
func (s *Service) MyApplications(ctx context.Context, p *model.Principal) ([]model.MyActivity, error) {
	if err := model.RequireJobSeeker(p); err != nil {
		return nil, err
	}

	rows, err := s.appRepo.ListActivity(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("応募状況の取得に失敗しました: %w", err)
	}
	return rows, nil
}

// AuthorizeCV は履歴書ファイルの閲覧権限を確認する。
// 応募先求人のエージェンシーと応募者本人以外には、存在しない場合と同じエラーを返す。
func (s *Service) AuthorizeCV(ctx context.Context, p *model.Principal, filename string) error {
	if p == nil {
		return model.NewUnauthenticatedError()
	}

	ok, err := s.appRepo.CanReadCV(ctx, filename, p.Owner())
	if err != nil {
		return fmt.Errorf("履歴書の閲覧権限の確認に失敗しました: %w", err)
	}
	if !ok {
		return model.NewCVNotFoundError()
	}
	return nil
}

func (s *Service) findApplicableJob(ctx context.Context, p *model.Principal, jobID int64) (*model.JobListing, error) {
	job, err := s.jobRepo.FindByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("求人の取得に失敗しました: %w", err)
	}
	if job == nil {
		return nil, model.NewJobNotFoundError(jobID)
	}

	applied, err := s.appRepo.Exists(ctx, p.ID, jobID)
	if err != nil {
		return nil, fmt.Errorf("応募状況の確認に失敗しました: %w", err)
	}
	if applied {
		return nil, model.NewAlreadyAppliedError()
	}
	return job, nil
}
