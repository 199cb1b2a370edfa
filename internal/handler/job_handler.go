package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/jobboard/internal/feed"
	"github.com/hitoshi/jobboard/internal/job"
	"github.com/hitoshi/jobboard/internal/middleware"
	"github.com/hitoshi/jobboard/internal/model"
)

// JobServiceInterface は求人ハンドラーが必要とするサービスインターフェース。
type JobServiceInterface interface {
	List(ctx context.Context, p *model.Principal) ([]model.JobListing, error)
	Detail(ctx context.Context, id int64) (*model.JobListing, error)
	Create(ctx context.Context, p *model.Principal, in job.Input) (*model.Job, error)
	FindOwned(ctx context.Context, p *model.Principal, id int64) (*model.Job, error)
	Update(ctx context.Context, p *model.Principal, id int64, in job.Input) (*model.Job, error)
	Delete(ctx context.Context, p *model.Principal, id int64) error
	Dashboard(ctx context.Context, p *model.Principal) ([]model.AgencyJobSummary, error)
}

// JobHandler は求人の閲覧と掲載のHTTPハンドラー。
type JobHandler struct {
	service  JobServiceInterface
	renderer *Renderer
	baseURL  string
}

// NewJobHandler はJobHandlerを生成する。
// baseURLはRSSフィードのリンク生成に使う。
func NewJobHandler(service JobServiceInterface, renderer *Renderer, baseURL string) *JobHandler {
	return &JobHandler{
		service:  service,
		renderer: renderer,
		baseURL:  baseURL,
	}
}

// jobFormPage は求人の作成・編集フォームの表示データ。
type jobFormPage struct {
	JobID int64 // 0なら新規作成
	Input job.Input
}

// Index はトップページを表示する。
// GET /
func (h *JobHandler) Index(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.service.List(r.Context(), middleware.PrincipalFromContext(r.Context()))
	if err != nil {
		h.renderer.handleServiceError(w, r, err)
		return
	}
	if len(jobs) > 5 {
		jobs = jobs[:5]
	}
	h.renderer.Render(w, r, http.StatusOK, "index", jobs)
}

// List は公開中の求人一覧を表示する。
// GET /jobs
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.service.List(r.Context(), middleware.PrincipalFromContext(r.Context()))
	if err != nil {
		h.renderer.handleServiceError(w, r, err)
		return
	}
	h.renderer.Render(w, r, http.StatusOK, "jobs", jobs)
}

// Feed は公開中の求人をRSS 2.0で配信する。
// GET /jobs/feed.xml
func (h *JobHandler) Feed(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.service.List(r.Context(), nil)
	if err != nil {
		h.renderer.handleServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", feed.ContentType)
	if err := feed.Write(w, h.baseURL, jobs); err != nil {
		// ヘッダー送信後のためログのみ
		slog.Error("failed to write rss feed", slog.String("error", err.Error()))
	}
}

// Detail は求人詳細を表示し、閲覧数を1増やす。
// GET /jobs/{id}
func (h *JobHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", model.NewJobNotFoundError)
	if err != nil {
		h.renderer.handleServiceError(w, r, err)
		return
	}

	listing, err := h.service.Detail(r.Context(), id)
	if err != nil {
		h.renderer.handleServiceError(w, r, err)
		return
	}
	h.renderer.Render(w, r, http.StatusOK, "job_detail", listing)
}

// Dashboard はエージェンシーの掲載求人を応募数付きで表示する。
// GET /agency/dashboard
func (h *JobHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.service.Dashboard(r.Context(), middleware.PrincipalFromContext(r.Context()))
	if err != nil {
		h.renderer.handleServiceError(w, r, err)
		return
	}
	h.renderer.Render(w, r, http.StatusOK, "agency_dashboard", jobs)
}

// NewForm は求人の作成フォームを表示する。
// GET /agency/jobs/new
func (h *JobHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	if err := model.RequireAgency(middleware.PrincipalFromContext(r.Context())); err != nil {
		h.renderer.handleServiceError(w, r, err)
		return
	}
	h.renderer.Render(w, r, http.StatusOK, "job_form", jobFormPage{})
}

// Create は求人を掲載する。
// POST /agency/jobs/new
func (h *JobHandler) Create(w http.ResponseWriter, r *http.Request) {
	in := jobInputFromForm(r)

	if _, err := h.service.Create(r.Context(), middleware.PrincipalFromContext(r.Context()), in); err != nil {
		h.renderer.handleFormError(w, r, "job_form", jobFormPage{Input: in}, err)
		return
	}
	redirectWithNotice(w, r, "/agency/dashboard", "job_posted")
}

// EditForm は所有する求人の編集フォームを表示する。
// GET /agency/jobs/{id}/edit
func (h *JobHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", model.NewJobNotFoundError)
	if err != nil {
		h.renderer.handleServiceError(w, r, err)
		return
	}

	j, err := h.service.FindOwned(r.Context(), middleware.PrincipalFromContext(r.Context()), id)
	if err != nil {
		h.renderer.handleServiceError(w, r, err)
		return
	}

	h.renderer.Render(w, r, http.StatusOK, "job_form", jobFormPage{
		JobID: j.ID,
		Input: job.Input{
			Title:       j.Title,
			Country:     j.Country,
			Deadline:    j.Deadline.Format(job.DateLayout),
			Description: j.Description,
		},
	})
}

// Update は所有する求人を更新する。
// POST /agency/jobs/{id}/edit
func (h *JobHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", model.NewJobNotFoundError)
	if err != nil {
		h.renderer.handleServiceError(w, r, err)
		return
	}

	in := jobInputFromForm(r)
	if _, err := h.service.Update(r.Context(), middleware.PrincipalFromContext(r.Context()), id, in); err != nil {
		h.renderer.handleFormError(w, r, "job_form", jobFormPage{JobID: id, Input: in}, err)
		return
	}
	redirectWithNotice(w, r, "/agency/dashboard", "job_updated")
}

// Delete は所有する求人を削除する。応募とブックマークも連鎖削除される。
// POST /agency/jobs/{id}/delete
func (h *JobHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", model.NewJobNotFoundError)
	if err != nil {
		h.renderer.handleServiceError(w, r, err)
		return
	}

	if err := h.service.Delete(r.Context(), middleware.PrincipalFromContext(r.Context()), id); err != nil {
		h.renderer.handleServiceError(w, r, err)
		return
	}
	redirectWithNotice(w, r, "/agency/dashboard", "job_deleted")
}

func jobInputFromForm(r *http.Request) job.Input {
	return job.Input{
		Title:       formValue(r, "title"),
		Country:     formValue(r, "country"),
		Deadline:    formValue(r, "deadline"),
		Description: r.PostFormValue("description"),
	}
}
