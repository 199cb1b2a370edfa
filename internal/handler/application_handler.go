package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/jobboard/internal/application"
	"github.com/hitoshi/jobboard/internal/middleware"
	"github.com/hitoshi/jobboard/internal/model"
)

// ApplicationServiceInterface は応募ハンドラーが必要とするサービスインターフェース。
type ApplicationServiceInterface interface {
	Prepare(ctx context.Context, p *model.Principal, jobID int64) (*model.JobListing, error)
	Apply(ctx context.Context, p *model.Principal, jobID int64, in application.ApplyInput, cv io.Reader) (*model.Application, error)
	Approve(ctx context.Context, p *model.Principal, applicationID int64) error
	Reject(ctx context.Context, p *model.Principal, applicationID int64) error
	ListForJob(ctx context.Context, p *model.Principal, jobID int64) (*model.Job, []model.ApplicantView, error)
	MyApplications(ctx context.Context, p *model.Principal) ([]model.MyActivity, error)
	AuthorizeCV(ctx context.Context, p *model.Principal, filename string) error
}

// CVLocator は保存済み履歴書ファイルのパスを解決するインターフェース。
type CVLocator interface {
	Path(filename string) (string, bool)
}

// ApplicationHandler は応募と審査のHTTPハンドラー。
type ApplicationHandler struct {
	service  ApplicationServiceInterface
	cvs      CVLocator
	renderer *Renderer
}

// NewApplicationHandler はApplicationHandlerを生成する。
func NewApplicationHandler(service ApplicationServiceInterface, cvs CVLocator, renderer *Renderer) *ApplicationHandler {
	return &ApplicationHandler{
		service:  service,
		cvs:      cvs,
		renderer: renderer,
	}
}

// applyFormPage は応募フォームの表示データ。
type applyFormPage struct {
	Job   *model.JobListing
	Input application.ApplyInput
}

// applicantsPage はエージェンシー向け応募者一覧の表示データ。
type applicantsPage struct {
	Job        *model.Job
	Applicants []model.ApplicantView
}

// ApplyForm は応募フォームを表示する。氏名とメールアドレスはプロフィールから補完する。
// GET /jobs/{id}/apply
func (h *ApplicationHandler) ApplyForm(w http.ResponseWriter, r *http.Request) {
	jobID, err := pathID(r, "id", model.NewJobNotFoundError)
	if err != nil {
		h.renderer.handleServiceError(w, r, err)
		return
	}

	p := middleware.PrincipalFromContext(r.Context())
	listing, err := h.service.Prepare(r.Context(), p, jobID)
	if err != nil {
		h.renderer.handleServiceError(w, r, err)
		return
	}

	h.renderer.Render(w, r, http.StatusOK, "apply", applyFormPage{
		Job: listing,
		Input: application.ApplyInput{
			Name:    p.DisplayName,
			Email:   p.Email,
			Contact: p.Phone,
		},
	})
}

// Apply は履歴書ファイルを添付して応募する。
// POST /jobs/{id}/apply
func (h *ApplicationHandler) Apply(w http.ResponseWriter, r *http.Request) {
	jobID, err := pathID(r, "id", model.NewJobNotFoundError)
	if err != nil {
		h.renderer.handleServiceError(w, r, err)
		return
	}

	in := application.ApplyInput{
		Name:    formValue(r, "name"),
		Email:   formValue(r, "email"),
		Contact: formValue(r, "contact"),
	}

	var cv io.Reader
	file, _, err := r.FormFile("cv")
	switch {
	case err == nil:
		defer file.Close()
		cv = file
	case errors.Is(err, http.ErrMissingFile):
		// 未添付はサービス層でMISSING_CVにする
	default:
		h.renderer.handleServiceError(w, r, model.NewValidationError("cv", "ファイルを読み取れません"))
		return
	}

	p := middleware.PrincipalFromContext(r.Context())
	if _, err := h.service.Apply(r.Context(), p, jobID, in, cv); err != nil {
		page := applyFormPage{Input: in}
		// フォーム再描画用に求人を取り直す。取れなければエラーページにする
		if listing, prepErr := h.service.Prepare(r.Context(), p, jobID); prepErr == nil {
			page.Job = listing
			h.renderer.handleFormError(w, r, "apply", page, err)
			return
		}
		h.renderer.handleServiceError(w, r, err)
		return
	}

	redirectWithNotice(w, r, "/my/applications", "applied")
}

// ListForJob は所有する求人への応募者一覧を表示する。
// GET /agency/jobs/{id}/applications
func (h *ApplicationHandler) ListForJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := pathID(r, "id", model.NewJobNotFoundError)
	if err != nil {
		h.renderer.handleServiceError(w, r, err)
		return
	}

	j, applicants, err := h.service.ListForJob(r.Context(), middleware.PrincipalFromContext(r.Context()), jobID)
	if err != nil {
		h.renderer.handleServiceError(w, r, err)
		return
	}
	h.renderer.Render(w, r, http.StatusOK, "applicants", applicantsPage{Job: j, Applicants: applicants})
}

// Approve は応募を承認する。
// POST /agency/applications/{id}/approve
func (h *ApplicationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Approve, "app_approved")
}

// Reject は応募を不採用にする。
// POST /agency/applications/{id}/reject
func (h *ApplicationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Reject, "app_rejected")
}

func (h *ApplicationHandler) decide(
	w http.ResponseWriter,
	r *http.Request,
	action func(ctx context.Context, p *model.Principal, applicationID int64) error,
	notice string,
) {
	id, err := pathID(r, "id", model.NewApplicationNotFoundError)
	if err != nil {
		h.renderer.handleServiceError(w, r, err)
		return
	}

	if err := action(r.Context(), middleware.PrincipalFromContext(r.Context()), id); err != nil {
		h.renderer.handleServiceError(w, r, err)
		return
	}
	redirectWithNotice(w, r, localPath(r.PostFormValue("next"), "/agency/dashboard"), notice)
}

// MyApplications は求職者の応募とブックマークを表示する。
// GET /my/applications
func (h *ApplicationHandler) MyApplications(w http.ResponseWriter, r *http.Request) {
	activity, err := h.service.MyApplications(r.Context(), middleware.PrincipalFromContext(r.Context()))
	if err != nil {
		h.renderer.handleServiceError(w, r, err)
		return
	}
	h.renderer.Render(w, r, http.StatusOK, "my_applications", activity)
}

// ServeCV は保存済みの履歴書を返す。
// 閲覧できるのは応募先求人のエージェンシーと応募者本人のみ。
// GET /uploads/{filename}
func (h *ApplicationHandler) ServeCV(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	path, ok := h.cvs.Path(filename)
	if !ok {
		h.renderer.renderNotFound(w, r)
		return
	}
	if err := h.service.AuthorizeCV(r.Context(), middleware.PrincipalFromContext(r.Context()), filename); err != nil {
		h.renderer.handleServiceError(w, r, err)
		return
	}
	if _, err := os.Stat(path); err != nil {
		h.renderer.renderNotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "inline")
	http.ServeFile(w, r, path)
}
