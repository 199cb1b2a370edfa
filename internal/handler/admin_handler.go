package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/jobboard/internal/admin"
	"github.com/hitoshi/jobboard/internal/middleware"
	"github.com/hitoshi/jobboard/internal/model"
)

// AdminServiceInterface は管理者ハンドラーが必要とするサービスインターフェース。
type AdminServiceInterface interface {
	Dashboard(ctx context.Context, p *model.Principal) (*admin.Dashboard, error)
	VerifyAgency(ctx context.Context, p *model.Principal, agencyID int64) error
	RejectAgency(ctx context.Context, p *model.Principal, agencyID int64) error
}

// AdminHandler は管理者ダッシュボードのHTTPハンドラー。
type AdminHandler struct {
	service  AdminServiceInterface
	renderer *Renderer
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(service AdminServiceInterface, renderer *Renderer) *AdminHandler {
	return &AdminHandler{service: service, renderer: renderer}
}

// Dashboard は集計値と承認待ちエージェンシーを表示する。
// GET /admin/dashboard
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Dashboard(r.Context(), middleware.PrincipalFromContext(r.Context()))
	if err != nil {
		h.renderer.handleServiceError(w, r, err)
		return
	}
	h.renderer.Render(w, r, http.StatusOK, "admin_dashboard", d)
}

// VerifyAgency はエージェンシーを承認する。
// POST /admin/agencies/{id}/verify
func (h *AdminHandler) VerifyAgency(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.service.VerifyAgency, "agency_verified")
}

// RejectAgency は承認待ちのエージェンシーを削除する。
// POST /admin/agencies/{id}/reject
func (h *AdminHandler) RejectAgency(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.service.RejectAgency, "agency_rejected")
}

func (h *AdminHandler) review(
	w http.ResponseWriter,
	r *http.Request,
	action func(ctx context.Context, p *model.Principal, agencyID int64) error,
	notice string,
) {
	id, err := pathID(r, "id", model.NewAgencyNotPendingError)
	if err != nil {
		h.renderer.handleServiceError(w, r, err)
		return
	}

	if err := action(r.Context(), middleware.PrincipalFromContext(r.Context()), id); err != nil {
		h.renderer.handleServiceError(w, r, err)
		return
	}
	redirectWithNotice(w, r, "/admin/dashboard", notice)
}
