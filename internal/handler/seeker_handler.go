package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/jobboard/internal/middleware"
	"github.com/hitoshi/jobboard/internal/model"
)

// BookmarkServiceInterface はブックマークハンドラーが必要とするサービスインターフェース。
type BookmarkServiceInterface interface {
	Add(ctx context.Context, p *model.Principal, jobID int64) (bool, error)
	Remove(ctx context.Context, p *model.Principal, jobID int64) error
}

// NotificationServiceInterface は通知ハンドラーが必要とするサービスインターフェース。
type NotificationServiceInterface interface {
	List(ctx context.Context, p *model.Principal) ([]*model.Notification, error)
}

// BookmarkHandler はブックマークのHTTPハンドラー。
type BookmarkHandler struct {
	service  BookmarkServiceInterface
	renderer *Renderer
}

// NewBookmarkHandler はBookmarkHandlerを生成する。
func NewBookmarkHandler(service BookmarkServiceInterface, renderer *Renderer) *BookmarkHandler {
	return &BookmarkHandler{service: service, renderer: renderer}
}

// Add は求人をブックマークする。既にある場合はその旨を通知する。
// POST /jobs/{id}/bookmark
func (h *BookmarkHandler) Add(w http.ResponseWriter, r *http.Request) {
	jobID, err := pathID(r, "id", model.NewJobNotFoundError)
	if err != nil {
		h.renderer.handleServiceError(w, r, err)
		return
	}

	added, err := h.service.Add(r.Context(), middleware.PrincipalFromContext(r.Context()), jobID)
	if err != nil {
		h.renderer.handleServiceError(w, r, err)
		return
	}

	notice := "bookmarked"
	if !added {
		notice = "already_bookmarked"
	}
	redirectWithNotice(w, r, localPath(r.PostFormValue("next"), "/jobs"), notice)
}

// Remove はブックマークを解除する。
// POST /jobs/{id}/unbookmark
func (h *BookmarkHandler) Remove(w http.ResponseWriter, r *http.Request) {
	jobID, err := pathID(r, "id", model.NewJobNotFoundError)
	if err != nil {
		h.renderer.handleServiceError(w, r, err)
		return
	}

	if err := h.service.Remove(r.Context(), middleware.PrincipalFromContext(r.Context()), jobID); err != nil {
		h.renderer.handleServiceError(w, r, err)
		return
	}
	redirectWithNotice(w, r, localPath(r.PostFormValue("next"), "/my/applications"), "unbookmarked")
}

// NotificationHandler は通知一覧のHTTPハンドラー。
type NotificationHandler struct {
	service  NotificationServiceInterface
	renderer *Renderer
}

// NewNotificationHandler はNotificationHandlerを生成する。
func NewNotificationHandler(service NotificationServiceInterface, renderer *Renderer) *NotificationHandler {
	return &NotificationHandler{service: service, renderer: renderer}
}

// List はログイン中の主体宛ての通知を新しい順に表示する。
// GET /notifications
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	notifications, err := h.service.List(r.Context(), middleware.PrincipalFromContext(r.Context()))
	if err != nil {
		h.renderer.handleServiceError(w, r, err)
		return
	}
	h.renderer.Render(w, r, http.StatusOK, "notifications", notifications)
}
