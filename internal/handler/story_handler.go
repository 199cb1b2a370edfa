package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/hitoshi/jobboard/internal/middleware"
	"github.com/hitoshi/jobboard/internal/model"
	"github.com/hitoshi/jobboard/internal/story"
)

// StoryServiceInterface はサクセスストーリーハンドラーが必要とするサービスインターフェース。
type StoryServiceInterface interface {
	List(ctx context.Context) ([]model.StoryView, error)
	Create(ctx context.Context, p *model.Principal, in story.Input) (*model.SuccessStory, error)
	FindOwned(ctx context.Context, p *model.Principal, id int64) (*model.SuccessStory, error)
	Update(ctx context.Context, p *model.Principal, id int64, in story.Input) (*model.SuccessStory, error)
	Delete(ctx context.Context, p *model.Principal, id int64) error
}

// StoryHandler はサクセスストーリーのHTTPハンドラー。
type StoryHandler struct {
	service  StoryServiceInterface
	renderer *Renderer
}

// NewStoryHandler はStoryHandlerを生成する。
func NewStoryHandler(service StoryServiceInterface, renderer *Renderer) *StoryHandler {
	return &StoryHandler{service: service, renderer: renderer}
}

// storiesPage は一覧と投稿フォームの表示データ。
type storiesPage struct {
	Stories []model.StoryView
	Input   story.Input
}

// storyFormPage は編集フォームの表示データ。
type storyFormPage struct {
	StoryID int64
	Input   story.Input
}

// List はストーリー一覧を表示する。ログイン中なら投稿フォームも表示する。
// GET /stories
func (h *StoryHandler) List(w http.ResponseWriter, r *http.Request) {
	stories, err := h.service.List(r.Context())
	if err != nil {
		h.renderer.handleServiceError(w, r, err)
		return
	}
	h.renderer.Render(w, r, http.StatusOK, "stories", storiesPage{Stories: stories, Input: story.Input{Rating: 5}})
}

// Create はストーリーを投稿する。
// POST /stories
func (h *StoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	in := storyInputFromForm(r)

	if _, err := h.service.Create(r.Context(), middleware.PrincipalFromContext(r.Context()), in); err != nil {
		stories, listErr := h.service.List(r.Context())
		if listErr != nil {
			h.renderer.handleServiceError(w, r, listErr)
			return
		}
		h.renderer.handleFormError(w, r, "stories", storiesPage{Stories: stories, Input: in}, err)
		return
	}
	redirectWithNotice(w, r, "/stories", "story_posted")
}

// EditForm は自分のストーリーの編集フォームを表示する。
// GET /stories/{id}/edit
func (h *StoryHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", model.NewStoryNotFoundError)
	if err != nil {
		h.renderer.handleServiceError(w, r, err)
		return
	}

	s, err := h.service.FindOwned(r.Context(), middleware.PrincipalFromContext(r.Context()), id)
	if err != nil {
		h.renderer.handleServiceError(w, r, err)
		return
	}
	h.renderer.Render(w, r, http.StatusOK, "story_form", storyFormPage{
		StoryID: s.ID,
		Input:   story.Input{Content: s.Content, Rating: s.Rating},
	})
}

// Update は自分のストーリーを更新する。
// POST /stories/{id}/edit
func (h *StoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", model.NewStoryNotFoundError)
	if err != nil {
		h.renderer.handleServiceError(w, r, err)
		return
	}

	in := storyInputFromForm(r)
	if _, err := h.service.Update(r.Context(), middleware.PrincipalFromContext(r.Context()), id, in); err != nil {
		h.renderer.handleFormError(w, r, "story_form", storyFormPage{StoryID: id, Input: in}, err)
		return
	}
	redirectWithNotice(w, r, "/stories", "story_updated")
}

// Delete は自分のストーリーを削除する。
// POST /stories/{id}/delete
func (h *StoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", model.NewStoryNotFoundError)
	if err != nil {
		h.renderer.handleServiceError(w, r, err)
		return
	}

	if err := h.service.Delete(r.Context(), middleware.PrincipalFromContext(r.Context()), id); err != nil {
		h.renderer.handleServiceError(w, r, err)
		return
	}
	redirectWithNotice(w, r, "/stories", "story_deleted")
}

// storyInputFromForm は評価が数値でなければ0とし、検証エラーにする。
func storyInputFromForm(r *http.Request) story.Input {
	rating, _ := strconv.Atoi(formValue(r, "rating"))
	return story.Input{
		Content: r.PostFormValue("content"),
		Rating:  rating,
	}
}
