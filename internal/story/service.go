// Package story はユーザーとエージェンシーが投稿するサクセスストーリーを提供する。
package story

import (
	"context"
	"fmt"

	"github.com/hitoshi/jobboard/internal/model"
	"github.com/hitoshi/jobboard/internal/repository"
	"github.com/hitoshi/jobboard/internal/security"
	"github.com/hitoshi/jobboard/internal/validate"
)

// Input は投稿・編集フォームの入力。
type Input struct {
	Content string `form:"content" validate:"required,max=5000"`
	Rating  int    `form:"rating" validate:"gte=1,lte=5"`
}

// Service はサクセスストーリーのサービス層。
type Service struct {
	repo      repository.StoryRepository
	sanitizer security.ContentSanitizer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.StoryRepository, sanitizer security.ContentSanitizer) *Service {
	return &Service{repo: repo, sanitizer: sanitizer}
}

// List は全てのストーリーを新しい順に返す。ログインは不要。
func (s *Service) List(ctx context.Context) ([]model.StoryView, error) {
	stories, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ストーリー一覧の取得に失敗しました: %w", err)
	}
	return stories, nil
}

// Create はログイン中の主体を作成者としてストーリーを投稿する。
func (s *Service) Create(ctx context.Context, p *model.Principal, in Input) (*model.SuccessStory, error) {
	if p == nil {
		return nil, model.NewUnauthenticatedError()
	}
	content, err := s.clean(in)
	if err != nil {
		return nil, err
	}

	story := &model.SuccessStory{
		Author:  p.Owner(),
		Content: content,
		Rating:  in.Rating,
	}
	if err := s.repo.Create(ctx, story); err != nil {
		return nil, fmt.Errorf("ストーリーの投稿に失敗しました: %w", err)
	}
	return story, nil
}

// FindOwned は編集フォーム用に自分のストーリーを返す。
func (s *Service) FindOwned(ctx context.Context, p *model.Principal, id int64) (*model.SuccessStory, error) {
	if p == nil {
		return nil, model.NewUnauthenticatedError()
	}

	story, err := s.repo.FindOwned(ctx, id, p.Owner())
	if err != nil {
		return nil, fmt.Errorf("ストーリーの取得に失敗しました: %w", err)
	}
	if story == nil {
		return nil, model.NewStoryNotFoundError(id)
	}
	return story, nil
}

// Update は自分のストーリーの本文と評価を更新する。
func (s *Service) Update(ctx context.Context, p *model.Principal, id int64, in Input) (*model.SuccessStory, error) {
	if p == nil {
		return nil, model.NewUnauthenticatedError()
	}
	content, err := s.clean(in)
	if err != nil {
		return nil, err
	}

	story := &model.SuccessStory{
		ID:      id,
		Author:  p.Owner(),
		Content: content,
		Rating:  in.Rating,
	}
	ok, err := s.repo.Update(ctx, story)
	if err != nil {
		return nil, fmt.Errorf("ストーリーの更新に失敗しました: %w", err)
	}
	if !ok {
		return nil, model.NewStoryNotFoundError(id)
	}
	return story, nil
}

// Delete は自分のストーリーを削除する。
func (s *Service) Delete(ctx context.Context, p *model.Principal, id int64) error {
	if p == nil {
		return model.NewUnauthenticatedError()
	}

	ok, err := s.repo.Delete(ctx, id, p.Owner())
	if err != nil {
		return fmt.Errorf("ストーリーの削除に失敗しました: %w", err)
	}
	if !ok {
		return model.NewStoryNotFoundError(id)
	}
	return nil
}

// clean は本文をプレーンテキストにしてから検証する。
func (s *Service) clean(in Input) (string, error) {
	in.Content = s.sanitizer.PlainText(in.Content)
	if err := validate.Struct(in); err != nil {
		return "", err
	}
	return in.Content, nil
}
