// Package bookmark は求職者の求人ブックマークを提供する。
package bookmark

import (
	"context"
	"errors"
	"fmt"

	"github.com/hitoshi/jobboard/internal/model"
	"github.com/hitoshi/jobboard/internal/repository"
)

// Service はブックマークのサービス層。
type Service struct {
	repo repository.BookmarkRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.BookmarkRepository) *Service {
	return &Service{repo: repo}
}

// Add は求人をブックマークする。既にブックマーク済みの場合はfalseを返す。
func (s *Service) Add(ctx context.Context, p *model.Principal, jobID int64) (bool, error) {
	if err := model.RequireJobSeeker(p); err != nil {
		return false, err
	}

	added, err := s.repo.Add(ctx, p.ID, jobID)
	if errors.Is(err, repository.ErrJobNotLive) {
		return false, model.NewJobNotFoundError(jobID)
	}
	if err != nil {
		return false, fmt.Errorf("ブックマークの追加に失敗しました: %w", err)
	}
	return added, nil
}

// Remove はブックマークを解除する。存在しない場合も成功扱い。
func (s *Service) Remove(ctx context.Context, p *model.Principal, jobID int64) error {
	if err := model.RequireJobSeeker(p); err != nil {
		return err
	}

	if err := s.repo.Remove(ctx, p.ID, jobID); err != nil {
		return fmt.Errorf("ブックマークの解除に失敗しました: %w", err)
	}
	return nil
}
