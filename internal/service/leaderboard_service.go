package service

import (
	"context"

	apperrors "github.com/wfunc/feed-the-cat/internal/errors"
	"github.com/wfunc/feed-the-cat/internal/models"
	"github.com/wfunc/feed-the-cat/internal/repository"
	"go.uber.org/zap"
)

// leaderboardService 排行榜服务实现
type leaderboardService struct {
	countryRepo repository.CountryScoreRepository
	log         *zap.Logger
}

// NewLeaderboardService 创建排行榜服务
func NewLeaderboardService(countryRepo repository.CountryScoreRepository, log *zap.Logger) LeaderboardService {
	return &leaderboardService{countryRepo: countryRepo, log: log}
}

// Top 排行榜
func (s *leaderboardService) Top(ctx context.Context, limit int, all bool) ([]*models.CountryScore, error) {
	if all {
		limit = 0
	}
	scores, err := s.countryRepo.Top(ctx, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "读取排行榜")
	}
	if scores == nil {
		scores = []*models.CountryScore{}
	}
	return scores, nil
}
