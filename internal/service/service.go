package service

import (
	"context"
	"errors"

	"github.com/wfunc/feed-the-cat/internal/clock"
	"github.com/wfunc/feed-the-cat/internal/config"
	apperrors "github.com/wfunc/feed-the-cat/internal/errors"
	"github.com/wfunc/feed-the-cat/internal/models"
	"github.com/wfunc/feed-the-cat/internal/notify"
	"github.com/wfunc/feed-the-cat/internal/repository"
	"go.uber.org/zap"
)

// 基线写入方式
const (
	// UpdateModeOverwrite 读改写之间不加锁，并发投喂可能互相覆盖
	UpdateModeOverwrite = "overwrite"
	// UpdateModeVersioned 按版本号条件写入，冲突时重读重试
	UpdateModeVersioned = "versioned"
)

// Config 服务配置
type Config struct {
	UpdateMode    string
	MaxCASRetries int
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		UpdateMode:    UpdateModeOverwrite,
		MaxCASRetries: 3,
	}
}

// ConfigFromFood 从食物配置转换
func ConfigFromFood(cfg *config.FoodConfig) *Config {
	c := DefaultConfig()
	if cfg.UpdateMode != "" {
		c.UpdateMode = cfg.UpdateMode
	}
	if cfg.MaxCASRetries > 0 {
		c.MaxCASRetries = cfg.MaxCASRetries
	}
	return c
}

// Services 服务集合
type Services struct {
	Feed        FeedService
	Food        FoodService
	Leaderboard LeaderboardService
}

// NewServices 创建服务集合
func NewServices(repos *repository.Manager, notifier notify.Notifier, clk clock.Clock, cfg *Config, log *zap.Logger) *Services {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if clk == nil {
		clk = clock.New()
	}
	if notifier == nil {
		notifier = notify.Noop{}
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Services{
		Feed:        NewFeedService(repos.FoodState(), repos.CountryScore(), notifier, clk, cfg, log),
		Food:        NewFoodService(repos, notifier, clk, log),
		Leaderboard: NewLeaderboardService(repos.CountryScore(), log),
	}
}

// loadFoodState 读取单行状态并转换为应用错误
func loadFoodState(ctx context.Context, repo repository.FoodStateRepository) (*models.GlobalFoodState, error) {
	state, err := repo.Get(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrFoodStateNotFound) {
			return nil, apperrors.New(apperrors.ErrNotInitialized)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "读取全局食物状态")
	}
	return state, nil
}
