package service

import (
	"context"
	"strings"
	"time"

	apperrors "github.com/wfunc/feed-the-cat/internal/errors"
	"github.com/wfunc/feed-the-cat/internal/food"
	"github.com/wfunc/feed-the-cat/internal/models"
)

// FeedService 投喂服务接口
type FeedService interface {
	// Feed 衰减到当前时刻后加上本批次数量，并累计国家积分
	Feed(ctx context.Context, req *FeedRequest) (*FeedResult, error)
}

// FoodService 全局食物状态服务接口（只读路径）
type FoodService interface {
	// ReadState 返回实时值，不修改存储
	ReadState(ctx context.Context) (*FoodSnapshot, error)
	// Baseline 返回持久化基线
	Baseline(ctx context.Context) (food.Snapshot, error)
	// Bootstrap 创建单行状态，已存在时不修改
	Bootstrap(ctx context.Context, amount, rate float64) (bool, error)
	// ApplyRate 以当前时刻为新基线切换消耗速率
	ApplyRate(ctx context.Context, rate float64) error
}

// LeaderboardService 国家排行榜服务接口
type LeaderboardService interface {
	// Top limit <= 0 或 all 为 true 时返回全部
	Top(ctx context.Context, limit int, all bool) ([]*models.CountryScore, error)
}

// FeedRequest 投喂请求
type FeedRequest struct {
	GuestID     string `json:"guestId"`
	CountryCode string `json:"countryCode"`
	CountryName string `json:"countryName,omitempty"`
	Count       int    `json:"count"`
}

// Validate 校验请求
func (r *FeedRequest) Validate() error {
	if strings.TrimSpace(r.GuestID) == "" || strings.TrimSpace(r.CountryCode) == "" {
		return apperrors.New(apperrors.ErrInvalidParam, "Missing guestId or countryCode")
	}
	if r.Count < 1 {
		return apperrors.Newf(apperrors.ErrInvalidParam, "count must be a positive integer, got %d", r.Count)
	}
	return nil
}

// FeedResult 投喂结果
type FeedResult struct {
	FoodAmount   float64 `json:"food_amount"`
	CountryScore int64   `json:"country_score"`
}

// FoodSnapshot 读取时刻的实时食物状态
type FoodSnapshot struct {
	FoodAmount      float64   `json:"food_amount"`
	LastConsumedAt  time.Time `json:"last_consumed_at"`
	ConsumptionRate float64   `json:"consumption_rate"`
	ElapsedSeconds  float64   `json:"elapsed_seconds"`
}
