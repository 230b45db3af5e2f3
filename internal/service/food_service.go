package service

import (
	"context"
	"errors"

	"github.com/wfunc/feed-the-cat/internal/clock"
	apperrors "github.com/wfunc/feed-the-cat/internal/errors"
	"github.com/wfunc/feed-the-cat/internal/food"
	"github.com/wfunc/feed-the-cat/internal/notify"
	"github.com/wfunc/feed-the-cat/internal/repository"
	"go.uber.org/zap"
)

// foodService 食物状态服务实现
type foodService struct {
	repos    *repository.Manager
	notifier notify.Notifier
	clock    clock.Clock
	log      *zap.Logger
}

// NewFoodService 创建食物状态服务
func NewFoodService(repos *repository.Manager, notifier notify.Notifier, clk clock.Clock, log *zap.Logger) FoodService {
	return &foodService{
		repos:    repos,
		notifier: notifier,
		clock:    clk,
		log:      log,
	}
}

// ReadState 按读取时刻推算实时值
func (s *foodService) ReadState(ctx context.Context) (*FoodSnapshot, error) {
	state, err := loadFoodState(ctx, s.repos.FoodState())
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	c := state.Counter()
	return &FoodSnapshot{
		FoodAmount:      c.AsOf(now),
		LastConsumedAt:  state.LastConsumedAt,
		ConsumptionRate: state.ConsumptionRate,
		ElapsedSeconds:  c.Elapsed(now).Seconds(),
	}, nil
}

// Baseline 返回持久化基线
func (s *foodService) Baseline(ctx context.Context) (food.Snapshot, error) {
	state, err := loadFoodState(ctx, s.repos.FoodState())
	if err != nil {
		return food.Snapshot{}, err
	}
	return state.Counter().Snapshot(), nil
}

// Bootstrap 创建单行状态
func (s *foodService) Bootstrap(ctx context.Context, amount, rate float64) (bool, error) {
	created, err := s.repos.FoodState().Bootstrap(ctx, amount, rate, s.clock.Now())
	if err != nil {
		return false, apperrors.Wrap(err, apperrors.ErrDatabaseInsert, "初始化全局食物状态")
	}
	if created {
		s.log.Info("全局食物状态已初始化",
			zap.Float64("food_amount", amount),
			zap.Float64("consumption_rate", rate))
	}
	return created, nil
}

// ApplyRate 先按旧速率衰减到当前时刻，再切换速率，历史消耗不受新速率影响
func (s *foodService) ApplyRate(ctx context.Context, rate float64) error {
	if rate < 0 {
		return apperrors.Newf(apperrors.ErrInvalidParam, "consumption rate %v < 0", rate)
	}

	var (
		next    food.Counter
		changed bool
	)
	err := s.repos.Transaction(ctx, func(tx *repository.Manager) error {
		state, err := loadFoodState(ctx, tx.FoodState())
		if err != nil {
			return err
		}
		if state.ConsumptionRate == rate {
			return nil
		}

		now := s.clock.Now()
		amount := state.Counter().AsOf(now)
		if err := tx.FoodState().SaveBaseline(ctx, amount, now); err != nil {
			return apperrors.Wrap(err, apperrors.ErrDatabaseUpdate, "重置基线")
		}
		if err := tx.FoodState().SetRate(ctx, rate); err != nil {
			if errors.Is(err, repository.ErrFoodStateNotFound) {
				return apperrors.New(apperrors.ErrNotInitialized)
			}
			return apperrors.Wrap(err, apperrors.ErrDatabaseUpdate, "更新消耗速率")
		}

		s.log.Info("消耗速率已更新",
			zap.Float64("from", state.ConsumptionRate),
			zap.Float64("to", rate))
		next = food.Counter{Baseline: amount, At: now, Rate: rate}
		changed = true
		return nil
	})
	if err != nil || !changed {
		return err
	}

	// 事务提交后再推送，客户端按新速率重新插值
	if err := s.notifier.Publish(ctx, next.Snapshot()); err != nil {
		s.log.Warn("发布食物状态失败", zap.Error(err))
	}
	return nil
}
