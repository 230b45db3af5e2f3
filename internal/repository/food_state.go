package repository

import (
	"context"
	"errors"
	"time"

	"github.com/wfunc/feed-the-cat/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrFoodStateNotFound 全局食物状态行不存在
var ErrFoodStateNotFound = errors.New("global food state not found")

// FoodStateRepository 全局食物状态仓储接口
type FoodStateRepository interface {
	BaseRepository
	// Get 读取单行状态
	Get(ctx context.Context) (*models.GlobalFoodState, error)
	// SaveBaseline 无条件覆盖基线（读改写之间不加锁）
	SaveBaseline(ctx context.Context, amount float64, at time.Time) error
	// CompareAndSwap 版本号匹配时才写入
	CompareAndSwap(ctx context.Context, expectedVersion int64, amount float64, at time.Time) (bool, error)
	// Bootstrap 行不存在时创建，返回是否新建
	Bootstrap(ctx context.Context, amount, rate float64, at time.Time) (bool, error)
	// SetRate 修改消耗速率
	SetRate(ctx context.Context, rate float64) error
}

// foodStateRepo 全局食物状态仓储实现
type foodStateRepo struct {
	*BaseRepo
}

// NewFoodStateRepository 创建全局食物状态仓储
func NewFoodStateRepository(db *gorm.DB) FoodStateRepository {
	return &foodStateRepo{BaseRepo: NewBaseRepo(db)}
}

// Get 读取单行状态
func (r *foodStateRepo) Get(ctx context.Context) (*models.GlobalFoodState, error) {
	var state models.GlobalFoodState
	err := r.db.WithContext(ctx).First(&state, models.GlobalFoodStateID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFoodStateNotFound
		}
		return nil, err
	}
	return &state, nil
}

// SaveBaseline 覆盖基线，同时递增版本号以便与版本化写入混用
func (r *foodStateRepo) SaveBaseline(ctx context.Context, amount float64, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.GlobalFoodState{}).
		Where("id = ?", models.GlobalFoodStateID).
		Updates(map[string]interface{}{
			"food_amount":      amount,
			"last_consumed_at": at,
			"version":          gorm.Expr("version + 1"),
			"updated_at":       at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrFoodStateNotFound
	}
	return nil
}

// CompareAndSwap 版本号匹配时写入新基线
func (r *foodStateRepo) CompareAndSwap(ctx context.Context, expectedVersion int64, amount float64, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.GlobalFoodState{}).
		Where("id = ? AND version = ?", models.GlobalFoodStateID, expectedVersion).
		Updates(map[string]interface{}{
			"food_amount":      amount,
			"last_consumed_at": at,
			"version":          expectedVersion + 1,
			"updated_at":       at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// Bootstrap 创建单行状态，已存在时不做任何修改
func (r *foodStateRepo) Bootstrap(ctx context.Context, amount, rate float64, at time.Time) (bool, error) {
	state := &models.GlobalFoodState{
		ID:              models.GlobalFoodStateID,
		FoodAmount:      amount,
		LastConsumedAt:  at,
		ConsumptionRate: rate,
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(state)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// SetRate 修改消耗速率
func (r *foodStateRepo) SetRate(ctx context.Context, rate float64) error {
	result := r.db.WithContext(ctx).
		Model(&models.GlobalFoodState{}).
		Where("id = ?", models.GlobalFoodStateID).
		Update("consumption_rate", rate)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrFoodStateNotFound
	}
	return nil
}
