package models

import (
	"time"

	"github.com/wfunc/feed-the-cat/internal/food"
)

// GlobalFoodStateID 全局食物状态的单行主键
const GlobalFoodStateID uint = 1

// GlobalFoodState 全局食物状态（单行表，只存储基线，不存储实时值）
type GlobalFoodState struct {
	ID              uint      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	FoodAmount      float64   `gorm:"not null;default:0" json:"food_amount"`         // 基线食物量
	LastConsumedAt  time.Time `gorm:"not null" json:"last_consumed_at"`              // 基线时间点
	ConsumptionRate float64   `gorm:"not null;default:5" json:"consumption_rate"`    // 每秒消耗量
	Version         int64     `gorm:"not null;default:0" json:"version"`             // 仅版本化更新使用
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName 指定表名
func (GlobalFoodState) TableName() string {
	return "global_food_state"
}

// Counter 转换为惰性衰减计数器
func (s *GlobalFoodState) Counter() food.Counter {
	return food.NewCounter(s.FoodAmount, s.LastConsumedAt, s.ConsumptionRate)
}
