package repository

import (
	"context"
	"sync"

	"gorm.io/gorm"
)

// Manager 仓储管理器，提供所有仓储的统一访问接口
type Manager struct {
	db *gorm.DB

	foodStateOnce sync.Once
	foodState     FoodStateRepository

	countryScoreOnce sync.Once
	countryScore     CountryScoreRepository
}

// NewManager 创建仓储管理器
func NewManager(db *gorm.DB) *Manager {
	return &Manager{db: db}
}

// DB 获取数据库实例
func (m *Manager) DB() *gorm.DB {
	return m.db
}

// FoodState 全局食物状态仓储
func (m *Manager) FoodState() FoodStateRepository {
	m.foodStateOnce.Do(func() {
		m.foodState = NewFoodStateRepository(m.db)
	})
	return m.foodState
}

// CountryScore 国家积分仓储
func (m *Manager) CountryScore() CountryScoreRepository {
	m.countryScoreOnce.Do(func() {
		m.countryScore = NewCountryScoreRepository(m.db)
	})
	return m.countryScore
}

// WithTx 返回绑定到事务的仓储管理器
func (m *Manager) WithTx(tx *gorm.DB) *Manager {
	return NewManager(tx)
}

// Transaction 在事务中执行
func (m *Manager) Transaction(ctx context.Context, fn func(txm *Manager) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(m.WithTx(tx))
	})
}
