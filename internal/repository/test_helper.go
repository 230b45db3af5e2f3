package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/feed-the-cat/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB 创建内存数据库并迁移所有表
func SetupTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(err)
	}

	// 内存库每个连接都是独立的库
	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.GlobalFoodState{}, &models.CountryScore{}); err != nil {
		panic(err)
	}
	return db
}

// TestDB 创建测试数据库，测试结束后自动关闭
func TestDB(t *testing.T) *gorm.DB {
	db := SetupTestDB()
	t.Cleanup(func() { CleanupTestDB(db) })
	return db
}

// CleanupTestDB 清理测试数据库
func CleanupTestDB(db *gorm.DB) {
	sqlDB, _ := db.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
}

// SeedFoodState 写入单行食物状态
func SeedFoodState(t *testing.T, db *gorm.DB, amount float64, at time.Time, rate float64) {
	err := db.Create(&models.GlobalFoodState{
		ID:              models.GlobalFoodStateID,
		FoodAmount:      amount,
		LastConsumedAt:  at,
		ConsumptionRate: rate,
	}).Error
	require.NoError(t, err)
}

// SeedCountries 写入国家积分
func SeedCountries(t *testing.T, db *gorm.DB, scores map[string]int64) {
	for code, score := range scores {
		err := db.Create(&models.CountryScore{
			CountryCode: code,
			CountryName: code,
			Score:       score,
		}).Error
		require.NoError(t, err)
	}
}

// AssertFoodState 验证食物状态
func AssertFoodState(t *testing.T, db *gorm.DB, amount float64, at time.Time) {
	var state models.GlobalFoodState
	require.NoError(t, db.First(&state, models.GlobalFoodStateID).Error)
	assert.InDelta(t, amount, state.FoodAmount, 1e-9)
	assert.True(t, at.Equal(state.LastConsumedAt), "last_consumed_at = %v, want %v", state.LastConsumedAt, at)
}
