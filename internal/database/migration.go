package database

import (
	"fmt"
	"time"

	"github.com/wfunc/feed-the-cat/internal/logger"
	"github.com/wfunc/feed-the-cat/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Models 需要迁移的模型
func Models() []interface{} {
	return []interface{}{
		&models.GlobalFoodState{},
		&models.CountryScore{},
	}
}

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("数据库未初始化")
	}

	// sqlite文件库需要跨进程互斥
	if dbPath := sqliteFilePath(db); dbPath != "" {
		lockFile, err := acquireMigrationLock(dbPath)
		if err != nil {
			logger.Error("无法获取迁移锁", zap.Error(err))
			return fmt.Errorf("获取迁移锁失败: %w", err)
		}
		defer releaseMigrationLock(lockFile)
	}

	logger.Info("开始数据库迁移...")

	for _, model := range Models() {
		start := time.Now()
		err := db.AutoMigrate(model)
		logger.LogDatabaseOperation("migrate", tableName(db, model), time.Since(start), err)
		if err != nil {
			return fmt.Errorf("迁移 %T 失败: %w", model, err)
		}
	}

	createIndexes(db)

	logger.Info("数据库迁移完成")
	return nil
}

// createIndexes 创建排行榜查询索引
func createIndexes(db *gorm.DB) {
	stmt := "CREATE INDEX IF NOT EXISTS idx_country_scores_rank ON country_scores(score DESC, country_code ASC)"
	if db.Dialector.Name() == "mysql" {
		// mysql 不支持 IF NOT EXISTS，依赖单列score索引
		return
	}
	if err := db.Exec(stmt).Error; err != nil {
		logger.Warn("创建索引失败", zap.String("index", "idx_country_scores_rank"), zap.Error(err))
	}
}

// tableName 解析模型对应的表名
func tableName(db *gorm.DB, model interface{}) string {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(model); err != nil {
		return fmt.Sprintf("%T", model)
	}
	return stmt.Schema.Table
}
