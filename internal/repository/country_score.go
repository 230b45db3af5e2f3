package repository

import (
	"context"
	"errors"

	"github.com/wfunc/feed-the-cat/internal/models"
	"gorm.io/gorm"
)

// ErrCountryNotFound 国家积分记录不存在
var ErrCountryNotFound = errors.New("country score not found")

// CountryScoreRepository 国家积分仓储接口
type CountryScoreRepository interface {
	BaseRepository
	Get(ctx context.Context, code string) (*models.CountryScore, error)
	Insert(ctx context.Context, code, name string, score int64) error
	UpdateScore(ctx context.Context, code string, score int64) error
	// Top 按积分降序，limit <= 0 表示全部
	Top(ctx context.Context, limit int) ([]*models.CountryScore, error)
}

// countryScoreRepo 国家积分仓储实现
type countryScoreRepo struct {
	*BaseRepo
}

// NewCountryScoreRepository 创建国家积分仓储
func NewCountryScoreRepository(db *gorm.DB) CountryScoreRepository {
	return &countryScoreRepo{BaseRepo: NewBaseRepo(db)}
}

// Get 按国家代码查询
func (r *countryScoreRepo) Get(ctx context.Context, code string) (*models.CountryScore, error) {
	var score models.CountryScore
	err := r.db.WithContext(ctx).
		Where("country_code = ?", code).
		First(&score).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCountryNotFound
		}
		return nil, err
	}
	return &score, nil
}

// Insert 新增国家记录，重复代码由唯一索引拒绝
func (r *countryScoreRepo) Insert(ctx context.Context, code, name string, score int64) error {
	return r.db.WithContext(ctx).Create(&models.CountryScore{
		CountryCode: code,
		CountryName: name,
		Score:       score,
	}).Error
}

// UpdateScore 写入新的积分值
func (r *countryScoreRepo) UpdateScore(ctx context.Context, code string, score int64) error {
	result := r.db.WithContext(ctx).
		Model(&models.CountryScore{}).
		Where("country_code = ?", code).
		Update("score", score)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCountryNotFound
	}
	return nil
}

// Top 排行榜查询
func (r *countryScoreRepo) Top(ctx context.Context, limit int) ([]*models.CountryScore, error) {
	var scores []*models.CountryScore
	query := r.db.WithContext(ctx).
		Order("score DESC").
		Order("country_code ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&scores).Error; err != nil {
		return nil, err
	}
	return scores, nil
}
