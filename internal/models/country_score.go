package models

import (
	"time"
)

// CountryScore 国家投喂积分（只增不减）
type CountryScore struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CountryCode string    `gorm:"uniqueIndex;size:8;not null" json:"country_code"`
	CountryName string    `gorm:"size:100" json:"country_name"`
	Score       int64     `gorm:"not null;default:0;index" json:"score"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName 指定表名
func (CountryScore) TableName() string {
	return "country_scores"
}
