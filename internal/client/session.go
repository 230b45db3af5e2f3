package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/wfunc/feed-the-cat/internal/logger"
	"go.uber.org/zap"
)

// Country 访客所在国家
type Country struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// sessionFile 落盘格式
type sessionFile struct {
	GuestID string   `json:"guest_id"`
	Country *Country `json:"country,omitempty"`
	Score   int64    `json:"score"`
}

// Session 客户端本地状态：访客ID、国家和本地积分
// 本地积分只用于展示，不与服务端任何数值对账
type Session struct {
	mu     sync.Mutex
	saveMu sync.Mutex
	path   string
	data   sessionFile
}

// LoadSession 读取本地状态，不存在时生成新的访客ID并保存
func LoadSession(path string) (*Session, error) {
	s := &Session{path: path}

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(raw, &s.data); err != nil {
			return nil, fmt.Errorf("解析本地状态失败: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("读取本地状态失败: %w", err)
	}

	if s.data.GuestID == "" {
		s.data.GuestID = uuid.NewString()
		if err := s.Save(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// GuestID 访客ID
func (s *Session) GuestID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.GuestID
}

// Country 已保存的国家
func (s *Session) Country() (Country, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.Country == nil {
		return Country{}, false
	}
	return *s.data.Country, true
}

// SetCountry 保存国家
func (s *Session) SetCountry(c Country) error {
	s.mu.Lock()
	s.data.Country = &c
	s.mu.Unlock()
	return s.Save()
}

// Score 本地积分
func (s *Session) Score() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Score
}

// AddScore 累加本地积分，写盘失败只记日志
func (s *Session) AddScore(n int) int64 {
	s.mu.Lock()
	s.data.Score += int64(n)
	score := s.data.Score
	s.mu.Unlock()

	if err := s.Save(); err != nil {
		logger.WithModule("client").Warn("保存本地积分失败", zap.Error(err))
	}
	return score
}

// Save 写盘，先写临时文件再改名
func (s *Session) Save() error {
	if s.path == "" {
		return nil
	}

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	raw, err := json.MarshalIndent(s.data, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("创建状态目录失败: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return fmt.Errorf("写入本地状态失败: %w", err)
	}
	return os.Rename(tmp, s.path)
}
