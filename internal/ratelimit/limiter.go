// Package ratelimit 按访客ID的固定窗口限流。
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wfunc/feed-the-cat/internal/clock"
	"github.com/wfunc/feed-the-cat/internal/config"
)

// Limiter 限流器
type Limiter interface {
	// Allow 记录一次请求并返回是否放行
	Allow(ctx context.Context, key string) (bool, error)
}

// Noop 不限流
type Noop struct{}

// Allow 总是放行
func (Noop) Allow(context.Context, string) (bool, error) { return true, nil }

// New 按配置创建限流器，redis后端需要传入客户端
func New(cfg *config.RateLimitConfig, rdb *redis.Client, clk clock.Clock) (Limiter, error) {
	if !cfg.Enabled {
		return Noop{}, nil
	}

	switch cfg.Backend {
	case "", "memory":
		return NewMemoryLimiter(cfg.Window, cfg.MaxRequests, clk), nil
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("redis限流后端需要可用的redis连接")
		}
		return NewRedisLimiter(rdb, cfg.Window, cfg.MaxRequests), nil
	default:
		return nil, fmt.Errorf("不支持的限流后端: %s", cfg.Backend)
	}
}

func windowOrDefault(window time.Duration) time.Duration {
	if window <= 0 {
		return time.Second
	}
	return window
}

// Updater 支持热更新的限流器
type Updater interface {
	Update(window time.Duration, max int)
}
