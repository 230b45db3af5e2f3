package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix 限流计数键前缀
const redisKeyPrefix = "ratelimit:feed:"

// RedisLimiter 多实例共享的固定窗口限流
type RedisLimiter struct {
	rdb    *redis.Client
	mu     sync.RWMutex
	window time.Duration
	max    int
}

// NewRedisLimiter 创建Redis限流器
func NewRedisLimiter(rdb *redis.Client, w time.Duration, max int) *RedisLimiter {
	return &RedisLimiter{
		rdb:    rdb,
		window: windowOrDefault(w),
		max:    max,
	}
}

// Allow 窗口内第一次请求时设置过期时间，过期后计数从1重新开始
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.RLock()
	w, max := l.window, l.max
	l.mu.RUnlock()

	k := redisKeyPrefix + key

	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	ttl := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("执行限流计数失败: %w", err)
	}

	// -1 表示没有过期时间：新建的key或上次设置过期失败
	if ttl.Val() < 0 {
		if err := l.rdb.PExpire(ctx, k, w).Err(); err != nil {
			return false, fmt.Errorf("设置限流窗口失败: %w", err)
		}
	}

	return incr.Val() <= int64(max), nil
}

// Update 热更新窗口和上限，已存在的窗口保持原有过期时间
func (l *RedisLimiter) Update(w time.Duration, max int) {
	l.mu.Lock()
	l.window = windowOrDefault(w)
	l.max = max
	l.mu.Unlock()
}
