package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/wfunc/feed-the-cat/internal/clock"
)

type window struct {
	count     int
	lastReset time.Time
}

// MemoryLimiter 进程内固定窗口限流，重启后计数丢失
type MemoryLimiter struct {
	mu      sync.Mutex
	entries map[string]*window
	window  time.Duration
	max     int
	clock   clock.Clock
}

// NewMemoryLimiter 创建内存限流器
func NewMemoryLimiter(w time.Duration, max int, clk clock.Clock) *MemoryLimiter {
	if clk == nil {
		clk = clock.New()
	}
	return &MemoryLimiter{
		entries: make(map[string]*window),
		window:  windowOrDefault(w),
		max:     max,
		clock:   clk,
	}
}

// Allow 窗口过期时计数重置为1，否则递增；计数超过上限时拒绝
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok || now.Sub(e.lastReset) > l.window {
		l.entries[key] = &window{count: 1, lastReset: now}
		return 1 <= l.max, nil
	}

	e.count++
	return e.count <= l.max, nil
}

// Update 热更新窗口和上限
func (l *MemoryLimiter) Update(w time.Duration, max int) {
	l.mu.Lock()
	l.window = windowOrDefault(w)
	l.max = max
	l.mu.Unlock()
}

// Sweep 删除已过期的窗口，返回删除数量
func (l *MemoryLimiter) Sweep() int {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, e := range l.entries {
		if now.Sub(e.lastReset) > l.window {
			delete(l.entries, key)
			removed++
		}
	}
	return removed
}

// Len 当前跟踪的key数量
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// RunJanitor 周期清理过期窗口，直到ctx取消
func (l *MemoryLimiter) RunJanitor(ctx context.Context, period time.Duration) {
	if period <= 0 {
		return
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}
