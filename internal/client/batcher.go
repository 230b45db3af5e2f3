package client

import (
	"context"
	"sync"
	"time"

	"github.com/wfunc/feed-the-cat/internal/clock"
	"github.com/wfunc/feed-the-cat/internal/logger"
)

// 批量提交原因
const (
	FlushIdle     = "idle"
	FlushDuration = "duration"
	FlushClose    = "close"
)

// Sender 提交一批食物数量（点击数 × FoodPerClick），失败不重试
type Sender func(ctx context.Context, units int) error

// Scorer 本地积分
type Scorer interface {
	AddScore(n int) int64
}

// BatcherConfig 批量提交配置
type BatcherConfig struct {
	IdleFlushDelay   time.Duration
	MaxBatchDuration time.Duration
	FoodPerClick     int
}

// Batcher 把高频点击合并成少量投喂请求
//
// 第一次点击开始一个会话；每次点击重置空闲定时器。
// 空闲定时器到期时提交并结束会话；点击时如果会话已持续 MaxBatchDuration，
// 立即提交并以当前时刻重新计时，会话继续。
type Batcher struct {
	mu           sync.Mutex
	cfg          BatcherConfig
	clock        clock.Clock
	send         Sender
	scorer       Scorer
	ctx          context.Context
	pending      int
	sessionStart time.Time
	idle         clock.Timer
	closed       bool
	inflight     sync.WaitGroup
}

// NewBatcher 创建批量提交器，ctx 用于所有提交请求
func NewBatcher(ctx context.Context, cfg BatcherConfig, clk clock.Clock, send Sender, scorer Scorer) *Batcher {
	if cfg.IdleFlushDelay <= 0 {
		cfg.IdleFlushDelay = 2 * time.Second
	}
	if cfg.MaxBatchDuration <= 0 {
		cfg.MaxBatchDuration = 10 * time.Second
	}
	if cfg.FoodPerClick <= 0 {
		cfg.FoodPerClick = 1
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Batcher{
		cfg:    cfg,
		clock:  clk,
		send:   send,
		scorer: scorer,
		ctx:    ctx,
	}
}

// Click 记录一次点击
func (b *Batcher) Click() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}

	now := b.clock.Now()
	if b.pending == 0 {
		b.sessionStart = now
	}
	b.pending++

	if now.Sub(b.sessionStart) >= b.cfg.MaxBatchDuration {
		b.flushLocked(FlushDuration)
		b.sessionStart = now
	}

	if b.idle == nil {
		b.idle = b.clock.AfterFunc(b.cfg.IdleFlushDelay, b.onIdle)
	} else {
		b.idle.Reset(b.cfg.IdleFlushDelay)
	}
	b.mu.Unlock()

	if b.scorer != nil {
		b.scorer.AddScore(b.cfg.FoodPerClick)
	}
}

func (b *Batcher) onIdle() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.sessionStart = time.Time{}
	b.flushLocked(FlushIdle)
}

// flushLocked 取走计数并异步提交；计数为0时不提交
// 提交量与本地积分使用同一个 FoodPerClick
func (b *Batcher) flushLocked(reason string) {
	clicks := b.pending
	b.pending = 0
	if clicks == 0 || b.send == nil {
		return
	}

	units := clicks * b.cfg.FoodPerClick
	b.inflight.Add(1)
	go func() {
		defer b.inflight.Done()
		err := b.send(b.ctx, units)
		logger.LogBatchFlush(reason, units, err)
	}()
}

// Active 会话是否进行中（进行中时暂停轮询）
func (b *Batcher) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.sessionStart.IsZero()
}

// Pending 未提交的点击数
func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending
}

// Wait 等待已发出的提交完成
func (b *Batcher) Wait() {
	b.inflight.Wait()
}

// Close 停止定时器，提交剩余点击并等待完成
func (b *Batcher) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		b.Wait()
		return
	}
	b.closed = true
	if b.idle != nil {
		b.idle.Stop()
	}
	b.sessionStart = time.Time{}
	b.flushLocked(FlushClose)
	b.mu.Unlock()

	b.Wait()
}
