package client

import (
	"sync"
	"time"

	"github.com/wfunc/feed-the-cat/internal/clock"
	"github.com/wfunc/feed-the-cat/internal/food"
)

// Interpolator 两次同步之间在本地平滑递减显示值
// 本地递减只用于展示，下次 Resync 时直接覆盖
type Interpolator struct {
	mu        sync.Mutex
	clock     clock.Clock
	tick      time.Duration
	display   float64
	rate      float64
	ticking   bool
	timer     clock.Timer
	stopped   bool
	lastAt    time.Time
	observers []func(float64)
}

// NewInterpolator 创建插值器
func NewInterpolator(clk clock.Clock, tick time.Duration) *Interpolator {
	if clk == nil {
		clk = clock.New()
	}
	if tick <= 0 {
		tick = 100 * time.Millisecond
	}
	return &Interpolator{clock: clk, tick: tick}
}

// OnChange 注册显示值回调
func (i *Interpolator) OnChange(fn func(value float64)) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.observers = append(i.observers, fn)
}

// Resync 用服务端数据硬重置显示值
// 基线时间早于已应用状态的数据直接丢弃，乱序到达的推送不会让显示值回退
func (i *Interpolator) Resync(s food.Snapshot) {
	i.mu.Lock()
	if i.stopped || s.LastConsumedAt.Before(i.lastAt) {
		i.mu.Unlock()
		return
	}
	i.lastAt = s.LastConsumedAt
	c := s.Counter()
	i.display = c.AsOf(i.clock.Now())
	i.rate = c.Rate
	i.scheduleLocked()
	value, observers := i.display, i.observers
	i.mu.Unlock()

	notify(observers, value)
}

// scheduleLocked 有余量且速率为正时保持计时，否则停止
func (i *Interpolator) scheduleLocked() {
	if i.display <= 0 || i.rate <= 0 {
		if i.ticking && i.timer != nil {
			i.timer.Stop()
		}
		i.ticking = false
		return
	}
	if i.ticking {
		return
	}
	i.ticking = true
	if i.timer == nil {
		i.timer = i.clock.AfterFunc(i.tick, i.onTick)
	} else {
		i.timer.Reset(i.tick)
	}
}

func (i *Interpolator) onTick() {
	i.mu.Lock()
	if !i.ticking || i.stopped {
		i.mu.Unlock()
		return
	}

	i.display -= i.rate * i.tick.Seconds()
	if i.display <= 0 {
		i.display = 0
		i.ticking = false
	} else {
		i.timer.Reset(i.tick)
	}
	value, observers := i.display, i.observers
	i.mu.Unlock()

	notify(observers, value)
}

// Value 当前显示值
func (i *Interpolator) Value() float64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.display
}

// Ticking 是否在本地递减
func (i *Interpolator) Ticking() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.ticking
}

// Stop 停止计时，之后的 Resync 不再生效
func (i *Interpolator) Stop() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.stopped = true
	i.ticking = false
	if i.timer != nil {
		i.timer.Stop()
	}
}

func notify(observers []func(float64), value float64) {
	for _, fn := range observers {
		fn(value)
	}
}
