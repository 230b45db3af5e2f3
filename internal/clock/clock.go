package clock

import (
	"sort"
	"sync"
	"time"
)

// Clock 时间源，服务端和客户端的计时逻辑都通过它获取时间
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer 可停止、可重置的定时器
type Timer interface {
	Stop() bool
	Reset(d time.Duration) bool
}

// Real 系统时钟
type Real struct{}

// New 创建系统时钟
func New() Clock {
	return Real{}
}

// Now 当前时间
func (Real) Now() time.Time {
	return time.Now()
}

// AfterFunc 延迟执行
func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Manual 手动推进的时钟（测试和回放使用）
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

// NewManual 创建手动时钟
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now 当前时间
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// AfterFunc 注册定时回调，Advance 越过到期时间时触发
func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := &manualTimer{clock: m, when: m.now.Add(d), f: f}
	m.timers = append(m.timers, t)
	return t
}

// Advance 推进时间，按到期顺序同步执行回调
// 回调中新注册的定时器如果在目标时间之前到期也会被触发
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		sort.SliceStable(m.timers, func(i, j int) bool {
			return m.timers[i].when.Before(m.timers[j].when)
		})
		if len(m.timers) == 0 || m.timers[0].when.After(target) {
			m.now = target
			m.mu.Unlock()
			return
		}
		t := m.timers[0]
		m.timers = m.timers[1:]
		m.now = t.when
		f := t.f
		m.mu.Unlock()

		f()
	}
}

// Set 直接跳到指定时间，不触发定时器
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

// Pending 未触发的定时器数量
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// removeLocked 移除定时器（需要持有锁）
func (m *Manual) removeLocked(t *manualTimer) bool {
	for i, other := range m.timers {
		if other == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return true
		}
	}
	return false
}

type manualTimer struct {
	clock *Manual
	when  time.Time
	f     func()
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	return t.clock.removeLocked(t)
}

func (t *manualTimer) Reset(d time.Duration) bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := t.clock.removeLocked(t)
	t.when = t.clock.now.Add(d)
	t.clock.timers = append(t.clock.timers, t)
	return active
}
