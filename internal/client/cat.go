package client

import (
	"sync"
	"time"

	"github.com/wfunc/feed-the-cat/internal/clock"
	"github.com/wfunc/feed-the-cat/internal/food"
)

// CatTracker 跟踪猫的状态
// 本地点击后的 linger 时间内即使显示值为0也不回到饥饿
type CatTracker struct {
	mu            sync.Mutex
	clock         clock.Clock
	linger        time.Duration
	reaction      time.Duration
	state         food.CatState
	amount        float64
	feeding       bool
	feedingTimer  clock.Timer
	reactionTimer clock.Timer
	observers     []func(food.CatState)
}

// NewCatTracker 创建状态跟踪器
func NewCatTracker(clk clock.Clock, linger, reaction time.Duration) *CatTracker {
	if clk == nil {
		clk = clock.New()
	}
	return &CatTracker{
		clock:    clk,
		linger:   linger,
		reaction: reaction,
		state:    food.CatHungry,
	}
}

// OnChange 注册状态变化回调
func (t *CatTracker) OnChange(fn func(food.CatState)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observers = append(t.observers, fn)
}

// State 当前状态
func (t *CatTracker) State() food.CatState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// SetAmount 显示值变化
func (t *CatTracker) SetAmount(amount float64) {
	t.mu.Lock()
	t.amount = amount
	t.update(food.NextCatState(t.state, t.amount, t.feeding))
}

// Clicked 本地点击，开始或延长喂食会话
func (t *CatTracker) Clicked() {
	t.mu.Lock()
	t.feeding = true
	if t.feedingTimer == nil {
		t.feedingTimer = t.clock.AfterFunc(t.linger, t.lingerDone)
	} else {
		t.feedingTimer.Reset(t.linger)
	}
	t.update(food.NextCatState(t.state, t.amount, t.feeding))
}

func (t *CatTracker) lingerDone() {
	t.mu.Lock()
	t.feeding = false
	t.update(food.NextCatState(t.state, t.amount, t.feeding))
}

func (t *CatTracker) reactionDone() {
	t.mu.Lock()
	t.update(food.FinishReaction(t.state))
}

// update 切换状态并释放锁；进入 REACTING 时安排结束反应
func (t *CatTracker) update(next food.CatState) {
	prev := t.state
	if next == prev {
		t.mu.Unlock()
		return
	}
	t.state = next
	if next == food.CatReacting {
		if t.reactionTimer == nil {
			t.reactionTimer = t.clock.AfterFunc(t.reaction, t.reactionDone)
		} else {
			t.reactionTimer.Reset(t.reaction)
		}
	}
	observers := t.observers
	t.mu.Unlock()

	for _, fn := range observers {
		fn(next)
	}
}

// Stop 停止所有定时器
func (t *CatTracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.feedingTimer != nil {
		t.feedingTimer.Stop()
	}
	if t.reactionTimer != nil {
		t.reactionTimer.Stop()
	}
}
