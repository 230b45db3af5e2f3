package food

import (
	"math"
	"time"
)

// 默认参数（与前端保持一致）
const (
	// DefaultConsumptionRate 猫每秒吃掉的食物量
	DefaultConsumptionRate = 5.0
	// DefaultFoodPerClick 每次点击添加的食物量
	DefaultFoodPerClick = 1
	// DefaultBowlCapacity 碗的显示容量，超过后进度条保持100%
	DefaultBowlCapacity = 100.0
)

// CurrentAmount 根据基线值、经过的秒数和消耗速率计算当前食物量
// 结果被钳制在 [0, baseline] 区间，时钟回拨产生的负时长按0处理
func CurrentAmount(baseline, elapsedSeconds, rate float64) float64 {
	if elapsedSeconds < 0 {
		elapsedSeconds = 0
	}
	if rate < 0 {
		rate = 0
	}
	return math.Max(0, baseline-rate*elapsedSeconds)
}

// Counter 惰性衰减计数器
// 只保存 (基线, 时间戳, 速率)，任意时刻的值都通过 AsOf 推算，不需要后台任务递减
type Counter struct {
	Baseline float64
	At       time.Time
	Rate     float64
}

// NewCounter 创建计数器
func NewCounter(baseline float64, at time.Time, rate float64) Counter {
	return Counter{Baseline: baseline, At: at, Rate: rate}
}

// Elapsed 从基线时间到t经过的时长（不小于0）
func (c Counter) Elapsed(t time.Time) time.Duration {
	d := t.Sub(c.At)
	if d < 0 {
		return 0
	}
	return d
}

// AsOf 计算t时刻的值
func (c Counter) AsOf(t time.Time) float64 {
	return CurrentAmount(c.Baseline, c.Elapsed(t).Seconds(), c.Rate)
}

// Add 先衰减到t时刻再加上units，返回以t为新基线的计数器
// 增量总是加在已经衰减后的值上，而不是旧基线上
func (c Counter) Add(t time.Time, units float64) Counter {
	return Counter{
		Baseline: c.AsOf(t) + units,
		At:       t,
		Rate:     c.Rate,
	}
}

// DepletesAt 预计耗尽的时间，速率为0时返回false
func (c Counter) DepletesAt() (time.Time, bool) {
	if c.Rate <= 0 {
		return time.Time{}, false
	}
	seconds := c.Baseline / c.Rate
	return c.At.Add(time.Duration(seconds * float64(time.Second))), true
}

// BowlPercentage 碗的填充百分比（0-100）
func BowlPercentage(amount, capacity float64) float64 {
	if capacity <= 0 {
		return 0
	}
	return math.Min(amount/capacity*100, 100)
}
