package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/wfunc/feed-the-cat/internal/clock"
	"github.com/wfunc/feed-the-cat/internal/food"
)

func newTestCat() (*CatTracker, *clock.Manual) {
	clk := clock.NewManual(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	return NewCatTracker(clk, 5*time.Second, 500*time.Millisecond), clk
}

func TestCatTracker_ReactsThenEats(t *testing.T) {
	cat, clk := newTestCat()
	var states []food.CatState
	cat.OnChange(func(s food.CatState) { states = append(states, s) })

	assert.Equal(t, food.CatHungry, cat.State())

	cat.SetAmount(5)
	assert.Equal(t, food.CatReacting, cat.State())

	// 反应期间持续有食物，仍在反应
	cat.SetAmount(4.5)
	assert.Equal(t, food.CatReacting, cat.State())

	clk.Advance(500 * time.Millisecond)
	assert.Equal(t, food.CatEating, cat.State())

	cat.SetAmount(0)
	assert.Equal(t, food.CatHungry, cat.State())

	assert.Equal(t, []food.CatState{food.CatReacting, food.CatEating, food.CatHungry}, states)
}

// 本地点击后的停留时间内，显示值为0也不回到饥饿
func TestCatTracker_FeedingLinger(t *testing.T) {
	cat, clk := newTestCat()

	cat.SetAmount(2)
	clk.Advance(500 * time.Millisecond)
	assert.Equal(t, food.CatEating, cat.State())

	cat.Clicked()
	cat.SetAmount(0)
	assert.Equal(t, food.CatEating, cat.State())

	clk.Advance(4 * time.Second)
	cat.Clicked()
	clk.Advance(4 * time.Second)
	assert.Equal(t, food.CatEating, cat.State(), "再次点击延长停留时间")

	clk.Advance(time.Second)
	assert.Equal(t, food.CatHungry, cat.State())
}

func TestCatTracker_ClickOnEmptyBowlStaysHungry(t *testing.T) {
	cat, clk := newTestCat()

	cat.Clicked()
	assert.Equal(t, food.CatHungry, cat.State())

	cat.SetAmount(1)
	assert.Equal(t, food.CatReacting, cat.State())

	clk.Advance(10 * time.Second)
	assert.Equal(t, food.CatEating, cat.State())
}
