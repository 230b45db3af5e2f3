package food

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCurrentAmount_Examples(t *testing.T) {
	assert.Equal(t, 0.0, CurrentAmount(50, 10, 5))
	assert.Equal(t, 30.0, CurrentAmount(50, 4, 5))
	assert.Equal(t, 50.0, CurrentAmount(50, 0, 5))
	assert.Equal(t, 0.0, CurrentAmount(10, 2, 5))
}

func TestCurrentAmount_Properties(t *testing.T) {
	baselines := []float64{0, 0.5, 1, 3, 50, 1234.5}
	elapsed := []float64{0, 0.1, 1, 2.5, 10, 1000}
	rates := []float64{0, 0.5, 1, 5, 100}

	for _, x := range baselines {
		for _, r := range rates {
			prev := CurrentAmount(x, 0, r)
			assert.Equal(t, x, prev, "t=0 时应等于基线")
			for _, e := range elapsed {
				got := CurrentAmount(x, e, r)
				assert.GreaterOrEqual(t, got, 0.0)
				assert.LessOrEqual(t, got, x)
				assert.LessOrEqual(t, got, prev, "随时间单调不增")
				prev = got
			}
		}
	}
}

func TestCurrentAmount_NegativeElapsedClamped(t *testing.T) {
	assert.Equal(t, 20.0, CurrentAmount(20, -3, 5))
}

func TestCounter_AsOfAndAdd(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := NewCounter(10, t0, 5)

	assert.Equal(t, 10.0, c.AsOf(t0))
	assert.Equal(t, 5.0, c.AsOf(t0.Add(time.Second)))
	assert.Equal(t, 0.0, c.AsOf(t0.Add(2*time.Second)))
	assert.Equal(t, 10.0, c.AsOf(t0.Add(-time.Second)))

	// 两秒后加3：先衰减到0，再加3
	next := c.Add(t0.Add(2*time.Second), 3)
	assert.Equal(t, 3.0, next.Baseline)
	assert.Equal(t, t0.Add(2*time.Second), next.At)
	assert.Equal(t, 3.0, next.AsOf(next.At))
	assert.InDelta(t, 0.5, next.AsOf(next.At.Add(500*time.Millisecond)), 1e-9)
}

func TestCounter_DepletesAt(t *testing.T) {
	t0 := time.Unix(1000, 0)
	at, ok := NewCounter(50, t0, 5).DepletesAt()
	assert.True(t, ok)
	assert.Equal(t, t0.Add(10*time.Second), at)

	_, ok = NewCounter(50, t0, 0).DepletesAt()
	assert.False(t, ok)
}

func TestBowlPercentage(t *testing.T) {
	assert.Equal(t, 0.0, BowlPercentage(10, 0))
	assert.Equal(t, 50.0, BowlPercentage(50, 100))
	assert.Equal(t, 100.0, BowlPercentage(250, 100))
}

func TestNextCatState(t *testing.T) {
	assert.Equal(t, CatReacting, NextCatState(CatHungry, 3, false))
	assert.Equal(t, CatEating, FinishReaction(CatReacting))
	assert.Equal(t, CatEating, NextCatState(CatEating, 3, false))
	assert.Equal(t, CatHungry, NextCatState(CatEating, 0, false))
	assert.Equal(t, CatEating, NextCatState(CatEating, 0, true))
	assert.Equal(t, CatHungry, FinishReaction(CatHungry))
}

func TestSnapshotRoundTrip(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCounter(20, t0, 5)

	s := c.Snapshot()
	assert.Equal(t, 20.0, s.FoodAmount)
	assert.Equal(t, c, s.Counter())
	assert.InDelta(t, 10.0, s.Counter().AsOf(t0.Add(2*time.Second)), 1e-9)
}
