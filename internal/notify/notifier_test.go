package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/wfunc/feed-the-cat/internal/errors"
	"github.com/wfunc/feed-the-cat/internal/food"
	"github.com/wfunc/feed-the-cat/internal/websocket"
	"go.uber.org/zap"
)

type recordingSink struct {
	mu        sync.Mutex
	snapshots []food.Snapshot
}

func (r *recordingSink) BroadcastFoodState(s food.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, s)
	return nil
}

func (r *recordingSink) all() []food.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]food.Snapshot(nil), r.snapshots...)
}

func TestRedisNotifier_FanOut(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	n := NewRedisNotifier(rdb, "")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 两个实例各自订阅
	sinkA, sinkB := &recordingSink{}, &recordingSink{}
	readyA, readyB := make(chan struct{}), make(chan struct{})
	go n.Subscribe(ctx, sinkA, readyA)
	go n.Subscribe(ctx, sinkB, readyB)
	<-readyA
	<-readyB

	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, n.Publish(ctx, food.Snapshot{FoodAmount: 7, LastConsumedAt: t0, ConsumptionRate: 5}))

	for _, sink := range []*recordingSink{sinkA, sinkB} {
		sink := sink
		require.Eventually(t, func() bool { return len(sink.all()) == 1 }, time.Second, 10*time.Millisecond)
		got := sink.all()[0]
		assert.Equal(t, 7.0, got.FoodAmount)
		assert.True(t, t0.Equal(got.LastConsumedAt))
	}
}

func TestRedisNotifier_PublishError(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	mr.Close()

	err := NewRedisNotifier(rdb, "x").Publish(context.Background(), food.Snapshot{})
	assert.Error(t, err)
}

func TestHubNotifier(t *testing.T) {
	hub := websocket.NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	assert.NoError(t, NewHubNotifier(hub).Publish(ctx, food.Snapshot{FoodAmount: 1}))
	assert.NoError(t, Noop{}.Publish(ctx, food.Snapshot{}))
}

func TestRedisNotifier_PublishFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	mr.Close()

	err := NewRedisNotifier(rdb, "").Publish(context.Background(), food.Snapshot{FoodAmount: 1})
	assert.True(t, apperrors.Is(err, apperrors.ErrNotifyPublish))
}
