package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	apperrors "github.com/wfunc/feed-the-cat/internal/errors"
	"github.com/wfunc/feed-the-cat/internal/food"
	"github.com/wfunc/feed-the-cat/internal/logger"
	"go.uber.org/zap"
)

// DefaultChannel 默认发布频道
const DefaultChannel = "feedacat:food_state"

// Sink 接收订阅到的基线
type Sink interface {
	BroadcastFoodState(s food.Snapshot) error
}

// RedisNotifier 多实例部署，经Redis频道扇出到每个实例的Hub
type RedisNotifier struct {
	rdb     *redis.Client
	channel string
	logger  *zap.Logger
}

// NewRedisNotifier 创建Redis通知器
func NewRedisNotifier(rdb *redis.Client, channel string) *RedisNotifier {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisNotifier{
		rdb:     rdb,
		channel: channel,
		logger:  logger.GetModuleLogger("notify"),
	}
}

// Publish 发布到频道
func (n *RedisNotifier) Publish(ctx context.Context, s food.Snapshot) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrMessageFormat)
	}
	if err := n.rdb.Publish(ctx, n.channel, payload).Err(); err != nil {
		return apperrors.Wrapf(err, apperrors.ErrNotifyPublish, "频道 %s", n.channel)
	}
	return nil
}

// Subscribe 订阅频道并转发给sink，阻塞到ctx取消
// ready 在订阅确认后关闭，可为nil
func (n *RedisNotifier) Subscribe(ctx context.Context, sink Sink, ready chan<- struct{}) error {
	pubsub := n.rdb.Subscribe(ctx, n.channel)
	defer pubsub.Close()

	// 等待订阅确认，避免丢失紧随其后的发布
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("订阅频道失败: %w", err)
	}
	if ready != nil {
		close(ready)
	}

	n.logger.Info("已订阅食物状态频道", zap.String("channel", n.channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var s food.Snapshot
			if err := json.Unmarshal([]byte(msg.Payload), &s); err != nil {
				n.logger.Warn("忽略无法解析的食物状态", zap.String("payload", msg.Payload), zap.Error(err))
				continue
			}
			if err := sink.BroadcastFoodState(s); err != nil {
				n.logger.Warn("转发食物状态失败", zap.Error(err))
			}
		}
	}
}
