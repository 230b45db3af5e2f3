// Package notify 食物基线变更通知。
package notify

import (
	"context"

	"github.com/wfunc/feed-the-cat/internal/food"
	"github.com/wfunc/feed-the-cat/internal/websocket"
)

// Notifier 投喂成功后发布新基线，失败不影响投喂结果
type Notifier interface {
	Publish(ctx context.Context, s food.Snapshot) error
}

// Noop 不发布
type Noop struct{}

// Publish 忽略
func (Noop) Publish(context.Context, food.Snapshot) error { return nil }

// HubNotifier 单实例部署，直接广播到本进程的Hub
type HubNotifier struct {
	hub *websocket.Hub
}

// NewHubNotifier 创建Hub通知器
func NewHubNotifier(hub *websocket.Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

// Publish 广播到所有连接
func (n *HubNotifier) Publish(_ context.Context, s food.Snapshot) error {
	return n.hub.BroadcastFoodState(s)
}
