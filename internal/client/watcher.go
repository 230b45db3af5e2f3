package client

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	apperrors "github.com/wfunc/feed-the-cat/internal/errors"
	"github.com/wfunc/feed-the-cat/internal/food"
	"github.com/wfunc/feed-the-cat/internal/logger"
	ws "github.com/wfunc/feed-the-cat/internal/websocket"
	"go.uber.org/zap"
)

// WatcherConfig 订阅配置
type WatcherConfig struct {
	// PollInterval 推送断开期间的轮询间隔
	PollInterval time.Duration
	// ReconnectInterval 两次重连之间的间隔，期间轮询
	ReconnectInterval time.Duration
}

// Watcher 订阅 /ws/food 推送，断开时回退到轮询 /food/state
type Watcher struct {
	api    *APIClient
	sink   func(food.Snapshot)
	paused func() bool
	cfg    WatcherConfig
	dialer *websocket.Dialer
	log    *zap.Logger
}

// NewWatcher 创建订阅器，paused 返回 true 时跳过轮询
func NewWatcher(api *APIClient, cfg WatcherConfig, sink func(food.Snapshot), paused func() bool) *Watcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = 5 * time.Second
	}
	if paused == nil {
		paused = func() bool { return false }
	}
	return &Watcher{
		api:    api,
		sink:   sink,
		paused: paused,
		cfg:    cfg,
		dialer: &websocket.Dialer{HandshakeTimeout: 5 * time.Second},
		log:    logger.WithModule("client"),
	}
}

// Run 阻塞直到 ctx 结束
func (w *Watcher) Run(ctx context.Context) error {
	for {
		err := w.stream(ctx)
		if ctx.Err() != nil {
			return nil
		}
		w.log.Debug("推送连接断开，回退到轮询", zap.Error(err))

		w.poll(ctx, w.cfg.ReconnectInterval)
		if ctx.Err() != nil {
			return nil
		}
	}
}

// stream 保持推送连接，返回时连接已关闭
func (w *Watcher) stream(ctx context.Context) error {
	conn, _, err := w.dialer.DialContext(ctx, w.api.WebSocketURL(), nil)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrWebSocketConnect)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrWebSocketClosed)
		}

		var msg ws.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			w.log.Warn("推送消息格式错误", zap.Error(err))
			continue
		}
		if msg.Type != ws.MessageTypeFoodState {
			continue
		}

		var snapshot food.Snapshot
		if err := json.Unmarshal(msg.Data, &snapshot); err != nil {
			w.log.Warn("食物状态格式错误", zap.Error(err))
			continue
		}
		w.sink(snapshot)
	}
}

// poll 立即读取一次，之后按间隔轮询，持续 d
func (w *Watcher) poll(ctx context.Context, d time.Duration) {
	deadline := time.NewTimer(d)
	defer deadline.Stop()
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	w.pollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			return
		case <-ticker.C:
			w.pollOnce(ctx)
		}
	}
}

func (w *Watcher) pollOnce(ctx context.Context) {
	if w.paused() {
		return
	}
	state, err := w.api.FoodState(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Debug("轮询食物状态失败", zap.Error(err))
		}
		return
	}
	w.sink(state.Snapshot())
}
