package websocket

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/wfunc/feed-the-cat/internal/food"
	"go.uber.org/zap"
)

// StateSource 读取当前持久化基线
type StateSource func(ctx context.Context) (food.Snapshot, error)

// Handler 食物状态推送入口
type Handler struct {
	hub      *Hub
	state    StateSource
	upgrader websocket.Upgrader
}

// NewHandler 创建推送处理器，allowOrigin 为空时允许所有来源
func NewHandler(hub *Hub, state StateSource, allowOrigin func(origin string) bool) *Handler {
	return &Handler{
		hub:   hub,
		state: state,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || allowOrigin == nil {
					return true
				}
				return allowOrigin(origin)
			},
		},
	}
}

// ServeFood GET /ws/food
func (h *Handler) ServeFood(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.hub.logger.Warn("WebSocket升级失败", zap.String("ip", c.ClientIP()), zap.Error(err))
		return
	}

	client := NewClient(h.hub, conn)

	// 连接建立后先推送当前基线，客户端无需再轮询一次
	if h.state != nil {
		if snapshot, err := h.state(c.Request.Context()); err == nil {
			_ = client.Enqueue(MessageTypeFoodState, snapshot)
		} else {
			h.hub.logger.Warn("读取初始食物状态失败", zap.String("client_id", client.ID), zap.Error(err))
		}
	}

	if err := h.hub.Register(client); err != nil {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}
