package websocket

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	apperrors "github.com/wfunc/feed-the-cat/internal/errors"
	"go.uber.org/zap"
)

// 错误定义
var (
	ErrHubStopped     = errors.New("hub已停止")
	ErrSendBufferFull = errors.New("发送缓冲区已满")
)

// WebSocket配置
const (
	// 写超时
	writeWait = 10 * time.Second

	// 读取pong超时
	pongWait = 60 * time.Second

	// ping发送周期（必须小于pongWait）
	pingPeriod = (pongWait * 9) / 10

	// 客户端只发送pong等小消息
	maxMessageSize = 4 * 1024

	sendBufferSize = 32
)

// Client WebSocket客户端
type Client struct {
	ID         string
	RemoteAddr string
	Hub        *Hub
	Conn       *websocket.Conn
	Send       chan []byte
}

// NewClient 创建新客户端
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	c := &Client{
		ID:   uuid.New().String(),
		Hub:  hub,
		Conn: conn,
		Send: make(chan []byte, sendBufferSize),
	}
	if conn != nil {
		c.RemoteAddr = conn.RemoteAddr().String()
	}
	return c
}

// Enqueue 注册前放入首条消息
func (c *Client) Enqueue(msgType string, payload interface{}) error {
	data, err := encode(msgType, payload)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrMessageFormat)
	}
	select {
	case c.Send <- data:
		return nil
	default:
		return apperrors.Wrap(ErrSendBufferFull, apperrors.ErrWebSocketSend, c.ID)
	}
}

// ReadPump 读取消息，连接断开后注销
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("WebSocket读取错误",
					zap.String("client_id", c.ID),
					zap.Error(err))
			}
			return
		}
		c.handleMessage(message)
	}
}

// WritePump 写入消息
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub关闭了通道
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// 每条消息一帧，客户端按帧解析JSON
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage 推送通道是单向的，客户端消息只记录不处理
// Send 通道由Hub负责关闭，这里不能回写
func (c *Client) handleMessage(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.Hub.logger.Debug("忽略无法解析的WebSocket消息", zap.String("client_id", c.ID))
		return
	}
	if msg.Type != MessageTypePong {
		c.Hub.logger.Debug("忽略客户端消息",
			zap.String("client_id", c.ID),
			zap.String("type", msg.Type))
	}
}
