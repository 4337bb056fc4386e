package ws

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"shopguard-backend/internal/fanout"
)

const (
	// 单条消息写超时
	writeWait = 10 * time.Second

	// 等待客户端 pong 的最长时间
	pongWait = 60 * time.Second

	// ping 周期（必须小于 pongWait）
	pingPeriod = (pongWait * 9) / 10

	// 客户端上行消息上限（只允许 join/leave 控制帧）
	maxMessageSize = 512

	// 下行缓冲：写满即丢（慢客户端降级，不阻塞发布方）
	sendBufferSize = 256
)

// controlMessage 客户端上行控制帧
// {"action":"join:tenant","tenant_id":"..."} / {"action":"join:location","location_id":"..."}
// 以及对应的 leave:* 形态。房间成员关系不持久化，重连后客户端自行重新 join
type controlMessage struct {
	Action     string `json:"action"`
	TenantID   string `json:"tenant_id,omitempty"`
	LocationID string `json:"location_id,omitempty"`
}

// Client 一个已连接的实时订阅端（实现 fanout.Subscriber）
type Client struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	hub    *fanout.Hub
	logger *zap.Logger
}

// NewClient 包装一条已升级的 websocket 连接并注册到 Hub
func NewClient(id string, conn *websocket.Conn, hub *fanout.Hub, logger *zap.Logger) *Client {
	return &Client{
		id:     id,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		hub:    hub,
		logger: logger,
	}
}

var _ fanout.Subscriber = (*Client)(nil)

func (c *Client) ID() string { return c.id }

// Send 非阻塞投递；缓冲满返回 false（消息丢弃）
func (c *Client) Send(msg []byte) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Run 注册到 Hub 并启动读写泵；连接断开后自动从所有房间注销
func (c *Client) Run() {
	c.hub.Register(c)
	go c.writePump()
	go c.readPump()
}

// readPump 处理客户端上行的 join/leave 控制帧
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("Websocket read error", zap.String("client_id", c.id), zap.Error(err))
			}
			return
		}

		var ctrl controlMessage
		if err := json.Unmarshal(msg, &ctrl); err != nil {
			c.logger.Debug("Ignoring malformed control message", zap.String("client_id", c.id))
			continue
		}
		c.handleControl(ctrl)
	}
}

func (c *Client) handleControl(ctrl controlMessage) {
	switch ctrl.Action {
	case "join:tenant":
		c.hub.Join(c, fanout.TenantRoom(ctrl.TenantID))
	case "leave:tenant":
		c.hub.Leave(c, fanout.TenantRoom(ctrl.TenantID))
	case "join:location":
		c.hub.Join(c, fanout.LocationRoom(ctrl.LocationID))
	case "leave:location":
		c.hub.Leave(c, fanout.LocationRoom(ctrl.LocationID))
	default:
		c.logger.Debug("Unknown control action",
			zap.String("client_id", c.id),
			zap.String("action", ctrl.Action),
		)
	}
}

// writePump 顺序写出下行帧，周期性 ping
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
