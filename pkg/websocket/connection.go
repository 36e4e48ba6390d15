package websocket

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const writeWait = 10 * time.Second

// newUpgrader 根据配置创建WebSocket升级器
func newUpgrader(cfg *Config) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			if len(cfg.AllowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, o := range cfg.AllowedOrigins {
				if o == origin {
					return true
				}
			}
			return false
		},
		EnableCompression: cfg.EnableCompression,
	}
}

// HandleWebSocket 升级连接并注册到 Hub
func HandleWebSocket(hub *Hub, w http.ResponseWriter, r *http.Request, viewerID, lang string) {
	upgrader := newUpgrader(hub.config)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.Errorf("WebSocket升级失败: %v", err)
		return
	}
	if hub.config.EnableCompression {
		conn.EnableWriteCompression(true)
	}

	connection := &Connection{
		ID:       "conn_" + uuid.NewString(),
		ViewerID: viewerID,
		Lang:     lang,
		Conn:     conn,
		Send:     make(chan []byte, hub.config.MessageBufferSize),
		Hub:      hub,
	}
	connection.touch()

	select {
	case hub.register <- connection:
	case <-hub.ctx.Done():
		conn.Close()
		return
	}

	go connection.writePump()
	go connection.readPump()
}

// readPump 观察端只发送心跳，其余消息忽略
func (c *Connection) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.ctx.Done():
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(int64(c.Hub.config.MaxMessageSize))
	_ = c.Conn.SetReadDeadline(time.Now().Add(c.Hub.config.ConnectionTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.touch()
		return c.Conn.SetReadDeadline(time.Now().Add(c.Hub.config.ConnectionTimeout))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.Errorf("WebSocket读取错误: %v", err)
			}
			return
		}
		c.handleMessage(message)
	}
}

// writePump 发送消息与定时 ping
func (c *Connection) writePump() {
	ticker := time.NewTicker(time.Duration(float64(c.Hub.config.HeartbeatInterval) * 0.9))
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Connection) handleMessage(message []byte) {
	var msg Message
	if err := json.Unmarshal(message, &msg); err != nil {
		logrus.Debugf("消息解析失败: %v", err)
		return
	}
	switch msg.Type {
	case MessageTypePing:
		c.handlePing()
	default:
		logrus.Debugf("忽略观察端消息类型: %s", msg.Type)
	}
}

func (c *Connection) handlePing() {
	c.touch()
	data, _ := json.Marshal(Message{Type: MessageTypePong, Timestamp: time.Now().Unix()})
	select {
	case c.Send <- data:
	default:
		logrus.Warnf("连接 %s 发送缓冲区已满", c.ID)
	}
}
