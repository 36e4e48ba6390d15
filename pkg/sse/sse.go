package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"AmberWatch/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Client 一个已连接的 event-stream 订阅者
type Client struct {
	id   string
	ch   chan []byte
	done chan struct{}
}

// Events 已格式化的事件帧
func (c *Client) Events() <-chan []byte { return c.ch }

// Hub 管理 SSE 连接；慢消费者的缓冲满时直接丢弃消息
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	interval time.Duration
	retryMs  int
	buffer   int
	seq      uint64
	onCount  func(n int)
}

func NewHub(interval time.Duration) *Hub {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Hub{clients: make(map[string]*Client), interval: interval, retryMs: 5000, buffer: 64}
}

// OnCountChange 连接数变化回调，用于指标上报
func (h *Hub) OnCountChange(fn func(n int)) {
	h.mu.Lock()
	h.onCount = fn
	h.mu.Unlock()
}

func (h *Hub) AddClient(id string) *Client {
	h.mu.Lock()
	if old, ok := h.clients[id]; ok {
		close(old.done)
	}
	c := &Client{id: id, ch: make(chan []byte, h.buffer), done: make(chan struct{})}
	h.clients[id] = c
	n, fn := len(h.clients), h.onCount
	h.mu.Unlock()
	if fn != nil {
		fn(n)
	}
	return c
}

// RemoveClient 仅移除与 c 相同的实例，同 id 重连后旧连接的退出不影响新连接
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	cur, ok := h.clients[c.id]
	if !ok || cur != c {
		h.mu.Unlock()
		return
	}
	close(c.done)
	delete(h.clients, c.id)
	n, fn := len(h.clients), h.onCount
	h.mu.Unlock()
	if fn != nil {
		fn(n)
	}
}

// Close 断开所有连接，关停 HTTP 服务前调用
func (h *Hub) Close() {
	h.mu.Lock()
	for id, c := range h.clients {
		close(c.done)
		delete(h.clients, id)
	}
	fn := h.onCount
	h.mu.Unlock()
	if fn != nil {
		fn(0)
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish 向所有连接推送一个具名事件，返回事件 id
func (h *Hub) Publish(event string, v interface{}) (uint64, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return 0, err
	}
	id := atomic.AddUint64(&h.seq, 1)
	h.sendAll(formatEvent(id, event, b))
	return id, nil
}

func (h *Hub) sendAll(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.ch <- msg:
		default:
			logger.Warn("sse client buffer full, dropping event", zap.String("client", c.id))
		}
	}
}

func formatEvent(id uint64, event string, data []byte) []byte {
	return []byte(fmt.Sprintf("id: %s\nevent: %s\ndata: %s\n\n", strconv.FormatUint(id, 10), event, data))
}

// Serve 阻塞直到客户端断开；不处理 Last-Event-ID，断线期间的事件不会重放
func (h *Hub) Serve(c *gin.Context, clientID string) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	fmt.Fprintf(c.Writer, "retry: %d\n\n", h.retryMs)
	flusher.Flush()

	client := h.AddClient(clientID)
	defer h.RemoveClient(client)

	ping := time.NewTicker(h.interval)
	defer ping.Stop()

	for {
		select {
		case <-client.done:
			return
		case <-c.Request.Context().Done():
			return
		case <-ping.C:
			fmt.Fprint(c.Writer, "event: ping\ndata: {}\n\n")
			flusher.Flush()
		case msg := <-client.ch:
			if _, err := c.Writer.Write(msg); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
