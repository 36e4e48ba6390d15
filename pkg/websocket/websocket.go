package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"AmberWatch/pkg/util"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// 消息类型
const (
	MessageTypePing         = "ping"
	MessageTypePong         = "pong"
	MessageTypeAlertCreated = "alert_created"
)

// Message 推送给观察端的消息
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Notice    string      `json:"notice,omitempty"`
	Lang      string      `json:"lang,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// Connection 表示一个WebSocket连接
type Connection struct {
	ID       string
	ViewerID string
	Lang     string
	Conn     *websocket.Conn
	Send     chan []byte
	Hub      *Hub
	lastPing atomic.Int64
}

func (c *Connection) touch() { c.lastPing.Store(time.Now().UnixNano()) }

// LastPing 最近一次收到心跳的时间
func (c *Connection) LastPing() time.Time { return time.Unix(0, c.lastPing.Load()) }

// Hub 管理所有WebSocket连接，按分片广播
type Hub struct {
	register   chan *Connection
	unregister chan *Connection

	connectionCount int64
	config          *Config

	ctx    context.Context
	cancel context.CancelFunc

	shardCount int
	shardConns []map[string]*Connection
	shardLocks []sync.RWMutex

	broadcastJobs chan broadcastJob

	mu      sync.RWMutex
	onCount func(n int64)
}

type broadcastJob struct {
	shard    int
	msg      *Message
	localize func(lang string) string
	cache    *sync.Map // lang -> 已序列化消息
}

// NewHub 创建新的Hub实例
func NewHub(config *Config) *Hub {
	if config == nil {
		config = DefaultConfig()
	}
	if config.ShardCount <= 0 {
		config.ShardCount = 1
	}
	if config.BroadcastWorkerCount <= 0 {
		config.BroadcastWorkerCount = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	hub := &Hub{
		register:      make(chan *Connection, 256),
		unregister:    make(chan *Connection, 256),
		config:        config,
		ctx:           ctx,
		cancel:        cancel,
		shardCount:    config.ShardCount,
		shardConns:    make([]map[string]*Connection, config.ShardCount),
		shardLocks:    make([]sync.RWMutex, config.ShardCount),
		broadcastJobs: make(chan broadcastJob, config.MessageQueueSize),
	}
	for i := 0; i < hub.shardCount; i++ {
		hub.shardConns[i] = make(map[string]*Connection)
	}
	for i := 0; i < config.BroadcastWorkerCount; i++ {
		go hub.broadcastWorker()
	}
	go hub.run()
	return hub
}

// OnCountChange 连接数变化回调
func (h *Hub) OnCountChange(fn func(n int64)) {
	h.mu.Lock()
	h.onCount = fn
	h.mu.Unlock()
}

// run Hub主循环
func (h *Hub) run() {
	ticker := time.NewTicker(h.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			h.closeAll()
			return
		case conn := <-h.register:
			h.registerConnection(conn)
		case conn := <-h.unregister:
			h.unregisterConnection(conn)
		case <-ticker.C:
			h.checkHeartbeats()
		}
	}
}

func (h *Hub) registerConnection(conn *Connection) {
	if atomic.LoadInt64(&h.connectionCount) >= h.config.MaxConnections {
		logrus.Warnf("达到最大连接数限制: %d", h.config.MaxConnections)
		close(conn.Send)
		return
	}
	if conn.lastPing.Load() == 0 {
		conn.touch()
	}

	sh := h.shardIndex(conn.ID)
	h.shardLocks[sh].Lock()
	h.shardConns[sh][conn.ID] = conn
	h.shardLocks[sh].Unlock()

	n := atomic.AddInt64(&h.connectionCount, 1)
	h.notifyCount(n)
	logrus.Infof("WebSocket连接已注册: %s, 观察者: %s, 当前连接数: %d", conn.ID, conn.ViewerID, n)
}

func (h *Hub) unregisterConnection(conn *Connection) {
	sh := h.shardIndex(conn.ID)
	h.shardLocks[sh].Lock()
	cur, exists := h.shardConns[sh][conn.ID]
	if exists && cur == conn {
		delete(h.shardConns[sh], conn.ID)
	}
	h.shardLocks[sh].Unlock()
	if !exists || cur != conn {
		return
	}

	close(conn.Send)
	n := atomic.AddInt64(&h.connectionCount, -1)
	h.notifyCount(n)
	logrus.Infof("WebSocket连接已注销: %s, 当前连接数: %d", conn.ID, n)
}

func (h *Hub) notifyCount(n int64) {
	h.mu.RLock()
	fn := h.onCount
	h.mu.RUnlock()
	if fn != nil {
		fn(n)
	}
}

// Broadcast 推送给所有连接；localize 非空时按连接语言生成 Notice
func (h *Hub) Broadcast(msg *Message, localize func(lang string) string) {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().Unix()
	}
	cache := &sync.Map{}
	for i := 0; i < h.shardCount; i++ {
		select {
		case h.broadcastJobs <- broadcastJob{shard: i, msg: msg, localize: localize, cache: cache}:
		default:
			logrus.Warnf("广播作业队列已满，消息被丢弃")
		}
	}
}

func (h *Hub) broadcastWorker() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case job := <-h.broadcastJobs:
			h.shardLocks[job.shard].RLock()
			for _, conn := range h.shardConns[job.shard] {
				data, err := job.encode(conn.Lang)
				if err != nil {
					logrus.Errorf("消息序列化失败: %v", err)
					break
				}
				h.trySend(conn, data)
			}
			h.shardLocks[job.shard].RUnlock()
		}
	}
}

// encode 同一语言只序列化一次
func (j broadcastJob) encode(lang string) ([]byte, error) {
	if v, ok := j.cache.Load(lang); ok {
		return v.([]byte), nil
	}
	msg := *j.msg
	if j.localize != nil {
		msg.Notice = j.localize(lang)
		msg.Lang = lang
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	j.cache.Store(lang, data)
	return data, nil
}

// trySend 背压策略：缓冲满时丢弃，可配置为直接断开慢消费者
func (h *Hub) trySend(conn *Connection, data []byte) {
	select {
	case conn.Send <- data:
	default:
		logrus.Debugf("连接 %s 发送缓冲区满，消息丢弃", conn.ID)
		if h.config.CloseOnBackpressure && conn.Conn != nil {
			conn.Conn.Close()
		}
	}
}

func (h *Hub) checkHeartbeats() {
	now := time.Now()
	for i := 0; i < h.shardCount; i++ {
		h.shardLocks[i].RLock()
		for _, conn := range h.shardConns[i] {
			if now.Sub(conn.LastPing()) > h.config.ConnectionTimeout && conn.Conn != nil {
				logrus.Warnf("连接 %s 心跳超时，准备关闭", conn.ID)
				conn.Conn.Close()
			}
		}
		h.shardLocks[i].RUnlock()
	}
}

func (h *Hub) closeAll() {
	for i := 0; i < h.shardCount; i++ {
		h.shardLocks[i].Lock()
		for id, conn := range h.shardConns[i] {
			if conn.Conn != nil {
				conn.Conn.Close()
			}
			close(conn.Send)
			delete(h.shardConns[i], id)
		}
		h.shardLocks[i].Unlock()
	}
	atomic.StoreInt64(&h.connectionCount, 0)
}

// Count 当前连接数
func (h *Hub) Count() int64 {
	return atomic.LoadInt64(&h.connectionCount)
}

// Close 关闭Hub
func (h *Hub) Close() {
	h.cancel()
	logrus.Info("WebSocket Hub已关闭")
}

func (h *Hub) shardIndex(id string) int {
	if h.shardCount <= 1 {
		return 0
	}
	return util.HashSlot(id) % h.shardCount
}
