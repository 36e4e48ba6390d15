package websocket

import (
	"net/http"
	"time"

	"AmberWatch/pkg/constant"

	"github.com/gin-gonic/gin"
)

// Handler WebSocket HTTP处理器
type Handler struct {
	hub *Hub
}

// NewHandler 创建新的WebSocket处理器
func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// HandleWebSocket 观察端可匿名连接
func (h *Handler) HandleWebSocket(c *gin.Context) {
	viewerID := c.GetString(constant.ActorIDField)
	if viewerID == "" {
		viewerID = "anonymous"
	}
	lang := c.GetString(constant.LangField)
	if lang == "" {
		lang = "en"
	}
	HandleWebSocket(h.hub, c.Writer, c.Request, viewerID, lang)
}

// Stats WebSocket统计信息
func (h *Handler) Stats() gin.H {
	total := h.hub.Count()
	return gin.H{
		"total_connections":  total,
		"max_connections":    h.hub.config.MaxConnections,
		"connection_usage":   float64(total) / float64(h.hub.config.MaxConnections) * 100,
		"heartbeat_interval": h.hub.config.HeartbeatInterval.String(),
		"shard_count":        h.hub.config.ShardCount,
		"hub_running":        h.hub.ctx.Err() == nil,
		"timestamp":          time.Now().Unix(),
	}
}

// GetStats 获取WebSocket统计信息
func (h *Handler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.Stats())
}
