package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthCheck 健康检查接口
func (h *Handlers) HealthCheck(c *gin.Context) {
	// 检查数据库连接
	sqlDB, err := h.db.DB()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "database connection failed"})
		return
	}
	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "database ping failed"})
		return
	}

	body := gin.H{"status": "healthy", "time": time.Now().UTC()}
	if h.search != nil {
		if n, err := h.search.DocCount(); err == nil {
			body["search_docs"] = n
		}
	}
	c.JSON(http.StatusOK, body)
}

// RealtimeStats 推送通道连接数
func (h *Handlers) RealtimeStats(c *gin.Context) {
	body := gin.H{}
	if h.sse != nil {
		body["sse_clients"] = h.sse.Count()
	}
	if h.ws != nil {
		body["websocket"] = h.ws.Stats()
	}
	c.JSON(http.StatusOK, body)
}
