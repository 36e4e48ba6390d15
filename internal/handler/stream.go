package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// handleAlertStream SSE 推送新警报；每个连接独立 ID，同一账号多标签页互不挤占
func (h *Handlers) handleAlertStream(c *gin.Context) {
	h.sse.Serve(c, uuid.NewString())
}
