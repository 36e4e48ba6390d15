package handlers

import (
	"AmberWatch/internal/models"
	"AmberWatch/internal/services"
	"AmberWatch/pkg/response"

	"github.com/gin-gonic/gin"
)

type statusRequest struct {
	Status models.AlertStatus `json:"status" binding:"required"`
}

func (h *Handlers) handleListActiveAlerts(c *gin.Context) {
	alerts, err := h.alerts.ListActive(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, "success", alerts)
}

func (h *Handlers) handleListResolvedAlerts(c *gin.Context) {
	alerts, err := h.alerts.ListResolved(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, "success", alerts)
}

func (h *Handlers) handleSearchAlerts(c *gin.Context) {
	alerts, err := h.alerts.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, "success", alerts)
}

func (h *Handlers) handleGetAlert(c *gin.Context) {
	alert, err := h.alerts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, "success", alert)
}

// handleCreateAlert 校验与权限都在服务层完成，照片缺失时不会触达存储
func (h *Handlers) handleCreateAlert(c *gin.Context) {
	var in services.AlertInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Fail(c, badRequest(err))
		return
	}
	alert, err := h.alerts.Create(c.Request.Context(), currentProfile(c), in)
	if clientGone(c) {
		return
	}
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Created(c, "alert published", alert)
}

func (h *Handlers) handleSetAlertStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, badRequest(err))
		return
	}
	if err := h.alerts.SetStatus(c.Request.Context(), currentProfile(c), c.Param("id"), req.Status); err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, "status updated", gin.H{"id": c.Param("id"), "status": req.Status})
}

func (h *Handlers) handleDeleteAlert(c *gin.Context) {
	if err := h.alerts.Delete(c.Request.Context(), currentProfile(c), c.Param("id")); err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, "alert deleted", nil)
}

// clientGone 客户端已断开时结果直接丢弃
func clientGone(c *gin.Context) bool {
	return c.Request.Context().Err() != nil
}
