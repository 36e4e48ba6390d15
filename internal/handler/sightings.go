package handlers

import (
	"AmberWatch/internal/services"
	"AmberWatch/pkg/response"

	"github.com/gin-gonic/gin"
)

func (h *Handlers) handleListSightings(c *gin.Context) {
	sightings, err := h.sightings.ListByAlert(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, "success", sightings)
}

// handleSubmitSighting 匿名可提交，登录时记录提交人
func (h *Handlers) handleSubmitSighting(c *gin.Context) {
	var in services.SightingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Fail(c, badRequest(err))
		return
	}
	sighting, err := h.sightings.Submit(c.Request.Context(), currentProfile(c), c.Param("id"), in)
	if clientGone(c) {
		return
	}
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Created(c, "sighting submitted", sighting)
}

func (h *Handlers) handleRecentSightings(c *gin.Context) {
	sightings, err := h.sightings.ListRecent(c.Request.Context(), currentProfile(c))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, "success", sightings)
}
