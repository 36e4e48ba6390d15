package handlers

import (
	"io"

	"AmberWatch/internal/services"
	apperrors "AmberWatch/pkg/errors"
	"AmberWatch/pkg/response"

	"github.com/gin-gonic/gin"
)

var evidencePrefixes = map[string]string{
	"alert":    "alert_",
	"sighting": services.CapturePrefix,
	"id_proof": "id_proof_",
}

type captureRequest struct {
	DataURL string `json:"data_url" binding:"required"`
}

// handleUploadEvidence multipart 字段 file，可选 kind=alert|sighting|id_proof
func (h *Handlers) handleUploadEvidence(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		response.Fail(c, apperrors.Wrap(err, apperrors.CodeValidation, "file is required"))
		return
	}
	if fh.Size > services.MaxUploadBytes {
		response.Fail(c, apperrors.WithCode(apperrors.CodeTooLarge, "image exceeds upload limit"))
		return
	}
	prefix, ok := evidencePrefixes[c.DefaultPostForm("kind", "alert")]
	if !ok {
		response.FailWithCode(c, apperrors.CodeValidation, "unknown evidence kind")
		return
	}

	f, err := fh.Open()
	if err != nil {
		response.Fail(c, apperrors.Wrap(err, apperrors.CodeValidation, "cannot read upload"))
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, services.MaxUploadBytes+1))
	if err != nil {
		response.Fail(c, apperrors.Wrap(err, apperrors.CodeValidation, "cannot read upload"))
		return
	}

	uploaded, err := h.evidence.Upload(c.Request.Context(), data, prefix)
	if clientGone(c) {
		return
	}
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Created(c, "uploaded", uploaded)
}

// handleUploadCapture 相机确认后的 data URL 帧
func (h *Handlers) handleUploadCapture(c *gin.Context) {
	var req captureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, badRequest(err))
		return
	}
	uploaded, err := h.evidence.UploadDataURL(c.Request.Context(), req.DataURL)
	if clientGone(c) {
		return
	}
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Created(c, "uploaded", uploaded)
}
