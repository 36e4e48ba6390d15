package handlers

import (
	"strconv"

	"AmberWatch/internal/services"
	"AmberWatch/pkg/constant"
	"AmberWatch/pkg/logger"
	"AmberWatch/pkg/response"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type credentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type policeVerifyRequest struct {
	PoliceID string `json:"police_id" binding:"required"`
}

func (h *Handlers) handleCitizenSignup(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, badRequest(err))
		return
	}
	profile, err := h.auth.SignUpCitizen(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Created(c, "registered", profile)
}

// handlePoliceVerify 注册前的警员编号预检，结果即登记表核验结果
func (h *Handlers) handlePoliceVerify(c *gin.Context) {
	var req policeVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, badRequest(err))
		return
	}
	response.Success(c, "success", h.verification.Verify(c.Request.Context(), req.PoliceID))
}

func (h *Handlers) handlePoliceSignup(c *gin.Context) {
	var req services.PoliceRegistration
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, badRequest(err))
		return
	}
	profile, err := h.auth.SignUpPolice(c.Request.Context(), req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Created(c, "registered", profile)
}

func (h *Handlers) handleSignin(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, badRequest(err))
		return
	}
	session, token, err := h.auth.SignIn(c.Request.Context(), req.Username, req.Password, services.SessionMeta{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		response.Fail(c, err)
		return
	}

	s := sessions.Default(c)
	s.Set(constant.SessionKeyID, session.ID)
	if err := s.Save(); err != nil {
		logger.Warn("save cookie session failed", zap.Error(err))
	}

	response.Success(c, "signed in", gin.H{
		"token":      token,
		"expires_at": session.ExpiresAt,
		"profile":    h.identity.ProfileForSession(c.Request.Context(), session),
	})
}

func (h *Handlers) handleSignout(c *gin.Context) {
	sid := c.GetString(constant.SessionIDField)
	if err := h.auth.SignOut(c.Request.Context(), sid); err != nil {
		response.Fail(c, err)
		return
	}

	s := sessions.Default(c)
	s.Clear()
	s.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := s.Save(); err != nil {
		logger.Warn("clear cookie session failed", zap.Error(err))
	}
	response.Success(c, "signed out", nil)
}

func (h *Handlers) handleMe(c *gin.Context) {
	response.Success(c, "success", currentProfile(c))
}

// handleOperationHistory 当前警员的审计记录
func (h *Handlers) handleOperationHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	logs, err := h.audit.History(c.Request.Context(), currentProfile(c), limit)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, "success", logs)
}
