package handlers

import (
	"strings"

	"AmberWatch/internal/models"
	"AmberWatch/internal/services"
	"AmberWatch/pkg/constant"
	apperrors "AmberWatch/pkg/errors"
	"AmberWatch/pkg/response"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// authenticate 解析 cookie 会话或 Bearer 令牌；无效凭据按匿名处理，由业务层决定是否拒绝
func (h *Handlers) authenticate(c *gin.Context) {
	sid := bearerSessionID(c, h.auth)
	if sid == "" {
		if v, ok := sessions.Default(c).Get(constant.SessionKeyID).(string); ok {
			sid = v
		}
	}
	if sid == "" {
		c.Next()
		return
	}

	session, err := h.auth.CurrentSession(c.Request.Context(), sid)
	if err != nil {
		c.Next()
		return
	}
	c.Set(constant.SessionIDField, session.ID)
	if profile := h.identity.ProfileForSession(c.Request.Context(), session); profile != nil {
		c.Set(constant.ProfileField, profile)
		c.Set(constant.ActorIDField, profile.ID)
	}
	c.Next()
}

func bearerSessionID(c *gin.Context, auth *services.AuthService) string {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	sid, err := auth.ParseToken(strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")))
	if err != nil {
		return ""
	}
	return sid
}

// requireSignedIn 要求有效会话
func requireSignedIn(c *gin.Context) {
	if currentProfile(c) == nil {
		response.Fail(c, services.ErrUnauthorized)
		return
	}
	c.Next()
}

// currentProfile 匿名请求返回 nil
func currentProfile(c *gin.Context) *models.Profile {
	v, ok := c.Get(constant.ProfileField)
	if !ok {
		return nil
	}
	p, _ := v.(*models.Profile)
	return p
}

func badRequest(err error) error {
	return apperrors.Wrap(err, apperrors.CodeValidation, "invalid request body")
}
