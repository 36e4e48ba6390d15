package services

import (
	"context"

	"AmberWatch/internal/models"
	"AmberWatch/pkg/logger"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

type ProfileReader interface {
	Get(ctx context.Context, id string) (*models.Profile, error)
}

// IdentityService 会话到资料的解析，按会话 ID 缓存
type IdentityService struct {
	profiles ProfileReader
	cache    *lru.Cache[string, *models.Profile]
}

func NewIdentityService(profiles ProfileReader, size int) (*IdentityService, error) {
	if size <= 0 {
		size = 1024
	}
	c, err := lru.New[string, *models.Profile](size)
	if err != nil {
		return nil, err
	}
	return &IdentityService{profiles: profiles, cache: c}, nil
}

// Attach 订阅登录态变化，返回退订函数
func (s *IdentityService) Attach(auth *AuthService) func() {
	return auth.OnSessionChange(s.HandleSessionChange)
}

// HandleSessionChange 同步更新缓存，登录返回前新会话的资料已就绪
func (s *IdentityService) HandleSessionChange(ctx context.Context, ev SessionEvent) {
	switch ev.Kind {
	case SessionSignedIn:
		if p := s.ResolveProfile(ctx, ev.AccountID); p != nil {
			s.cache.Add(ev.SessionID, p)
		} else {
			s.cache.Remove(ev.SessionID)
		}
	case SessionSignedOut:
		s.cache.Remove(ev.SessionID)
	}
}

// ResolveProfile 查询失败返回 nil 并记录日志，不向上返回错误
func (s *IdentityService) ResolveProfile(ctx context.Context, accountID string) *models.Profile {
	if accountID == "" {
		return nil
	}
	p, err := s.profiles.Get(ctx, accountID)
	if err != nil {
		logger.Warn("resolve profile failed", zap.String("account", accountID), zap.Error(err))
		return nil
	}
	return p
}

// ProfileForSession 返回副本，调用方修改不影响缓存
func (s *IdentityService) ProfileForSession(ctx context.Context, session *models.AuthSession) *models.Profile {
	if session == nil {
		return nil
	}
	p, ok := s.cache.Get(session.ID)
	if !ok {
		p = s.ResolveProfile(ctx, session.AccountID)
		if p == nil {
			return nil
		}
		s.cache.Add(session.ID, p)
	}
	cp := *p
	return &cp
}

// Invalidate 资料变更后调用
func (s *IdentityService) Invalidate(sessionID string) {
	s.cache.Remove(sessionID)
}

// CanManageAlerts role == police && verified
func CanManageAlerts(p *models.Profile) bool {
	return p.CanManageAlerts()
}
