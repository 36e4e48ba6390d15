package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"AmberWatch/internal/models"
	"AmberWatch/internal/store"
	"AmberWatch/pkg/cache"
	"AmberWatch/pkg/logger"
	"AmberWatch/pkg/metrics"

	"go.uber.org/zap"
)

type CredentialLookup interface {
	Lookup(ctx context.Context, policeID string) (*models.PoliceCredential, error)
}

// Verification 登记表核验结果；Station 只在 Valid 时有值
type Verification struct {
	Valid   bool    `json:"is_valid"`
	Station *string `json:"station"`
}

type VerificationService struct {
	registry CredentialLookup
	cache    cache.Cache
	ttl      time.Duration
	metrics  *metrics.Metrics
}

func NewVerificationService(registry CredentialLookup, c cache.Cache, ttl time.Duration, m *metrics.Metrics) *VerificationService {
	return &VerificationService{registry: registry, cache: c, ttl: ttl, metrics: m}
}

// Verify 查询失败或无记录都按未通过处理，不会隐式放行
func (v *VerificationService) Verify(ctx context.Context, claimedID string) Verification {
	id := strings.TrimSpace(claimedID)
	if id == "" {
		return Verification{}
	}
	if res, ok := v.cached(ctx, id); ok {
		v.metrics.Verification(res.Valid, true)
		return res
	}

	cred, err := v.registry.Lookup(ctx, id)
	var res Verification
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		// 查询失败不缓存
		logger.Warn("police registry lookup failed", zap.Error(err))
		v.metrics.Verification(false, false)
		return Verification{}
	case cred.IsValid:
		station := cred.StationName
		res = Verification{Valid: true, Station: &station}
	}

	v.store(ctx, id, res)
	v.metrics.Verification(res.Valid, false)
	return res
}

func (v *VerificationService) key(id string) string { return "police_verify:" + id }

func (v *VerificationService) cached(ctx context.Context, id string) (Verification, bool) {
	if v.cache == nil {
		return Verification{}, false
	}
	raw, ok := v.cache.Get(ctx, v.key(id))
	if !ok {
		return Verification{}, false
	}
	s, ok := raw.(string)
	if !ok {
		return Verification{}, false
	}
	var res Verification
	if err := json.Unmarshal([]byte(s), &res); err != nil {
		return Verification{}, false
	}
	return res, true
}

func (v *VerificationService) store(ctx context.Context, id string, res Verification) {
	if v.cache == nil || v.ttl <= 0 {
		return
	}
	b, _ := json.Marshal(res)
	if err := v.cache.Set(ctx, v.key(id), string(b), v.ttl); err != nil {
		logger.Warn("cache verification failed", zap.Error(err))
	}
}
