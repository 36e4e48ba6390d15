package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"AmberWatch/pkg/cache"
	"AmberWatch/pkg/constant"
	apperrors "AmberWatch/pkg/errors"
	"AmberWatch/pkg/logger"
	"AmberWatch/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type IdemStore interface {
	// Set 返回 true 表示首次写入，false 表示键已存在
	Set(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// CacheIdemStore 基于 cache.Cache 的 Add 语义，本地与 Redis 通用
type CacheIdemStore struct {
	c cache.Cache
}

func NewCacheIdemStore(c cache.Cache) *CacheIdemStore { return &CacheIdemStore{c: c} }

func (s *CacheIdemStore) Set(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.c.Add(ctx, "idem:"+key, time.Now().Unix(), ttl)
}

func (s *CacheIdemStore) Release(ctx context.Context, key string) error {
	return s.c.Delete(ctx, "idem:"+key)
}

type IdempotencyConfig struct {
	HeaderName string        // Idempotency-Key 的请求头名
	TTL        time.Duration // 重复请求的拒绝窗口
	Store      IdemStore
}

// IdempotencyMiddleware 仅在请求携带幂等键时生效；请求失败时释放键以便客户端重试
func IdempotencyMiddleware(cfg IdempotencyConfig) gin.HandlerFunc {
	if cfg.HeaderName == "" {
		cfg.HeaderName = constant.HeaderIdempotencyKey
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	if cfg.Store == nil {
		cfg.Store = NewCacheIdemStore(cache.NewGoCache(cache.LocalConfig{}))
	}
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(cfg.HeaderName))
		if raw == "" {
			c.Next()
			return
		}
		key := c.Request.Method + ":" + c.Request.URL.Path + ":" + raw
		ok, err := cfg.Store.Set(c.Request.Context(), key, cfg.TTL)
		if err != nil {
			logger.Warn("idempotency store unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !ok {
			response.FailWithCode(c, apperrors.CodeConflict, "duplicate request")
			return
		}

		c.Next()

		if c.Writer.Status() >= http.StatusBadRequest {
			if err := cfg.Store.Release(context.WithoutCancel(c.Request.Context()), key); err != nil {
				logger.Warn("release idempotency key failed", zap.Error(err))
			}
		}
	}
}
