package middleware

import (
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	apperrors "AmberWatch/pkg/errors"
	"AmberWatch/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// RateLimiterConfig 限流配置
//
// 示例：
// Rate: "60-M"、Identifier: "ip"/"user"/"ip+route"
// PerRouteRates: {"/api/alerts/:id/sightings": "20-M"}
// WhitelistCIDRs: ["10.0.0.0/8", "127.0.0.1/32"]
// SkipPaths: ["/api/system/health"] 前缀匹配
type RateLimiterConfig struct {
	Rate           string            `json:"rate"`
	PerRouteRates  map[string]string `json:"per_route_rates"`
	Identifier     string            `json:"identifier"`
	WhitelistCIDRs []string          `json:"whitelist_cidrs"`
	SkipPaths      []string          `json:"skip_paths"`
	AddHeaders     bool              `json:"add_headers"`
	DenyMessage    string            `json:"deny_message"`
}

// MetricsObserver 指标上报接口
type MetricsObserver interface {
	OnAllow(route string)
	OnDeny(route string)
}

// PrometheusObserver 基于 Prometheus 的实现
type PrometheusObserver struct {
	allow *prometheus.CounterVec
	deny  *prometheus.CounterVec
}

// NewPrometheusObserver 在给定 Registerer 上注册限流计数
func NewPrometheusObserver(reg prometheus.Registerer) *PrometheusObserver {
	f := promauto.With(reg)
	return &PrometheusObserver{
		allow: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rate_limit_allow_total",
			Help: "Allowed requests by rate limiter",
		}, []string{"route"}),
		deny: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rate_limit_deny_total",
			Help: "Denied requests by rate limiter",
		}, []string{"route"}),
	}
}

func (p *PrometheusObserver) OnAllow(route string) { p.allow.WithLabelValues(route).Inc() }
func (p *PrometheusObserver) OnDeny(route string)  { p.deny.WithLabelValues(route).Inc() }

// RateLimiter 按速率字符串缓存 limiter 实例
type RateLimiter struct {
	cfg            RateLimiterConfig
	store          limiter.Store
	observer       MetricsObserver
	limitersByRate map[string]*limiter.Limiter
	mu             sync.RWMutex
	whiteCIDRs     []*net.IPNet
}

// NewRateLimiter store 为 nil 时使用内存存储
func NewRateLimiter(cfg RateLimiterConfig, store limiter.Store) (*RateLimiter, error) {
	if store == nil {
		store = memory.NewStore()
	}
	if cfg.Rate == "" {
		cfg.Rate = "60-M"
	}
	for _, r := range append([]string{cfg.Rate}, mapValues(cfg.PerRouteRates)...) {
		if _, err := limiter.NewRateFromFormatted(r); err != nil {
			return nil, err
		}
	}
	l := &RateLimiter{
		cfg:            cfg,
		store:          store,
		limitersByRate: make(map[string]*limiter.Limiter),
	}
	for _, c := range cfg.WhitelistCIDRs {
		if _, ipnet, err := net.ParseCIDR(strings.TrimSpace(c)); err == nil {
			l.whiteCIDRs = append(l.whiteCIDRs, ipnet)
		}
	}
	return l, nil
}

// WithObserver 配置指标观察者
func (l *RateLimiter) WithObserver(observer MetricsObserver) *RateLimiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observer = observer
	return l
}

// Middleware 返回 Gin 中间件；存储出错时放行
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		if l.skipped(route) {
			c.Next()
			return
		}
		ip := clientIPFromRequest(c)
		if ipListed(ip, l.whiteCIDRs) {
			c.Next()
			return
		}

		lim := l.getLimiter(l.rateFor(route))
		ctx, err := lim.Get(c.Request.Context(), l.key(c, ip, route))
		if err != nil {
			c.Next()
			return
		}
		if l.cfg.AddHeaders {
			setStandardHeaders(c, ctx)
		}
		if ctx.Reached {
			setRetryAfter(c, time.Until(time.Unix(ctx.Reset, 0)))
			l.report(route, false)
			msg := l.cfg.DenyMessage
			if msg == "" {
				msg = "too many requests"
			}
			response.FailWithCode(c, apperrors.CodeTooManyRequests, msg)
			return
		}
		l.report(route, true)
		c.Next()
	}
}

func (l *RateLimiter) report(route string, allowed bool) {
	l.mu.RLock()
	obs := l.observer
	l.mu.RUnlock()
	if obs == nil {
		return
	}
	if allowed {
		obs.OnAllow(route)
	} else {
		obs.OnDeny(route)
	}
}

func (l *RateLimiter) getLimiter(rateStr string) *limiter.Limiter {
	l.mu.RLock()
	lim, ok := l.limitersByRate[rateStr]
	l.mu.RUnlock()
	if ok {
		return lim
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok = l.limitersByRate[rateStr]; ok {
		return lim
	}
	r, _ := limiter.NewRateFromFormatted(rateStr)
	lim = limiter.New(l.store, r)
	l.limitersByRate[rateStr] = lim
	return lim
}

func (l *RateLimiter) rateFor(route string) string {
	if r, ok := l.cfg.PerRouteRates[route]; ok && r != "" {
		return r
	}
	return l.cfg.Rate
}

func (l *RateLimiter) skipped(route string) bool {
	for _, pref := range l.cfg.SkipPaths {
		if pref != "" && strings.HasPrefix(route, pref) {
			return true
		}
	}
	return false
}

// key 不同速率的路由共享同一 store，键中带上速率避免串用计数
func (l *RateLimiter) key(c *gin.Context, ip, route string) string {
	rate := l.rateFor(route)
	switch l.cfg.Identifier {
	case "user":
		if uid := c.GetString(actorIDKey); uid != "" {
			return rate + ":user:" + uid
		}
		return rate + ":ip:" + ip
	case "ip+route":
		return rate + ":iprt:" + ip + ":" + route
	default:
		return rate + ":ip:" + ip
	}
}

func clientIPFromRequest(c *gin.Context) string {
	return strings.TrimPrefix(c.ClientIP(), "::ffff:")
}

func ipListed(ip string, nets []*net.IPNet) bool {
	pip := net.ParseIP(ip)
	if pip == nil {
		return false
	}
	for _, n := range nets {
		if n.Contains(pip) {
			return true
		}
	}
	return false
}

func setStandardHeaders(c *gin.Context, ctx limiter.Context) {
	c.Header("X-RateLimit-Limit", strconv.FormatInt(ctx.Limit, 10))
	c.Header("X-RateLimit-Remaining", strconv.FormatInt(ctx.Remaining, 10))
	resetSec := int(time.Until(time.Unix(ctx.Reset, 0)).Seconds())
	if resetSec < 0 {
		resetSec = 0
	}
	c.Header("X-RateLimit-Reset", strconv.Itoa(resetSec))
}

func setRetryAfter(c *gin.Context, d time.Duration) {
	sec := int(d.Seconds())
	if sec < 0 {
		sec = 0
	}
	c.Header("Retry-After", strconv.Itoa(sec))
}

func mapValues(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}
