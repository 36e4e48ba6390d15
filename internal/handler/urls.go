package handlers

import (
	"net/http"

	"AmberWatch/internal/services"
	"AmberWatch/pkg/config"
	"AmberWatch/pkg/constant"
	"AmberWatch/pkg/i18n"
	"AmberWatch/pkg/metrics"
	"AmberWatch/pkg/middleware"
	"AmberWatch/pkg/search"
	"AmberWatch/pkg/sse"
	"AmberWatch/pkg/websocket"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps 路由层依赖；Search/Geo/Limiter/Idem/Metrics 可为空
type Deps struct {
	DB     *gorm.DB
	Config *config.Config

	Auth         *services.AuthService
	Identity     *services.IdentityService
	Verification *services.VerificationService
	Alerts       *services.AlertService
	Sightings    *services.SightingService
	Evidence     *services.EvidenceService
	Audit        *services.AuditService

	SSE     *sse.Hub
	WS      *websocket.Hub
	I18n    *i18n.I18nSupport
	Metrics *metrics.Metrics
	Search  *search.Index
	Geo     *middleware.GeoLocator
	Limiter *middleware.RateLimiter
	Idem    middleware.IdemStore
}

type Handlers struct {
	db  *gorm.DB
	cfg *config.Config

	auth         *services.AuthService
	identity     *services.IdentityService
	verification *services.VerificationService
	alerts       *services.AlertService
	sightings    *services.SightingService
	evidence     *services.EvidenceService
	audit        *services.AuditService

	sse     *sse.Hub
	ws      *websocket.Handler
	i18n    *i18n.I18nSupport
	metrics *metrics.Metrics
	search  *search.Index
	geo     *middleware.GeoLocator
	limiter *middleware.RateLimiter
	idem    middleware.IdemStore

	sessionStore sessions.Store
}

func NewHandlers(d Deps) *Handlers {
	cfg := d.Config
	if cfg == nil {
		cfg = config.FromEnv()
	}
	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Mode == "release",
		SameSite: http.SameSiteLaxMode,
	})

	h := &Handlers{
		db:           d.DB,
		cfg:          cfg,
		auth:         d.Auth,
		identity:     d.Identity,
		verification: d.Verification,
		alerts:       d.Alerts,
		sightings:    d.Sightings,
		evidence:     d.Evidence,
		audit:        d.Audit,
		sse:          d.SSE,
		i18n:         d.I18n,
		metrics:      d.Metrics,
		search:       d.Search,
		geo:          d.Geo,
		limiter:      d.Limiter,
		idem:         d.Idem,
		sessionStore: store,
	}
	if d.WS != nil {
		h.ws = websocket.NewHandler(d.WS)
	}
	return h
}

func (h *Handlers) Register(engine *gin.Engine) {
	common := []gin.HandlerFunc{sessions.Sessions(h.cfg.SessionName, h.sessionStore)}
	if h.i18n != nil {
		common = append(common, middleware.LanguageMiddleware(h.i18n))
	}
	common = append(common, h.authenticate)

	r := engine.Group(h.cfg.APIPrefix, common...)

	// Register System Module Routes
	h.registerSystemRoutes(r)

	// Register Business Module Routes
	h.registerAuthRoutes(r)
	h.registerAlertRoutes(r)
	h.registerSightingRoutes(r)
	h.registerEvidenceRoutes(r)
	h.registerStreamRoutes(r)

	if h.metrics != nil {
		engine.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}
	if h.ws != nil {
		engine.GET("/ws", append(common, h.ws.HandleWebSocket)...)
	}
}

// throttled 匿名可调用接口的限流
func (h *Handlers) throttled() []gin.HandlerFunc {
	if h.limiter == nil {
		return nil
	}
	return []gin.HandlerFunc{h.limiter.Middleware()}
}

// publicWrite 匿名可调用的写接口：限流 + 幂等键
func (h *Handlers) publicWrite() []gin.HandlerFunc {
	chain := h.throttled()
	chain = append(chain, middleware.IdempotencyMiddleware(middleware.IdempotencyConfig{
		HeaderName: constant.HeaderIdempotencyKey,
		TTL:        h.cfg.IdempotencyTTL,
		Store:      h.idem,
	}))
	return chain
}

// authorityWrite 警方变更接口，成功后写审计日志
func (h *Handlers) authorityWrite() []gin.HandlerFunc {
	if h.audit == nil {
		return nil
	}
	return []gin.HandlerFunc{middleware.OperationLogMiddleware(h.audit, h.geo)}
}

func (h *Handlers) registerSystemRoutes(r *gin.RouterGroup) {
	system := r.Group("system")
	{
		system.GET("/health", h.HealthCheck)

		system.GET("/realtime", h.RealtimeStats)
	}
}

// Auth Module
func (h *Handlers) registerAuthRoutes(r *gin.RouterGroup) {
	auth := r.Group("auth")
	{
		auth.POST("/register", append(h.publicWrite(), h.handleCitizenSignup)...)

		auth.POST("/police/verify", append(h.throttled(), h.handlePoliceVerify)...)

		auth.POST("/police/register", append(h.publicWrite(), h.handlePoliceSignup)...)

		auth.POST("/login", h.handleSignin)

		auth.POST("/logout", requireSignedIn, h.handleSignout)

		auth.GET("/me", requireSignedIn, h.handleMe)

		auth.GET("/operations", requireSignedIn, h.handleOperationHistory)
	}
}

func (h *Handlers) registerAlertRoutes(r *gin.RouterGroup) {
	alerts := r.Group("alerts")
	{
		alerts.GET("", h.handleListActiveAlerts)

		alerts.GET("/resolved", h.handleListResolvedAlerts)

		alerts.GET("/search", h.handleSearchAlerts)

		alerts.GET("/:id", h.handleGetAlert)

		alerts.POST("", append(h.authorityWrite(), h.handleCreateAlert)...)

		alerts.PUT("/:id/status", append(h.authorityWrite(), h.handleSetAlertStatus)...)

		alerts.DELETE("/:id", append(h.authorityWrite(), h.handleDeleteAlert)...)
	}
}

func (h *Handlers) registerSightingRoutes(r *gin.RouterGroup) {
	r.GET("/alerts/:id/sightings", h.handleListSightings)
	r.POST("/alerts/:id/sightings", append(h.publicWrite(), h.handleSubmitSighting)...)
	r.GET("/sightings", h.handleRecentSightings)
}

func (h *Handlers) registerEvidenceRoutes(r *gin.RouterGroup) {
	evidence := r.Group("evidence", h.publicWrite()...)
	{
		evidence.POST("", h.handleUploadEvidence)

		evidence.POST("/capture", h.handleUploadCapture)
	}
}

func (h *Handlers) registerStreamRoutes(r *gin.RouterGroup) {
	if h.sse == nil {
		return
	}
	r.GET("/stream/alerts", h.handleAlertStream)
}
