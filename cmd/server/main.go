package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	handlers "AmberWatch/internal/handler"
	"AmberWatch/internal/listeners"
	"AmberWatch/internal/models"
	"AmberWatch/internal/services"
	"AmberWatch/internal/store"
	"AmberWatch/pkg/backup"
	"AmberWatch/pkg/cache"
	"AmberWatch/pkg/config"
	"AmberWatch/pkg/i18n"
	"AmberWatch/pkg/logger"
	"AmberWatch/pkg/metrics"
	"AmberWatch/pkg/middleware"
	"AmberWatch/pkg/realtime"
	"AmberWatch/pkg/scheduler"
	"AmberWatch/pkg/search"
	"AmberWatch/pkg/sse"
	"AmberWatch/pkg/storage"
	"AmberWatch/pkg/util"
	"AmberWatch/pkg/websocket"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	seedFile := flag.String("seed-registry", "", "import police credentials from a JSON file and exit")
	flag.Parse()

	// 1. 配置与日志
	if err := config.Load(); err != nil {
		fmt.Printf("load config failed: %v\n", err)
		os.Exit(1)
	}
	cfg := config.GlobalConfig
	if err := logger.Init(&cfg.Log, cfg.Mode); err != nil {
		fmt.Printf("init logger failed: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// 2. 数据库
	db, err := util.InitDatabase(cfg.DBDriver, cfg.DSN, cfg.Mode == "debug")
	if err != nil {
		logger.Fatal("open database failed", zap.Error(err))
	}
	if err := store.Migrate(db); err != nil {
		logger.Fatal("migrate failed", zap.Error(err))
	}

	if *seedFile != "" {
		n, err := seedRegistry(context.Background(), store.NewCredentialStore(db), *seedFile)
		if err != nil {
			logger.Fatal("seed registry failed", zap.Error(err))
		}
		logger.Info("registry seeded", zap.Int("count", n))
		return
	}

	if err := run(cfg, db); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, db *gorm.DB) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.NewMetrics()
	if sqlDB, err := db.DB(); err == nil {
		if err := m.RegisterDB(sqlDB, "amberwatch"); err != nil {
			logger.Warn("register db metrics failed", zap.Error(err))
		}
	}

	// 3. 缓存与实时广播；Redis 模式下共用一个客户端
	var (
		kv           cache.Cache
		broker       realtime.Broker
		limiterStore limiter.Store
		redisClient  *redis.Client
	)
	if cfg.Cache.Type == "redis" || cfg.RealtimeDriver == "redis" {
		redisClient = cache.NewRedisClient(cfg.Cache.Redis)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisClient.Close()
	}
	if cfg.Cache.Type == "redis" {
		kv = cache.NewRedisCacheWithClient(redisClient, cfg.Cache.Redis.KeyPrefix)
		s, err := sredis.NewStoreWithOptions(redisClient, limiter.StoreOptions{Prefix: cfg.Cache.Redis.KeyPrefix + "limiter", MaxRetry: 3})
		if err != nil {
			return fmt.Errorf("init rate limit store: %w", err)
		}
		limiterStore = s
	} else {
		c, err := cache.NewCache(cfg.Cache)
		if err != nil {
			return fmt.Errorf("init cache: %w", err)
		}
		kv = c
		defer kv.Close()
	}
	if cfg.RealtimeDriver == "redis" {
		broker = realtime.NewRedisBroker(redisClient, cfg.RealtimeChannel)
	} else {
		broker = realtime.NewLocalBroker()
	}
	defer broker.Close()

	// 4. 证据存储
	media, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	// 5. 业务服务
	verification := services.NewVerificationService(store.NewCredentialStore(db), kv, cfg.VerificationCacheTTL, m)
	auth := services.NewAuthService(store.NewAccountStore(db), store.NewSessionStore(db), verification, services.AuthConfig{
		Secret:     []byte(cfg.SessionSecret),
		Issuer:     cfg.JWTIssuer,
		SessionTTL: cfg.SessionTTL,
	})
	identity, err := services.NewIdentityService(store.NewProfileStore(db), cfg.ProfileCacheSize)
	if err != nil {
		return fmt.Errorf("init identity cache: %w", err)
	}
	defer identity.Attach(auth)()

	feed := services.NewAlertFeed(broker)
	alertOpts := []services.AlertOption{services.WithAlertMetrics(m)}
	var index *search.Index
	if cfg.SearchEnabled {
		index, err = search.Open(search.Config{IndexPath: cfg.SearchPath})
		if err != nil {
			return fmt.Errorf("open search index: %w", err)
		}
		defer index.Close()
		alertOpts = append(alertOpts, services.WithAlertIndex(index))
	}
	alerts := services.NewAlertService(store.NewAlertStore(db), feed, alertOpts...)
	if index != nil {
		if err := alerts.RebuildIndex(ctx); err != nil {
			logger.Warn("rebuild search index failed", zap.Error(err))
		}
	}
	sightings := services.NewSightingService(store.NewSightingStore(db), alerts, m)
	evidence := services.NewEvidenceService(media, m)
	audit := services.NewAuditService(store.NewAuditStore(db))

	// 6. 推送通道
	lang, err := i18n.NewI18nSupport(cfg.DefaultLanguage)
	if err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	sseHub := sse.NewHub(cfg.SSEPingInterval)
	sseHub.OnCountChange(func(n int) { m.SetRealtimeClients("sse", n) })

	wsCfg := websocket.LoadConfigFromEnv()
	if err := websocket.ValidateConfig(wsCfg); err != nil {
		return fmt.Errorf("websocket config: %w", err)
	}
	wsHub := websocket.NewHub(wsCfg)
	defer wsHub.Close()
	wsHub.OnCountChange(func(n int64) { m.SetRealtimeClients("websocket", int(n)) })

	fanout := &listeners.AlertListeners{SSE: sseHub, WS: wsHub, I18n: lang, DefaultLang: cfg.DefaultLanguage}
	unsubscribe, err := fanout.Init(feed)
	if err != nil {
		return fmt.Errorf("subscribe alert feed: %w", err)
	}
	defer unsubscribe()

	// 7. 周期任务
	sched := scheduler.New()
	defer sched.Stop()
	sched.Every(cfg.MetricsRefreshInterval, true, scheduler.FuncJob(alerts.RefreshActiveGauge))

	if cfg.BackupEnabled {
		crons := scheduler.NewCron(time.Local)
		b := backup.New(db, backup.Config{Driver: cfg.DBDriver, Dir: cfg.BackupPath, Schedule: cfg.BackupSchedule, Keep: cfg.BackupKeep})
		if err := b.Schedule(crons); err != nil {
			return fmt.Errorf("schedule backup: %w", err)
		}
		crons.Start()
		defer crons.Stop()
	}

	// 8. HTTP
	geo, err := middleware.OpenGeoLocator(cfg.GeoIPPath)
	if err != nil {
		logger.Warn("geoip database unavailable", zap.Error(err))
	}
	defer geo.Close()

	rl, err := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:        cfg.PublicWriteRate,
		Identifier:  "ip",
		AddHeaders:  true,
		DenyMessage: "too many submissions, please slow down",
	}, limiterStore)
	if err != nil {
		return fmt.Errorf("init rate limiter: %w", err)
	}
	rl.WithObserver(middleware.NewPrometheusObserver(m.Registry()))

	gin.SetMode(cfg.Mode)
	engine := gin.New()
	engine.Use(gin.Recovery(), m.Middleware())
	if local, ok := media.(*storage.LocalStore); ok {
		engine.Static(local.BaseURL(), local.Root())
	}

	h := handlers.NewHandlers(handlers.Deps{
		DB:           db,
		Config:       cfg,
		Auth:         auth,
		Identity:     identity,
		Verification: verification,
		Alerts:       alerts,
		Sightings:    sightings,
		Evidence:     evidence,
		Audit:        audit,
		SSE:          sseHub,
		WS:           wsHub,
		I18n:         lang,
		Metrics:      m,
		Search:       index,
		Geo:          geo,
		Limiter:      rl,
		Idem:         middleware.NewCacheIdemStore(kv),
	})
	h.Register(engine)

	srv := &http.Server{Addr: cfg.Addr, Handler: engine}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down ...")
	sseHub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// seedRegistry 从 JSON 数组导入警员编号登记表
func seedRegistry(ctx context.Context, creds *store.CredentialStore, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var list []models.PoliceCredential
	if err := json.Unmarshal(raw, &list); err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := creds.Upsert(ctx, list); err != nil {
		return 0, err
	}
	return len(list), nil
}
