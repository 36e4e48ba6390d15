package config

import (
	"log"
	"os"
	"time"

	"AmberWatch/pkg/cache"
	"AmberWatch/pkg/logger"
	"AmberWatch/pkg/storage"
	"AmberWatch/pkg/util"
)

type Config struct {
	DBDriver  string `env:"DB_DRIVER"`
	DSN       string `env:"DSN"`
	Log       logger.LogConfig
	Addr      string `env:"ADDR"`
	Mode      string `env:"MODE"`
	APIPrefix string `env:"API_PREFIX"`

	SessionSecret string        `env:"SESSION_SECRET"`
	SessionName   string        `env:"SESSION_NAME"`
	SessionTTL    time.Duration `env:"SESSION_EXPIRE_DAYS"`
	JWTIssuer     string        `env:"JWT_ISSUER"`

	Storage storage.Config
	Cache   cache.Config

	RealtimeDriver       string        `env:"REALTIME_DRIVER"` // local | redis
	RealtimeChannel      string        `env:"REALTIME_CHANNEL_PREFIX"`
	VerificationCacheTTL time.Duration `env:"VERIFICATION_CACHE_TTL"`
	ProfileCacheSize     int           `env:"PROFILE_CACHE_SIZE"`
	IdempotencyTTL       time.Duration `env:"IDEMPOTENCY_TTL"`
	PublicWriteRate      string        `env:"RATE_LIMIT_PUBLIC"`
	SSEPingInterval      time.Duration `env:"SSE_PING_INTERVAL"`

	SearchEnabled bool   `env:"SEARCH_ENABLED"`
	SearchPath    string `env:"SEARCH_PATH"`

	DefaultLanguage string `env:"DEFAULT_LANGUAGE"`
	GeoIPPath       string `env:"GEOIP_DB_PATH"`

	MetricsRefreshInterval time.Duration `env:"METRICS_REFRESH_INTERVAL"`

	BackupEnabled  bool   `env:"BACKUP_ENABLED"`
	BackupPath     string `env:"BACKUP_PATH"`
	BackupSchedule string `env:"BACKUP_SCHEDULE"`
	BackupKeep     int    `env:"BACKUP_KEEP"`
}

var GlobalConfig *Config

func Load() error {
	// 1. 根据环境加载 .env 文件
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	if err := util.LoadEnv(env); err != nil {
		log.Printf("Failed to load .env file: %v", err)
	}

	// 2. 加载全局配置
	GlobalConfig = FromEnv()
	return nil
}

// FromEnv 从进程环境读取配置并填充默认值
func FromEnv() *Config {
	return &Config{
		DBDriver:  util.GetEnvOr("DB_DRIVER", "sqlite"),
		DSN:       util.GetEnvOr("DSN", "file:amberwatch.db?_pragma=foreign_keys(1)"),
		Addr:      util.GetEnvOr("ADDR", ":8080"),
		Mode:      util.GetEnvOr("MODE", "debug"),
		APIPrefix: util.GetEnvOr("API_PREFIX", "/api"),
		Log: logger.LogConfig{
			Level:      util.GetEnvOr("LOG_LEVEL", "info"),
			Filename:   util.GetEnv("LOG_FILENAME"),
			MaxSize:    int(util.GetIntEnv("LOG_MAX_SIZE")),
			MaxAge:     int(util.GetIntEnv("LOG_MAX_AGE")),
			MaxBackups: int(util.GetIntEnv("LOG_MAX_BACKUPS")),
		},
		SessionSecret: util.GetEnvOr("SESSION_SECRET", "change-me-in-production"),
		SessionName:   util.GetEnvOr("SESSION_NAME", "amberwatch_session"),
		SessionTTL:    time.Duration(util.GetIntEnvOr("SESSION_EXPIRE_DAYS", 7)) * 24 * time.Hour,
		JWTIssuer:     util.GetEnvOr("JWT_ISSUER", "amberwatch"),
		Storage: storage.Config{
			Driver: util.GetEnvOr("STORAGE_DRIVER", "local"),
			Local: storage.LocalConfig{
				Root:    util.GetEnvOr("STORAGE_LOCAL_ROOT", "./data/media"),
				BaseURL: util.GetEnvOr("STORAGE_LOCAL_BASE_URL", "/media"),
			},
			Minio: storage.MinioConfig{
				Endpoint:  util.GetEnv("MINIO_ENDPOINT"),
				AccessKey: util.GetEnv("MINIO_ACCESS_KEY"),
				SecretKey: util.GetEnv("MINIO_SECRET_KEY"),
				Bucket:    util.GetEnvOr("MINIO_BUCKET", "amberwatch-evidence"),
				UseSSL:    util.GetBoolEnv("MINIO_USE_SSL"),
				BaseURL:   util.GetEnv("MINIO_PUBLIC_BASE"),
			},
		},
		Cache: cache.Config{
			Type: util.GetEnvOr("CACHE_TYPE", "gocache"),
			Redis: cache.RedisConfig{
				Addr:         util.GetEnvOr("REDIS_ADDR", "localhost:6379"),
				Password:     util.GetEnv("REDIS_PASSWORD"),
				DB:           int(util.GetIntEnv("REDIS_DB")),
				PoolSize:     int(util.GetIntEnvOr("REDIS_POOL_SIZE", 10)),
				MinIdleConns: int(util.GetIntEnvOr("REDIS_MIN_IDLE_CONNS", 2)),
				DialTimeout:  util.GetDurationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
				ReadTimeout:  util.GetDurationEnv("REDIS_READ_TIMEOUT", 3*time.Second),
				WriteTimeout: util.GetDurationEnv("REDIS_WRITE_TIMEOUT", 3*time.Second),
				KeyPrefix:    util.GetEnvOr("REDIS_KEY_PREFIX", "amberwatch:"),
			},
			Local: cache.LocalConfig{
				DefaultExpiration: util.GetDurationEnv("LOCAL_CACHE_DEFAULT_EXPIRATION", 5*time.Minute),
				CleanupInterval:   util.GetDurationEnv("LOCAL_CACHE_CLEANUP_INTERVAL", 10*time.Minute),
			},
		},
		RealtimeDriver:         util.GetEnvOr("REALTIME_DRIVER", "local"),
		RealtimeChannel:        util.GetEnvOr("REALTIME_CHANNEL_PREFIX", "amberwatch:"),
		VerificationCacheTTL:   util.GetDurationEnv("VERIFICATION_CACHE_TTL", 10*time.Minute),
		ProfileCacheSize:       int(util.GetIntEnvOr("PROFILE_CACHE_SIZE", 1024)),
		IdempotencyTTL:         util.GetDurationEnv("IDEMPOTENCY_TTL", 24*time.Hour),
		PublicWriteRate:        util.GetEnvOr("RATE_LIMIT_PUBLIC", "60-M"),
		SSEPingInterval:        util.GetDurationEnv("SSE_PING_INTERVAL", 30*time.Second),
		SearchEnabled:          util.GetEnvOr("SEARCH_ENABLED", "true") == "true",
		SearchPath:             util.GetEnv("SEARCH_PATH"),
		DefaultLanguage:        util.GetEnvOr("DEFAULT_LANGUAGE", "en"),
		GeoIPPath:              util.GetEnv("GEOIP_DB_PATH"),
		MetricsRefreshInterval: util.GetDurationEnv("METRICS_REFRESH_INTERVAL", time.Minute),
		BackupEnabled:          util.GetBoolEnv("BACKUP_ENABLED"),
		BackupPath:             util.GetEnvOr("BACKUP_PATH", "./backups"),
		BackupSchedule:         util.GetEnvOr("BACKUP_SCHEDULE", "0 3 * * *"),
		BackupKeep:             int(util.GetIntEnvOr("BACKUP_KEEP", 7)),
	}
}
