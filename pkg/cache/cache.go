package cache

import (
	"context"
	"time"
)

// Cache 缓存接口
type Cache interface {
	// Get 获取缓存值
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set 设置缓存值
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error

	// Add 仅当键不存在时写入，返回是否写入成功
	Add(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)

	// Delete 删除缓存
	Delete(ctx context.Context, key string) error

	// Close 关闭缓存连接
	Close() error
}

// Config 缓存配置
type Config struct {
	// 缓存类型: "gocache" 或 "redis"
	Type string `json:"type" yaml:"type" env:"CACHE_TYPE" default:"gocache"`

	// Redis配置
	Redis RedisConfig `json:"redis" yaml:"redis"`

	// 本地缓存配置
	Local LocalConfig `json:"local" yaml:"local"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr         string        `json:"addr" yaml:"addr" env:"REDIS_ADDR" default:"localhost:6379"`
	Password     string        `json:"password" yaml:"password" env:"REDIS_PASSWORD"`
	DB           int           `json:"db" yaml:"db" env:"REDIS_DB" default:"0"`
	PoolSize     int           `json:"pool_size" yaml:"pool_size" env:"REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `json:"min_idle_conns" yaml:"min_idle_conns" env:"REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `json:"dial_timeout" yaml:"dial_timeout" env:"REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout" env:"REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout" env:"REDIS_WRITE_TIMEOUT" default:"3s"`
	// KeyPrefix 所有键的统一前缀，多个部署共用一个 Redis 时区分命名空间
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix" env:"REDIS_KEY_PREFIX" default:"amberwatch:"`
}

// LocalConfig 本地缓存配置
type LocalConfig struct {
	DefaultExpiration time.Duration `json:"default_expiration" yaml:"default_expiration" env:"LOCAL_CACHE_DEFAULT_EXPIRATION" default:"5m"`
	CleanupInterval   time.Duration `json:"cleanup_interval" yaml:"cleanup_interval" env:"LOCAL_CACHE_CLEANUP_INTERVAL" default:"10m"`
}
