package util

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

// LoadEnv 按环境加载 .env.<env> 与 .env，已存在的进程环境变量优先
func LoadEnv(env string) error {
	files := []string{".env." + env, ".env"}
	loaded := false
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
		loaded = true
	}
	if !loaded {
		return fmt.Errorf("no env file found for %q", env)
	}
	return nil
}

func GetEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// GetEnvOr 读取环境变量，为空时返回默认值
func GetEnvOr(key, def string) string {
	if v := GetEnv(key); v != "" {
		return v
	}
	return def
}

func GetIntEnv(key string) int64 {
	return cast.ToInt64(GetEnv(key))
}

func GetIntEnvOr(key string, def int64) int64 {
	v := GetEnv(key)
	if v == "" {
		return def
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		return def
	}
	return n
}

func GetBoolEnv(key string) bool {
	return cast.ToBool(GetEnv(key))
}

// GetDurationEnv 支持 "30s"、"5m" 以及纯数字（纳秒）
func GetDurationEnv(key string, def time.Duration) time.Duration {
	v := GetEnv(key)
	if v == "" {
		return def
	}
	d, err := cast.ToDurationE(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
