package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrObjectExists 目标键已存在，对象存储拒绝覆盖
var ErrObjectExists = errors.New("object already exists")

// ErrObjectNotFound 对象不存在
var ErrObjectNotFound = errors.New("object not found")

// Store 对象存储接口
type Store interface {
	// Write 写入对象，键已存在时返回 ErrObjectExists
	Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Read(ctx context.Context, key string) (io.ReadCloser, int64, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// PublicURL 对外可访问的地址
	PublicURL(key string) string
}

// Config 存储配置
type Config struct {
	Driver string `env:"STORAGE_DRIVER"` // local | minio
	Local  LocalConfig
	Minio  MinioConfig
}

// New 根据 Driver 构造存储实现
func New(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "local":
		return NewLocalStore(cfg.Local)
	case "minio":
		return NewMinioStore(ctx, cfg.Minio)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
