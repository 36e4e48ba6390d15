package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioConfig struct {
	Endpoint  string `env:"MINIO_ENDPOINT"`
	AccessKey string `env:"MINIO_ACCESS_KEY"`
	SecretKey string `env:"MINIO_SECRET_KEY"`
	Bucket    string `env:"MINIO_BUCKET"`
	UseSSL    bool   `env:"MINIO_USE_SSL"`
	BaseURL   string `env:"MINIO_PUBLIC_BASE"` // 对外访问域名，可选
}

type MinioStore struct {
	cfg MinioConfig
	cli *minio.Client
}

// NewMinioStore 创建客户端并确保桶存在
func NewMinioStore(ctx context.Context, cfg MinioConfig) (*MinioStore, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("minio endpoint and bucket are required")
	}
	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	m := &MinioStore{cfg: cfg, cli: cli}
	if err := m.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket %s: %w", cfg.Bucket, err)
	}
	return m, nil
}

func (m *MinioStore) ensureBucket(ctx context.Context) error {
	exists, err := m.cli.BucketExists(ctx, m.cfg.Bucket)
	if err != nil {
		return err
	}
	if !exists {
		return m.cli.MakeBucket(ctx, m.cfg.Bucket, minio.MakeBucketOptions{})
	}
	return nil
}

func (m *MinioStore) Read(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	obj, err := m.cli.GetObject(ctx, m.cfg.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, err
	}
	st, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, 0, ErrObjectNotFound
		}
		return nil, 0, err
	}
	return obj, st.Size, nil
}

// Write 先检查再写入；两个请求同时生成同名键的窗口依赖随机后缀避免
func (m *MinioStore) Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	exists, err := m.Exists(ctx, key)
	if err != nil {
		return err
	}
	if exists {
		return ErrObjectExists
	}
	_, err = m.cli.PutObject(ctx, m.cfg.Bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	return err
}

func (m *MinioStore) Delete(ctx context.Context, key string) error {
	return m.cli.RemoveObject(ctx, m.cfg.Bucket, key, minio.RemoveObjectOptions{})
}

func (m *MinioStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := m.cli.StatObject(ctx, m.cfg.Bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (m *MinioStore) PublicURL(key string) string {
	if m.cfg.BaseURL != "" {
		return joinURL(m.cfg.BaseURL, key)
	}
	// 回退使用 endpoint（直连需要桶配置公共读策略）
	scheme := "http://"
	if m.cfg.UseSSL {
		scheme = "https://"
	}
	return scheme + m.cfg.Endpoint + "/" + m.cfg.Bucket + "/" + key
}
