package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

type LocalConfig struct {
	Root    string `env:"STORAGE_LOCAL_ROOT"`
	BaseURL string `env:"STORAGE_LOCAL_BASE_URL"` // 例如 /media
}

// LocalStore 本地磁盘存储，开发与单机部署使用
type LocalStore struct {
	root    string
	baseURL string
}

func NewLocalStore(cfg LocalConfig) (*LocalStore, error) {
	root := cfg.Root
	if root == "" {
		root = "./data/media"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	base := cfg.BaseURL
	if base == "" {
		base = "/media"
	}
	return &LocalStore{root: root, baseURL: base}, nil
}

// Root 本地根目录，供静态路由挂载
func (s *LocalStore) Root() string { return s.root }

// BaseURL 对外访问前缀
func (s *LocalStore) BaseURL() string { return s.baseURL }

func (s *LocalStore) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

func (s *LocalStore) Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrObjectExists
		}
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (s *LocalStore) Read(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, 0, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, ErrObjectNotFound
		}
		return nil, 0, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, err
	}
	return f, st.Size(), nil
}

func (s *LocalStore) Delete(ctx context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalStore) Exists(ctx context.Context, key string) (bool, error) {
	p, err := s.path(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *LocalStore) PublicURL(key string) string {
	return joinURL(s.baseURL, key)
}
