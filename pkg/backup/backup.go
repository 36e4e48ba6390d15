package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"AmberWatch/pkg/logger"
	"AmberWatch/pkg/scheduler"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const filePrefix = "amberwatch_backup_"

// Config 备份配置
type Config struct {
	Driver   string
	Dir      string
	Schedule string
	Keep     int // 保留的备份份数，<=0 表示不清理
}

// Backup 定时备份记录库，目前只支持 sqlite
type Backup struct {
	db  *gorm.DB
	cfg Config
	now func() time.Time
}

func New(db *gorm.DB, cfg Config) *Backup {
	if cfg.Dir == "" {
		cfg.Dir = "./data/backup"
	}
	return &Backup{db: db, cfg: cfg, now: time.Now}
}

// Schedule 注册到 cron，调用方负责 Start/Stop
func (b *Backup) Schedule(c *scheduler.Cron) error {
	_, err := c.Add(b.cfg.Schedule, scheduler.FuncJob(func(ctx context.Context) {
		path, err := b.Execute(ctx)
		if err != nil {
			logger.Warn("backup failed", zap.Error(err))
			return
		}
		logger.Info("backup completed", zap.String("path", path))
	}))
	return err
}

// Execute 执行一次备份并返回文件路径
func (b *Backup) Execute(ctx context.Context) (string, error) {
	switch b.cfg.Driver {
	case "", "sqlite":
	default:
		return "", fmt.Errorf("backup unsupported for DB_DRIVER %q", b.cfg.Driver)
	}
	if err := os.MkdirAll(b.cfg.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}
	dst := filepath.Join(b.cfg.Dir, filePrefix+b.now().UTC().Format("20060102_150405")+".db")

	// VACUUM INTO 得到一致的快照，运行中的库也可用
	if err := b.db.WithContext(ctx).Exec("VACUUM INTO ?", dst).Error; err != nil {
		return "", fmt.Errorf("sqlite backup: %w", err)
	}
	if err := b.prune(); err != nil {
		logger.Warn("prune old backups failed", zap.Error(err))
	}
	return dst, nil
}

func (b *Backup) prune() error {
	if b.cfg.Keep <= 0 {
		return nil
	}
	entries, err := os.ReadDir(b.cfg.Dir)
	if err != nil {
		return err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), filePrefix) {
			names = append(names, e.Name())
		}
	}
	if len(names) <= b.cfg.Keep {
		return nil
	}
	sort.Strings(names)
	for _, n := range names[:len(names)-b.cfg.Keep] {
		if err := os.Remove(filepath.Join(b.cfg.Dir, n)); err != nil {
			return err
		}
	}
	return nil
}
