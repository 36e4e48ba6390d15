package scheduler

import (
	"context"
	"time"

	"AmberWatch/pkg/logger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Cron robfig/cron 的封装，任务 panic 会被恢复并记录到 zap
type Cron struct {
	c   *cron.Cron
	loc *time.Location
}

func NewCron(loc *time.Location) *Cron {
	if loc == nil {
		loc = time.Local
	}
	l := zapCronLogger{}
	c := cron.New(cron.WithLocation(loc), cron.WithLogger(l), cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)))
	return &Cron{c: c, loc: loc}
}

func (cr *Cron) Start() { cr.c.Start() }

// Stop 等待正在执行的任务结束
func (cr *Cron) Stop() { ctx := cr.c.Stop(); <-ctx.Done() }

func (cr *Cron) Add(expr string, job Job) (cron.EntryID, error) {
	return cr.c.AddFunc(expr, func() { job.Run(context.Background()) })
}

func (cr *Cron) Entries() []cron.Entry { return cr.c.Entries() }

type zapCronLogger struct{}

func (zapCronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug("cron: "+msg, zap.Any("kv", keysAndValues))
}

func (zapCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Error("cron: "+msg, zap.Error(err), zap.Any("kv", keysAndValues))
}
