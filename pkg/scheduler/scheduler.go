package scheduler

import (
	"context"
	"sync"
	"time"
)

type Job interface{ Run(ctx context.Context) }

type FuncJob func(ctx context.Context)

func (f FuncJob) Run(ctx context.Context) { f(ctx) }

// Scheduler 基于 ticker 的周期任务，Stop 后等待所有任务退出
type Scheduler struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{ctx: ctx, cancel: cancel}
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

// Every 每隔 d 执行一次；immediate 为 true 时先执行一次
func (s *Scheduler) Every(d time.Duration, immediate bool, job Job) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loopEvery(d, immediate, job)
	}()
}

func (s *Scheduler) OnceAfter(d time.Duration, job Job) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.onceAfter(d, job)
	}()
}

func (s *Scheduler) loopEvery(d time.Duration, immediate bool, job Job) {
	if immediate {
		job.Run(s.ctx)
	}
	t := time.NewTicker(d)
	defer t.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-t.C:
			job.Run(s.ctx)
		}
	}
}

func (s *Scheduler) onceAfter(d time.Duration, job Job) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-s.ctx.Done():
		return
	case <-t.C:
		job.Run(s.ctx)
	}
}
