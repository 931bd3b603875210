/**
 * @module SchedulerService
 * @description 定时刷新调度器，按Cron表达式周期性触发外部目录刷新与全量重新校验
 * @architecture 基于 robfig/cron 的调度器模式
 * @documentReference DESIGN.md
 * @stateFlow Start -> 到达触发时间 -> RefreshAll -> 记录结果 -> Stop
 * @rules 上一次执行未结束时跳过本次触发；停止时取消正在执行的刷新
 * @dependencies github.com/robfig/cron/v3
 * @refs service/atlas_tracker, service/init.go
 */

package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultRefreshCron 默认每小时整点刷新一次
const DefaultRefreshCron = "0 0 * * * *"

// RefreshFunc 被调度执行的刷新操作
type RefreshFunc func(ctx context.Context) error

// SchedulerService 调度器服务
type SchedulerService struct {
	cron     *cron.Cron
	spec     string
	refresh  RefreshFunc
	timeout  time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	mu       sync.Mutex
	entryID  cron.EntryID
	started  bool
	lastRun  *time.Time
	lastErr  error
	runCount int
}

// NewSchedulerService 创建调度器服务，spec 为带秒字段的Cron表达式
func NewSchedulerService(spec string, timeout time.Duration, refresh RefreshFunc) (*SchedulerService, error) {
	if spec == "" {
		spec = DefaultRefreshCron
	}
	c := cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	ctx, cancel := context.WithCancel(context.Background())

	s := &SchedulerService{
		cron:    c,
		spec:    spec,
		refresh: refresh,
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
	}
	entryID, err := c.AddFunc(spec, s.run)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("添加Cron任务失败 [%s]: %w", spec, err)
	}
	s.entryID = entryID
	return s, nil
}

// Start 启动调度器
func (s *SchedulerService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.cron.Start()
	s.started = true
	slog.Info("定时刷新调度器已启动", "cron", s.spec, "next_run", s.cron.Entry(s.entryID).Next)
}

// Stop 停止调度器并等待正在执行的刷新结束
func (s *SchedulerService) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	s.cancel()
	<-s.cron.Stop().Done()
	slog.Info("定时刷新调度器已停止")
}

// RunNow 立即执行一次刷新
func (s *SchedulerService) RunNow() {
	s.run()
}

func (s *SchedulerService) run() {
	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, s.timeout)
		defer cancel()
	}

	started := time.Now()
	err := s.refresh(ctx)

	s.mu.Lock()
	s.lastRun = &started
	s.lastErr = err
	s.runCount++
	s.mu.Unlock()

	if err != nil {
		slog.Error("定时刷新失败", "error", err, "duration", time.Since(started))
		return
	}
	slog.Info("定时刷新完成", "duration", time.Since(started))
}

// Stats 返回执行次数、最近一次执行时间与错误
func (s *SchedulerService) Stats() (int, *time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runCount, s.lastRun, s.lastErr
}
