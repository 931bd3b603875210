/*
 * @module service/catalog_cache/gate
 * @description 外部目录刷新闸门：记录刷新状态并保证同一目录同一时刻只有一个刷新在执行
 * @architecture 缓存层 - 刷新状态机
 * @documentReference DESIGN.md
 * @stateFlow NOT_REFRESHING -> ATTEMPTING_REFRESH -> REFRESHING -> NOT_REFRESHING(COMPLETED|FAILED)
 * @rules 刷新标志在启动后台任务之前于锁内检查并设置；失败不丢弃旧快照
 * @dependencies sync, log/slog
 * @refs generation_cache.go, interval_cache.go
 */

package catalog_cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"atlas-tracker-service/service/meta"
)

// Clock 可注入的时钟
type Clock func() time.Time

// RefreshStatus 刷新闸门状态
type RefreshStatus struct {
	LastAttemptedAt *time.Time `json:"last_attempted_at"`
	LastResolvedAt  *time.Time `json:"last_resolved_at"`
	CurrentActivity string     `json:"current_activity"`
	PreviousOutcome string     `json:"previous_outcome"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	Generation      string     `json:"generation,omitempty"`
}

// Snapshot 外部目录快照，整体替换，不做局部修改
type Snapshot[T any] struct {
	Value      T
	Generation string
	FetchedAt  time.Time
}

// RefreshObserver 刷新结束回调，catalog 为目录名，outcome 为 COMPLETED 或 FAILED
type RefreshObserver func(catalog, outcome string, duration time.Duration)

// Options 缓存配置
type Options struct {
	Quiescence      time.Duration // 代际变化后两次成功刷新之间的最小间隔
	RefreshInterval time.Duration // 无代际探测的目录的隐式刷新间隔
	FetchTimeout    time.Duration
	Clock           Clock
	Observer        RefreshObserver
}

const (
	DefaultQuiescence      = 4 * time.Hour
	DefaultRefreshInterval = 4 * time.Hour
	DefaultFetchTimeout    = 30 * time.Minute
)

func (o Options) withDefaults() Options {
	if o.Quiescence <= 0 {
		o.Quiescence = DefaultQuiescence
	}
	if o.RefreshInterval <= 0 {
		o.RefreshInterval = DefaultRefreshInterval
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = DefaultFetchTimeout
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

// gate 单个目录的快照与刷新状态
type gate[T any] struct {
	name    string
	opts    Options
	mu      sync.Mutex
	snap    *Snapshot[T]
	status  RefreshStatus
	wg      sync.WaitGroup
	baseCtx context.Context
	cancel  context.CancelFunc

	onSuccess func()
}

func newGate[T any](name string, opts Options) *gate[T] {
	g := &gate[T]{
		name: name,
		opts: opts.withDefaults(),
	}
	g.reset()
	return g
}

func (g *gate[T]) reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancel != nil {
		g.cancel()
	}
	g.baseCtx, g.cancel = context.WithCancel(context.Background())
	g.snap = nil
	g.status = RefreshStatus{
		CurrentActivity: meta.RefreshActivityNotRefreshing,
		PreviousOutcome: meta.RefreshOutcomeNA,
	}
}

// tryBegin 在锁内检查并设置刷新标志，返回是否获得刷新权
func (g *gate[T]) tryBegin(activity string, allowed func(snap *Snapshot[T], status RefreshStatus, now time.Time) bool) (context.Context, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.status.CurrentActivity != meta.RefreshActivityNotRefreshing {
		return nil, false
	}
	now := g.opts.Clock()
	if allowed != nil && !allowed(g.snap, g.status, now) {
		return nil, false
	}

	g.status.CurrentActivity = activity
	g.status.LastAttemptedAt = &now
	g.wg.Add(1)
	return g.baseCtx, true
}

func (g *gate[T]) setActivity(activity string) {
	g.mu.Lock()
	g.status.CurrentActivity = activity
	g.mu.Unlock()
}

// finishSuccess 原子替换快照并记录成功
func (g *gate[T]) finishSuccess(value T, generation string, started time.Time) {
	g.mu.Lock()
	now := g.opts.Clock()
	g.snap = &Snapshot[T]{Value: value, Generation: generation, FetchedAt: now}
	g.status.CurrentActivity = meta.RefreshActivityNotRefreshing
	g.status.PreviousOutcome = meta.RefreshOutcomeCompleted
	g.status.LastResolvedAt = &now
	g.status.ErrorMessage = ""
	g.status.Generation = generation
	onSuccess := g.onSuccess
	g.mu.Unlock()

	slog.Info("外部目录刷新完成", "catalog", g.name, "generation", generation)
	g.observe(meta.RefreshOutcomeCompleted, started)
	if onSuccess != nil {
		onSuccess()
	}
}

// finishFailure 记录失败，保留旧快照
func (g *gate[T]) finishFailure(err error, started time.Time) {
	g.mu.Lock()
	g.status.CurrentActivity = meta.RefreshActivityNotRefreshing
	g.status.PreviousOutcome = meta.RefreshOutcomeFailed
	g.status.ErrorMessage = err.Error()
	g.mu.Unlock()

	slog.Error("外部目录刷新失败", "catalog", g.name, "error", err)
	g.observe(meta.RefreshOutcomeFailed, started)
}

// finishIdle 本次无需刷新
func (g *gate[T]) finishIdle() {
	g.setActivity(meta.RefreshActivityNotRefreshing)
}

func (g *gate[T]) observe(outcome string, started time.Time) {
	if g.opts.Observer != nil {
		g.opts.Observer(g.name, outcome, g.opts.Clock().Sub(started))
	}
}

func (g *gate[T]) load(value T, generation string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.opts.Clock()
	g.snap = &Snapshot[T]{Value: value, Generation: generation, FetchedAt: now}
	g.status.LastResolvedAt = &now
	g.status.PreviousOutcome = meta.RefreshOutcomeCompleted
	g.status.Generation = generation
}

func (g *gate[T]) current() (Snapshot[T], bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.snap == nil {
		var zero Snapshot[T]
		return zero, false
	}
	return *g.snap, true
}

func (g *gate[T]) statusCopy() RefreshStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	status := g.status
	if status.LastAttemptedAt != nil {
		t := *status.LastAttemptedAt
		status.LastAttemptedAt = &t
	}
	if status.LastResolvedAt != nil {
		t := *status.LastResolvedAt
		status.LastResolvedAt = &t
	}
	return status
}

func (g *gate[T]) isRefreshing() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status.CurrentActivity != meta.RefreshActivityNotRefreshing
}

func (g *gate[T]) setOnSuccess(fn func()) {
	g.mu.Lock()
	g.onSuccess = fn
	g.mu.Unlock()
}

func (g *gate[T]) fetchContext(base context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(base, g.opts.FetchTimeout)
}
