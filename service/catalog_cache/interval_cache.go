package catalog_cache

import (
	"context"
	"fmt"
	"time"

	"atlas-tracker-service/service/meta"
)

// FetchFunc 全量获取目录快照
type FetchFunc[T any] func(ctx context.Context) (T, error)

// IntervalCache 不提供代际探测的目录缓存：隐式读取按刷新间隔判断过期，显式刷新无条件执行
type IntervalCache[T any] struct {
	*gate[T]
	fetch FetchFunc[T]
}

// NewIntervalCache 创建间隔缓存
func NewIntervalCache[T any](name string, fetch FetchFunc[T], opts Options) *IntervalCache[T] {
	return &IntervalCache[T]{
		gate:  newGate[T](name, opts),
		fetch: fetch,
	}
}

// EnsureFresh 立即返回当前快照，快照不存在或超过刷新间隔时在后台刷新
func (c *IntervalCache[T]) EnsureFresh(ctx context.Context) (Snapshot[T], bool) {
	snap, ok := c.current()
	base, started := c.tryBegin(meta.RefreshActivityRefreshing, func(s *Snapshot[T], _ RefreshStatus, now time.Time) bool {
		return s == nil || now.Sub(s.FetchedAt) > c.opts.RefreshInterval
	})
	if started {
		go c.run(base)
	}
	return snap, ok
}

// ForceRefresh 无条件启动刷新（仍受单飞约束），返回是否启动
func (c *IntervalCache[T]) ForceRefresh(ctx context.Context) bool {
	base, started := c.tryBegin(meta.RefreshActivityRefreshing, nil)
	if started {
		go c.run(base)
	}
	return started
}

func (c *IntervalCache[T]) run(base context.Context) {
	defer c.wg.Done()
	started := c.opts.Clock()

	ctx, cancel := c.fetchContext(base)
	defer cancel()

	value, err := c.fetch(ctx)
	if err != nil {
		c.finishFailure(fmt.Errorf("获取目录快照失败: %w", err), started)
		return
	}
	c.finishSuccess(value, started.UTC().Format(time.RFC3339), started)
}

// Current 返回当前快照，不触发刷新
func (c *IntervalCache[T]) Current() (Snapshot[T], bool) {
	return c.current()
}

// Status 返回刷新闸门状态副本
func (c *IntervalCache[T]) Status() RefreshStatus {
	return c.statusCopy()
}

// IsRefreshing 是否正在刷新
func (c *IntervalCache[T]) IsRefreshing() bool {
	return c.isRefreshing()
}

// Load 直接装载快照
func (c *IntervalCache[T]) Load(value T) {
	c.load(value, c.opts.Clock().UTC().Format(time.RFC3339))
}

// WaitIdle 等待所有后台刷新结束
func (c *IntervalCache[T]) WaitIdle() {
	c.wg.Wait()
}

// Reset 清空快照与状态
func (c *IntervalCache[T]) Reset() {
	c.wg.Wait()
	c.reset()
}

// SetOnSuccess 设置刷新成功回调
func (c *IntervalCache[T]) SetOnSuccess(fn func()) {
	c.setOnSuccess(fn)
}
