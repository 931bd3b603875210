package catalog_cache

import (
	"context"
	"fmt"

	"atlas-tracker-service/service/meta"
)

// GenerationSource 可探测代际的外部目录数据源
type GenerationSource[T any] interface {
	FetchGeneration(ctx context.Context) (string, error)
	FetchSnapshot(ctx context.Context, generation string) (T, error)
}

// GenerationCache 通过代际探测判断是否过期的目录缓存
type GenerationCache[T any] struct {
	*gate[T]
	source GenerationSource[T]
}

// NewGenerationCache 创建代际缓存
func NewGenerationCache[T any](name string, source GenerationSource[T], opts Options) *GenerationCache[T] {
	return &GenerationCache[T]{
		gate:   newGate[T](name, opts),
		source: source,
	}
}

// EnsureFresh 立即返回当前快照，必要时在后台启动刷新；不阻塞、不返回抓取错误
//
// 无快照时无条件刷新；有快照时探测代际，代际变化且距上次成功刷新已超过静默期才刷新。
func (c *GenerationCache[T]) EnsureFresh(ctx context.Context) (Snapshot[T], bool) {
	snap, ok := c.current()

	base, started := c.tryBegin(meta.RefreshActivityAttempting, nil)
	if started {
		go c.run(base, ok)
	}
	return snap, ok
}

func (c *GenerationCache[T]) run(base context.Context, hadSnapshot bool) {
	defer c.wg.Done()
	started := c.opts.Clock()

	ctx, cancel := c.fetchContext(base)
	defer cancel()

	generation, err := c.source.FetchGeneration(ctx)
	if err != nil {
		c.finishFailure(fmt.Errorf("探测目录代际失败: %w", err), started)
		return
	}

	if hadSnapshot && !c.refreshNeeded(generation) {
		c.finishIdle()
		return
	}

	c.setActivity(meta.RefreshActivityRefreshing)
	value, err := c.source.FetchSnapshot(ctx, generation)
	if err != nil {
		c.finishFailure(fmt.Errorf("获取目录快照失败: %w", err), started)
		return
	}
	c.finishSuccess(value, generation, started)
}

// refreshNeeded 代际变化且静默期已过
func (c *GenerationCache[T]) refreshNeeded(generation string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snap == nil {
		return true
	}
	if c.snap.Generation == generation {
		return false
	}
	if c.status.LastResolvedAt == nil {
		return true
	}
	return c.opts.Clock().Sub(*c.status.LastResolvedAt) >= c.opts.Quiescence
}

// Current 返回当前快照，不触发刷新
func (c *GenerationCache[T]) Current() (Snapshot[T], bool) {
	return c.current()
}

// Status 返回刷新闸门状态副本
func (c *GenerationCache[T]) Status() RefreshStatus {
	return c.statusCopy()
}

// IsRefreshing 是否正在刷新
func (c *GenerationCache[T]) IsRefreshing() bool {
	return c.isRefreshing()
}

// Load 直接装载快照
func (c *GenerationCache[T]) Load(value T, generation string) {
	c.load(value, generation)
}

// WaitIdle 等待所有后台刷新结束
func (c *GenerationCache[T]) WaitIdle() {
	c.wg.Wait()
}

// Reset 清空快照与状态
func (c *GenerationCache[T]) Reset() {
	c.wg.Wait()
	c.reset()
}

// SetOnSuccess 设置刷新成功回调
func (c *GenerationCache[T]) SetOnSuccess(fn func()) {
	c.setOnSuccess(fn)
}
