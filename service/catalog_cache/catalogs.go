/*
 * @module service/catalog_cache/catalogs
 * @description 外部目录快照集合：数据仓库（代际探测）与数据集浏览系统（间隔刷新）
 * @architecture 缓存层 - 陈旧可用并后台重新验证
 * @documentReference DESIGN.md
 * @stateFlow EnsureFresh/ForceRefresh -> 后台刷新 -> 全部目录空闲后触发重新校验
 * @rules 读取永不阻塞；查找结果区分未加载、未找到、找到三种情况
 * @dependencies atlas-tracker-service/catalog_client
 * @refs service/validation, service/atlas_tracker
 */

package catalog_cache

import (
	"context"
	"sync"

	"atlas-tracker-service/catalog_client"
	"atlas-tracker-service/service/meta"
)

// Catalogs 全部外部目录缓存
type Catalogs struct {
	HCA       *GenerationCache[*HCAIndex]
	CellxGene *IntervalCache[*CellxGeneIndex]

	mu             sync.Mutex
	onAllRefreshed func()
}

// NewCatalogs 创建目录缓存集合
func NewCatalogs(projects ProjectClient, collections CollectionClient, opts Options) *Catalogs {
	c := &Catalogs{
		HCA:       NewGenerationCache[*HCAIndex](meta.CatalogHCA, hcaSource{client: projects}, opts),
		CellxGene: NewIntervalCache[*CellxGeneIndex](meta.CatalogCellxGene, cellxGeneFetch(collections), opts),
	}
	c.HCA.SetOnSuccess(c.refreshSucceeded)
	c.CellxGene.SetOnSuccess(c.refreshSucceeded)
	return c
}

// SetOnAllRefreshed 设置回调：某个目录刷新成功且所有目录均已空闲时调用
func (c *Catalogs) SetOnAllRefreshed(fn func()) {
	c.mu.Lock()
	c.onAllRefreshed = fn
	c.mu.Unlock()
}

func (c *Catalogs) refreshSucceeded() {
	if c.HCA.IsRefreshing() || c.CellxGene.IsRefreshing() {
		return
	}
	c.mu.Lock()
	fn := c.onAllRefreshed
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// EnsureFresh 隐式刷新检查：数据仓库探测代际，数据集浏览系统按间隔
func (c *Catalogs) EnsureFresh(ctx context.Context) {
	c.HCA.EnsureFresh(ctx)
	c.CellxGene.EnsureFresh(ctx)
}

// RefreshAll 显式刷新请求：数据仓库探测代际，数据集浏览系统无条件刷新
func (c *Catalogs) RefreshAll(ctx context.Context) {
	c.HCA.EnsureFresh(ctx)
	c.CellxGene.ForceRefresh(ctx)
}

// Statuses 返回各目录的刷新状态
func (c *Catalogs) Statuses() map[string]RefreshStatus {
	return map[string]RefreshStatus{
		meta.CatalogHCA:       c.HCA.Status(),
		meta.CatalogCellxGene: c.CellxGene.Status(),
	}
}

// IsRefreshing 是否有目录正在刷新
func (c *Catalogs) IsRefreshing() bool {
	return c.HCA.IsRefreshing() || c.CellxGene.IsRefreshing()
}

// WaitIdle 等待全部后台刷新结束
func (c *Catalogs) WaitIdle() {
	c.HCA.WaitIdle()
	c.CellxGene.WaitIdle()
}

// Reset 清空全部快照与状态
func (c *Catalogs) Reset() {
	c.HCA.Reset()
	c.CellxGene.Reset()
}

// FindHCAProject 按存储的项目ID或DOI列表查找数据仓库项目
func (c *Catalogs) FindHCAProject(projectID string, dois []string) Result[catalog_client.HCAProject] {
	snap, loaded := c.HCA.Current()
	if !loaded {
		return Unfetched[catalog_client.HCAProject]()
	}
	if projectID != "" {
		project, found := snap.Value.ProjectByID(projectID)
		return FromLookup(true, project, found)
	}
	project, found := snap.Value.ProjectByDOIs(dois)
	return FromLookup(true, project, found)
}

// FindCellxGeneCollection 按存储的集合ID或DOI列表查找集合
func (c *Catalogs) FindCellxGeneCollection(collectionID string, dois []string) Result[CollectionInfo] {
	snap, loaded := c.CellxGene.Current()
	if !loaded {
		return Unfetched[CollectionInfo]()
	}
	if collectionID != "" {
		info, found := snap.Value.CollectionByID(collectionID)
		return FromLookup(true, info, found)
	}
	info, found := snap.Value.CollectionByDOIs(dois)
	return FromLookup(true, info, found)
}

// FindCellxGeneDataset 按数据集ID查找
func (c *Catalogs) FindCellxGeneDataset(datasetID string) Result[catalog_client.CellxGeneDataset] {
	snap, loaded := c.CellxGene.Current()
	if !loaded {
		return Unfetched[catalog_client.CellxGeneDataset]()
	}
	dataset, found := snap.Value.DatasetByID(datasetID)
	return FromLookup(true, dataset, found)
}

// CollectionDatasets 获取集合下全部数据集
func (c *Catalogs) CollectionDatasets(collectionID string) Result[[]catalog_client.CellxGeneDataset] {
	snap, loaded := c.CellxGene.Current()
	if !loaded {
		return Unfetched[[]catalog_client.CellxGeneDataset]()
	}
	datasets := snap.Value.DatasetsByCollection(collectionID)
	return FromLookup(true, datasets, len(datasets) > 0)
}
