package catalog_cache

import (
	"context"
	"errors"
	"log/slog"

	"atlas-tracker-service/catalog_client"
)

// HCAIndex 数据仓库项目快照索引
type HCAIndex struct {
	byID  map[string]catalog_client.HCAProject
	byDOI map[string]string
}

// BuildHCAIndex 构建项目索引，DOI 已规范化
func BuildHCAIndex(projects []catalog_client.HCAProject) *HCAIndex {
	index := &HCAIndex{
		byID:  make(map[string]catalog_client.HCAProject, len(projects)),
		byDOI: make(map[string]string),
	}
	for _, project := range projects {
		index.byID[project.ID] = project
		for _, doi := range project.DOIs {
			index.byDOI[catalog_client.NormalizeDoi(doi)] = project.ID
		}
	}
	return index
}

// ProjectByID 按项目ID查找
func (i *HCAIndex) ProjectByID(id string) (catalog_client.HCAProject, bool) {
	project, ok := i.byID[id]
	return project, ok
}

// ProjectByDOIs 按DOI列表查找，返回第一个匹配的项目
func (i *HCAIndex) ProjectByDOIs(dois []string) (catalog_client.HCAProject, bool) {
	for _, doi := range dois {
		if id, ok := i.byDOI[catalog_client.NormalizeDoi(doi)]; ok {
			return i.ProjectByID(id)
		}
	}
	return catalog_client.HCAProject{}, false
}

// Len 项目数量
func (i *HCAIndex) Len() int {
	return len(i.byID)
}

// CollectionInfo 集合摘要
type CollectionInfo struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// CellxGeneIndex 数据集浏览系统快照索引
type CellxGeneIndex struct {
	collectionsByID      map[string]CollectionInfo
	collectionIDByDOI    map[string]string
	datasetsByID         map[string]catalog_client.CellxGeneDataset
	datasetsByCollection map[string][]catalog_client.CellxGeneDataset
}

// BuildCellxGeneIndex 构建集合与数据集索引
func BuildCellxGeneIndex(collections []catalog_client.CellxGeneCollection, datasets []catalog_client.CellxGeneDataset) *CellxGeneIndex {
	index := &CellxGeneIndex{
		collectionsByID:      make(map[string]CollectionInfo, len(collections)),
		collectionIDByDOI:    make(map[string]string),
		datasetsByID:         make(map[string]catalog_client.CellxGeneDataset, len(datasets)),
		datasetsByCollection: make(map[string][]catalog_client.CellxGeneDataset),
	}
	for _, collection := range collections {
		index.collectionsByID[collection.ID] = CollectionInfo{ID: collection.ID, Title: collection.Title}
		if collection.DOI != "" {
			index.collectionIDByDOI[catalog_client.NormalizeDoi(collection.DOI)] = collection.ID
		}
	}
	for _, dataset := range datasets {
		index.datasetsByID[dataset.ID] = dataset
		index.datasetsByCollection[dataset.CollectionID] = append(index.datasetsByCollection[dataset.CollectionID], dataset)
	}
	return index
}

// CollectionByID 按集合ID查找
func (i *CellxGeneIndex) CollectionByID(id string) (CollectionInfo, bool) {
	info, ok := i.collectionsByID[id]
	return info, ok
}

// CollectionByDOIs 按DOI列表查找，返回第一个匹配的集合
func (i *CellxGeneIndex) CollectionByDOIs(dois []string) (CollectionInfo, bool) {
	for _, doi := range dois {
		if id, ok := i.collectionIDByDOI[catalog_client.NormalizeDoi(doi)]; ok {
			return i.CollectionByID(id)
		}
	}
	return CollectionInfo{}, false
}

// DatasetByID 按数据集ID查找
func (i *CellxGeneIndex) DatasetByID(id string) (catalog_client.CellxGeneDataset, bool) {
	dataset, ok := i.datasetsByID[id]
	return dataset, ok
}

// DatasetsByCollection 获取集合下的数据集
func (i *CellxGeneIndex) DatasetsByCollection(collectionID string) []catalog_client.CellxGeneDataset {
	return i.datasetsByCollection[collectionID]
}

// ProjectClient 数据仓库客户端接口
type ProjectClient interface {
	FetchGeneration(ctx context.Context) (string, error)
	FetchProjects(ctx context.Context, generation string) ([]catalog_client.HCAProject, error)
}

// CollectionClient 数据集浏览系统客户端接口
type CollectionClient interface {
	FetchCollections(ctx context.Context) ([]catalog_client.CellxGeneCollection, error)
	FetchDatasets(ctx context.Context) ([]catalog_client.CellxGeneDataset, error)
}

// hcaSource 将数据仓库客户端适配为代际数据源
type hcaSource struct {
	client ProjectClient
}

func (s hcaSource) FetchGeneration(ctx context.Context) (string, error) {
	return s.client.FetchGeneration(ctx)
}

func (s hcaSource) FetchSnapshot(ctx context.Context, generation string) (*HCAIndex, error) {
	projects, err := s.client.FetchProjects(ctx, generation)
	if err != nil {
		return nil, err
	}
	slog.Info("已加载数据仓库项目", "catalog", generation, "count", len(projects))
	return BuildHCAIndex(projects), nil
}

// cellxGeneFetch 获取集合与数据集并构建索引
func cellxGeneFetch(client CollectionClient) FetchFunc[*CellxGeneIndex] {
	return func(ctx context.Context) (*CellxGeneIndex, error) {
		collections, err := client.FetchCollections(ctx)
		if err != nil {
			return nil, err
		}
		datasets, err := client.FetchDatasets(ctx)
		if err != nil {
			return nil, err
		}
		if len(collections) == 0 {
			return nil, errors.New("CELLxGENE 未返回任何集合")
		}
		slog.Info("已加载CELLxGENE集合与数据集", "collections", len(collections), "datasets", len(datasets))
		return BuildCellxGeneIndex(collections, datasets), nil
	}
}
