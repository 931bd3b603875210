package catalog_client

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

var CellxGeneApiUrl = "https://api.cellxgene.cziscience.com"

func init() {
	if envUrl := os.Getenv("CELLXGENE_API_URL"); envUrl != "" {
		CellxGeneApiUrl = envUrl
	}
}

// CellxGeneClient 数据集浏览系统（CELLxGENE curation API）客户端
type CellxGeneClient struct {
	baseURL    string
	httpClient *http.Client
	Retries    int
	RetryDelay time.Duration
}

// NewCellxGeneClient 创建数据集浏览系统客户端，baseURL 为空时使用默认地址
func NewCellxGeneClient(baseURL string) *CellxGeneClient {
	if baseURL == "" {
		baseURL = CellxGeneApiUrl
	}
	return &CellxGeneClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: catalogHTTPClient,
		Retries:    5,
		RetryDelay: time.Minute,
	}
}

// FetchCollections 获取全部集合
func (c *CellxGeneClient) FetchCollections(ctx context.Context) ([]CellxGeneCollection, error) {
	var collections []CellxGeneCollection
	if err := getJSONWithRetry(ctx, c.httpClient, c.baseURL+"/curation/v1/collections", &collections, c.Retries, c.RetryDelay); err != nil {
		return nil, fmt.Errorf("获取CELLxGENE集合失败: %w", err)
	}
	return collections, nil
}

// FetchDatasets 获取全部数据集
func (c *CellxGeneClient) FetchDatasets(ctx context.Context) ([]CellxGeneDataset, error) {
	var datasets []CellxGeneDataset
	if err := getJSONWithRetry(ctx, c.httpClient, c.baseURL+"/curation/v1/datasets", &datasets, c.Retries, c.RetryDelay); err != nil {
		return nil, fmt.Errorf("获取CELLxGENE数据集失败: %w", err)
	}
	return datasets, nil
}
