package catalog_client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
)

var HCAApiUrl = "https://service.azul.data.humancellatlas.org"

// 被视为原始数据的文件格式
var primaryDataFormats = map[string]bool{
	"fastq":    true,
	"fastq.gz": true,
	"bam":      true,
	"fq":       true,
	"fq.gz":    true,
}

const (
	hcaProjectsPageSize = 75
	hcaMaxPages         = 1000
)

func init() {
	if envUrl := os.Getenv("HCA_API_URL"); envUrl != "" {
		HCAApiUrl = envUrl
	}
}

// HCAClient 数据仓库（Azul）客户端
type HCAClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHCAClient 创建数据仓库客户端，baseURL 为空时使用默认地址
func NewHCAClient(baseURL string) *HCAClient {
	if baseURL == "" {
		baseURL = HCAApiUrl
	}
	return &HCAClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: catalogHTTPClient,
	}
}

// FetchGeneration 获取当前默认目录名称，作为快照的代际标识
func (c *HCAClient) FetchGeneration(ctx context.Context) (string, error) {
	var resp azulCatalogsResp
	if err := getJSON(ctx, c.httpClient, c.baseURL+"/index/catalogs", &resp); err != nil {
		return "", fmt.Errorf("获取默认目录失败: %w", err)
	}
	if resp.DefaultCatalog == "" {
		return "", errors.New("默认目录为空")
	}
	return resp.DefaultCatalog, nil
}

// FetchProjects 分页获取指定目录下的全部项目
func (c *HCAClient) FetchProjects(ctx context.Context, generation string) ([]HCAProject, error) {
	nextURL := fmt.Sprintf("%s/index/projects?catalog=%s&size=%d", c.baseURL, url.QueryEscape(generation), hcaProjectsPageSize)
	projects := make([]HCAProject, 0)

	for page := 0; nextURL != ""; page++ {
		if page >= hcaMaxPages {
			return nil, fmt.Errorf("项目分页数超过上限 %d", hcaMaxPages)
		}
		var resp azulProjectsResp
		if err := getJSON(ctx, c.httpClient, nextURL, &resp); err != nil {
			return nil, fmt.Errorf("获取项目列表失败: %w", err)
		}
		for _, hit := range resp.Hits {
			projects = append(projects, convertProjectHit(hit)...)
		}
		nextURL = resp.Pagination.Next
	}

	return projects, nil
}

func convertProjectHit(hit azulProjectHit) []HCAProject {
	hasPrimaryData := false
	for _, summary := range hit.FileTypeSummaries {
		if summary.Count > 0 && primaryDataFormats[strings.ToLower(summary.Format)] {
			hasPrimaryData = true
			break
		}
	}

	result := make([]HCAProject, 0, len(hit.Projects))
	for _, p := range hit.Projects {
		project := HCAProject{
			ID:             p.ProjectID,
			Title:          p.ProjectTitle,
			Networks:       uniqueStrings(p.BionetworkName),
			HasPrimaryData: hasPrimaryData,
		}
		dois := make([]string, 0, len(p.Publications))
		for _, publication := range p.Publications {
			dois = append(dois, publication.DOI)
		}
		project.DOIs = NormalizeDois(dois...)

		atlasNames := make([]string, 0, len(p.TissueAtlas))
		for _, atlas := range p.TissueAtlas {
			atlasNames = append(atlasNames, atlas.Atlas)
		}
		project.AtlasShortNames = uniqueStrings(atlasNames)

		result = append(result, project)
	}
	return result
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		result = append(result, v)
	}
	return result
}
