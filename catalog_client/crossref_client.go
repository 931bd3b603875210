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

var CrossrefApiUrl = "https://api.crossref.org"

func init() {
	if envUrl := os.Getenv("CROSSREF_API_URL"); envUrl != "" {
		CrossrefApiUrl = envUrl
	}
}

// CrossrefClient 出版物信息客户端
type CrossrefClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewCrossrefClient 创建出版物信息客户端，baseURL 为空时使用默认地址
func NewCrossrefClient(baseURL string) *CrossrefClient {
	if baseURL == "" {
		baseURL = CrossrefApiUrl
	}
	return &CrossrefClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: catalogHTTPClient,
	}
}

// FetchPublicationByDoi 根据DOI获取出版物信息，不存在时返回 nil
func (c *CrossrefClient) FetchPublicationByDoi(ctx context.Context, doi string) (*Publication, error) {
	normalized := NormalizeDoi(doi)
	if !IsDoi(normalized) {
		return nil, fmt.Errorf("无效的DOI: %s", doi)
	}

	var resp crossrefWorkResp
	err := getJSON(ctx, c.httpClient, c.baseURL+"/works/"+url.PathEscape(normalized), &resp)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("获取出版物信息失败: %w", err)
	}

	return convertCrossrefWork(normalized, resp.Message)
}

func convertCrossrefWork(doi string, work crossrefWork) (*Publication, error) {
	if len(work.Title) == 0 || work.Title[0] == "" {
		return nil, errors.New("出版物缺少标题")
	}

	publication := &Publication{
		DOI:   doi,
		Title: work.Title[0],
	}

	for _, author := range work.Author {
		if author.Name != "" {
			publication.Authors = append(publication.Authors, author.Name)
		} else if author.Family != "" {
			publication.Authors = append(publication.Authors, author.Family)
		}
	}

	switch {
	case len(work.ContainerTitle) > 0 && work.ContainerTitle[0] != "":
		publication.Journal = work.ContainerTitle[0]
	case len(work.ShortContainerTitle) > 0 && work.ShortContainerTitle[0] != "":
		publication.Journal = work.ShortContainerTitle[0]
	case len(work.Institution) > 0 && work.Institution[0].Name != "":
		publication.Journal = work.Institution[0].Name
	case work.Subtype == "preprint":
		publication.Journal = "Preprint"
	default:
		return nil, errors.New("非预印本出版物必须包含期刊信息")
	}

	if len(work.Published.DateParts) > 0 && len(work.Published.DateParts[0]) > 0 {
		publication.Year = work.Published.DateParts[0][0]
	}

	for _, rel := range work.Relation.IsPreprintOf {
		if rel.IDType == "doi" {
			publication.PreprintOfDOI = NormalizeDoi(rel.ID)
			break
		}
	}
	for _, rel := range work.Relation.HasPreprint {
		if rel.IDType == "doi" {
			publication.HasPreprintDOI = NormalizeDoi(rel.ID)
			break
		}
	}

	return publication, nil
}
