/*
 * @module service/validation/validator
 * @description 校验计算：根据外部目录快照与实体字段生成有序的校验结果
 * @architecture 领域服务层 - 纯计算，不写存储
 * @documentReference DESIGN.md
 * @stateFlow 读取实体与图谱关联 -> 查询目录快照 -> 按校验表顺序计算 -> 推导任务状态
 * @rules 相同输入得到相同结果；前置校验未通过时依赖校验为 BLOCKED；目录未加载视为失败而非错误
 * @dependencies service/catalog_cache, catalog_client, agnivade/levenshtein, golang.org/x/text
 * @refs service/reconciliation, service/atlas_tracker
 */

package validation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"atlas-tracker-service/catalog_client"
	"atlas-tracker-service/service/catalog_cache"
	"atlas-tracker-service/service/meta"
	"atlas-tracker-service/service/models"
)

const (
	hcaProjectURLPrefix          = "https://data.humancellatlas.org/explore/projects/"
	cellxGeneCollectionURLPrefix = "https://cellxgene.cziscience.com/collections/"
	cellxGeneDatasetURLPrefix    = "https://cellxgene.cziscience.com/e/"
)

// CatalogReader 校验所需的外部目录只读视图
type CatalogReader interface {
	FindHCAProject(projectID string, dois []string) catalog_cache.Result[catalog_client.HCAProject]
	FindCellxGeneCollection(collectionID string, dois []string) catalog_cache.Result[catalog_cache.CollectionInfo]
	FindCellxGeneDataset(datasetID string) catalog_cache.Result[catalog_client.CellxGeneDataset]
	CollectionDatasets(collectionID string) catalog_cache.Result[[]catalog_client.CellxGeneDataset]
}

// PublicationFetcher 出版物信息查询
type PublicationFetcher interface {
	FetchPublicationByDoi(ctx context.Context, doi string) (*catalog_client.Publication, error)
}

// Config 校验参数
type Config struct {
	TitleSimilarityThreshold float64
	MinMetadataTier          int
}

// DefaultConfig 默认校验参数
func DefaultConfig() Config {
	return Config{
		TitleSimilarityThreshold: 0.9,
		MinMetadataTier:          1,
	}
}

// Validator 校验计算器
type Validator struct {
	catalogs     CatalogReader
	publications PublicationFetcher
	config       Config
}

// NewValidator 创建校验计算器，publications 可为 nil
func NewValidator(catalogs CatalogReader, publications PublicationFetcher, config Config) *Validator {
	if config.TitleSimilarityThreshold <= 0 {
		config.TitleSimilarityThreshold = DefaultConfig().TitleSimilarityThreshold
	}
	return &Validator{
		catalogs:     catalogs,
		publications: publications,
		config:       config,
	}
}

// studyInfo 源研究的展示信息
type studyInfo struct {
	title             string
	doi               string
	dois              []string
	publicationString string
}

// ComputeStudyFindings 计算源研究的校验结果，顺序与源研究校验表一致
func (v *Validator) ComputeStudyFindings(ctx context.Context, study *models.SourceStudy, links []models.AtlasLink) []models.Finding {
	info := v.describeStudy(ctx, study)

	cc := &checkContext{
		config:      v.config,
		entityID:    study.ID,
		entityType:  meta.EntityTypeSourceStudy,
		entityTitle: info.title,
		study:       study,
		links:       links,
		info:        info,
		hcaProject:  v.catalogs.FindHCAProject(deref(study.HCAProjectID), info.dois),
		collection:  v.catalogs.FindCellxGeneCollection(deref(study.CellxGeneCollectionID), info.dois),
	}
	if collection, ok := cc.collection.Get(); ok {
		cc.collectionDatasets = v.catalogs.CollectionDatasets(collection.ID)
	}

	return cc.run(studyChecks)
}

// ComputeDatasetFindings 计算源数据集的校验结果，study 为数据集所属的源研究
func (v *Validator) ComputeDatasetFindings(ctx context.Context, dataset *models.SourceDataset, study *models.SourceStudy, links []models.AtlasLink) []models.Finding {
	var info studyInfo
	hcaProjectID := ""
	if study != nil {
		info = v.describeStudy(ctx, study)
		hcaProjectID = deref(study.HCAProjectID)
	}

	title := dataset.Title
	if title == "" {
		title = dataset.ID
	}

	cc := &checkContext{
		config:      v.config,
		entityID:    dataset.ID,
		entityType:  meta.EntityTypeSourceDataset,
		entityTitle: title,
		dataset:     dataset,
		links:       links,
		info:        info,
		hcaProject:  v.catalogs.FindHCAProject(hcaProjectID, info.dois),
	}
	if dataset.IsCellxGeneSourced() {
		cc.cxgDataset = v.catalogs.FindCellxGeneDataset(*dataset.CellxGeneDatasetID)
	}

	return cc.run(datasetChecks)
}

// describeStudy 计算源研究的标题、DOI列表与出版物描述
func (v *Validator) describeStudy(ctx context.Context, study *models.SourceStudy) studyInfo {
	info := studyInfo{title: study.Title}
	if !study.IsPublished() {
		if info.title == "" {
			info.title = study.ID
		}
		return info
	}

	publication := study.Publication
	if v.publications != nil {
		fetched, err := v.publications.FetchPublicationByDoi(ctx, study.GetDOI())
		if err != nil {
			slog.Warn("获取出版物信息失败，使用缓存信息", "study_id", study.ID, "doi", study.GetDOI(), "error", err)
		} else if fetched != nil {
			publication = models.PublicationInfo{
				DOI:            fetched.DOI,
				Title:          fetched.Title,
				Authors:        fetched.Authors,
				Journal:        fetched.Journal,
				Year:           fetched.Year,
				PreprintOfDOI:  fetched.PreprintOfDOI,
				HasPreprintDOI: fetched.HasPreprintDOI,
			}
		}
	}

	info.doi = catalog_client.NormalizeDoi(study.GetDOI())
	info.dois = catalog_client.NormalizeDois(study.GetDOI(), publication.PreprintOfDOI, publication.HasPreprintDOI)
	info.publicationString = PublicationString(publication)
	if publication.Title != "" {
		info.title = publication.Title
	}
	if info.title == "" {
		info.title = study.ID
	}
	return info
}

// PublicationString 生成“作者 et al. (年份) 期刊”格式的出版物描述
func PublicationString(p models.PublicationInfo) string {
	if p.IsEmpty() {
		return ""
	}
	parts := make([]string, 0, 3)
	if len(p.Authors) > 0 {
		author := p.Authors[0]
		if len(p.Authors) > 1 {
			author += " et al."
		}
		parts = append(parts, author)
	}
	if p.Year > 0 {
		parts = append(parts, fmt.Sprintf("(%d)", p.Year))
	}
	if p.Journal != "" {
		parts = append(parts, p.Journal)
	}
	return strings.Join(parts, " ")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
