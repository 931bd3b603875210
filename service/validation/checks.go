package validation

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"atlas-tracker-service/catalog_client"
	"atlas-tracker-service/service/catalog_cache"
	"atlas-tracker-service/service/meta"
	"atlas-tracker-service/service/models"
)

// outcome 单项校验的计算结果
type outcome struct {
	status      string
	differences []models.Difference
	description string
	relatedURL  string
}

// check 校验表中的一项
type check struct {
	id             string
	system         string
	validationType string
	description    string
	applies        func(cc *checkContext) bool   // nil 表示总是适用
	prerequisite   func(cc *checkContext) string // 返回必须通过的前置校验ID，空表示无前置
	evaluate       func(cc *checkContext) outcome
}

// checkContext 单个实体一次校验计算的输入与中间结果
type checkContext struct {
	config      Config
	entityID    string
	entityType  string
	entityTitle string
	study       *models.SourceStudy
	dataset     *models.SourceDataset
	links       []models.AtlasLink
	info        studyInfo

	hcaProject         catalog_cache.Result[catalog_client.HCAProject]
	collection         catalog_cache.Result[catalog_cache.CollectionInfo]
	collectionDatasets catalog_cache.Result[[]catalog_client.CellxGeneDataset]
	cxgDataset         catalog_cache.Result[catalog_client.CellxGeneDataset]

	table    []check
	outcomes map[string]outcome
}

// run 按校验表顺序输出适用的校验结果
func (cc *checkContext) run(table []check) []models.Finding {
	cc.table = table
	cc.outcomes = make(map[string]outcome, len(table))

	findings := make([]models.Finding, 0, len(table))
	for _, c := range table {
		if !cc.applies(c) {
			continue
		}
		result := cc.evaluate(c.id)
		findings = append(findings, cc.finding(c, result))
	}
	return findings
}

func (cc *checkContext) applies(c check) bool {
	return c.applies == nil || c.applies(cc)
}

func (cc *checkContext) lookup(id string) (check, bool) {
	for _, c := range cc.table {
		if c.id == id {
			return c, true
		}
	}
	return check{}, false
}

// evaluate 计算指定校验，前置校验先行计算并缓存
func (cc *checkContext) evaluate(id string) outcome {
	if result, ok := cc.outcomes[id]; ok {
		return result
	}
	c, ok := cc.lookup(id)
	if !ok || !cc.applies(c) {
		return outcome{status: meta.ValidationStatusBlocked}
	}

	var result outcome
	if c.prerequisite != nil {
		if prerequisite := c.prerequisite(cc); prerequisite != "" {
			if cc.evaluate(prerequisite).status != meta.ValidationStatusPassed {
				result = outcome{
					status:      meta.ValidationStatusBlocked,
					description: fmt.Sprintf("%s（前置校验 %s 未通过）", c.description, prerequisite),
				}
				cc.outcomes[id] = result
				return result
			}
		}
	}

	result = c.evaluate(cc)
	if result.description == "" {
		result.description = c.description
	}
	cc.outcomes[id] = result
	return result
}

func (cc *checkContext) finding(c check, result outcome) models.Finding {
	atlasIDs := make([]string, 0, len(cc.links))
	for _, link := range cc.links {
		atlasIDs = append(atlasIDs, link.ID)
	}
	return models.Finding{
		EntityID:          cc.entityID,
		EntityType:        cc.entityType,
		EntityTitle:       cc.entityTitle,
		ValidationID:      c.id,
		ValidationType:    c.validationType,
		System:            c.system,
		ValidationStatus:  result.status,
		TaskStatus:        DeriveTaskStatus(result.status),
		AtlasIDs:          atlasIDs,
		Differences:       result.differences,
		DOI:               cc.info.doi,
		DOIs:              cc.info.dois,
		PublicationString: cc.info.publicationString,
		RelatedEntityURL:  result.relatedURL,
		Description:       result.description,
	}
}

func passed() outcome {
	return outcome{status: meta.ValidationStatusPassed}
}

func failed(description string, differences ...models.Difference) outcome {
	return outcome{status: meta.ValidationStatusFailed, description: description, differences: differences}
}

var studyChecks = []check{
	{
		id:             meta.ValidationSourceStudyInCAP,
		system:         meta.SystemCAP,
		validationType: meta.ValidationTypeIngest,
		description:    "将源研究摄取到 CAP",
		prerequisite:   func(*checkContext) string { return meta.ValidationSourceStudyInCellxGene },
		evaluate: func(cc *checkContext) outcome {
			return capPresence(cc.study.CapID)
		},
	},
	{
		id:             meta.ValidationSourceStudyInCellxGene,
		system:         meta.SystemCellxGene,
		validationType: meta.ValidationTypeIngest,
		description:    "将源研究摄取到 CELLxGENE",
		evaluate:       studyInCellxGene,
	},
	{
		id:             meta.ValidationSourceStudyInHCADataRepository,
		system:         meta.SystemHCADataRepository,
		validationType: meta.ValidationTypeIngest,
		description:    "将源研究摄取到 HCA 数据仓库",
		evaluate:       hcaPresence,
	},
	{
		id:             meta.ValidationSourceStudyTitleMatchesHCA,
		system:         meta.SystemHCADataRepository,
		validationType: meta.ValidationTypeMetadata,
		description:    "源研究标题与 HCA 项目标题一致",
		prerequisite:   func(*checkContext) string { return meta.ValidationSourceStudyInHCADataRepository },
		evaluate: func(cc *checkContext) outcome {
			project, _ := cc.hcaProject.Get()
			result := titleComparison(project.Title, cc.entityTitle, cc.config.TitleSimilarityThreshold)
			result.relatedURL = hcaProjectURLPrefix + project.ID
			return result
		},
	},
	{
		id:             meta.ValidationSourceStudyHCAProjectHasPrimaryData,
		system:         meta.SystemHCADataRepository,
		validationType: meta.ValidationTypeIngest,
		description:    "HCA 项目包含原始数据",
		prerequisite:   func(*checkContext) string { return meta.ValidationSourceStudyInHCADataRepository },
		evaluate:       primaryData,
	},
	{
		id:             meta.ValidationSourceStudyAtlasesMatchHCA,
		system:         meta.SystemHCADataRepository,
		validationType: meta.ValidationTypeMetadata,
		description:    "源研究所属图谱与 HCA 项目一致",
		prerequisite:   func(*checkContext) string { return meta.ValidationSourceStudyInHCADataRepository },
		evaluate:       atlasesMatch,
	},
}

func cellxGeneSourced(cc *checkContext) bool {
	return cc.dataset.IsCellxGeneSourced()
}

var datasetChecks = []check{
	{
		id:             meta.ValidationSourceDatasetInCAP,
		system:         meta.SystemCAP,
		validationType: meta.ValidationTypeIngest,
		description:    "将源数据集摄取到 CAP",
		prerequisite: func(cc *checkContext) string {
			if cc.dataset.IsCellxGeneSourced() {
				return meta.ValidationSourceDatasetInCellxGene
			}
			return meta.ValidationSourceDatasetInHCADataRepository
		},
		evaluate: func(cc *checkContext) outcome {
			return capPresence(cc.dataset.CapID)
		},
	},
	{
		id:             meta.ValidationSourceDatasetInCellxGene,
		system:         meta.SystemCellxGene,
		validationType: meta.ValidationTypeIngest,
		description:    "将源数据集摄取到 CELLxGENE",
		applies:        cellxGeneSourced,
		evaluate:       datasetInCellxGene,
	},
	{
		id:             meta.ValidationSourceDatasetInHCADataRepository,
		system:         meta.SystemHCADataRepository,
		validationType: meta.ValidationTypeIngest,
		description:    "将源数据集所属研究摄取到 HCA 数据仓库",
		evaluate:       hcaPresence,
	},
	{
		id:             meta.ValidationSourceDatasetTitleMatchesCellxGene,
		system:         meta.SystemCellxGene,
		validationType: meta.ValidationTypeMetadata,
		description:    "源数据集标题与 CELLxGENE 数据集标题一致",
		applies:        cellxGeneSourced,
		prerequisite:   func(*checkContext) string { return meta.ValidationSourceDatasetInCellxGene },
		evaluate: func(cc *checkContext) outcome {
			dataset, _ := cc.cxgDataset.Get()
			result := titleComparison(dataset.Title, cc.entityTitle, cc.config.TitleSimilarityThreshold)
			result.relatedURL = cellxGeneDatasetURLPrefix + dataset.ID + ".cxg/"
			return result
		},
	},
	{
		id:             meta.ValidationSourceDatasetHCAProjectHasPrimaryData,
		system:         meta.SystemHCADataRepository,
		validationType: meta.ValidationTypeIngest,
		description:    "HCA 项目包含原始数据",
		prerequisite:   func(*checkContext) string { return meta.ValidationSourceDatasetInHCADataRepository },
		evaluate:       primaryData,
	},
	{
		id:             meta.ValidationSourceDatasetAtlasesMatchHCA,
		system:         meta.SystemHCADataRepository,
		validationType: meta.ValidationTypeMetadata,
		description:    "源数据集所属图谱与 HCA 项目一致",
		prerequisite:   func(*checkContext) string { return meta.ValidationSourceDatasetInHCADataRepository },
		evaluate:       atlasesMatch,
	},
}

func capPresence(capID *string) outcome {
	if capID == nil || *capID == "" {
		return failed("")
	}
	result := passed()
	if strings.HasPrefix(*capID, "http") {
		result.relatedURL = *capID
	}
	return result
}

func hcaPresence(cc *checkContext) outcome {
	return catalog_cache.MapOrElse(cc.hcaProject,
		func() outcome { return failed("HCA 数据仓库目录尚未加载，无法确认项目") },
		func() outcome { return failed("") },
		func(project catalog_client.HCAProject) outcome {
			result := passed()
			result.relatedURL = hcaProjectURLPrefix + project.ID
			return result
		},
	)
}

func studyInCellxGene(cc *checkContext) outcome {
	return catalog_cache.MapOrElse(cc.collection,
		func() outcome { return failed("CELLxGENE 目录尚未加载，无法确认集合") },
		func() outcome { return failed("") },
		func(collection catalog_cache.CollectionInfo) outcome {
			datasets, _ := cc.collectionDatasets.Get()
			result := tierCheck(cc.config.MinMetadataTier, datasets...)
			result.relatedURL = cellxGeneCollectionURLPrefix + collection.ID
			return result
		},
	)
}

func datasetInCellxGene(cc *checkContext) outcome {
	return catalog_cache.MapOrElse(cc.cxgDataset,
		func() outcome { return failed("CELLxGENE 目录尚未加载，无法确认数据集") },
		func() outcome { return failed("") },
		func(dataset catalog_client.CellxGeneDataset) outcome {
			result := tierCheck(cc.config.MinMetadataTier, dataset)
			result.relatedURL = cellxGeneDatasetURLPrefix + dataset.ID + ".cxg/"
			return result
		},
	)
}

// tierCheck 已知元数据等级低于最小等级的数据集导致校验失败
func tierCheck(minTier int, datasets ...catalog_client.CellxGeneDataset) outcome {
	var below []string
	lowest := minTier
	for _, dataset := range datasets {
		if dataset.Tier == nil || *dataset.Tier >= minTier {
			continue
		}
		below = append(below, dataset.Title)
		if *dataset.Tier < lowest {
			lowest = *dataset.Tier
		}
	}
	if len(below) == 0 {
		return passed()
	}
	sort.Strings(below)
	return failed(
		fmt.Sprintf("数据集元数据等级低于 %d: %s", minTier, strings.Join(below, ", ")),
		models.Difference{Variable: "metadataTier", Expected: strconv.Itoa(minTier), Actual: strconv.Itoa(lowest)},
	)
}

func titleComparison(expected, actual string, threshold float64) outcome {
	difference := models.Difference{Variable: "title", Expected: expected, Actual: actual}
	switch CompareTitles(expected, actual, threshold) {
	case TitleExactMatch:
		return passed()
	case TitleNearMatch:
		result := passed()
		result.differences = []models.Difference{difference}
		return result
	default:
		return failed("", difference)
	}
}

func primaryData(cc *checkContext) outcome {
	project, _ := cc.hcaProject.Get()
	if !project.HasPrimaryData {
		return failed("")
	}
	return passed()
}

func atlasesMatch(cc *checkContext) outcome {
	project, _ := cc.hcaProject.Get()

	networks := make([]string, 0, len(cc.links))
	shortNames := make([]string, 0, len(cc.links))
	for _, link := range cc.links {
		if link.Network != "" {
			networks = append(networks, link.Network)
		}
		shortNames = append(shortNames, link.ShortName)
	}

	var differences []models.Difference
	if missing, extra := SetDifference(project.Networks, networks); len(missing) > 0 || len(extra) > 0 {
		differences = append(differences, models.Difference{
			Variable: "networks",
			Expected: strings.Join(missing, ", "),
			Actual:   strings.Join(extra, ", "),
		})
	}
	if missing, extra := SetDifference(project.AtlasShortNames, shortNames); len(missing) > 0 || len(extra) > 0 {
		differences = append(differences, models.Difference{
			Variable: "atlases",
			Expected: strings.Join(missing, ", "),
			Actual:   strings.Join(extra, ", "),
		})
	}

	result := passed()
	if len(differences) > 0 {
		result = failed("", differences...)
	}
	result.relatedURL = hcaProjectURLPrefix + project.ID
	return result
}
