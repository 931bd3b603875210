/*
 * @module service/meta/validation
 * @description 校验相关的枚举常量：实体类型、外部系统、校验类型、校验状态、任务状态、校验ID
 * @architecture 元数据层 - 常量与显示名称
 * @documentReference DESIGN.md
 * @stateFlow N/A
 * @rules 校验ID的顺序即校验结果的输出顺序，不得随意调整
 * @dependencies 无
 * @refs service/validation, service/reconciliation
 */

package meta

// 实体类型常量
const (
	EntityTypeSourceStudy   = "SOURCE_STUDY"
	EntityTypeSourceDataset = "SOURCE_DATASET"
)

// 外部系统常量
const (
	SystemCAP               = "CAP"
	SystemCellxGene         = "CELLXGENE"
	SystemHCADataRepository = "HCA_DATA_REPOSITORY"
)

// Systems 所有外部系统，按统计输出顺序排列
var Systems = []string{SystemCAP, SystemCellxGene, SystemHCADataRepository}

// 校验类型常量
const (
	ValidationTypeIngest   = "INGEST"
	ValidationTypeMetadata = "METADATA"
)

// 校验状态常量
const (
	ValidationStatusPassed  = "PASSED"
	ValidationStatusFailed  = "FAILED"
	ValidationStatusBlocked = "BLOCKED"
)

// 任务状态常量
const (
	TaskStatusTodo       = "TODO"
	TaskStatusInProgress = "IN_PROGRESS"
	TaskStatusDone       = "DONE"
	TaskStatusBlocked    = "BLOCKED"
)

// 源研究校验ID
const (
	ValidationSourceStudyInCAP                    = "SOURCE_STUDY_IN_CAP"
	ValidationSourceStudyInCellxGene              = "SOURCE_STUDY_IN_CELLXGENE"
	ValidationSourceStudyInHCADataRepository      = "SOURCE_STUDY_IN_HCA_DATA_REPOSITORY"
	ValidationSourceStudyTitleMatchesHCA          = "SOURCE_STUDY_TITLE_MATCHES_HCA_DATA_REPOSITORY"
	ValidationSourceStudyHCAProjectHasPrimaryData = "SOURCE_STUDY_HCA_PROJECT_HAS_PRIMARY_DATA"
	ValidationSourceStudyAtlasesMatchHCA          = "SOURCE_STUDY_ATLASES_MATCH_HCA_DATA_REPOSITORY"
)

// 源数据集校验ID
const (
	ValidationSourceDatasetInCAP                    = "SOURCE_DATASET_IN_CAP"
	ValidationSourceDatasetInCellxGene              = "SOURCE_DATASET_IN_CELLXGENE"
	ValidationSourceDatasetInHCADataRepository      = "SOURCE_DATASET_IN_HCA_DATA_REPOSITORY"
	ValidationSourceDatasetTitleMatchesCellxGene    = "SOURCE_DATASET_TITLE_MATCHES_CELLXGENE"
	ValidationSourceDatasetHCAProjectHasPrimaryData = "SOURCE_DATASET_HCA_PROJECT_HAS_PRIMARY_DATA"
	ValidationSourceDatasetAtlasesMatchHCA          = "SOURCE_DATASET_ATLASES_MATCH_HCA_DATA_REPOSITORY"
)

// SourceStudyValidationIDs 源研究校验ID的规范顺序
var SourceStudyValidationIDs = []string{
	ValidationSourceStudyInCAP,
	ValidationSourceStudyInCellxGene,
	ValidationSourceStudyInHCADataRepository,
	ValidationSourceStudyTitleMatchesHCA,
	ValidationSourceStudyHCAProjectHasPrimaryData,
	ValidationSourceStudyAtlasesMatchHCA,
}

// SourceDatasetValidationIDs 源数据集校验ID的规范顺序
var SourceDatasetValidationIDs = []string{
	ValidationSourceDatasetInCAP,
	ValidationSourceDatasetInCellxGene,
	ValidationSourceDatasetInHCADataRepository,
	ValidationSourceDatasetTitleMatchesCellxGene,
	ValidationSourceDatasetHCAProjectHasPrimaryData,
	ValidationSourceDatasetAtlasesMatchHCA,
}

var TaskStatuses = []MetaField{
	{
		Name:         TaskStatusTodo,
		DisplayName:  "待处理",
		Type:         "string",
		Required:     true,
		DefaultValue: "",
	},
	{
		Name:         TaskStatusInProgress,
		DisplayName:  "处理中",
		Type:         "string",
		Required:     true,
		DefaultValue: "",
	},
	{
		Name:         TaskStatusDone,
		DisplayName:  "已完成",
		Type:         "string",
		Required:     true,
		DefaultValue: "",
	},
	{
		Name:         TaskStatusBlocked,
		DisplayName:  "被阻塞",
		Type:         "string",
		Required:     true,
		DefaultValue: "",
	},
}

var SystemTypes = []MetaField{
	{
		Name:        SystemCAP,
		DisplayName: "CAP",
		Type:        "string",
		Required:    true,
		Description: "细胞注释平台（摄取跟踪系统）",
	},
	{
		Name:        SystemCellxGene,
		DisplayName: "CELLxGENE",
		Type:        "string",
		Required:    true,
		Description: "数据集浏览系统",
	},
	{
		Name:        SystemHCADataRepository,
		DisplayName: "HCA Data Repository",
		Type:        "string",
		Required:    true,
		Description: "主数据仓库",
	},
}

// IsValidValidationID 判断校验ID是否合法
func IsValidValidationID(validationID string) bool {
	for _, id := range SourceStudyValidationIDs {
		if id == validationID {
			return true
		}
	}
	for _, id := range SourceDatasetValidationIDs {
		if id == validationID {
			return true
		}
	}
	return false
}

// IsValidEntityType 判断实体类型是否合法
func IsValidEntityType(entityType string) bool {
	return entityType == EntityTypeSourceStudy || entityType == EntityTypeSourceDataset
}

// IsTerminalTaskStatus 判断任务状态是否为终态
func IsTerminalTaskStatus(taskStatus string) bool {
	return taskStatus == TaskStatusDone
}
