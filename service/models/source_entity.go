/*
 * @module service/models/source_entity
 * @description 源研究与源数据集模型，描述被跟踪的科学数据集元数据记录
 * @architecture DDD领域驱动设计 - 实体模型
 * @documentReference DESIGN.md
 * @stateFlow 记录创建 -> 字段编辑 -> 重新校验
 * @rules 外部ID可直接存储，也可通过DOI在外部目录快照中解析
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/validation, service/store
 */

package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PublicationInfo 出版物信息，以 JSONB 形式缓存在源研究上
type PublicationInfo struct {
	DOI            string   `json:"doi,omitempty"`
	Title          string   `json:"title"`
	Authors        []string `json:"authors,omitempty"`
	Journal        string   `json:"journal,omitempty"`
	Year           int      `json:"year,omitempty"`
	PreprintOfDOI  string   `json:"preprint_of_doi,omitempty"`  // 当前DOI为预印本时对应的正式发表DOI
	HasPreprintDOI string   `json:"has_preprint_doi,omitempty"` // 正式发表对应的预印本DOI
}

// IsEmpty 判断出版物信息是否为空
func (p PublicationInfo) IsEmpty() bool {
	return p.Title == "" && p.DOI == ""
}

// Scan 实现 Scanner 接口
func (p *PublicationInfo) Scan(value interface{}) error {
	if value == nil {
		*p = PublicationInfo{}
		return nil
	}
	return scanJSON(value, p)
}

// Value 实现 Valuer 接口
func (p PublicationInfo) Value() (driver.Value, error) {
	if p.IsEmpty() {
		return nil, nil
	}
	bytes, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(bytes), nil
}

// SourceStudy 源研究
type SourceStudy struct {
	ID                    string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	DOI                   *string         `json:"doi,omitempty" gorm:"size:255;index"`
	Title                 string          `json:"title" gorm:"type:text"` // 未发表研究的标题
	CapID                 *string         `json:"cap_id,omitempty" gorm:"size:255"`
	CellxGeneCollectionID *string         `json:"cellxgene_collection_id,omitempty" gorm:"size:64"`
	HCAProjectID          *string         `json:"hca_project_id,omitempty" gorm:"size:64"`
	Publication           PublicationInfo `json:"publication" gorm:"type:jsonb"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// TableName 指定表名
func (SourceStudy) TableName() string {
	return "source_studies"
}

// BeforeCreate GORM钩子，创建前生成UUID
func (s *SourceStudy) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

// GetDOI 获取DOI，未设置时返回空字符串
func (s *SourceStudy) GetDOI() string {
	if s.DOI == nil {
		return ""
	}
	return *s.DOI
}

// IsPublished 判断研究是否已发表
func (s *SourceStudy) IsPublished() bool {
	return s.DOI != nil && *s.DOI != ""
}

// SourceDataset 源数据集
type SourceDataset struct {
	ID                    string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	SourceStudyID         string    `json:"source_study_id" gorm:"type:varchar(36);index"`
	Title                 string    `json:"title" gorm:"type:text"`
	CellxGeneDatasetID    *string   `json:"cellxgene_dataset_id,omitempty" gorm:"size:64"`
	CellxGeneCollectionID *string   `json:"cellxgene_collection_id,omitempty" gorm:"size:64"`
	CapID                 *string   `json:"cap_id,omitempty" gorm:"size:255"`
	MetadataTier          *int      `json:"metadata_tier,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// TableName 指定表名
func (SourceDataset) TableName() string {
	return "source_datasets"
}

// BeforeCreate GORM钩子，创建前生成UUID
func (d *SourceDataset) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return nil
}

// IsCellxGeneSourced 判断数据集是否来源于CELLxGENE
func (d *SourceDataset) IsCellxGeneSourced() bool {
	return d.CellxGeneDatasetID != nil && *d.CellxGeneDatasetID != ""
}

// AtlasLink 实体所属图谱的摘要信息，用于生成校验结果
type AtlasLink struct {
	ID        string `json:"id"`
	ShortName string `json:"short_name"`
	Network   string `json:"network"`
	Wave      string `json:"wave"`
}
