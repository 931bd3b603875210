/*
 * @module service/models/validation_record
 * @description 校验记录模型与校验结果（内存态）模型
 * @architecture DDD领域驱动设计 - 实体模型
 * @documentReference DESIGN.md
 * @stateFlow 计算校验结果 -> 对账写入校验记录 -> 任务统计
 * @rules 每个 (entity_id, validation_id) 只允许一条记录；时间戳由对账引擎显式维护
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/reconciliation, service/validation
 */

package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Difference 期望值与实际值的差异
type Difference struct {
	Variable string `json:"variable"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

// ValidationInfo 校验记录的负载信息
type ValidationInfo struct {
	EntityTitle       string       `json:"entity_title"`
	ValidationType    string       `json:"validation_type"`
	System            string       `json:"system"`
	ValidationStatus  string       `json:"validation_status"`
	TaskStatus        string       `json:"task_status"`
	Differences       []Difference `json:"differences"`
	DOI               string       `json:"doi,omitempty"`
	DOIs              []string     `json:"dois,omitempty"` // 主DOI及其预印本/正式发表DOI
	PublicationString string       `json:"publication_string,omitempty"`
	RelatedEntityURL  string       `json:"related_entity_url,omitempty"`
	Description       string       `json:"description"`
}

// Scan 实现 Scanner 接口
func (v *ValidationInfo) Scan(value interface{}) error {
	if value == nil {
		*v = ValidationInfo{}
		return nil
	}
	return scanJSON(value, v)
}

// Value 实现 Valuer 接口
func (v ValidationInfo) Value() (driver.Value, error) {
	if v.Differences == nil {
		v.Differences = []Difference{}
	}
	bytes, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(bytes), nil
}

// ValidationRecord 持久化的校验记录
type ValidationRecord struct {
	ID              string           `json:"id" gorm:"primaryKey;type:varchar(36)"`
	EntityID        string           `json:"entity_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_entity_validation"`
	EntityType      string           `json:"entity_type" gorm:"size:32;not null"`
	ValidationID    string           `json:"validation_id" gorm:"size:100;not null;uniqueIndex:idx_entity_validation;index"`
	AtlasIDs        JSONBStringArray `json:"atlas_ids" gorm:"type:jsonb"`
	ValidationInfo  ValidationInfo   `json:"validation_info" gorm:"type:jsonb"`
	CommentThreadID *string          `json:"comment_thread_id,omitempty" gorm:"type:varchar(36)"`
	CreatedAt       time.Time        `json:"created_at" gorm:"autoCreateTime:false"`
	UpdatedAt       time.Time        `json:"updated_at" gorm:"autoUpdateTime:false"`
	ResolvedAt      *time.Time       `json:"resolved_at,omitempty"`
}

// TableName 指定表名
func (ValidationRecord) TableName() string {
	return "validation_records"
}

// BeforeCreate GORM钩子，创建前生成UUID
func (r *ValidationRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// TaskStatus 获取记录的任务状态
func (r ValidationRecord) TaskStatus() string {
	return r.ValidationInfo.TaskStatus
}

// MatchesDOI 判断记录是否关联指定的规范化DOI，包括预印本与正式发表DOI
func (r ValidationRecord) MatchesDOI(doi string) bool {
	if doi == "" {
		return false
	}
	if r.ValidationInfo.DOI == doi {
		return true
	}
	for _, d := range r.ValidationInfo.DOIs {
		if d == doi {
			return true
		}
	}
	return false
}

// Finding 单次校验计算得到的结果，不持久化
type Finding struct {
	EntityID          string       `json:"entity_id"`
	EntityType        string       `json:"entity_type"`
	EntityTitle       string       `json:"entity_title"`
	ValidationID      string       `json:"validation_id"`
	ValidationType    string       `json:"validation_type"`
	System            string       `json:"system"`
	ValidationStatus  string       `json:"validation_status"`
	TaskStatus        string       `json:"task_status"`
	AtlasIDs          []string     `json:"atlas_ids"`
	Differences       []Difference `json:"differences"`
	DOI               string       `json:"doi,omitempty"`
	DOIs              []string     `json:"dois,omitempty"`
	PublicationString string       `json:"publication_string,omitempty"`
	RelatedEntityURL  string       `json:"related_entity_url,omitempty"`
	Description       string       `json:"description"`
}

// Info 转换为持久化负载
func (f *Finding) Info() ValidationInfo {
	differences := f.Differences
	if differences == nil {
		differences = []Difference{}
	}
	return ValidationInfo{
		EntityTitle:       f.EntityTitle,
		ValidationType:    f.ValidationType,
		System:            f.System,
		ValidationStatus:  f.ValidationStatus,
		TaskStatus:        f.TaskStatus,
		Differences:       differences,
		DOI:               f.DOI,
		DOIs:              f.DOIs,
		PublicationString: f.PublicationString,
		RelatedEntityURL:  f.RelatedEntityURL,
		Description:       f.Description,
	}
}
