/*
 * @module service/models/atlas
 * @description 图谱模型，包含源研究与源数据集的关联以及任务统计概览
 * @architecture DDD领域驱动设计 - 聚合根
 * @documentReference DESIGN.md
 * @stateFlow 图谱创建 -> 关联源研究/数据集 -> 任务统计重算
 * @rules 任务统计概览由聚合器整体重算，不做增量维护
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/task_count
 */

package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SystemTaskCount 单个外部系统的任务统计
type SystemTaskCount struct {
	Count          int `json:"count"`
	CompletedCount int `json:"completed_count"`
}

// TaskCountSummary 图谱任务统计概览
type TaskCountSummary struct {
	TaskCount          int                        `json:"task_count"`
	CompletedTaskCount int                        `json:"completed_task_count"`
	SystemTaskCounts   map[string]SystemTaskCount `json:"system_task_counts"`
}

// Scan 实现 Scanner 接口
func (t *TaskCountSummary) Scan(value interface{}) error {
	if value == nil {
		*t = TaskCountSummary{}
		return nil
	}
	return scanJSON(value, t)
}

// Value 实现 Valuer 接口
func (t TaskCountSummary) Value() (driver.Value, error) {
	bytes, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return string(bytes), nil
}

// Atlas 图谱
type Atlas struct {
	ID             string           `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ShortName      string           `json:"short_name" gorm:"size:255;not null"`
	Network        string           `json:"network" gorm:"size:100;index"`
	Wave           string           `json:"wave" gorm:"size:20"`
	SourceStudies  JSONBStringArray `json:"source_studies" gorm:"type:jsonb"`
	SourceDatasets JSONBStringArray `json:"source_datasets" gorm:"type:jsonb"`
	Overview       TaskCountSummary `json:"overview" gorm:"type:jsonb"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// TableName 指定表名
func (Atlas) TableName() string {
	return "atlases"
}

// BeforeCreate GORM钩子，创建前生成UUID
func (a *Atlas) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// Link 转换为实体关联摘要
func (a *Atlas) Link() AtlasLink {
	return AtlasLink{
		ID:        a.ID,
		ShortName: a.ShortName,
		Network:   a.Network,
		Wave:      a.Wave,
	}
}
