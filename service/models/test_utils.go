/*
 * @module service/models/test_utils
 * @description 模型测试辅助工具
 * @architecture 测试基础设施 - 专门为模型测试提供工具
 * @documentReference DESIGN.md
 * @stateFlow 测试环境初始化 -> 测试数据创建 -> 测试执行 -> 清理资源
 * @rules 避免循环导入，专门为模型层测试提供工具
 * @dependencies gorm, sqlite, uuid
 */

package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ModelTestDB 模型测试数据库配置
type ModelTestDB struct {
	DB *gorm.DB
}

// NewModelTestDB 创建模型测试数据库
// 每个实例使用独立命名的内存库，单连接保证事务内外看到同一份数据
func NewModelTestDB() *ModelTestDB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(fmt.Sprintf("failed to connect test database: %v", err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		panic(fmt.Sprintf("failed to get underlying DB: %v", err))
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(AllModels()...); err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}

	return &ModelTestDB{DB: db}
}

// CleanDB 清理数据库
func (tdb *ModelTestDB) CleanDB() {
	tables := []string{
		"validation_records",
		"atlases",
		"source_datasets",
		"source_studies",
	}

	for _, table := range tables {
		tdb.DB.Exec(fmt.Sprintf("DELETE FROM %s", table))
	}
}

// Close 关闭数据库连接
func (tdb *ModelTestDB) Close() {
	sqlDB, err := tdb.DB.DB()
	if err != nil {
		fmt.Printf("Error getting underlying DB: %v\n", err)
		return
	}
	sqlDB.Close()
}

// ModelTestDataFactory 模型测试数据工厂
type ModelTestDataFactory struct {
	DB *gorm.DB
}

// NewModelTestDataFactory 创建新的模型测试数据工厂
func NewModelTestDataFactory(db *gorm.DB) *ModelTestDataFactory {
	return &ModelTestDataFactory{DB: db}
}

// CreateAtlas 创建测试图谱
func (f *ModelTestDataFactory) CreateAtlas(shortName, network string) *Atlas {
	atlas := &Atlas{
		ShortName:      shortName,
		Network:        network,
		Wave:           "1",
		SourceStudies:  JSONBStringArray{},
		SourceDatasets: JSONBStringArray{},
	}

	if err := f.DB.Create(atlas).Error; err != nil {
		panic(fmt.Sprintf("failed to create test atlas: %v", err))
	}
	return atlas
}

// CreateSourceStudy 创建测试源研究并关联到图谱
func (f *ModelTestDataFactory) CreateSourceStudy(doi string, atlases ...*Atlas) *SourceStudy {
	study := &SourceStudy{
		Title: "测试源研究",
	}
	if doi != "" {
		study.DOI = &doi
		study.Title = ""
		study.Publication = PublicationInfo{
			DOI:     doi,
			Title:   "Test publication " + generateSuffix(),
			Authors: []string{"Doe"},
			Journal: "Nature",
			Year:    2024,
		}
	}

	if err := f.DB.Create(study).Error; err != nil {
		panic(fmt.Sprintf("failed to create test source study: %v", err))
	}

	for _, atlas := range atlases {
		atlas.SourceStudies = append(atlas.SourceStudies, study.ID)
		if err := f.DB.Model(atlas).Update("source_studies", atlas.SourceStudies).Error; err != nil {
			panic(fmt.Sprintf("failed to link test source study: %v", err))
		}
	}
	return study
}

// CreateSourceDataset 创建测试源数据集并关联到图谱
func (f *ModelTestDataFactory) CreateSourceDataset(studyID string, atlases ...*Atlas) *SourceDataset {
	dataset := &SourceDataset{
		SourceStudyID: studyID,
		Title:         "测试源数据集",
	}

	if err := f.DB.Create(dataset).Error; err != nil {
		panic(fmt.Sprintf("failed to create test source dataset: %v", err))
	}

	for _, atlas := range atlases {
		atlas.SourceDatasets = append(atlas.SourceDatasets, dataset.ID)
		if err := f.DB.Model(atlas).Update("source_datasets", atlas.SourceDatasets).Error; err != nil {
			panic(fmt.Sprintf("failed to link test source dataset: %v", err))
		}
	}
	return dataset
}

// CreateValidationRecord 创建测试校验记录
func (f *ModelTestDataFactory) CreateValidationRecord(entityID, validationID, system, taskStatus string, atlasIDs ...string) *ValidationRecord {
	now := time.Now()
	record := &ValidationRecord{
		EntityID:     entityID,
		EntityType:   "SOURCE_STUDY",
		ValidationID: validationID,
		AtlasIDs:     JSONBStringArray(atlasIDs),
		ValidationInfo: ValidationInfo{
			EntityTitle:      "测试实体",
			ValidationType:   "INGEST",
			System:           system,
			ValidationStatus: "FAILED",
			TaskStatus:       taskStatus,
			Differences:      []Difference{},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := f.DB.Create(record).Error; err != nil {
		panic(fmt.Sprintf("failed to create test validation record: %v", err))
	}
	return record
}

func generateSuffix() string {
	return uuid.New().String()[:8]
}
