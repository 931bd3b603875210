/*
 * @module service/models/validation_record_test
 * @description 校验记录与图谱模型的持久化测试
 * @architecture 测试层 - 数据模型验证，确保数据完整性和约束
 * @documentReference DESIGN.md
 * @stateFlow 模型创建 -> 字段验证 -> 约束检查 -> 结果断言
 * @rules 确保唯一约束、JSONB字段读写和时间戳由调用方控制
 * @dependencies testing, testify, gorm
 * @refs validation_record.go, atlas.go
 */

package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// ValidationRecordModelTestSuite 校验记录模型测试套件
type ValidationRecordModelTestSuite struct {
	suite.Suite
	testDB  *ModelTestDB
	factory *ModelTestDataFactory
}

func (suite *ValidationRecordModelTestSuite) SetupSuite() {
	suite.testDB = NewModelTestDB()
	suite.factory = NewModelTestDataFactory(suite.testDB.DB)
}

func (suite *ValidationRecordModelTestSuite) TearDownSuite() {
	suite.testDB.Close()
}

func (suite *ValidationRecordModelTestSuite) SetupTest() {
	suite.testDB.CleanDB()
}

func (suite *ValidationRecordModelTestSuite) TestRecordPayloadPersisted() {
	atlas := suite.factory.CreateAtlas("Lung", "lung")
	study := suite.factory.CreateSourceStudy("10.1000/abc", atlas)

	record := suite.factory.CreateValidationRecord(study.ID, "SOURCE_STUDY_IN_CAP", "CAP", "TODO", atlas.ID)
	record.ValidationInfo.Differences = []Difference{{Variable: "title", Expected: "Foo", Actual: "Foo Updated"}}
	suite.NoError(suite.testDB.DB.Save(record).Error)

	var saved ValidationRecord
	suite.NoError(suite.testDB.DB.First(&saved, "id = ?", record.ID).Error)
	suite.Equal(JSONBStringArray{atlas.ID}, saved.AtlasIDs)
	suite.Equal("TODO", saved.TaskStatus())
	suite.Equal([]Difference{{Variable: "title", Expected: "Foo", Actual: "Foo Updated"}}, saved.ValidationInfo.Differences)
	suite.Nil(saved.ResolvedAt)
	suite.Nil(saved.CommentThreadID)
}

func (suite *ValidationRecordModelTestSuite) TestUniqueEntityValidation() {
	suite.factory.CreateValidationRecord("entity-1", "SOURCE_STUDY_IN_CAP", "CAP", "TODO")

	duplicate := &ValidationRecord{
		EntityID:     "entity-1",
		EntityType:   "SOURCE_STUDY",
		ValidationID: "SOURCE_STUDY_IN_CAP",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	suite.Error(suite.testDB.DB.Create(duplicate).Error)
}

func (suite *ValidationRecordModelTestSuite) TestTimestampsControlledByCaller() {
	past := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	record := &ValidationRecord{
		EntityID:     "entity-2",
		EntityType:   "SOURCE_STUDY",
		ValidationID: "SOURCE_STUDY_IN_CAP",
		CreatedAt:    past,
		UpdatedAt:    past,
	}
	suite.NoError(suite.testDB.DB.Create(record).Error)

	record.ValidationInfo.TaskStatus = "DONE"
	suite.NoError(suite.testDB.DB.Save(record).Error)

	var saved ValidationRecord
	suite.NoError(suite.testDB.DB.First(&saved, "id = ?", record.ID).Error)
	suite.True(saved.CreatedAt.Equal(past))
	suite.True(saved.UpdatedAt.Equal(past))
}

func (suite *ValidationRecordModelTestSuite) TestAtlasOverviewPersisted() {
	atlas := suite.factory.CreateAtlas("Heart", "heart")
	atlas.Overview = TaskCountSummary{
		TaskCount:          3,
		CompletedTaskCount: 1,
		SystemTaskCounts: map[string]SystemTaskCount{
			"CAP": {Count: 3, CompletedCount: 1},
		},
	}
	suite.NoError(suite.testDB.DB.Model(atlas).Update("overview", atlas.Overview).Error)

	var saved Atlas
	suite.NoError(suite.testDB.DB.First(&saved, "id = ?", atlas.ID).Error)
	suite.Equal(3, saved.Overview.TaskCount)
	suite.Equal(SystemTaskCount{Count: 3, CompletedCount: 1}, saved.Overview.SystemTaskCounts["CAP"])
	suite.Equal("Heart", saved.Link().ShortName)
}

func (suite *ValidationRecordModelTestSuite) TestFindingInfoNormalizesDifferences() {
	finding := Finding{ValidationStatus: "PASSED", TaskStatus: "DONE"}
	info := finding.Info()
	suite.NotNil(info.Differences)
	suite.Empty(info.Differences)
}

func (suite *ValidationRecordModelTestSuite) TestMatchesDOI() {
	record := ValidationRecord{ValidationInfo: ValidationInfo{
		DOI:  "10.1000/journal",
		DOIs: []string{"10.1000/journal", "10.1101/preprint"},
	}}
	suite.True(record.MatchesDOI("10.1000/journal"))
	suite.True(record.MatchesDOI("10.1101/preprint"))
	suite.False(record.MatchesDOI("10.1000/other"))
	suite.False(record.MatchesDOI(""))

	legacy := ValidationRecord{ValidationInfo: ValidationInfo{DOI: "10.1000/journal"}}
	suite.True(legacy.MatchesDOI("10.1000/journal"))
	suite.Equal("", legacy.TaskStatus())
}

func TestValidationRecordModelTestSuite(t *testing.T) {
	suite.Run(t, new(ValidationRecordModelTestSuite))
}
