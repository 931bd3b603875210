package store

import (
	"atlas-tracker-service/service/meta"
	"atlas-tracker-service/service/models"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// RepositoryTestSuite 存储仓库测试套件
type RepositoryTestSuite struct {
	suite.Suite
	testDB  *models.ModelTestDB
	factory *models.ModelTestDataFactory
	repo    *Repository
	ctx     context.Context
}

func (s *RepositoryTestSuite) SetupSuite() {
	s.testDB = models.NewModelTestDB()
	s.factory = models.NewModelTestDataFactory(s.testDB.DB)
	s.repo = NewRepository(s.testDB.DB)
	s.ctx = context.Background()
}

func (s *RepositoryTestSuite) TearDownSuite() {
	s.testDB.Close()
}

func (s *RepositoryTestSuite) SetupTest() {
	s.testDB.CleanDB()
}

func (s *RepositoryTestSuite) TestUpsertKeepsSingleRecord() {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	record := &models.ValidationRecord{
		EntityID:       "e1",
		EntityType:     meta.EntityTypeSourceStudy,
		ValidationID:   meta.ValidationSourceStudyInCAP,
		ValidationInfo: models.ValidationInfo{TaskStatus: meta.TaskStatusTodo},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.Require().NoError(s.repo.UpsertRecord(s.ctx, record))

	again := &models.ValidationRecord{
		EntityID:       "e1",
		EntityType:     meta.EntityTypeSourceStudy,
		ValidationID:   meta.ValidationSourceStudyInCAP,
		ValidationInfo: models.ValidationInfo{TaskStatus: meta.TaskStatusDone},
		CreatedAt:      now.Add(time.Hour),
		UpdatedAt:      now.Add(time.Hour),
	}
	s.Require().NoError(s.repo.UpsertRecord(s.ctx, again))

	records, err := s.repo.SelectRecordsByEntity(s.ctx, "e1")
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Equal(meta.TaskStatusDone, records[0].TaskStatus())
	s.True(records[0].CreatedAt.Equal(now))
	s.True(records[0].UpdatedAt.Equal(now.Add(time.Hour)))
}

func (s *RepositoryTestSuite) TestUpdateMissingRecord() {
	err := s.repo.UpdateRecord(s.ctx, &models.ValidationRecord{ID: "missing"})
	s.True(errors.Is(err, ErrRecordNotFound))
}

func (s *RepositoryTestSuite) TestSelectAtlasRecords() {
	s.factory.CreateValidationRecord("e1", meta.ValidationSourceStudyInCAP, meta.SystemCAP, meta.TaskStatusTodo, "a1", "a2")
	s.factory.CreateValidationRecord("e2", meta.ValidationSourceStudyInCAP, meta.SystemCAP, meta.TaskStatusTodo, "a2")
	s.factory.CreateValidationRecord("e3", meta.ValidationSourceStudyInCAP, meta.SystemCAP, meta.TaskStatusTodo)

	records, err := s.repo.SelectAtlasRecords(s.ctx, "a1")
	s.Require().NoError(err)
	s.Len(records, 1)
	s.Equal("e1", records[0].EntityID)

	records, err = s.repo.SelectAtlasRecords(s.ctx, "a2")
	s.Require().NoError(err)
	s.Len(records, 2)
}

func (s *RepositoryTestSuite) TestFindRecordsByValidationAndDois() {
	record := s.factory.CreateValidationRecord("e1", meta.ValidationSourceStudyInCAP, meta.SystemCAP, meta.TaskStatusTodo)
	record.ValidationInfo.DOI = "10.1/a"
	s.Require().NoError(s.testDB.DB.Model(record).Update("validation_info", record.ValidationInfo).Error)
	s.factory.CreateValidationRecord("e2", meta.ValidationSourceStudyInCAP, meta.SystemCAP, meta.TaskStatusTodo)

	records, err := s.repo.FindRecordsByValidationAndDois(s.ctx, meta.ValidationSourceStudyInCAP, []string{"10.1/a", "10.1/b"})
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Equal("e1", records[0].EntityID)

	records, err = s.repo.FindRecordsByValidationAndDois(s.ctx, meta.ValidationSourceStudyInCellxGene, []string{"10.1/a"})
	s.Require().NoError(err)
	s.Empty(records)
}

func (s *RepositoryTestSuite) TestSetTaskStatus() {
	record := s.factory.CreateValidationRecord("e1", meta.ValidationSourceStudyInCAP, meta.SystemCAP, meta.TaskStatusTodo)
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	s.Require().NoError(s.repo.SetTaskStatus(s.ctx, record.ID, meta.TaskStatusInProgress, now))
	records, err := s.repo.SelectRecordsByEntity(s.ctx, "e1")
	s.Require().NoError(err)
	s.Equal(meta.TaskStatusInProgress, records[0].TaskStatus())
	s.True(records[0].UpdatedAt.Equal(now))

	s.ErrorIs(s.repo.SetTaskStatus(s.ctx, "missing", meta.TaskStatusInProgress, now), ErrRecordNotFound)
}

func (s *RepositoryTestSuite) TestAtlasSummary() {
	atlas := s.factory.CreateAtlas("Lung", "lung")
	summary := models.TaskCountSummary{
		TaskCount:          2,
		CompletedTaskCount: 1,
		SystemTaskCounts: map[string]models.SystemTaskCount{
			meta.SystemCAP: {Count: 2, CompletedCount: 1},
		},
	}
	s.Require().NoError(s.repo.UpdateAtlasSummary(s.ctx, atlas.ID, summary))

	loaded, err := s.repo.GetAtlas(s.ctx, atlas.ID)
	s.Require().NoError(err)
	s.Equal(summary, loaded.Overview)

	s.ErrorIs(s.repo.UpdateAtlasSummary(s.ctx, "missing", summary), ErrEntityNotFound)
	_, err = s.repo.GetAtlas(s.ctx, "missing")
	s.ErrorIs(err, ErrEntityNotFound)
}

func (s *RepositoryTestSuite) TestEntityAtlasLinks() {
	lung := s.factory.CreateAtlas("Lung", "lung")
	gut := s.factory.CreateAtlas("Gut", "gut")
	study := s.factory.CreateSourceStudy("10.1/study", lung, gut)
	dataset := s.factory.CreateSourceDataset(study.ID, lung)

	loadedStudy, links, err := s.repo.GetStudyWithAtlasLinks(s.ctx, study.ID)
	s.Require().NoError(err)
	s.Equal("10.1/study", loadedStudy.GetDOI())
	s.Require().Len(links, 2)
	s.Equal("Gut", links[0].ShortName)
	s.Equal("Lung", links[1].ShortName)

	loadedDataset, parent, links, err := s.repo.GetDatasetWithAtlasLinks(s.ctx, dataset.ID)
	s.Require().NoError(err)
	s.Equal(dataset.ID, loadedDataset.ID)
	s.Require().NotNil(parent)
	s.Equal(study.ID, parent.ID)
	s.Require().Len(links, 1)
	s.Equal(lung.ID, links[0].ID)

	_, _, err = s.repo.GetStudyWithAtlasLinks(s.ctx, "missing")
	s.ErrorIs(err, ErrEntityNotFound)
	_, _, _, err = s.repo.GetDatasetWithAtlasLinks(s.ctx, "missing")
	s.ErrorIs(err, ErrEntityNotFound)
}

func (s *RepositoryTestSuite) TestWithTransactionRollsBack() {
	boom := errors.New("boom")
	err := s.repo.WithTransaction(s.ctx, func(tx *Repository) error {
		now := time.Now()
		if err := tx.UpsertRecord(s.ctx, &models.ValidationRecord{
			EntityID:     "e1",
			EntityType:   meta.EntityTypeSourceStudy,
			ValidationID: meta.ValidationSourceStudyInCAP,
			CreatedAt:    now,
			UpdatedAt:    now,
		}); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)

	records, err := s.repo.SelectAllRecords(s.ctx)
	s.Require().NoError(err)
	s.Empty(records)
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}
