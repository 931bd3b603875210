package controllers

import (
	"atlas-tracker-service/service/atlas_tracker"
	"atlas-tracker-service/service/catalog_cache"
	"atlas-tracker-service/service/meta"
	"atlas-tracker-service/service/models"
	"atlas-tracker-service/service/reconciliation"
	"atlas-tracker-service/service/store"
	"atlas-tracker-service/testutil"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockTracker struct {
	mock.Mock
}

func (m *mockTracker) RefreshAll(ctx context.Context) (*atlas_tracker.RevalidationReport, error) {
	args := m.Called()
	report, _ := args.Get(0).(*atlas_tracker.RevalidationReport)
	return report, args.Error(1)
}

func (m *mockTracker) GetCurrentStatuses() map[string]catalog_cache.RefreshStatus {
	return m.Called().Get(0).(map[string]catalog_cache.RefreshStatus)
}

func (m *mockTracker) ReconcileEntity(ctx context.Context, entityType, entityID string) (*reconciliation.ChangeSet, error) {
	args := m.Called(entityType, entityID)
	changes, _ := args.Get(0).(*reconciliation.ChangeSet)
	return changes, args.Error(1)
}

func (m *mockTracker) ComputeFindings(ctx context.Context, entityType, entityID string) ([]models.Finding, error) {
	args := m.Called(entityType, entityID)
	findings, _ := args.Get(0).([]models.Finding)
	return findings, args.Error(1)
}

func (m *mockTracker) SetOverrideInProgress(ctx context.Context, validationID string, dois []string) (*atlas_tracker.OverrideResult, error) {
	args := m.Called(validationID, dois)
	result, _ := args.Get(0).(*atlas_tracker.OverrideResult)
	return result, args.Error(1)
}

func (m *mockTracker) GetAtlasTaskCounts(ctx context.Context, atlasID string) (models.TaskCountSummary, error) {
	args := m.Called(atlasID)
	return args.Get(0).(models.TaskCountSummary), args.Error(1)
}

var helper = testutil.NewHTTPTestHelper()

func TestRefreshAll(t *testing.T) {
	tracker := &mockTracker{}
	tracker.On("RefreshAll").Return(&atlas_tracker.RevalidationReport{StudyCount: 2, DatasetCount: 3}, nil)
	controller := NewAtlasTrackerController(tracker)

	w := httptest.NewRecorder()
	controller.RefreshAll(w, httptest.NewRequest(http.MethodPost, "/refresh", nil))

	var report atlas_tracker.RevalidationReport
	response := helper.DecodeAPIResponse(t, w, http.StatusOK, &report)
	assert.Equal(t, 0, response.Status)
	assert.Equal(t, 2, report.StudyCount)
	assert.Equal(t, 3, report.DatasetCount)
	tracker.AssertExpectations(t)
}

func TestRefreshAllSkipped(t *testing.T) {
	tracker := &mockTracker{}
	tracker.On("RefreshAll").Return(&atlas_tracker.RevalidationReport{Skipped: true}, nil)

	w := httptest.NewRecorder()
	NewAtlasTrackerController(tracker).RefreshAll(w, httptest.NewRequest(http.MethodPost, "/refresh", nil))

	response := helper.DecodeAPIResponse(t, w, http.StatusOK, nil)
	assert.Equal(t, 0, response.Status)
	assert.Contains(t, response.Msg, "跳过")
}

func TestRefreshAllFailure(t *testing.T) {
	tracker := &mockTracker{}
	tracker.On("RefreshAll").Return(nil, errors.New("database down"))

	w := httptest.NewRecorder()
	NewAtlasTrackerController(tracker).RefreshAll(w, httptest.NewRequest(http.MethodPost, "/refresh", nil))

	response := helper.DecodeAPIResponse(t, w, http.StatusInternalServerError, nil)
	assert.Equal(t, -1, response.Status)
	assert.Contains(t, response.Msg, "database down")
}

func TestGetStatuses(t *testing.T) {
	tracker := &mockTracker{}
	tracker.On("GetCurrentStatuses").Return(map[string]catalog_cache.RefreshStatus{
		meta.CatalogHCA:       {CurrentActivity: meta.RefreshActivityRefreshing, PreviousOutcome: meta.RefreshOutcomeNA},
		meta.CatalogCellxGene: {CurrentActivity: meta.RefreshActivityNotRefreshing, PreviousOutcome: meta.RefreshOutcomeCompleted},
	})

	w := httptest.NewRecorder()
	NewAtlasTrackerController(tracker).GetStatuses(w, httptest.NewRequest(http.MethodGet, "/refresh/statuses", nil))

	var statuses map[string]catalog_cache.RefreshStatus
	helper.DecodeAPIResponse(t, w, http.StatusOK, &statuses)
	require.Len(t, statuses, 2)
	assert.Equal(t, meta.RefreshActivityRefreshing, statuses[meta.CatalogHCA].CurrentActivity)
	assert.Equal(t, meta.RefreshOutcomeCompleted, statuses[meta.CatalogCellxGene].PreviousOutcome)
}

func TestReconcileEntity(t *testing.T) {
	tracker := &mockTracker{}
	tracker.On("ReconcileEntity", meta.EntityTypeSourceStudy, "s1").Return(&reconciliation.ChangeSet{
		EntityID: "s1",
		Inserted: []string{meta.ValidationSourceStudyInCAP},
	}, nil)

	req := helper.WithURLParams(httptest.NewRequest(http.MethodPost, "/entities/source-study/s1/reconcile", nil),
		map[string]string{"entity_type": "source-study", "entity_id": "s1"})
	w := httptest.NewRecorder()
	NewAtlasTrackerController(tracker).ReconcileEntity(w, req)

	var changes reconciliation.ChangeSet
	helper.DecodeAPIResponse(t, w, http.StatusOK, &changes)
	assert.Equal(t, []string{meta.ValidationSourceStudyInCAP}, changes.Inserted)
	tracker.AssertExpectations(t)
}

func TestReconcileEntityErrors(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{name: "无效实体类型", err: atlas_tracker.ErrInvalidEntityType, expectedStatus: http.StatusBadRequest},
		{name: "实体不存在", err: fmt.Errorf("研究 s1: %w", store.ErrEntityNotFound), expectedStatus: http.StatusNotFound},
		{name: "内部错误", err: errors.New("boom"), expectedStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := &mockTracker{}
			tracker.On("ReconcileEntity", "ATLAS", "s1").Return(nil, tt.err)

			req := helper.WithURLParams(httptest.NewRequest(http.MethodPost, "/entities/atlas/s1/reconcile", nil),
				map[string]string{"entity_type": "atlas", "entity_id": "s1"})
			w := httptest.NewRecorder()
			NewAtlasTrackerController(tracker).ReconcileEntity(w, req)

			response := helper.DecodeAPIResponse(t, w, tt.expectedStatus, nil)
			assert.Equal(t, -1, response.Status)
		})
	}
}

func TestGetFindings(t *testing.T) {
	tracker := &mockTracker{}
	tracker.On("ComputeFindings", meta.EntityTypeSourceDataset, "d1").Return([]models.Finding{{
		EntityID:     "d1",
		EntityType:   meta.EntityTypeSourceDataset,
		ValidationID: meta.ValidationSourceDatasetInCAP,
	}}, nil)

	req := helper.WithURLParams(httptest.NewRequest(http.MethodGet, "/entities/SOURCE_DATASET/d1/findings", nil),
		map[string]string{"entity_type": "SOURCE_DATASET", "entity_id": "d1"})
	w := httptest.NewRecorder()
	NewAtlasTrackerController(tracker).GetFindings(w, req)

	var findings []models.Finding
	helper.DecodeAPIResponse(t, w, http.StatusOK, &findings)
	require.Len(t, findings, 1)
	assert.Equal(t, meta.ValidationSourceDatasetInCAP, findings[0].ValidationID)
}

func TestSetInProgress(t *testing.T) {
	dois := []string{"10.1000/a", "10.1000/b"}
	tracker := &mockTracker{}
	tracker.On("SetOverrideInProgress", meta.ValidationSourceStudyInCellxGene, dois).Return(&atlas_tracker.OverrideResult{
		Updated:  []string{"10.1000/a"},
		NotFound: []string{"10.1000/b"},
	}, nil)

	req, err := helper.CreateJSONRequest(http.MethodPost, "/validations/x/in-progress", InProgressRequest{DOIs: dois})
	require.NoError(t, err)
	req = helper.WithURLParams(req, map[string]string{"validation_id": meta.ValidationSourceStudyInCellxGene})
	w := httptest.NewRecorder()
	NewAtlasTrackerController(tracker).SetInProgress(w, req)

	var result atlas_tracker.OverrideResult
	helper.DecodeAPIResponse(t, w, http.StatusOK, &result)
	assert.Equal(t, []string{"10.1000/a"}, result.Updated)
	assert.Equal(t, []string{"10.1000/b"}, result.NotFound)
	tracker.AssertExpectations(t)
}

func TestSetInProgressBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "非法JSON", body: "{"},
		{name: "空DOI列表", body: `{"dois":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := &mockTracker{}
			req := httptest.NewRequest(http.MethodPost, "/validations/x/in-progress", strings.NewReader(tt.body))
			req = helper.WithURLParams(req, map[string]string{"validation_id": meta.ValidationSourceStudyInCellxGene})
			w := httptest.NewRecorder()
			NewAtlasTrackerController(tracker).SetInProgress(w, req)

			response := helper.DecodeAPIResponse(t, w, http.StatusBadRequest, nil)
			assert.Equal(t, -1, response.Status)
			tracker.AssertNotCalled(t, "SetOverrideInProgress", mock.Anything, mock.Anything)
		})
	}
}

func TestSetInProgressInvalidValidation(t *testing.T) {
	tracker := &mockTracker{}
	tracker.On("SetOverrideInProgress", "NOPE", []string{"10.1/x"}).Return(nil, atlas_tracker.ErrInvalidValidationID)

	req, err := helper.CreateJSONRequest(http.MethodPost, "/validations/NOPE/in-progress", InProgressRequest{DOIs: []string{"10.1/x"}})
	require.NoError(t, err)
	req = helper.WithURLParams(req, map[string]string{"validation_id": "NOPE"})
	w := httptest.NewRecorder()
	NewAtlasTrackerController(tracker).SetInProgress(w, req)

	helper.DecodeAPIResponse(t, w, http.StatusBadRequest, nil)
}

func TestGetAtlasTaskCounts(t *testing.T) {
	tracker := &mockTracker{}
	tracker.On("GetAtlasTaskCounts", "atlas-1").Return(models.TaskCountSummary{
		TaskCount:          4,
		CompletedTaskCount: 3,
		SystemTaskCounts: map[string]models.SystemTaskCount{
			meta.SystemCAP: {Count: 2, CompletedCount: 1},
		},
	}, nil)
	tracker.On("GetAtlasTaskCounts", "missing").Return(models.TaskCountSummary{}, store.ErrEntityNotFound)
	controller := NewAtlasTrackerController(tracker)

	w := httptest.NewRecorder()
	controller.GetAtlasTaskCounts(w, helper.WithURLParams(httptest.NewRequest(http.MethodGet, "/atlases/atlas-1/task-counts", nil),
		map[string]string{"atlas_id": "atlas-1"}))
	var summary models.TaskCountSummary
	helper.DecodeAPIResponse(t, w, http.StatusOK, &summary)
	assert.Equal(t, 4, summary.TaskCount)
	assert.Equal(t, 3, summary.CompletedTaskCount)
	assert.Equal(t, 1, summary.SystemTaskCounts[meta.SystemCAP].CompletedCount)

	w = httptest.NewRecorder()
	controller.GetAtlasTaskCounts(w, helper.WithURLParams(httptest.NewRequest(http.MethodGet, "/atlases/missing/task-counts", nil),
		map[string]string{"atlas_id": "missing"}))
	helper.DecodeAPIResponse(t, w, http.StatusNotFound, nil)
}
