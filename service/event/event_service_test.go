package event

import (
	"atlas-tracker-service/service/atlas_tracker"
	"atlas-tracker-service/service/meta"
	"atlas-tracker-service/service/models"
	"atlas-tracker-service/service/reconciliation"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockReconciler struct {
	mock.Mock
}

func (m *mockReconciler) ReconcileEntity(ctx context.Context, entityType, entityID string) (*reconciliation.ChangeSet, error) {
	args := m.Called(entityType, entityID)
	changes, _ := args.Get(0).(*reconciliation.ChangeSet)
	return changes, args.Error(1)
}

func (m *mockReconciler) ReconcileAtlasMembers(ctx context.Context, atlasID string) (*atlas_tracker.RevalidationReport, error) {
	args := m.Called(atlasID)
	report, _ := args.Get(0).(*atlas_tracker.RevalidationReport)
	return report, args.Error(1)
}

func (m *mockReconciler) PurgeEntity(ctx context.Context, entityID string) (*reconciliation.ChangeSet, error) {
	args := m.Called(entityID)
	changes, _ := args.Get(0).(*reconciliation.ChangeSet)
	return changes, args.Error(1)
}

func TestParseNotification(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    ChangeNotification
		wantErr bool
	}{
		{
			name:    "源研究更新",
			payload: `{"table":"source_studies","type":"UPDATE","record_id":"s1"}`,
			want:    ChangeNotification{Table: "source_studies", Type: "UPDATE", RecordID: "s1"},
		},
		{name: "非法JSON", payload: `{`, wantErr: true},
		{name: "缺少ID", payload: `{"table":"source_studies","type":"UPDATE"}`, wantErr: true},
		{
			name:    "图谱成员更新",
			payload: `{"table":"atlases","type":"UPDATE","record_id":"a1"}`,
			want:    ChangeNotification{Table: "atlases", Type: "UPDATE", RecordID: "a1"},
		},
		{name: "未监听的表", payload: `{"table":"comments","type":"UPDATE","record_id":"c1"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseNotification(tt.payload)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHandleDispatchesByType(t *testing.T) {
	reconciler := new(mockReconciler)
	reconciler.On("ReconcileEntity", meta.EntityTypeSourceDataset, "d1").Return(&reconciliation.ChangeSet{EntityID: "d1"}, nil)
	reconciler.On("PurgeEntity", "s1").Return(&reconciliation.ChangeSet{EntityID: "s1", Deleted: []string{"X"}}, nil)
	reconciler.On("ReconcileEntity", meta.EntityTypeSourceStudy, "s2").Return(nil, errors.New("boom"))
	reconciler.On("ReconcileAtlasMembers", "a1").Return(&atlas_tracker.RevalidationReport{ChangedCount: 2}, nil)
	reconciler.On("ReconcileAtlasMembers", "a2").Return(nil, errors.New("db down"))

	s := NewEventService(nil, reconciler)
	ctx := context.Background()

	assert.NoError(t, s.Handle(ctx, ChangeNotification{Table: "source_datasets", Type: "INSERT", RecordID: "d1"}))
	assert.NoError(t, s.Handle(ctx, ChangeNotification{Table: "source_studies", Type: "DELETE", RecordID: "s1"}))
	assert.Error(t, s.Handle(ctx, ChangeNotification{Table: "source_studies", Type: "UPDATE", RecordID: "s2"}))
	assert.NoError(t, s.Handle(ctx, ChangeNotification{Table: "atlases", Type: "UPDATE", RecordID: "a1"}))
	assert.Error(t, s.Handle(ctx, ChangeNotification{Table: "atlases", Type: "DELETE", RecordID: "a2"}))
	assert.Error(t, s.Handle(ctx, ChangeNotification{Table: "comments", Type: "UPDATE", RecordID: "c1"}))
	reconciler.AssertExpectations(t)
}

func TestQueueProcessing(t *testing.T) {
	reconciler := new(mockReconciler)
	done := make(chan struct{})
	reconciler.On("ReconcileEntity", meta.EntityTypeSourceStudy, "s1").
		Return(&reconciliation.ChangeSet{EntityID: "s1"}, nil).
		Run(func(mock.Arguments) { close(done) })

	s := NewEventService(nil, reconciler)
	s.wg.Add(1)
	go s.process()
	s.Enqueue(ChangeNotification{Table: "source_studies", Type: "UPDATE", RecordID: "s1"})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("变更未被处理")
	}
	s.Stop()
}

func TestEnsureTriggersSkipsNonPostgres(t *testing.T) {
	testDB := models.NewModelTestDB()
	defer testDB.Close()

	s := NewEventService(testDB.DB, new(mockReconciler))
	assert.NoError(t, s.EnsureTriggers())
}
