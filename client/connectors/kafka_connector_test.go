package connectors

import (
	"atlas-tracker-service/service/meta"
	"atlas-tracker-service/service/reconciliation"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestNotifyChanges(t *testing.T) {
	writer := &recordingWriter{}
	connector := newKafkaConnector(writer, "findings")
	connector.clock = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	err := connector.NotifyChanges(context.Background(), meta.EntityTypeSourceStudy, &reconciliation.ChangeSet{
		EntityID: "study-1",
		Updated:  []string{meta.ValidationSourceStudyInCAP},
		Resolved: []string{meta.ValidationSourceStudyInCAP},
	})
	require.NoError(t, err)
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, "study-1", string(msg.Key))
	var event FindingChangeEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, meta.EntityTypeSourceStudy, event.EntityType)
	assert.Equal(t, []string{meta.ValidationSourceStudyInCAP}, event.Resolved)
	assert.Equal(t, 2024, event.OccurredAt.Year())
}

func TestNotifyChangesSkipsNoop(t *testing.T) {
	writer := &recordingWriter{}
	connector := newKafkaConnector(writer, "findings")

	require.NoError(t, connector.NotifyChanges(context.Background(), meta.EntityTypeSourceStudy, &reconciliation.ChangeSet{
		EntityID:  "study-1",
		Unchanged: []string{meta.ValidationSourceStudyInCAP},
	}))
	require.NoError(t, connector.NotifyChanges(context.Background(), meta.EntityTypeSourceStudy, nil))
	assert.Empty(t, writer.messages)
}

func TestNotifyChangesErrors(t *testing.T) {
	writer := &recordingWriter{err: errors.New("broker down")}
	connector := newKafkaConnector(writer, "findings")
	changes := &reconciliation.ChangeSet{EntityID: "e", Deleted: []string{"X"}}

	assert.Error(t, connector.NotifyChanges(context.Background(), meta.EntityTypeSourceDataset, changes))

	writer.err = nil
	require.NoError(t, connector.Close())
	assert.True(t, writer.closed)
	assert.Error(t, connector.NotifyChanges(context.Background(), meta.EntityTypeSourceDataset, changes))
}

func TestNewKafkaConnectorValidatesConfig(t *testing.T) {
	_, err := NewKafkaConnector(KafkaConfig{Topic: "findings"})
	assert.Error(t, err)
	_, err = NewKafkaConnector(KafkaConfig{Brokers: []string{"localhost:9092"}})
	assert.Error(t, err)
}
