/*
 * @module client/connectors/kafka_connector
 * @description Kafka连接器：将实体对账产生的校验记录变更发布为事件，供下游系统订阅
 * @architecture 适配器模式 - 封装 kafka-go 生产者
 * @documentReference DESIGN.md
 * @stateFlow 对账完成 -> 构造变更事件 -> 以实体ID为键写入主题
 * @rules 同一实体的事件使用相同消息键，保证分区内有序；无变化的对账不发布
 * @dependencies github.com/segmentio/kafka-go
 * @refs service/atlas_tracker, service/init.go
 */
package connectors

import (
	"atlas-tracker-service/service/reconciliation"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaConfig Kafka生产者配置
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
	Async        bool
}

// FindingChangeEvent 校验记录变更事件
type FindingChangeEvent struct {
	EntityType        string    `json:"entity_type"`
	EntityID          string    `json:"entity_id"`
	Inserted          []string  `json:"inserted,omitempty"`
	Updated           []string  `json:"updated,omitempty"`
	Deleted           []string  `json:"deleted,omitempty"`
	Resolved          []string  `json:"resolved,omitempty"`
	Reopened          []string  `json:"reopened,omitempty"`
	OrphanedThreadIDs []string  `json:"orphaned_thread_ids,omitempty"`
	OccurredAt        time.Time `json:"occurred_at"`
}

// messageWriter kafka.Writer 的最小接口
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConnector 校验变更事件发布器
type KafkaConnector struct {
	writer messageWriter
	topic  string
	clock  func() time.Time
	mutex  sync.Mutex
	closed bool
}

// NewKafkaConnector 创建Kafka连接器
func NewKafkaConnector(config KafkaConfig) (*KafkaConnector, error) {
	if len(config.Brokers) == 0 {
		return nil, fmt.Errorf("未配置Kafka broker")
	}
	if config.Topic == "" {
		return nil, fmt.Errorf("未配置Kafka主题")
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(config.Brokers...),
		Topic:                  config.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		Async:                  config.Async,
		AllowAutoTopicCreation: true,
	}
	if config.BatchTimeout > 0 {
		writer.BatchTimeout = config.BatchTimeout
	}

	slog.Info("Kafka连接器已创建", "brokers", config.Brokers, "topic", config.Topic)
	return newKafkaConnector(writer, config.Topic), nil
}

func newKafkaConnector(writer messageWriter, topic string) *KafkaConnector {
	return &KafkaConnector{
		writer: writer,
		topic:  topic,
		clock:  time.Now,
	}
}

// NotifyChanges 发布一次对账的变更
func (kc *KafkaConnector) NotifyChanges(ctx context.Context, entityType string, changes *reconciliation.ChangeSet) error {
	if changes == nil || !changes.HasChanges() {
		return nil
	}

	kc.mutex.Lock()
	defer kc.mutex.Unlock()
	if kc.closed {
		return fmt.Errorf("Kafka连接器已关闭")
	}

	event := FindingChangeEvent{
		EntityType:        entityType,
		EntityID:          changes.EntityID,
		Inserted:          changes.Inserted,
		Updated:           changes.Updated,
		Deleted:           changes.Deleted,
		Resolved:          changes.Resolved,
		Reopened:          changes.Reopened,
		OrphanedThreadIDs: changes.OrphanedThreadIDs,
		OccurredAt:        kc.clock().UTC(),
	}
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化变更事件失败: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(changes.EntityID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "entity_type", Value: []byte(entityType)},
		},
	}
	if err := kc.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("发送变更事件失败 topic=%s: %w", kc.topic, err)
	}
	return nil
}

// Close 关闭生产者
func (kc *KafkaConnector) Close() error {
	kc.mutex.Lock()
	defer kc.mutex.Unlock()
	if kc.closed {
		return nil
	}
	kc.closed = true
	return kc.writer.Close()
}
