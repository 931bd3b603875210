/*
 * @module service/event/event_service
 * @description 源实体变更监听：通过 PostgreSQL LISTEN/NOTIFY 接收源研究、源数据集与图谱成员的变更，并触发对账
 * @architecture 事件驱动架构 - 基础设施层
 * @documentReference DESIGN.md
 * @stateFlow 触发器 pg_notify -> 监听器接收 -> 解析通知 -> 队列 -> 单实体对账/清理
 * @rules 通知处理在独立协程中串行执行；实体删除时清理其全部校验记录；图谱只在成员变化时通知
 * @dependencies gorm.io/gorm, github.com/lib/pq
 * @refs service/atlas_tracker, service/init.go
 */

package event

import (
	"atlas-tracker-service/service/atlas_tracker"
	"atlas-tracker-service/service/meta"
	"atlas-tracker-service/service/reconciliation"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// NotifyChannel 源实体变更通知通道
const NotifyChannel = "source_entity_changes"

const queueSize = 256

// AtlasTable 图谱表，成员变化时重新对账其相关实体
const AtlasTable = "atlases"

// 被监听的实体表与实体类型
var watchedTables = map[string]string{
	"source_studies":  meta.EntityTypeSourceStudy,
	"source_datasets": meta.EntityTypeSourceDataset,
}

// EntityReconciler 实体对账入口
type EntityReconciler interface {
	ReconcileEntity(ctx context.Context, entityType, entityID string) (*reconciliation.ChangeSet, error)
	PurgeEntity(ctx context.Context, entityID string) (*reconciliation.ChangeSet, error)
	ReconcileAtlasMembers(ctx context.Context, atlasID string) (*atlas_tracker.RevalidationReport, error)
}

// ChangeNotification 数据库变更通知负载
type ChangeNotification struct {
	Table    string `json:"table"`
	Type     string `json:"type"` // INSERT, UPDATE, DELETE
	RecordID string `json:"record_id"`
}

// EventService 源实体变更监听服务
type EventService struct {
	db         *gorm.DB
	reconciler EntityReconciler
	listener   *pq.Listener
	queue      chan ChangeNotification
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// NewEventService 创建变更监听服务
func NewEventService(db *gorm.DB, reconciler EntityReconciler) *EventService {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventService{
		db:         db,
		reconciler: reconciler,
		queue:      make(chan ChangeNotification, queueSize),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start 创建触发器并开始监听，connStr 为 lib/pq 连接串
func (s *EventService) Start(connStr string) error {
	if err := s.EnsureTriggers(); err != nil {
		return err
	}

	s.listener = pq.NewListener(connStr, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			slog.Warn("PostgreSQL监听器事件", "event", ev, "error", err)
		}
	})
	if err := s.listener.Listen(NotifyChannel); err != nil {
		s.listener.Close()
		return fmt.Errorf("监听数据库通知失败: %w", err)
	}

	s.wg.Add(2)
	go s.receive()
	go s.process()
	slog.Info("源实体变更监听已启动", "channel", NotifyChannel)
	return nil
}

// receive 接收数据库通知并放入队列
func (s *EventService) receive() {
	defer s.wg.Done()
	for {
		select {
		case notification := <-s.listener.Notify:
			// 连接重建时收到 nil
			if notification == nil {
				continue
			}
			change, err := ParseNotification(notification.Extra)
			if err != nil {
				slog.Warn("解析数据库通知失败", "payload", notification.Extra, "error", err)
				continue
			}
			s.Enqueue(change)
		case <-time.After(90 * time.Second):
			go s.listener.Ping()
		case <-s.ctx.Done():
			return
		}
	}
}

// Enqueue 将变更放入处理队列，队列已满时丢弃并记录日志
func (s *EventService) Enqueue(change ChangeNotification) {
	select {
	case s.queue <- change:
	default:
		slog.Warn("实体变更队列已满，丢弃通知", "table", change.Table, "record_id", change.RecordID)
	}
}

func (s *EventService) process() {
	defer s.wg.Done()
	for {
		select {
		case change := <-s.queue:
			if err := s.Handle(s.ctx, change); err != nil {
				slog.Error("处理实体变更失败", "table", change.Table, "record_id", change.RecordID, "error", err)
			}
		case <-s.ctx.Done():
			return
		}
	}
}

// ParseNotification 解析通知负载
func ParseNotification(payload string) (ChangeNotification, error) {
	var change ChangeNotification
	if err := json.Unmarshal([]byte(payload), &change); err != nil {
		return change, err
	}
	if change.RecordID == "" {
		return change, errors.New("通知缺少 record_id")
	}
	if _, ok := watchedTables[change.Table]; !ok && change.Table != AtlasTable {
		return change, fmt.Errorf("未监听的表: %s", change.Table)
	}
	return change, nil
}

// Handle 处理单条变更：删除时清理记录，其余情况重新对账
func (s *EventService) Handle(ctx context.Context, change ChangeNotification) error {
	if change.Table == AtlasTable {
		report, err := s.reconciler.ReconcileAtlasMembers(ctx, change.RecordID)
		if err != nil {
			return err
		}
		slog.Debug("图谱成员变更已处理",
			"atlas_id", change.RecordID,
			"type", change.Type,
			"changed", report.ChangedCount,
			"failures", len(report.Failures))
		return nil
	}

	entityType, ok := watchedTables[change.Table]
	if !ok {
		return fmt.Errorf("未监听的表: %s", change.Table)
	}

	var (
		changes *reconciliation.ChangeSet
		err     error
	)
	if change.Type == "DELETE" {
		changes, err = s.reconciler.PurgeEntity(ctx, change.RecordID)
	} else {
		changes, err = s.reconciler.ReconcileEntity(ctx, entityType, change.RecordID)
	}
	if err != nil {
		return err
	}
	slog.Debug("实体变更已处理",
		"entity_type", entityType,
		"entity_id", change.RecordID,
		"type", change.Type,
		"changed", changes.HasChanges())
	return nil
}

// Stop 停止监听
func (s *EventService) Stop() {
	s.cancel()
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
	slog.Info("源实体变更监听已停止")
}

// EnsureTriggers 创建通知函数与触发器，非 PostgreSQL 数据库直接跳过
func (s *EventService) EnsureTriggers() error {
	if s.db.Dialector.Name() != "postgres" {
		slog.Info("非PostgreSQL数据库，跳过创建变更触发器", "dialect", s.db.Dialector.Name())
		return nil
	}

	if err := s.db.Exec(notifyFunctionSQL).Error; err != nil {
		return fmt.Errorf("创建通知函数失败: %w", err)
	}
	for table := range watchedTables {
		sql := fmt.Sprintf(`
			CREATE OR REPLACE TRIGGER %s_notify
			AFTER INSERT OR UPDATE OR DELETE ON %s
			FOR EACH ROW
			EXECUTE FUNCTION notify_source_entity_changes();
		`, table, table)
		if err := s.db.Exec(sql).Error; err != nil {
			return fmt.Errorf("创建表 %s 的触发器失败: %w", table, err)
		}
	}
	// 任务统计会回写 overview，更新触发器只在成员数组变化时通知
	for _, sql := range atlasTriggerSQL {
		if err := s.db.Exec(sql).Error; err != nil {
			return fmt.Errorf("创建表 %s 的触发器失败: %w", AtlasTable, err)
		}
	}
	return nil
}

var atlasTriggerSQL = []string{`
CREATE OR REPLACE TRIGGER atlases_notify
AFTER INSERT OR DELETE ON atlases
FOR EACH ROW
EXECUTE FUNCTION notify_source_entity_changes();`, `
CREATE OR REPLACE TRIGGER atlases_members_notify
AFTER UPDATE ON atlases
FOR EACH ROW
WHEN (OLD.source_studies IS DISTINCT FROM NEW.source_studies
      OR OLD.source_datasets IS DISTINCT FROM NEW.source_datasets)
EXECUTE FUNCTION notify_source_entity_changes();`,
}

const notifyFunctionSQL = `
CREATE OR REPLACE FUNCTION notify_source_entity_changes()
RETURNS TRIGGER AS $$
DECLARE
    record_id TEXT;
BEGIN
    IF TG_OP = 'DELETE' THEN
        record_id := OLD.id;
    ELSE
        record_id := NEW.id;
    END IF;

    PERFORM pg_notify('source_entity_changes', json_build_object(
        'table', TG_TABLE_NAME,
        'type', TG_OP,
        'record_id', record_id
    )::text);

    IF TG_OP = 'DELETE' THEN
        RETURN OLD;
    END IF;
    RETURN NEW;
END;
$$ LANGUAGE plpgsql;`
