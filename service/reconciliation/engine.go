/*
 * @module service/reconciliation/engine
 * @description 对账引擎：将一次校验计算的结果与持久化记录对比并写入差异
 * @architecture 领域服务层 - 事务性写入
 * @documentReference DESIGN.md
 * @stateFlow 加载实体记录 -> 新增/逐字段比较更新/保持不变 -> 删除不再适用的记录 -> 提交事务
 * @rules 单个实体的对账在同一事务内完成；无变化的记录不写入，updated_at 保持不变
 * @dependencies gorm.io/gorm, service/store, service/validation
 * @refs service/atlas_tracker, service/task_count
 */

package reconciliation

import (
	"atlas-tracker-service/service/meta"
	"atlas-tracker-service/service/models"
	"atlas-tracker-service/service/store"
	"atlas-tracker-service/service/validation"
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
)

// ThreadCleaner 删除校验记录时清理其评论线程
type ThreadCleaner interface {
	DeleteThreads(ctx context.Context, tx *gorm.DB, threadIDs []string) error
}

// ChangeSet 一次对账产生的变更
type ChangeSet struct {
	EntityID          string   `json:"entity_id"`
	Inserted          []string `json:"inserted"`
	Updated           []string `json:"updated"`
	Deleted           []string `json:"deleted"`
	Unchanged         []string `json:"unchanged"`
	Resolved          []string `json:"resolved"` // 本次变为已完成的校验
	Reopened          []string `json:"reopened"` // 本次由已完成回退的校验
	OrphanedThreadIDs []string `json:"orphaned_thread_ids,omitempty"`
}

// HasChanges 是否有写入
func (c *ChangeSet) HasChanges() bool {
	return len(c.Inserted) > 0 || len(c.Updated) > 0 || len(c.Deleted) > 0
}

// Engine 对账引擎
type Engine struct {
	db      *gorm.DB
	clock   func() time.Time
	threads ThreadCleaner
}

// NewEngine 创建对账引擎，threads 可为 nil
func NewEngine(db *gorm.DB, threads ThreadCleaner) *Engine {
	return &Engine{
		db:      db,
		clock:   time.Now,
		threads: threads,
	}
}

// SetClock 设置时钟
func (e *Engine) SetClock(clock func() time.Time) {
	e.clock = clock
}

// Reconcile 在独立事务中对账单个实体，出错时整体回滚
func (e *Engine) Reconcile(ctx context.Context, entityID string, findings []models.Finding) (*ChangeSet, error) {
	var changes *ChangeSet
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		changes, err = e.ReconcileTx(ctx, tx, entityID, findings)
		return err
	})
	if err != nil {
		return nil, err
	}
	return changes, nil
}

// ReconcileTx 使用调用方提供的事务句柄对账单个实体
func (e *Engine) ReconcileTx(ctx context.Context, tx *gorm.DB, entityID string, findings []models.Finding) (*ChangeSet, error) {
	repo := store.NewRepository(tx)
	now := e.clock()

	persisted, err := repo.SelectRecordsByEntity(ctx, entityID)
	if err != nil {
		return nil, err
	}
	existing := make(map[string]models.ValidationRecord, len(persisted))
	for _, record := range persisted {
		existing[record.ValidationID] = record
	}

	changes := &ChangeSet{EntityID: entityID}
	fresh := make(map[string]bool, len(findings))

	for i := range findings {
		finding := findings[i]
		if finding.EntityID != entityID {
			return nil, fmt.Errorf("校验结果实体 %s 与对账实体 %s 不一致", finding.EntityID, entityID)
		}
		fresh[finding.ValidationID] = true

		record, ok := existing[finding.ValidationID]
		if !ok {
			inserted := newRecord(finding, now)
			if err := repo.UpsertRecord(ctx, inserted); err != nil {
				return nil, err
			}
			changes.Inserted = append(changes.Inserted, finding.ValidationID)
			if inserted.ResolvedAt != nil {
				changes.Resolved = append(changes.Resolved, finding.ValidationID)
			}
			continue
		}

		validation.ApplyTaskStatusOverride(&finding, record.TaskStatus())
		info := finding.Info()
		if record.EntityType == finding.EntityType && InfoEqual(record.ValidationInfo, info) && SameAtlasIDs(record.AtlasIDs, finding.AtlasIDs) {
			changes.Unchanged = append(changes.Unchanged, finding.ValidationID)
			continue
		}

		wasDone := record.ValidationInfo.TaskStatus == meta.TaskStatusDone
		isDone := info.TaskStatus == meta.TaskStatusDone
		switch {
		case isDone && record.ResolvedAt == nil:
			record.ResolvedAt = &now
			changes.Resolved = append(changes.Resolved, finding.ValidationID)
		case !isDone && record.ResolvedAt != nil:
			record.ResolvedAt = nil
		}
		if wasDone && !isDone {
			changes.Reopened = append(changes.Reopened, finding.ValidationID)
		}

		record.EntityType = finding.EntityType
		record.AtlasIDs = models.JSONBStringArray(copyStrings(finding.AtlasIDs))
		record.ValidationInfo = info
		record.UpdatedAt = now
		if err := repo.UpdateRecord(ctx, &record); err != nil {
			return nil, err
		}
		changes.Updated = append(changes.Updated, finding.ValidationID)
	}

	for _, record := range persisted {
		if fresh[record.ValidationID] {
			continue
		}
		if err := repo.DeleteRecord(ctx, entityID, record.ValidationID); err != nil {
			return nil, err
		}
		changes.Deleted = append(changes.Deleted, record.ValidationID)
		if record.CommentThreadID != nil && *record.CommentThreadID != "" {
			changes.OrphanedThreadIDs = append(changes.OrphanedThreadIDs, *record.CommentThreadID)
		}
	}

	if len(changes.OrphanedThreadIDs) > 0 {
		if e.threads != nil {
			if err := e.threads.DeleteThreads(ctx, tx, changes.OrphanedThreadIDs); err != nil {
				return nil, fmt.Errorf("清理评论线程失败: %w", err)
			}
		} else {
			slog.Warn("删除的校验记录关联了评论线程", "entity_id", entityID, "thread_ids", changes.OrphanedThreadIDs)
		}
	}

	if changes.HasChanges() {
		slog.Debug("实体对账完成",
			"entity_id", entityID,
			"inserted", len(changes.Inserted),
			"updated", len(changes.Updated),
			"deleted", len(changes.Deleted),
			"unchanged", len(changes.Unchanged))
	}
	return changes, nil
}

func newRecord(finding models.Finding, now time.Time) *models.ValidationRecord {
	record := &models.ValidationRecord{
		EntityID:       finding.EntityID,
		EntityType:     finding.EntityType,
		ValidationID:   finding.ValidationID,
		AtlasIDs:       models.JSONBStringArray(copyStrings(finding.AtlasIDs)),
		ValidationInfo: finding.Info(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if finding.TaskStatus == meta.TaskStatusDone {
		resolvedAt := now
		record.ResolvedAt = &resolvedAt
	}
	return record
}

func copyStrings(values []string) []string {
	result := make([]string, len(values))
	copy(result, values)
	return result
}
