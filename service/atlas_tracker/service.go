/*
 * @module service/atlas_tracker/service
 * @description 图谱跟踪服务：对外暴露全量刷新、单实体对账、目录状态查询与“处理中”人工标记
 * @architecture 应用服务层 - 编排缓存、校验计算、对账与任务统计
 * @documentReference DESIGN.md
 * @stateFlow 刷新目录 -> 逐实体计算校验结果并对账 -> 重算图谱任务统计
 * @rules 单个实体失败不影响批量中的其他实体；同一进程内全量重新校验串行执行，多实例通过分布式锁互斥
 * @dependencies service/catalog_cache, service/validation, service/reconciliation, service/task_count, service/store
 * @refs api/controllers, service/scheduler, service/event
 */

package atlas_tracker

import (
	"atlas-tracker-service/service/catalog_cache"
	"atlas-tracker-service/service/meta"
	"atlas-tracker-service/service/models"
	"atlas-tracker-service/service/monitoring"
	"atlas-tracker-service/service/reconciliation"
	"atlas-tracker-service/service/store"
	"atlas-tracker-service/service/task_count"
	"atlas-tracker-service/service/validation"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"
)

const (
	revalidationLockKey = "revalidate_all"
	defaultLockTTL      = 30 * time.Minute
)

var (
	// ErrInvalidEntityType 实体类型不合法
	ErrInvalidEntityType = errors.New("无效的实体类型")
	// ErrInvalidValidationID 校验ID不合法
	ErrInvalidValidationID = errors.New("无效的校验ID")
)

// ChangeNotifier 对账变更通知
type ChangeNotifier interface {
	NotifyChanges(ctx context.Context, entityType string, changes *reconciliation.ChangeSet) error
}

// PassLocker 跨实例互斥执行
type PassLocker interface {
	ExecuteWithLock(ctx context.Context, key string, ttl time.Duration, fn func() error) (bool, error)
}

// Options 服务可选依赖
type Options struct {
	Locker   PassLocker
	LockTTL  time.Duration
	Notifier ChangeNotifier
	Clock    func() time.Time
}

// EntityError 批量处理中单个实体的失败
type EntityError struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Error      string `json:"error"`
}

// RevalidationReport 全量重新校验结果
type RevalidationReport struct {
	Skipped      bool          `json:"skipped"` // 其他实例正在执行
	StudyCount   int           `json:"study_count"`
	DatasetCount int           `json:"dataset_count"`
	ChangedCount int           `json:"changed_count"`
	Failures     []EntityError `json:"failures"`
	AtlasCount   int           `json:"atlas_count"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   time.Time     `json:"finished_at"`
}

// Service 图谱跟踪服务
type Service struct {
	db         *gorm.DB
	catalogs   *catalog_cache.Catalogs
	validator  *validation.Validator
	engine     *reconciliation.Engine
	aggregator *task_count.Aggregator
	locker     PassLocker
	lockTTL    time.Duration
	notifier   ChangeNotifier
	clock      func() time.Time

	passMu     sync.Mutex
	background sync.WaitGroup
}

// NewService 创建图谱跟踪服务，并在所有目录刷新完成后自动重新校验
func NewService(db *gorm.DB, catalogs *catalog_cache.Catalogs, validator *validation.Validator, engine *reconciliation.Engine, opts Options) *Service {
	if opts.LockTTL <= 0 {
		opts.LockTTL = defaultLockTTL
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	s := &Service{
		db:         db,
		catalogs:   catalogs,
		validator:  validator,
		engine:     engine,
		aggregator: task_count.NewAggregator(db),
		locker:     opts.Locker,
		lockTTL:    opts.LockTTL,
		notifier:   opts.Notifier,
		clock:      opts.Clock,
	}
	catalogs.SetOnAllRefreshed(s.onCatalogsRefreshed)
	return s
}

func (s *Service) onCatalogsRefreshed() {
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		report, err := s.Revalidate(context.Background())
		if err != nil {
			slog.Error("目录刷新后重新校验失败", "error", err)
			return
		}
		slog.Info("目录刷新后重新校验完成",
			"skipped", report.Skipped,
			"changed", report.ChangedCount,
			"failures", len(report.Failures))
	}()
}

// WaitIdle 等待目录刷新及其触发的重新校验结束
func (s *Service) WaitIdle() {
	s.catalogs.WaitIdle()
	s.background.Wait()
}

// RefreshAll 触发所有目录的刷新检查，并基于当前快照重新校验全部实体与重算任务统计
func (s *Service) RefreshAll(ctx context.Context) (*RevalidationReport, error) {
	s.catalogs.RefreshAll(ctx)
	return s.Revalidate(ctx)
}

// Revalidate 基于当前快照重新校验全部实体
func (s *Service) Revalidate(ctx context.Context) (*RevalidationReport, error) {
	s.passMu.Lock()
	defer s.passMu.Unlock()

	if s.locker == nil {
		return s.revalidateAll(ctx)
	}

	var report *RevalidationReport
	ran, err := s.locker.ExecuteWithLock(ctx, revalidationLockKey, s.lockTTL, func() error {
		var err error
		report, err = s.revalidateAll(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !ran {
		return &RevalidationReport{Skipped: true, StartedAt: s.clock(), FinishedAt: s.clock()}, nil
	}
	return report, nil
}

func (s *Service) revalidateAll(ctx context.Context) (*RevalidationReport, error) {
	report := &RevalidationReport{StartedAt: s.clock(), Failures: []EntityError{}}
	repo := store.NewRepository(s.db)

	studyIDs, err := repo.ListStudyIDs(ctx)
	if err != nil {
		return nil, err
	}
	datasetIDs, err := repo.ListDatasetIDs(ctx)
	if err != nil {
		return nil, err
	}
	report.StudyCount = len(studyIDs)
	report.DatasetCount = len(datasetIDs)

	batches := []struct {
		entityType string
		ids        []string
	}{
		{meta.EntityTypeSourceStudy, studyIDs},
		{meta.EntityTypeSourceDataset, datasetIDs},
	}
	for _, batch := range batches {
		if err := s.reconcileBatch(ctx, report, batch.entityType, batch.ids); err != nil {
			return nil, err
		}
	}

	summaries, err := s.aggregator.RecomputeAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("重算任务统计失败: %w", err)
	}
	report.AtlasCount = len(summaries)
	monitoring.RecordTaskCounts(summaries)

	report.FinishedAt = s.clock()
	monitoring.RecordRevalidation(report.FinishedAt.Sub(report.StartedAt))
	slog.Info("全量重新校验完成",
		"studies", report.StudyCount,
		"datasets", report.DatasetCount,
		"changed", report.ChangedCount,
		"failures", len(report.Failures))
	return report, nil
}

// reconcileBatch 逐个对账实体，单个实体失败记入报告后继续
func (s *Service) reconcileBatch(ctx context.Context, report *RevalidationReport, entityType string, ids []string) error {
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		changes, err := s.reconcile(ctx, entityType, id)
		if err != nil {
			slog.Error("实体重新校验失败", "entity_type", entityType, "entity_id", id, "error", err)
			report.Failures = append(report.Failures, EntityError{
				EntityType: entityType,
				EntityID:   id,
				Error:      err.Error(),
			})
			continue
		}
		if changes.HasChanges() {
			report.ChangedCount++
		}
	}
	return nil
}

// ReconcileAtlasMembers 图谱成员变化后重新对账相关实体。
// 相关实体为现有记录中包含该图谱的实体与图谱当前成员的并集，图谱已删除时只处理前者。
func (s *Service) ReconcileAtlasMembers(ctx context.Context, atlasID string) (*RevalidationReport, error) {
	report := &RevalidationReport{StartedAt: s.clock(), Failures: []EntityError{}}
	repo := store.NewRepository(s.db)
	s.catalogs.EnsureFresh(ctx)

	members := map[string]map[string]bool{
		meta.EntityTypeSourceStudy:   {},
		meta.EntityTypeSourceDataset: {},
	}
	records, err := repo.SelectAtlasRecords(ctx, atlasID)
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		if ids, ok := members[record.EntityType]; ok {
			ids[record.EntityID] = true
		}
	}

	atlas, err := repo.GetAtlas(ctx, atlasID)
	switch {
	case err == nil:
		for _, id := range atlas.SourceStudies {
			members[meta.EntityTypeSourceStudy][id] = true
		}
		for _, id := range atlas.SourceDatasets {
			members[meta.EntityTypeSourceDataset][id] = true
		}
	case errors.Is(err, store.ErrEntityNotFound):
		slog.Debug("图谱已删除，仅对账原成员", "atlas_id", atlasID)
	default:
		return nil, err
	}

	for _, entityType := range []string{meta.EntityTypeSourceStudy, meta.EntityTypeSourceDataset} {
		ids := make([]string, 0, len(members[entityType]))
		for id := range members[entityType] {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		if entityType == meta.EntityTypeSourceStudy {
			report.StudyCount = len(ids)
		} else {
			report.DatasetCount = len(ids)
		}
		if err := s.reconcileBatch(ctx, report, entityType, ids); err != nil {
			return nil, err
		}
	}

	summaries, err := s.aggregator.RecomputeAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("重算任务统计失败: %w", err)
	}
	report.AtlasCount = len(summaries)
	monitoring.RecordTaskCounts(summaries)
	report.FinishedAt = s.clock()

	slog.Info("图谱成员重新对账完成",
		"atlas_id", atlasID,
		"studies", report.StudyCount,
		"datasets", report.DatasetCount,
		"changed", report.ChangedCount,
		"failures", len(report.Failures))
	return report, nil
}

// ReconcileEntity 重新计算并持久化单个实体的校验结果，有变化时重算任务统计
func (s *Service) ReconcileEntity(ctx context.Context, entityType, entityID string) (*reconciliation.ChangeSet, error) {
	if !meta.IsValidEntityType(entityType) {
		return nil, ErrInvalidEntityType
	}
	s.catalogs.EnsureFresh(ctx)

	changes, err := s.reconcile(ctx, entityType, entityID)
	if err != nil {
		return nil, err
	}
	if changes.HasChanges() {
		summaries, err := s.aggregator.RecomputeAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("重算任务统计失败: %w", err)
		}
		monitoring.RecordTaskCounts(summaries)
	}
	return changes, nil
}

// PurgeEntity 删除已不存在实体的全部校验记录
func (s *Service) PurgeEntity(ctx context.Context, entityID string) (*reconciliation.ChangeSet, error) {
	changes, err := s.engine.Reconcile(ctx, entityID, nil)
	if err != nil {
		return nil, err
	}
	if changes.HasChanges() {
		summaries, err := s.aggregator.RecomputeAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("重算任务统计失败: %w", err)
		}
		monitoring.RecordTaskCounts(summaries)
	}
	return changes, nil
}

// ComputeFindings 计算实体当前的校验结果，不写入存储
func (s *Service) ComputeFindings(ctx context.Context, entityType, entityID string) ([]models.Finding, error) {
	repo := store.NewRepository(s.db)
	switch entityType {
	case meta.EntityTypeSourceStudy:
		study, links, err := repo.GetStudyWithAtlasLinks(ctx, entityID)
		if err != nil {
			return nil, err
		}
		return s.validator.ComputeStudyFindings(ctx, study, links), nil
	case meta.EntityTypeSourceDataset:
		dataset, study, links, err := repo.GetDatasetWithAtlasLinks(ctx, entityID)
		if err != nil {
			return nil, err
		}
		return s.validator.ComputeDatasetFindings(ctx, dataset, study, links), nil
	default:
		return nil, ErrInvalidEntityType
	}
}

func (s *Service) reconcile(ctx context.Context, entityType, entityID string) (*reconciliation.ChangeSet, error) {
	findings, err := s.ComputeFindings(ctx, entityType, entityID)
	if err != nil {
		return nil, err
	}

	changes, err := s.engine.Reconcile(ctx, entityID, findings)
	if err != nil {
		monitoring.RecordReconcileError(entityType)
		return nil, err
	}
	monitoring.RecordReconcile(entityType, len(changes.Inserted), len(changes.Updated), len(changes.Deleted))

	if s.notifier != nil && changes.HasChanges() {
		if err := s.notifier.NotifyChanges(ctx, entityType, changes); err != nil {
			slog.Warn("发送校验变更通知失败", "entity_id", entityID, "error", err)
		}
	}
	return changes, nil
}

// GetCurrentStatuses 返回各外部目录的刷新状态
func (s *Service) GetCurrentStatuses() map[string]catalog_cache.RefreshStatus {
	statuses := s.catalogs.Statuses()
	monitoring.RecordStatuses(statuses)
	return statuses
}

// GetAtlasTaskCounts 重算并返回单个图谱的任务统计
func (s *Service) GetAtlasTaskCounts(ctx context.Context, atlasID string) (models.TaskCountSummary, error) {
	summary, err := s.aggregator.RecomputeAtlas(ctx, atlasID)
	if err != nil {
		return models.TaskCountSummary{}, err
	}
	monitoring.RecordTaskCounts(map[string]models.TaskCountSummary{atlasID: summary})
	return summary, nil
}
