/*
 * @module service/task_count/aggregator
 * @description 图谱任务统计聚合：按图谱汇总校验记录的任务数量与完成数量
 * @architecture 领域服务层 - 派生数据重算
 * @documentReference DESIGN.md
 * @stateFlow 查询图谱关联记录 -> 按外部系统分组计数 -> 写入图谱概览
 * @rules 每次整体重算；所有外部系统都会输出，即使计数为零
 * @dependencies service/store
 * @refs service/atlas_tracker
 */

package task_count

import (
	"atlas-tracker-service/service/meta"
	"atlas-tracker-service/service/models"
	"atlas-tracker-service/service/store"
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"
)

// Aggregator 任务统计聚合器
type Aggregator struct {
	db *gorm.DB
}

// NewAggregator 创建任务统计聚合器
func NewAggregator(db *gorm.DB) *Aggregator {
	return &Aggregator{db: db}
}

// Summarize 根据记录计算统计概览
func Summarize(records []models.ValidationRecord) models.TaskCountSummary {
	summary := models.TaskCountSummary{
		SystemTaskCounts: make(map[string]models.SystemTaskCount, len(meta.Systems)),
	}
	for _, system := range meta.Systems {
		summary.SystemTaskCounts[system] = models.SystemTaskCount{}
	}

	for _, record := range records {
		done := record.TaskStatus() == meta.TaskStatusDone
		summary.TaskCount++
		if done {
			summary.CompletedTaskCount++
		}

		counts := summary.SystemTaskCounts[record.ValidationInfo.System]
		counts.Count++
		if done {
			counts.CompletedCount++
		}
		summary.SystemTaskCounts[record.ValidationInfo.System] = counts
	}
	return summary
}

// RecomputeAtlas 重算单个图谱的任务统计
func (a *Aggregator) RecomputeAtlas(ctx context.Context, atlasID string) (models.TaskCountSummary, error) {
	repo := store.NewRepository(a.db)
	records, err := repo.SelectAtlasRecords(ctx, atlasID)
	if err != nil {
		return models.TaskCountSummary{}, err
	}

	summary := Summarize(records)
	if err := repo.UpdateAtlasSummary(ctx, atlasID, summary); err != nil {
		return models.TaskCountSummary{}, fmt.Errorf("图谱 %s: %w", atlasID, err)
	}
	return summary, nil
}

// RecomputeAll 重算全部图谱的任务统计，返回按图谱ID索引的结果
func (a *Aggregator) RecomputeAll(ctx context.Context) (map[string]models.TaskCountSummary, error) {
	atlases, err := store.NewRepository(a.db).ListAtlases(ctx)
	if err != nil {
		return nil, err
	}

	result := make(map[string]models.TaskCountSummary, len(atlases))
	for _, atlas := range atlases {
		summary, err := a.RecomputeAtlas(ctx, atlas.ID)
		if err != nil {
			return nil, err
		}
		result[atlas.ID] = summary
	}
	slog.Info("图谱任务统计重算完成", "atlas_count", len(atlases))
	return result, nil
}
