/*
 * @module service/store/repository
 * @description 持久化存储适配：校验记录、图谱任务统计、源研究与源数据集的读取
 * @architecture 分层架构 - 数据访问层
 * @documentReference DESIGN.md
 * @stateFlow 由调用方提供连接或事务句柄 -> 执行查询/写入
 * @rules 所有写操作使用调用方传入的句柄，保证对账在同一事务内完成
 * @dependencies gorm.io/gorm
 * @refs service/reconciliation, service/task_count, service/atlas_tracker
 */

package store

import (
	"atlas-tracker-service/service/models"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository 存储仓库
type Repository struct {
	db *gorm.DB
}

// NewRepository 创建存储仓库，db 可以是连接也可以是事务
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// DB 返回底层句柄
func (r *Repository) DB() *gorm.DB {
	return r.db
}

// WithTransaction 在事务中执行 fn，fn 返回错误时整体回滚
func (r *Repository) WithTransaction(ctx context.Context, fn func(tx *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}

func (r *Repository) isPostgres() bool {
	return r.db.Dialector != nil && r.db.Dialector.Name() == "postgres"
}

// SelectRecordsByEntity 获取实体的全部校验记录
func (r *Repository) SelectRecordsByEntity(ctx context.Context, entityID string) ([]models.ValidationRecord, error) {
	var records []models.ValidationRecord
	err := r.db.WithContext(ctx).
		Where("entity_id = ?", entityID).
		Order("validation_id").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("查询实体校验记录失败: %w", err)
	}
	return records, nil
}

// UpsertRecord 按 (entity_id, validation_id) 插入或覆盖记录，created_at 不被覆盖
func (r *Repository) UpsertRecord(ctx context.Context, record *models.ValidationRecord) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "entity_id"}, {Name: "validation_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"entity_type",
			"atlas_ids",
			"validation_info",
			"updated_at",
			"resolved_at",
		}),
	}).Create(record).Error
	if err != nil {
		return fmt.Errorf("写入校验记录失败: %w", err)
	}
	return nil
}

// UpdateRecord 覆盖已有记录的负载与时间戳，created_at 不变
func (r *Repository) UpdateRecord(ctx context.Context, record *models.ValidationRecord) error {
	result := r.db.WithContext(ctx).Model(&models.ValidationRecord{}).
		Where("id = ?", record.ID).
		Updates(map[string]interface{}{
			"entity_type":     record.EntityType,
			"atlas_ids":       record.AtlasIDs,
			"validation_info": record.ValidationInfo,
			"updated_at":      record.UpdatedAt,
			"resolved_at":     record.ResolvedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("更新校验记录失败: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// DeleteRecord 删除实体的指定校验记录
func (r *Repository) DeleteRecord(ctx context.Context, entityID, validationID string) error {
	err := r.db.WithContext(ctx).
		Where("entity_id = ? AND validation_id = ?", entityID, validationID).
		Delete(&models.ValidationRecord{}).Error
	if err != nil {
		return fmt.Errorf("删除校验记录失败: %w", err)
	}
	return nil
}

// SelectAllRecords 获取全部校验记录
func (r *Repository) SelectAllRecords(ctx context.Context) ([]models.ValidationRecord, error) {
	var records []models.ValidationRecord
	if err := r.db.WithContext(ctx).Order("entity_id, validation_id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("查询校验记录失败: %w", err)
	}
	return records, nil
}

// SelectAtlasRecords 获取 atlas_ids 包含指定图谱的校验记录
func (r *Repository) SelectAtlasRecords(ctx context.Context, atlasID string) ([]models.ValidationRecord, error) {
	var records []models.ValidationRecord
	if r.isPostgres() {
		err := r.db.WithContext(ctx).
			Where("atlas_ids @> ?::jsonb", jsonArray(atlasID)).
			Find(&records).Error
		if err != nil {
			return nil, fmt.Errorf("查询图谱校验记录失败: %w", err)
		}
		return records, nil
	}

	all, err := r.SelectAllRecords(ctx)
	if err != nil {
		return nil, err
	}
	for _, record := range all {
		if record.AtlasIDs.Contains(atlasID) {
			records = append(records, record)
		}
	}
	return records, nil
}

// FindRecordsByValidationAndDois 按校验ID与DOI查找记录，匹配记录关联的任一DOI
func (r *Repository) FindRecordsByValidationAndDois(ctx context.Context, validationID string, dois []string) ([]models.ValidationRecord, error) {
	var candidates []models.ValidationRecord
	err := r.db.WithContext(ctx).
		Where("validation_id = ?", validationID).
		Find(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("查询校验记录失败: %w", err)
	}

	wanted := make(map[string]bool, len(dois))
	for _, doi := range dois {
		wanted[doi] = true
	}
	var records []models.ValidationRecord
	for _, record := range candidates {
		for doi := range wanted {
			if record.MatchesDOI(doi) {
				records = append(records, record)
				break
			}
		}
	}
	return records, nil
}

// SetTaskStatus 直接修改记录的任务状态
func (r *Repository) SetTaskStatus(ctx context.Context, recordID, taskStatus string, now time.Time) error {
	var record models.ValidationRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", recordID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRecordNotFound
		}
		return fmt.Errorf("查询校验记录失败: %w", err)
	}

	record.ValidationInfo.TaskStatus = taskStatus
	err := r.db.WithContext(ctx).Model(&models.ValidationRecord{}).
		Where("id = ?", recordID).
		Updates(map[string]interface{}{
			"validation_info": record.ValidationInfo,
			"updated_at":      now,
		}).Error
	if err != nil {
		return fmt.Errorf("更新任务状态失败: %w", err)
	}
	return nil
}

// ListAtlases 获取全部图谱
func (r *Repository) ListAtlases(ctx context.Context) ([]models.Atlas, error) {
	var atlases []models.Atlas
	if err := r.db.WithContext(ctx).Order("short_name, id").Find(&atlases).Error; err != nil {
		return nil, fmt.Errorf("查询图谱失败: %w", err)
	}
	return atlases, nil
}

// GetAtlas 获取图谱
func (r *Repository) GetAtlas(ctx context.Context, atlasID string) (*models.Atlas, error) {
	var atlas models.Atlas
	if err := r.db.WithContext(ctx).First(&atlas, "id = ?", atlasID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntityNotFound
		}
		return nil, fmt.Errorf("查询图谱失败: %w", err)
	}
	return &atlas, nil
}

// UpdateAtlasSummary 写入图谱任务统计概览
func (r *Repository) UpdateAtlasSummary(ctx context.Context, atlasID string, summary models.TaskCountSummary) error {
	result := r.db.WithContext(ctx).Model(&models.Atlas{}).
		Where("id = ?", atlasID).
		Update("overview", summary)
	if result.Error != nil {
		return fmt.Errorf("更新图谱任务统计失败: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrEntityNotFound
	}
	return nil
}

// atlasesContaining 查找指定 JSONB 数组列包含 id 的图谱
func (r *Repository) atlasesContaining(ctx context.Context, column, id string) ([]models.AtlasLink, error) {
	var atlases []models.Atlas
	if r.isPostgres() {
		err := r.db.WithContext(ctx).
			Where(fmt.Sprintf("%s @> ?::jsonb", column), jsonArray(id)).
			Find(&atlases).Error
		if err != nil {
			return nil, fmt.Errorf("查询实体所属图谱失败: %w", err)
		}
	} else {
		all, err := r.ListAtlases(ctx)
		if err != nil {
			return nil, err
		}
		for _, atlas := range all {
			members := atlas.SourceStudies
			if column == "source_datasets" {
				members = atlas.SourceDatasets
			}
			if members.Contains(id) {
				atlases = append(atlases, atlas)
			}
		}
	}

	sort.Slice(atlases, func(i, j int) bool {
		if atlases[i].ShortName != atlases[j].ShortName {
			return atlases[i].ShortName < atlases[j].ShortName
		}
		return atlases[i].ID < atlases[j].ID
	})
	links := make([]models.AtlasLink, 0, len(atlases))
	for i := range atlases {
		links = append(links, atlases[i].Link())
	}
	return links, nil
}

// GetStudy 获取源研究
func (r *Repository) GetStudy(ctx context.Context, studyID string) (*models.SourceStudy, error) {
	var study models.SourceStudy
	if err := r.db.WithContext(ctx).First(&study, "id = ?", studyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntityNotFound
		}
		return nil, fmt.Errorf("查询源研究失败: %w", err)
	}
	return &study, nil
}

// GetStudyWithAtlasLinks 获取源研究及其所属图谱
func (r *Repository) GetStudyWithAtlasLinks(ctx context.Context, studyID string) (*models.SourceStudy, []models.AtlasLink, error) {
	study, err := r.GetStudy(ctx, studyID)
	if err != nil {
		return nil, nil, err
	}
	links, err := r.atlasesContaining(ctx, "source_studies", studyID)
	if err != nil {
		return nil, nil, err
	}
	return study, links, nil
}

// GetDatasetWithAtlasLinks 获取源数据集、所属源研究及所属图谱
func (r *Repository) GetDatasetWithAtlasLinks(ctx context.Context, datasetID string) (*models.SourceDataset, *models.SourceStudy, []models.AtlasLink, error) {
	var dataset models.SourceDataset
	if err := r.db.WithContext(ctx).First(&dataset, "id = ?", datasetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, ErrEntityNotFound
		}
		return nil, nil, nil, fmt.Errorf("查询源数据集失败: %w", err)
	}

	var study *models.SourceStudy
	if dataset.SourceStudyID != "" {
		s, err := r.GetStudy(ctx, dataset.SourceStudyID)
		if err != nil && !errors.Is(err, ErrEntityNotFound) {
			return nil, nil, nil, err
		}
		study = s
	}

	links, err := r.atlasesContaining(ctx, "source_datasets", datasetID)
	if err != nil {
		return nil, nil, nil, err
	}
	return &dataset, study, links, nil
}

// ListStudyIDs 获取全部源研究ID
func (r *Repository) ListStudyIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&models.SourceStudy{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("查询源研究ID失败: %w", err)
	}
	return ids, nil
}

// ListDatasetIDs 获取全部源数据集ID
func (r *Repository) ListDatasetIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&models.SourceDataset{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("查询源数据集ID失败: %w", err)
	}
	return ids, nil
}

// AutoMigrate 自动迁移全部模型
func (r *Repository) AutoMigrate() error {
	if err := r.db.AutoMigrate(models.AllModels()...); err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}
	return nil
}

func jsonArray(values ...string) string {
	bytes, _ := json.Marshal(values)
	return string(bytes)
}
