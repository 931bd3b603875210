package atlas_tracker

import (
	"atlas-tracker-service/catalog_client"
	"atlas-tracker-service/service/meta"
	"atlas-tracker-service/service/store"
	"atlas-tracker-service/service/validation"
	"context"
	"log/slog"
	"sort"
)

// NotUpdated 未更新的DOI，按当前任务状态分类
type NotUpdated struct {
	Blocked    []string `json:"blocked"`
	Done       []string `json:"done"`
	InProgress []string `json:"in_progress"`
	Todo       []string `json:"todo"`
}

// OverrideResult “处理中”标记结果
type OverrideResult struct {
	Updated    []string   `json:"updated"`
	NotFound   []string   `json:"not_found"`
	NotUpdated NotUpdated `json:"not_updated"`
}

// SetOverrideInProgress 将指定校验下、DOI匹配且任务状态为待处理的记录标记为处理中
func (s *Service) SetOverrideInProgress(ctx context.Context, validationID string, dois []string) (*OverrideResult, error) {
	if !meta.IsValidValidationID(validationID) {
		return nil, ErrInvalidValidationID
	}
	wanted := catalog_client.NormalizeDois(dois...)

	result := &OverrideResult{
		Updated:  []string{},
		NotFound: []string{},
		NotUpdated: NotUpdated{
			Blocked:    []string{},
			Done:       []string{},
			InProgress: []string{},
			Todo:       []string{},
		},
	}
	now := s.clock()

	err := store.NewRepository(s.db).WithTransaction(ctx, func(tx *store.Repository) error {
		records, err := tx.FindRecordsByValidationAndDois(ctx, validationID, wanted)
		if err != nil {
			return err
		}

		// 按调用方传入的DOI归类，一条记录可经由预印本DOI命中
		statuses := make(map[string]map[string]bool, len(wanted))
		for _, record := range records {
			status := record.TaskStatus()
			key := status
			if validation.CanOverrideInProgress(status) {
				if err := tx.SetTaskStatus(ctx, record.ID, meta.TaskStatusInProgress, now); err != nil {
					return err
				}
				key = "updated"
			}
			for _, doi := range wanted {
				if !record.MatchesDOI(doi) {
					continue
				}
				if statuses[doi] == nil {
					statuses[doi] = map[string]bool{}
				}
				statuses[doi][key] = true
			}
		}

		for _, doi := range wanted {
			seen, ok := statuses[doi]
			if !ok {
				result.NotFound = append(result.NotFound, doi)
				continue
			}
			switch {
			case seen["updated"]:
				result.Updated = append(result.Updated, doi)
			case seen[meta.TaskStatusInProgress]:
				result.NotUpdated.InProgress = append(result.NotUpdated.InProgress, doi)
			case seen[meta.TaskStatusBlocked]:
				result.NotUpdated.Blocked = append(result.NotUpdated.Blocked, doi)
			case seen[meta.TaskStatusDone]:
				result.NotUpdated.Done = append(result.NotUpdated.Done, doi)
			default:
				result.NotUpdated.Todo = append(result.NotUpdated.Todo, doi)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, list := range [][]string{result.Updated, result.NotFound, result.NotUpdated.Blocked, result.NotUpdated.Done, result.NotUpdated.InProgress, result.NotUpdated.Todo} {
		sort.Strings(list)
	}
	slog.Info("处理中标记完成",
		"validation_id", validationID,
		"updated", len(result.Updated),
		"not_found", len(result.NotFound))
	return result, nil
}
