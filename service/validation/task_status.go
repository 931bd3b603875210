package validation

import (
	"atlas-tracker-service/service/meta"
	"atlas-tracker-service/service/models"
)

// DeriveTaskStatus 由校验状态推导任务状态
func DeriveTaskStatus(validationStatus string) string {
	switch validationStatus {
	case meta.ValidationStatusPassed:
		return meta.TaskStatusDone
	case meta.ValidationStatusBlocked:
		return meta.TaskStatusBlocked
	default:
		return meta.TaskStatusTodo
	}
}

// ApplyTaskStatusOverride 应用持久化记录中的“处理中”覆盖
// 仅当新结果仍为待处理时保留处理中；被阻塞与已完成始终优先
func ApplyTaskStatusOverride(finding *models.Finding, persistedTaskStatus string) {
	if persistedTaskStatus != meta.TaskStatusInProgress {
		return
	}
	if finding.ValidationStatus == meta.ValidationStatusFailed && finding.TaskStatus == meta.TaskStatusTodo {
		finding.TaskStatus = meta.TaskStatusInProgress
	}
}

// CanOverrideInProgress 判断记录当前任务状态是否允许标记为处理中
func CanOverrideInProgress(taskStatus string) bool {
	return taskStatus == meta.TaskStatusTodo
}
