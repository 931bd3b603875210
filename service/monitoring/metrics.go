/*
 * @module service/monitoring/metrics
 * @description Prometheus 指标：外部目录刷新、实体对账、图谱任务统计
 * @architecture 横切关注点 - 可观测性
 * @documentReference DESIGN.md
 * @stateFlow 刷新/对账/统计完成 -> 更新指标 -> /metrics 暴露
 * @rules 指标在包初始化时注册到默认注册表
 * @dependencies github.com/prometheus/client_golang
 * @refs main.go, service/atlas_tracker
 */

package monitoring

import (
	"atlas-tracker-service/service/catalog_cache"
	"atlas-tracker-service/service/meta"
	"atlas-tracker-service/service/models"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	catalogRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atlas_tracker_catalog_refresh_total",
		Help: "外部目录刷新次数，按目录与结果分组",
	}, []string{"catalog", "outcome"})

	catalogRefreshDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "atlas_tracker_catalog_refresh_duration_seconds",
		Help:    "外部目录刷新耗时",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
	}, []string{"catalog"})

	catalogRefreshing = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "atlas_tracker_catalog_refreshing",
		Help: "外部目录是否正在刷新（1为刷新中）",
	}, []string{"catalog"})

	catalogLastResolved = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "atlas_tracker_catalog_last_resolved_timestamp_seconds",
		Help: "外部目录最近一次成功刷新的时间",
	}, []string{"catalog"})

	reconcileChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atlas_tracker_reconcile_changes_total",
		Help: "对账写入的校验记录数，按变更类型分组",
	}, []string{"entity_type", "change"})

	reconcileErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atlas_tracker_reconcile_errors_total",
		Help: "对账失败次数",
	}, []string{"entity_type"})

	revalidationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "atlas_tracker_revalidation_duration_seconds",
		Help:    "全量重新校验耗时",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})

	atlasTasks = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "atlas_tracker_atlas_tasks",
		Help: "图谱任务数量，state 为 total 或 completed",
	}, []string{"atlas_id", "system", "state"})
)

// ObserveRefresh 记录一次目录刷新结果，可直接作为缓存的刷新观察者
func ObserveRefresh(catalog, outcome string, duration time.Duration) {
	catalogRefreshTotal.WithLabelValues(catalog, outcome).Inc()
	catalogRefreshDuration.WithLabelValues(catalog).Observe(duration.Seconds())
}

var _ catalog_cache.RefreshObserver = ObserveRefresh

// RecordStatuses 同步目录刷新状态
func RecordStatuses(statuses map[string]catalog_cache.RefreshStatus) {
	for catalog, status := range statuses {
		refreshing := 0.0
		if status.CurrentActivity != meta.RefreshActivityNotRefreshing {
			refreshing = 1
		}
		catalogRefreshing.WithLabelValues(catalog).Set(refreshing)
		if status.LastResolvedAt != nil {
			catalogLastResolved.WithLabelValues(catalog).Set(float64(status.LastResolvedAt.Unix()))
		}
	}
}

// RecordReconcile 记录对账变更数量
func RecordReconcile(entityType string, inserted, updated, deleted int) {
	reconcileChanges.WithLabelValues(entityType, "inserted").Add(float64(inserted))
	reconcileChanges.WithLabelValues(entityType, "updated").Add(float64(updated))
	reconcileChanges.WithLabelValues(entityType, "deleted").Add(float64(deleted))
}

// RecordReconcileError 记录对账失败
func RecordReconcileError(entityType string) {
	reconcileErrors.WithLabelValues(entityType).Inc()
}

// RecordRevalidation 记录全量重新校验耗时
func RecordRevalidation(duration time.Duration) {
	revalidationDuration.Observe(duration.Seconds())
}

// RecordTaskCounts 记录各图谱的任务统计
func RecordTaskCounts(summaries map[string]models.TaskCountSummary) {
	for atlasID, summary := range summaries {
		atlasTasks.WithLabelValues(atlasID, "all", "total").Set(float64(summary.TaskCount))
		atlasTasks.WithLabelValues(atlasID, "all", "completed").Set(float64(summary.CompletedTaskCount))
		for system, counts := range summary.SystemTaskCounts {
			atlasTasks.WithLabelValues(atlasID, system, "total").Set(float64(counts.Count))
			atlasTasks.WithLabelValues(atlasID, system, "completed").Set(float64(counts.CompletedCount))
		}
	}
}
