/*
 * @module api/controllers/atlas_tracker_controller
 * @description 图谱跟踪控制器：全量刷新、目录刷新状态、单实体对账、校验结果预览、“处理中”标记与图谱任务统计
 * @architecture MVC架构 - 控制器层
 * @documentReference DESIGN.md
 * @stateFlow HTTP请求 -> 参数校验 -> 调用图谱跟踪服务 -> 统一响应
 * @rules 参数错误返回400，实体不存在返回404，其余错误返回500
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs service/atlas_tracker
 */

package controllers

import (
	"atlas-tracker-service/service/atlas_tracker"
	"atlas-tracker-service/service/catalog_cache"
	"atlas-tracker-service/service/models"
	"atlas-tracker-service/service/reconciliation"
	"atlas-tracker-service/service/store"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// AtlasTracker 图谱跟踪服务对外操作
type AtlasTracker interface {
	RefreshAll(ctx context.Context) (*atlas_tracker.RevalidationReport, error)
	GetCurrentStatuses() map[string]catalog_cache.RefreshStatus
	ReconcileEntity(ctx context.Context, entityType, entityID string) (*reconciliation.ChangeSet, error)
	ComputeFindings(ctx context.Context, entityType, entityID string) ([]models.Finding, error)
	SetOverrideInProgress(ctx context.Context, validationID string, dois []string) (*atlas_tracker.OverrideResult, error)
	GetAtlasTaskCounts(ctx context.Context, atlasID string) (models.TaskCountSummary, error)
}

// InProgressRequest “处理中”标记请求
type InProgressRequest struct {
	DOIs []string `json:"dois"`
}

// AtlasTrackerController 图谱跟踪控制器
type AtlasTrackerController struct {
	tracker AtlasTracker
}

// NewAtlasTrackerController 创建图谱跟踪控制器
func NewAtlasTrackerController(tracker AtlasTracker) *AtlasTrackerController {
	return &AtlasTrackerController{tracker: tracker}
}

// RefreshAll 刷新全部外部目录并重新校验所有实体
// @Summary 全量刷新
// @Tags 图谱跟踪
// @Produce json
// @Success 200 {object} APIResponse{data=atlas_tracker.RevalidationReport}
// @Failure 500 {object} APIResponse
// @Router /refresh [post]
func (c *AtlasTrackerController) RefreshAll(w http.ResponseWriter, r *http.Request) {
	report, err := c.tracker.RefreshAll(r.Context())
	if err != nil {
		c.renderError(w, r, "全量刷新失败", err)
		return
	}
	if report.Skipped {
		render.JSON(w, r, SuccessResponse("其他实例正在执行全量校验，本次跳过", report))
		return
	}
	render.JSON(w, r, SuccessResponse("全量刷新完成", report))
}

// GetStatuses 获取各外部目录的刷新状态
// @Summary 目录刷新状态
// @Tags 图谱跟踪
// @Produce json
// @Success 200 {object} APIResponse{data=map[string]catalog_cache.RefreshStatus}
// @Router /refresh/statuses [get]
func (c *AtlasTrackerController) GetStatuses(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, SuccessResponse("获取刷新状态成功", c.tracker.GetCurrentStatuses()))
}

// ReconcileEntity 重新校验单个实体
// @Summary 单实体对账
// @Tags 图谱跟踪
// @Produce json
// @Param entity_type path string true "实体类型" Enums(SOURCE_STUDY,SOURCE_DATASET)
// @Param entity_id path string true "实体ID"
// @Success 200 {object} APIResponse{data=reconciliation.ChangeSet}
// @Failure 400 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /entities/{entity_type}/{entity_id}/reconcile [post]
func (c *AtlasTrackerController) ReconcileEntity(w http.ResponseWriter, r *http.Request) {
	entityType, entityID := entityParams(r)
	changes, err := c.tracker.ReconcileEntity(r.Context(), entityType, entityID)
	if err != nil {
		c.renderError(w, r, "实体对账失败", err)
		return
	}
	render.JSON(w, r, SuccessResponse("实体对账完成", changes))
}

// GetFindings 预览实体当前的校验结果
// @Summary 校验结果预览
// @Tags 图谱跟踪
// @Produce json
// @Param entity_type path string true "实体类型" Enums(SOURCE_STUDY,SOURCE_DATASET)
// @Param entity_id path string true "实体ID"
// @Success 200 {object} APIResponse{data=[]models.Finding}
// @Failure 400 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /entities/{entity_type}/{entity_id}/findings [get]
func (c *AtlasTrackerController) GetFindings(w http.ResponseWriter, r *http.Request) {
	entityType, entityID := entityParams(r)
	findings, err := c.tracker.ComputeFindings(r.Context(), entityType, entityID)
	if err != nil {
		c.renderError(w, r, "计算校验结果失败", err)
		return
	}
	render.JSON(w, r, SuccessResponse("计算校验结果成功", findings))
}

// SetInProgress 将指定校验下DOI匹配的待处理任务标记为处理中
// @Summary “处理中”标记
// @Tags 图谱跟踪
// @Accept json
// @Produce json
// @Param validation_id path string true "校验ID"
// @Param request body InProgressRequest true "DOI列表"
// @Success 200 {object} APIResponse{data=atlas_tracker.OverrideResult}
// @Failure 400 {object} APIResponse
// @Router /validations/{validation_id}/in-progress [post]
func (c *AtlasTrackerController) SetInProgress(w http.ResponseWriter, r *http.Request) {
	var req InProgressRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse(http.StatusBadRequest, "请求参数格式错误", err))
		return
	}
	if len(req.DOIs) == 0 {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, BadRequestResponse("DOI列表不能为空", nil))
		return
	}

	result, err := c.tracker.SetOverrideInProgress(r.Context(), chi.URLParam(r, "validation_id"), req.DOIs)
	if err != nil {
		c.renderError(w, r, "标记处理中失败", err)
		return
	}
	render.JSON(w, r, SuccessResponse("标记处理中完成", result))
}

// GetAtlasTaskCounts 重算并返回图谱任务统计
// @Summary 图谱任务统计
// @Tags 图谱跟踪
// @Produce json
// @Param atlas_id path string true "图谱ID"
// @Success 200 {object} APIResponse{data=models.TaskCountSummary}
// @Failure 404 {object} APIResponse
// @Router /atlases/{atlas_id}/task-counts [get]
func (c *AtlasTrackerController) GetAtlasTaskCounts(w http.ResponseWriter, r *http.Request) {
	summary, err := c.tracker.GetAtlasTaskCounts(r.Context(), chi.URLParam(r, "atlas_id"))
	if err != nil {
		c.renderError(w, r, "获取图谱任务统计失败", err)
		return
	}
	render.JSON(w, r, SuccessResponse("获取图谱任务统计成功", summary))
}

func (c *AtlasTrackerController) renderError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch {
	case errors.Is(err, atlas_tracker.ErrInvalidEntityType), errors.Is(err, atlas_tracker.ErrInvalidValidationID):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse(http.StatusBadRequest, msg+": "+err.Error(), err))
	case errors.Is(err, store.ErrEntityNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, NotFoundResponse(msg+": "+err.Error()))
	default:
		slog.Error(msg, "path", r.URL.Path, "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse(http.StatusInternalServerError, msg+": "+err.Error(), err))
	}
}

// entityParams 路径中的实体类型不区分大小写，允许使用连字符
func entityParams(r *http.Request) (string, string) {
	entityType := strings.ToUpper(strings.ReplaceAll(chi.URLParam(r, "entity_type"), "-", "_"))
	return entityType, chi.URLParam(r, "entity_id")
}
