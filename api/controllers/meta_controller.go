package controllers

import (
	"atlas-tracker-service/service/meta"
	"net/http"

	"github.com/go-chi/render"
)

type MetaController struct {
}

func NewMetaController() *MetaController {
	return &MetaController{}
}

// @Summary 获取任务状态元数据
// @Description 获取校验记录任务状态及其显示名称
// @Tags 元数据
// @Produce json
// @Success 200 {object} APIResponse{data=[]meta.MetaField}
// @Router /meta/task-statuses [get]
func (c *MetaController) GetTaskStatuses(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, SuccessResponse("获取任务状态元数据成功", meta.TaskStatuses))
}

// @Summary 获取外部系统元数据
// @Description 获取任务统计使用的外部系统列表
// @Tags 元数据
// @Produce json
// @Success 200 {object} APIResponse{data=[]meta.MetaField}
// @Router /meta/systems [get]
func (c *MetaController) GetSystems(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, SuccessResponse("获取外部系统元数据成功", meta.SystemTypes))
}

// @Summary 获取目录刷新活动元数据
// @Description 获取外部目录刷新活动状态
// @Tags 元数据
// @Produce json
// @Success 200 {object} APIResponse{data=[]meta.MetaField}
// @Router /meta/refresh-activities [get]
func (c *MetaController) GetRefreshActivities(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, SuccessResponse("获取刷新活动元数据成功", meta.RefreshActivities))
}

// @Summary 获取校验ID元数据
// @Description 按实体类型获取校验ID，顺序即校验结果的输出顺序
// @Tags 元数据
// @Produce json
// @Success 200 {object} APIResponse{data=map[string][]string}
// @Router /meta/validations [get]
func (c *MetaController) GetValidations(w http.ResponseWriter, r *http.Request) {
	validations := map[string][]string{
		meta.EntityTypeSourceStudy:   meta.SourceStudyValidationIDs,
		meta.EntityTypeSourceDataset: meta.SourceDatasetValidationIDs,
	}
	render.JSON(w, r, SuccessResponse("获取校验ID元数据成功", validations))
}
