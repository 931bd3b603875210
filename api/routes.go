/*
 * @module api/routes
 * @description API路由配置模块，负责初始化和配置所有HTTP路由
 * @architecture RESTful API架构
 * @documentReference DESIGN.md
 * @stateFlow 无状态HTTP请求处理
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/cors, github.com/go-chi/render
 * @refs api/controllers, service/atlas_tracker
 */

package api

import (
	"atlas-tracker-service/api/controllers"
	"atlas-tracker-service/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
)

// InitRoute 初始化所有API路由
func InitRoute(r *chi.Mux) {
	// 基础中间件
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	// CORS配置
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// 健康检查
	healthController := controllers.NewHealthController(service.DB)
	r.Get("/health", healthController.Health)
	r.Get("/ready", healthController.Ready)

	// 元数据
	r.Route("/meta", func(r chi.Router) {
		metaController := controllers.NewMetaController()
		r.Get("/task-statuses", metaController.GetTaskStatuses)
		r.Get("/systems", metaController.GetSystems)
		r.Get("/refresh-activities", metaController.GetRefreshActivities)
		r.Get("/validations", metaController.GetValidations)
	})

	RegisterAtlasTrackerRoutes(r, controllers.NewAtlasTrackerController(service.GlobalAtlasTrackerService))
}

// RegisterAtlasTrackerRoutes 注册图谱跟踪相关路由
func RegisterAtlasTrackerRoutes(r chi.Router, c *controllers.AtlasTrackerController) {
	// 目录刷新
	r.Route("/refresh", func(r chi.Router) {
		r.Post("/", c.RefreshAll)
		r.Get("/statuses", c.GetStatuses)
	})

	// 实体校验
	r.Route("/entities/{entity_type}/{entity_id}", func(r chi.Router) {
		r.Post("/reconcile", c.ReconcileEntity)
		r.Get("/findings", c.GetFindings)
	})

	r.Post("/validations/{validation_id}/in-progress", c.SetInProgress)
	r.Get("/atlases/{atlas_id}/task-counts", c.GetAtlasTaskCounts)
}
