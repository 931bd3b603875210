package main

import (
	"atlas-tracker-service/api"
	_ "atlas-tracker-service/docs"
	"atlas-tracker-service/service"
	"log"
	"net/http"
	"strconv"

	daprd "github.com/dapr/go-sdk/service/http"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title 图谱跟踪服务 API
// @version 1.0
// @description 外部目录快照缓存、源研究与源数据集校验、校验记录对账与图谱任务统计
// @BasePath /swagger/atlas-tracker-service
func main() {
	defer service.Shutdown()

	port := service.Config.Server.Port
	baseContext := service.Config.Server.BaseContext

	mux := chi.NewRouter()

	// 如果有BASE_CONTEXT，则在该路径下挂载所有路由
	if baseContext != "" {
		mux.Route(baseContext, func(r chi.Router) {
			subMux := r.(*chi.Mux)
			api.InitRoute(subMux)
			r.Handle("/metrics", promhttp.Handler())
			r.Handle("/swagger*", httpSwagger.WrapHandler)
		})
	} else {
		api.InitRoute(mux)
		mux.Handle("/metrics", promhttp.Handler())
		mux.Handle("/swagger*", httpSwagger.WrapHandler)
	}

	s := daprd.NewServiceWithMux(":"+strconv.Itoa(port), mux)
	if err := s.Start(); err != nil && err != http.ErrServerClosed {
		log.Printf("error: %v", err)
	}
}
