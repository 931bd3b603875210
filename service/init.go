/*
 * @module service/init
 * @description 服务初始化模块，负责配置加载、数据库连接、外部目录缓存与各服务的装配
 * @architecture 分层架构 - 服务层
 * @documentReference DESIGN.md
 * @stateFlow 加载配置 -> 连接数据库 -> 迁移 -> 装配服务 -> 启动调度与监听
 * @rules 数据库不可用时直接退出；Redis、Kafka、变更监听为可选组件，失败只记录日志
 * @dependencies gorm.io/gorm, gorm.io/driver/postgres, github.com/spf13/cast
 * @refs api/routes, main.go
 */

package service

import (
	"atlas-tracker-service/catalog_client"
	"atlas-tracker-service/client/connectors"
	"atlas-tracker-service/logger"
	"atlas-tracker-service/service/atlas_tracker"
	"atlas-tracker-service/service/catalog_cache"
	"atlas-tracker-service/service/config"
	"atlas-tracker-service/service/distributed_lock"
	"atlas-tracker-service/service/event"
	"atlas-tracker-service/service/monitoring"
	"atlas-tracker-service/service/rate_limiter"
	"atlas-tracker-service/service/reconciliation"
	"atlas-tracker-service/service/scheduler"
	"atlas-tracker-service/service/store"
	"atlas-tracker-service/service/validation"
	"context"
	"log"
	"log/slog"

	"github.com/spf13/cast"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	Config                    *config.Config
	DB                        *gorm.DB
	GlobalCatalogs            *catalog_cache.Catalogs
	GlobalAtlasTrackerService *atlas_tracker.Service
	GlobalSchedulerService    *scheduler.SchedulerService
	GlobalEventService        *event.EventService

	redisLock      *distributed_lock.RedisLock
	kafkaConnector *connectors.KafkaConnector
)

func init() {
	loadConfig()
	initDatabase()
	runMigrations()
	initServices()
}

// loadConfig 加载配置并初始化日志
func loadConfig() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	Config = cfg
	logger.InitLogger(cfg.LogLevel)
}

// initDatabase 初始化数据库连接
func initDatabase() {
	var err error
	DB, err = gorm.Open(postgres.Open(Config.Database.DSN()), &gorm.Config{})
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	slog.Info("数据库连接成功")
}

// runMigrations 运行数据库迁移
func runMigrations() {
	slog.Info("开始运行数据库迁移...")

	if err := store.NewRepository(DB).AutoMigrate(); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}
	slog.Info("数据库表结构迁移完成")
}

// initServices 初始化服务
func initServices() {
	hca := catalog_client.NewHCAClient(Config.Catalogs.HCAURL)
	cellxgene := catalog_client.NewCellxGeneClient(Config.Catalogs.CellxGeneURL)
	crossref := catalog_client.NewCrossrefClient(Config.Catalogs.CrossrefURL)

	GlobalCatalogs = catalog_cache.NewCatalogs(hca, cellxgene, catalog_cache.Options{
		Quiescence:      Config.Catalogs.Quiescence,
		RefreshInterval: Config.Catalogs.RefreshInterval,
		FetchTimeout:    Config.Catalogs.FetchTimeout,
		Observer:        monitoring.ObserveRefresh,
	})

	opts := atlas_tracker.Options{LockTTL: Config.Redis.LockTTL}
	if locker := initLocker(); locker != nil {
		opts.Locker = locker
	}
	if notifier := initNotifier(); notifier != nil {
		opts.Notifier = notifier
	}

	validator := validation.NewValidator(GlobalCatalogs, publicationFetcher(crossref), validation.Config{
		TitleSimilarityThreshold: Config.Validation.TitleSimilarityThreshold,
		MinMetadataTier:          Config.Validation.MinMetadataTier,
	})
	// 评论线程子系统不在本服务内，孤立线程ID随变更通知发出
	engine := reconciliation.NewEngine(DB, nil)

	GlobalAtlasTrackerService = atlas_tracker.NewService(DB, GlobalCatalogs, validator, engine, opts)

	initScheduler()
	initEventListener()

	// 预热目录缓存，加载完成后自动触发全量重新校验
	GlobalCatalogs.EnsureFresh(context.Background())

	slog.Info("服务初始化完成")
}

// initLocker 初始化分布式锁，未配置或连接失败时返回 nil
func initLocker() *distributed_lock.LockExecutor {
	if !Config.Redis.Enabled() {
		slog.Info("未配置Redis，全量重新校验仅在本实例内互斥")
		return nil
	}

	lock, err := distributed_lock.NewRedisLock(distributed_lock.RedisConfig{
		Host:      Config.Redis.Host,
		Port:      cast.ToString(Config.Redis.Port),
		Password:  Config.Redis.Password,
		DB:        Config.Redis.DB,
		KeyPrefix: Config.Redis.KeyPrefix,
	})
	if err != nil {
		slog.Error("初始化分布式锁失败，全量重新校验仅在本实例内互斥", "error", err)
		return nil
	}
	redisLock = lock
	return distributed_lock.NewLockExecutor(lock, Config.Redis.RenewInterval)
}

// publicationFetcher Redis 可用且配置了配额时，Crossref 查询在多实例间共享限流
func publicationFetcher(crossref *catalog_client.CrossrefClient) validation.PublicationFetcher {
	if redisLock == nil || Config.Catalogs.CrossrefRateLimit <= 0 {
		return crossref
	}
	limiter := rate_limiter.NewRedisRateLimiter(redisLock.Client(), "")
	return rate_limiter.NewThrottledFetcher(crossref, limiter, rate_limiter.RateLimitRule{
		Name:        "crossref",
		Window:      Config.Catalogs.CrossrefRateWindow,
		MaxRequests: Config.Catalogs.CrossrefRateLimit,
	})
}

// initNotifier 初始化校验变更通知，未配置时返回 nil
func initNotifier() *connectors.KafkaConnector {
	if !Config.Kafka.Enabled() {
		return nil
	}

	connector, err := connectors.NewKafkaConnector(connectors.KafkaConfig{
		Brokers: Config.Kafka.Brokers,
		Topic:   Config.Kafka.Topic,
	})
	if err != nil {
		slog.Error("初始化Kafka通知失败", "error", err)
		return nil
	}
	kafkaConnector = connector
	return connector
}

// initScheduler 启动定时全量刷新
func initScheduler() {
	if Config.Scheduler.RefreshCron == "" {
		slog.Info("未配置刷新计划，定时全量刷新关闭")
		return
	}

	s, err := scheduler.NewSchedulerService(Config.Scheduler.RefreshCron, Config.Scheduler.RefreshTimeout,
		func(ctx context.Context) error {
			_, err := GlobalAtlasTrackerService.RefreshAll(ctx)
			return err
		})
	if err != nil {
		slog.Error("创建调度器服务失败", "error", err)
		return
	}
	GlobalSchedulerService = s
	GlobalSchedulerService.Start()
}

// initEventListener 启动源实体变更监听
func initEventListener() {
	if !Config.Listener.Enabled {
		return
	}

	GlobalEventService = event.NewEventService(DB, GlobalAtlasTrackerService)
	if err := GlobalEventService.Start(Config.Database.DSN()); err != nil {
		slog.Error("启动源实体变更监听失败", "error", err)
		GlobalEventService = nil
	}
}

// Shutdown 停止后台任务并释放连接
func Shutdown() {
	if GlobalSchedulerService != nil {
		GlobalSchedulerService.Stop()
	}
	if GlobalEventService != nil {
		GlobalEventService.Stop()
	}
	if kafkaConnector != nil {
		if err := kafkaConnector.Close(); err != nil {
			slog.Warn("关闭Kafka连接失败", "error", err)
		}
	}
	if redisLock != nil {
		if err := redisLock.Close(); err != nil {
			slog.Warn("关闭Redis连接失败", "error", err)
		}
	}
	if sqlDB, err := DB.DB(); err == nil {
		sqlDB.Close()
	}
	slog.Info("服务已停止")
}
