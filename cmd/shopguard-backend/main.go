package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shopguard-backend/internal/config"
	"shopguard-backend/internal/fanout"
	httpapi "shopguard-backend/internal/http"
	applog "shopguard-backend/internal/logger"
	"shopguard-backend/internal/mqtt"
	"shopguard-backend/internal/repository"
	"shopguard-backend/internal/service"
	"shopguard-backend/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger, err := applog.NewLogger(cfg.Log.Level, cfg.Log.Format, "shopguard-backend")
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// Redis：心跳 liveness + 事件流镜像；不可用时两者退化为 no-op
	var redisClient *redis.Client
	var kv store.KV
	var bridge *fanout.RedisBridge
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		kv = store.NewRedisKV(redisClient)
		bridge = fanout.NewRedisBridge(redisClient, "")
	}

	hub := fanout.NewHub(bridge, logger)

	// 存储层：DB 可用走 Postgres；否则内存 repo 支持联测
	var db *sql.DB
	var resolver repository.CameraResolver
	var detections repository.DetectionsRepo
	var alerts repository.AlertsRepo
	var stats repository.DailyStatsRepo
	var cameras repository.CamerasRepo

	if cfg.DBEnabled {
		if d, err := repository.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			logger.Info("DB enabled for shopguard-backend")
			// 未注册摄像头的事件落到 fallback location，行不存在时接入会撞 FK
			if err := repository.EnsureFallbackLocation(context.Background(), db, cfg.CV.FallbackLocationID); err != nil {
				logger.Error("Failed to ensure fallback location", zap.Error(err))
			}
		} else {
			logger.Warn("DB enabled but connection failed, falling back to memory repos", zap.Error(err))
		}
	}
	if db != nil {
		resolver = repository.NewPostgresCameraResolver(db, cfg.CV.FallbackLocationID)
		detections = repository.NewPostgresDetectionsRepository(db)
		alerts = repository.NewPostgresAlertsRepository(db)
		stats = repository.NewPostgresDailyStatsRepository(db)
		cameras = repository.NewPostgresCamerasRepository(db)
	} else {
		memResolver := repository.NewMemoryCameraResolver(cfg.CV.FallbackLocationID)
		events := repository.NewMemoryEventStore()
		resolver = memResolver
		detections = events
		alerts = events
		stats = repository.NewMemoryDailyStats()
		cameras = repository.NewMemoryCamerasRepo()
	}

	ingestService := service.NewIngestService(resolver, detections, alerts, stats, cameras, hub, kv, logger)
	alertService := service.NewAlertEventService(alerts, stats, logger)

	// 看板会话：生产部署由外部认证服务写入；dev 模式支持静态 token
	sessions := httpapi.NewSessionStore()
	if cfg.Dashboard.StaticToken != "" {
		sessions.AddToken(cfg.Dashboard.StaticToken, httpapi.Session{UserID: "dev-operator"})
	}
	if cfg.CV.APIKey == "" {
		logger.Warn("CV_API_KEY is empty, producer auth disabled (dev mode)")
	}

	router := httpapi.NewRouter(logger)
	router.RegisterCVRoutes(httpapi.NewCVIngestHandler(ingestService, httpapi.NewProducerAuth(cfg.CV.APIKey), logger))
	router.RegisterDashboardRoutes(httpapi.NewAlertHandler(alertService, sessions, logger))
	router.RegisterWSRoutes(httpapi.NewWSHandler(hub, sessions, logger))
	router.RegisterHealthRoutes()

	// 可选的 MQTT 上报通道
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		if c, err := mqtt.NewClient(&cfg.MQTT); err == nil {
			mqttClient = c
			broker := mqtt.NewCVBroker(ingestService, logger)
			if err := mqttClient.Subscribe(cfg.MQTT.Topic, 1, broker.HandleMessage); err != nil {
				logger.Error("Failed to subscribe to CV topic", zap.Error(err))
			} else {
				logger.Info("MQTT ingest channel enabled", zap.String("topic", cfg.MQTT.Topic))
			}
		} else {
			logger.Warn("MQTT enabled but connection failed", zap.Error(err))
		}
	}

	srv := service.NewServer(cfg.HTTP.Addr, router, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		cancel()
	case <-errCh:
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if mqttClient != nil {
		mqttClient.Disconnect()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if db != nil {
		_ = db.Close()
	}
}
