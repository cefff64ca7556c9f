package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/pkg/cache"
	"github.com/wyfcoding/pkg/config"
	"github.com/wyfcoding/pkg/database"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/pkg/messagequeue/kafka"
	"github.com/wyfcoding/pkg/messagequeue/outbox"
	"github.com/wyfcoding/pkg/metrics"
	"golang.org/x/sync/errgroup"

	"github.com/wyfcoding/marketplace/internal/admin/application"
	admindomain "github.com/wyfcoding/marketplace/internal/admin/domain"
	adminmessaging "github.com/wyfcoding/marketplace/internal/admin/infrastructure/messaging"
	adminmysql "github.com/wyfcoding/marketplace/internal/admin/infrastructure/persistence/mysql"
	adminhttp "github.com/wyfcoding/marketplace/internal/admin/interfaces/http"
	analyticsapp "github.com/wyfcoding/marketplace/internal/analytics/application"
	analyticsmysql "github.com/wyfcoding/marketplace/internal/analytics/infrastructure/persistence/mysql"
	analyticshttp "github.com/wyfcoding/marketplace/internal/analytics/interfaces/http"
	marketcache "github.com/wyfcoding/marketplace/pkg/cache"
	marketmetrics "github.com/wyfcoding/marketplace/pkg/metrics"
	"github.com/wyfcoding/marketplace/pkg/middleware"
)

var configPath = flag.String("config", "configs/admin/config.toml", "config file path")

func main() {
	flag.Parse()

	// 1. 配置
	var cfg config.Config
	if err := config.Load(*configPath, &cfg); err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 2. 日志
	logCfg := &logging.Config{Service: cfg.Server.Name, Level: cfg.Log.Level}
	logger := logging.NewFromConfig(logCfg)
	slog.SetDefault(logger.Logger)

	// 3. 指标
	metricsImpl := metrics.NewMetrics(cfg.Server.Name)
	bizMetrics := marketmetrics.New("admin")

	// 4. 数据库
	db, err := database.NewDB(cfg.Data.Database, cfg.CircuitBreaker, logger, metricsImpl)
	if err != nil {
		slog.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	if cfg.Server.Environment == "dev" {
		if err := db.RawDB().AutoMigrate(
			&admindomain.PlatformSettings{},
			&outbox.Message{},
		); err != nil {
			slog.Error("failed to migrate database", "error", err)
		}
	}

	// 5. Kafka & Outbox
	kafkaProducer := kafka.NewProducer(&cfg.MessageQueue.Kafka, logger, metricsImpl)
	outboxMgr := outbox.NewManager(db.RawDB(), logger.Logger)
	pusher := func(ctx context.Context, topic, key string, payload []byte) error {
		return kafkaProducer.PublishToTopic(ctx, topic, []byte(key), payload)
	}
	outboxProcessor := outbox.NewProcessor(outboxMgr, pusher, 100, 2*time.Second)

	// 6. Redis
	var store marketcache.Store
	redisCache, err := cache.NewRedisCache(&cfg.Data.Redis, cfg.CircuitBreaker, logger, metricsImpl)
	if err != nil {
		slog.Error("failed to init redis, falling back to in-process cache", "error", err)
		store = marketcache.NewMemory()
	} else {
		store = marketcache.NewRedis(redisCache.GetClient())
	}

	// 7. 应用服务
	settingsRepo := adminmysql.NewSettingsRepository(db.RawDB())
	publisher := adminmessaging.NewOutboxPublisher(outboxMgr)
	adminSvc := application.NewAdminService(settingsRepo, store, publisher)

	analyticsRepo := analyticsmysql.NewAnalyticsRepository(db.RawDB())
	analyticsSvc := analyticsapp.NewAnalyticsService(analyticsRepo, store)

	// 8. 接口层
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.RequestLogging(), middleware.Recovery())
	r.GET("/metrics", gin.WrapH(bizMetrics.Handler()))
	api := r.Group("/api")
	adminhttp.NewAdminHandler(adminSvc).RegisterRoutes(api)
	analyticshttp.NewAnalyticsHandler(analyticsSvc).RegisterRoutes(api)

	// 9. 启动
	g, ctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		outboxProcessor.Start()
		<-ctx.Done()
		outboxProcessor.Stop()
		return nil
	})

	server := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Server.HTTP.Port), Handler: r}
	g.Go(func() error {
		slog.Info("HTTP server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
			slog.Info("shutting down servers...")
		case <-ctx.Done():
			slog.Info("context cancelled, shutting down...")
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server exited with error", "error", err)
	}
}
