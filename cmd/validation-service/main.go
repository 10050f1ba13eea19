package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codecheck/internal/common/cache"
	commonmw "codecheck/internal/common/http/middleware"
	"codecheck/internal/common/mq"
	"codecheck/internal/common/storage"
	"codecheck/internal/execution"
	"codecheck/internal/execution/judge0"
	"codecheck/internal/validation"
	"codecheck/internal/validation/controller"
	"codecheck/internal/validation/repository"
	"codecheck/internal/validation/service"
	"codecheck/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultConfigPath = "configs/validation_service.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		return
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	judgeClient, err := judge0.New(appCfg.Judge)
	if err != nil {
		logger.Error(context.Background(), "init judge client failed", zap.Error(err))
		return
	}
	poller := execution.NewPoller(judgeClient, appCfg.Poller.MaxAttempts, appCfg.Poller.Interval)

	pingers := map[string]controller.Pinger{}
	var gatewayOpts []execution.GatewayOption
	if appCfg.Redis.Addr != "" {
		redisCache, err := cache.NewRedisCacheWithConfig(&appCfg.Redis)
		if err != nil {
			logger.Error(context.Background(), "init redis failed", zap.Error(err))
			return
		}
		defer func() {
			_ = redisCache.Close()
		}()
		gatewayOpts = append(gatewayOpts, execution.WithOutcomeCache(redisCache, appCfg.Cache.OutcomeTTL))
		pingers["redis"] = redisCache
	}
	runner := execution.NewGateway(judgeClient, poller, gatewayOpts...)

	var publisher repository.VerdictEventPublisher
	if len(appCfg.Kafka.Brokers) > 0 {
		producer, err := mq.NewKafkaProducer(appCfg.Kafka.KafkaConfig)
		if err != nil {
			logger.Error(context.Background(), "init kafka failed", zap.Error(err))
			return
		}
		defer func() {
			_ = producer.Close()
		}()
		publisher = repository.NewMQVerdictEventPublisher(producer, appCfg.Kafka.VerdictTopic)
		pingers["kafka"] = producer
	}

	var objStorage storage.ObjectStorage
	if appCfg.MinIO.Endpoint != "" {
		minioStorage, err := storage.NewMinIOStorage(appCfg.MinIO)
		if err != nil {
			logger.Error(context.Background(), "init minio failed", zap.Error(err))
			return
		}
		objStorage = minioStorage
	}

	orchestrator := validation.NewOrchestrator(validation.Config{
		Runner:             runner,
		Workers:            appCfg.Validation.Workers,
		BatchTimeout:       appCfg.Validation.BatchTimeout,
		StrictRequirements: appCfg.Validation.StrictRequirements,
	})

	validationSvc, err := service.NewValidationService(service.Config{
		Orchestrator:   orchestrator,
		Runner:         runner,
		Storage:        objStorage,
		Publisher:      publisher,
		SourceBucket:   appCfg.Source.Bucket,
		ArchiveBucket:  appCfg.Archive.Bucket,
		MaxSourceBytes: appCfg.Source.MaxBytes,
		StorageTimeout: appCfg.Source.Timeout,
	})
	if err != nil {
		logger.Error(context.Background(), "init validation service failed", zap.Error(err))
		return
	}

	httpServer := buildHTTPServer(appCfg.Server, validationSvc, pingers)
	listener, err := net.Listen("tcp", appCfg.Server.Addr)
	if err != nil {
		logger.Error(context.Background(), "init http listener failed", zap.Error(err))
		return
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(context.Background(), "validation http server started", zap.String("addr", appCfg.Server.Addr))
		errCh <- httpServer.Serve(listener)
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "http server stopped", zap.Error(err))
		}
	case <-shutdownCtx.Done():
		logger.Info(context.Background(), "shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error(context.Background(), "http server shutdown failed", zap.Error(err))
	}
}

func buildHTTPServer(cfg ServerConfig, svc *service.ValidationService, pingers map[string]controller.Pinger) *http.Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(commonmw.TraceContextMiddleware())
	router.Use(requestLogger())

	validationController := controller.NewValidationController(svc, pingers)
	validationController.RegisterRoutes(router)

	return &http.Server{
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		logger.Info(
			c.Request.Context(),
			"request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
