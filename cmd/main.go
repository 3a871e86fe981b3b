package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"task-service/internal/cache"
	"task-service/internal/config"
	"task-service/internal/handler"
	"task-service/internal/httpserver"
	"task-service/internal/repository"
	"task-service/pkg/db"
	"task-service/pkg/logger"
	"task-service/pkg/mq"
	"task-service/pkg/redis"
)

func main() {
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting task-service...",
		zap.String("db_host", cfg.DB.Host),
		zap.Int("db_port", cfg.DB.Port),
		zap.String("server_port", cfg.Server.Port),
	)

	// DB
	log.Info("Initializing database connection...")
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()
	log.Info("Database connection established successfully")

	taskRepo := repository.NewTaskRepository(dbConn, log)
	if err := taskRepo.EnsureSchema(context.Background()); err != nil {
		log.Fatal("Failed to ensure schema", zap.Error(err))
	}

	// Redis task list cache (optional)
	var taskCache handler.TaskCache
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(cfg.Redis)
		defer rdb.Close()
		taskCache = cache.NewTaskListCache(rdb, 30*time.Second, log)
		log.Info("Task list cache enabled", zap.String("redis_addr", cfg.Redis.Addr))
	} else {
		log.Info("REDIS_ADDR not set, task list cache disabled")
	}

	// MQ publisher (optional)
	var events handler.EventPublisher
	var publisher *mq.Publisher
	if cfg.MQ.URL != "" {
		publisher, err = mq.NewPublisher(cfg.MQ.URL, log)
		if err != nil {
			log.Warn("Failed to init MQ publisher, events disabled", zap.Error(err))
		} else {
			defer publisher.Close()
			events = publisher
		}
	} else {
		log.Info("MQ_URL not set, event publishing disabled")
	}

	// HTTP Server
	log.Info("Initializing HTTP server...", zap.String("port", cfg.Server.Port))
	taskHandler := handler.NewTaskHandler(taskRepo, taskCache, events, log)
	router := httpserver.NewRouter(taskHandler, log, dbConn, publisher)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("task-service is fully initialized and running",
		zap.String("http_port", cfg.Server.Port),
	)

	// 优雅退出处理
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down task-service gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	log.Info("task-service shutdown complete")
}
