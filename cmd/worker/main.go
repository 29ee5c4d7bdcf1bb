package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/muralkit/engine/pkg/config"
	"github.com/muralkit/engine/pkg/database"
	"github.com/muralkit/engine/pkg/logger"

	"github.com/muralkit/engine/internal/queue/tasks"
	"github.com/muralkit/engine/internal/repository"
	"github.com/muralkit/engine/internal/services"
	"github.com/muralkit/engine/internal/storage"
)

func main() {
	cfg := config.MustLoad()
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal("redis connection failed", zap.Error(err))
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		},
		asynq.Config{
			Concurrency: cfg.AsynqConcurrency,
		},
	)

	mux := asynq.NewServeMux()
	// Initialize DB and object storage for task handlers
	ctx := context.Background()
	db, err := database.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.L().Fatal("failed to open database", zap.Error(err))
	}

	objects, err := storage.FromConfig(ctx)
	if err != nil {
		logger.L().Fatal("failed to init object storage", zap.Error(err))
	}

	projectRepo := repository.NewProjectRepository(db)
	elementRepo := repository.NewElementRepository(db)
	opRepo := repository.NewOperationRepository(db)
	snapRepo := repository.NewSnapshotRepository(db)
	mediaRepo := repository.NewMediaRepository(db)
	genRepo := repository.NewGenerationRepository(db)

	snapSvc := services.NewSnapshotService(projectRepo, elementRepo, opRepo, snapRepo)
	gcSvc := services.NewMediaGCService(projectRepo, elementRepo, mediaRepo, genRepo, objects)

	policy := services.TriggerPolicy{
		MaxOpsSinceSnapshot:  cfg.SnapshotMaxOps,
		MaxTimeSinceSnapshot: cfg.SnapshotMaxAge,
	}

	snapHandler := tasks.NewSnapshotTaskHandler(snapSvc, projectRepo, policy)
	gcHandler := tasks.NewMediaGCTaskHandler(gcSvc, cfg.MediaTTLDays)
	mux.HandleFunc(tasks.TypeSnapshot, snapHandler.HandleSnapshot)
	mux.HandleFunc(tasks.TypeMediaGC, gcHandler.HandleMediaGC)

	errCh := make(chan error, 1)
	go func() {
		logger.L().Info("asynq worker starting", zap.Int("concurrency", cfg.AsynqConcurrency))
		if err := srv.Run(mux); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.L().Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.L().Error("worker stopped with error", zap.Error(err))
	}

	// Allow in-flight tasks to finish gracefully
	srv.Shutdown()
}
