package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/muralkit/engine/internal/api"
	"github.com/muralkit/engine/internal/api/handlers"
	"github.com/muralkit/engine/internal/cache"
	"github.com/muralkit/engine/internal/repository"
	"github.com/muralkit/engine/internal/services"
	"github.com/muralkit/engine/internal/storage"
	"github.com/muralkit/engine/pkg/config"
	"github.com/muralkit/engine/pkg/database"
	"github.com/muralkit/engine/pkg/logger"
)

func main() {
	cfg := config.MustLoad()

	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	log.Info("starting canvas engine api",
		zap.String("env", cfg.AppEnv),
		zap.String("addr", cfg.HTTPAddr),
	)

	ctx := context.Background()
	db, err := database.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	log.Info("database connected")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	var presenceCache cache.Cache
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("redis unavailable, presence runs on durable fallback only", zap.Error(err))
	} else {
		presenceCache = cache.NewRedis(rdb)
	}

	objects, err := storage.FromConfig(ctx)
	if err != nil {
		log.Fatal("failed to init object storage", zap.Error(err))
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer asynqClient.Close()

	// Repositories
	projectRepo := repository.NewProjectRepository(db)
	userRepo := repository.NewUserRepository(db)
	elementRepo := repository.NewElementRepository(db)
	opRepo := repository.NewOperationRepository(db)
	snapRepo := repository.NewSnapshotRepository(db)
	presenceRepo := repository.NewPresenceRepository(db)
	mediaRepo := repository.NewMediaRepository(db)
	genRepo := repository.NewGenerationRepository(db)

	// Services
	projectSvc := services.NewProjectService(projectRepo, userRepo, elementRepo, snapRepo, presenceRepo)
	canvasSvc := services.NewCanvasService(projectRepo, elementRepo, opRepo, snapRepo)
	snapSvc := services.NewSnapshotService(projectRepo, elementRepo, opRepo, snapRepo)
	presenceSvc := services.NewPresenceService(projectRepo, presenceRepo, presenceCache, cfg.PresenceTTL, cfg.PresenceFreshness)
	mediaSvc := services.NewMediaService(mediaRepo, objects)
	gcSvc := services.NewMediaGCService(projectRepo, elementRepo, mediaRepo, genRepo, objects)

	policy := services.TriggerPolicy{
		MaxOpsSinceSnapshot:  cfg.SnapshotMaxOps,
		MaxTimeSinceSnapshot: cfg.SnapshotMaxAge,
	}

	jwtSecret := []byte(cfg.JWTSecret)
	if len(jwtSecret) == 0 {
		log.Warn("JWT_SECRET not set, using default (INSECURE for production)")
		jwtSecret = []byte("change-me-in-production-please")
	}

	router := api.NewRouter(api.Dependencies{
		HMACSecret:      jwtSecret,
		ProjectsHandler: handlers.NewProjectsHandler(projectSvc),
		CanvasHandler:   handlers.NewCanvasHandler(canvasSvc, snapSvc),
		PresenceHandler: handlers.NewPresenceHandler(presenceSvc),
		MediaHandler:    handlers.NewMediaHandler(mediaSvc),
		WorkersHandler:  handlers.NewWorkersHandler(asynqClient, snapSvc, gcSvc, policy, cfg.MediaTTLDays),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	} else {
		log.Info("server exited gracefully")
	}
}
