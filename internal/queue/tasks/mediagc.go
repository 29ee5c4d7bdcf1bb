package tasks

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
	"github.com/muralkit/engine/internal/services"
	"github.com/muralkit/engine/pkg/logger"
	"go.uber.org/zap"
)

// TypeMediaGC is the asynq task type for media reclamation.
const TypeMediaGC = "media:gc"

// MediaGCTaskHandler runs the reference scan and, outside dry-run,
// the deletions.
type MediaGCTaskHandler struct {
	gcSvc          services.MediaGCService
	defaultTTLDays int
}

func NewMediaGCTaskHandler(gcSvc services.MediaGCService, defaultTTLDays int) *MediaGCTaskHandler {
	return &MediaGCTaskHandler{gcSvc: gcSvc, defaultTTLDays: defaultTTLDays}
}

func (h *MediaGCTaskHandler) HandleMediaGC(ctx context.Context, t *asynq.Task) error {
	var cfg services.GCConfig
	if err := json.Unmarshal(t.Payload(), &cfg); err != nil {
		logger.L().Error("invalid media gc task payload", zap.Error(err))
		return err
	}
	if cfg.TTLDays <= 0 {
		cfg.TTLDays = h.defaultTTLDays
	}

	report, err := h.gcSvc.Run(ctx, cfg)
	if err != nil {
		logger.L().Error("media gc run failed", zap.Error(err))
		return err
	}
	logger.L().Info("media gc task done",
		zap.Bool("dry_run", report.DryRun),
		zap.Int("scanned", report.Scanned),
		zap.Int("candidates", len(report.Candidates)),
		zap.Int("deleted", len(report.Deleted)))
	return nil
}
