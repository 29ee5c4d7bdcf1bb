package tasks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/muralkit/engine/internal/repository"
	"github.com/muralkit/engine/internal/services"
	"github.com/muralkit/engine/pkg/logger"
	"go.uber.org/zap"
)

// TypeSnapshot is the asynq task type for snapshot materialization.
const TypeSnapshot = "snapshot:materialize"

// SnapshotPayload is the task payload. Without a project id the handler
// sweeps every live project; thresholds default to the configured policy.
type SnapshotPayload struct {
	ProjectID string `json:"project_id,omitempty"`
	// Force skips the trigger policy for a single project.
	Force  bool   `json:"force,omitempty"`
	MaxOps int    `json:"max_ops,omitempty"`
	MaxAge string `json:"max_age,omitempty"`
}

// SnapshotTaskHandler materializes snapshots in the background so reads
// never pay the cost synchronously.
type SnapshotTaskHandler struct {
	snapSvc       services.SnapshotService
	projectRepo   repository.ProjectRepository
	defaultPolicy services.TriggerPolicy
}

func NewSnapshotTaskHandler(snapSvc services.SnapshotService, projectRepo repository.ProjectRepository, defaultPolicy services.TriggerPolicy) *SnapshotTaskHandler {
	return &SnapshotTaskHandler{snapSvc: snapSvc, projectRepo: projectRepo, defaultPolicy: defaultPolicy}
}

func (h *SnapshotTaskHandler) HandleSnapshot(ctx context.Context, t *asynq.Task) error {
	var p SnapshotPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		logger.L().Error("invalid snapshot task payload", zap.Error(err))
		return err
	}

	policy := h.defaultPolicy
	if p.MaxOps > 0 {
		policy.MaxOpsSinceSnapshot = p.MaxOps
	}
	if p.MaxAge != "" {
		d, err := time.ParseDuration(p.MaxAge)
		if err != nil {
			logger.L().Error("invalid max_age in snapshot task", zap.Error(err))
			return err
		}
		policy.MaxTimeSinceSnapshot = d
	}

	if p.ProjectID != "" {
		id, err := uuid.Parse(p.ProjectID)
		if err != nil {
			logger.L().Error("invalid project id in snapshot task", zap.Error(err))
			return err
		}
		return h.runOne(ctx, id, policy, p.Force)
	}

	projects, err := h.projectRepo.ListLive(ctx)
	if err != nil {
		logger.L().Error("list projects for snapshot sweep failed", zap.Error(err))
		return err
	}
	// One failing project must not starve the rest of the sweep.
	var failed int
	for _, project := range projects {
		if err := h.runOne(ctx, project.ID, policy, false); err != nil {
			failed++
			logger.L().Error("snapshot sweep project failed",
				zap.String("project_id", project.ID.String()), zap.Error(err))
		}
	}
	logger.L().Info("snapshot sweep finished",
		zap.Int("projects", len(projects)), zap.Int("failed", failed))
	return nil
}

func (h *SnapshotTaskHandler) runOne(ctx context.Context, projectID uuid.UUID, policy services.TriggerPolicy, force bool) error {
	if !force {
		due, err := h.snapSvc.ShouldMaterialize(ctx, projectID, policy)
		if err != nil {
			return err
		}
		if !due {
			return nil
		}
	}
	_, err := h.snapSvc.Materialize(ctx, projectID)
	return err
}
