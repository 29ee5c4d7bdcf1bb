package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/muralkit/engine/internal/models"
	"github.com/muralkit/engine/internal/repository"
	appErr "github.com/muralkit/engine/pkg/errors"
	"github.com/muralkit/engine/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const snapshotFormatVersion = 1

// TriggerPolicy decides when a project is due for a new snapshot.
type TriggerPolicy struct {
	MaxOpsSinceSnapshot  int
	MaxTimeSinceSnapshot time.Duration
}

type SnapshotService interface {
	// CreateSnapshot is the request-path entry: owner/editor only.
	CreateSnapshot(ctx context.Context, projectID, userID uuid.UUID) (*models.Snapshot, error)
	// Materialize builds and saves a snapshot at the current counter
	// value. Worker-path entry, no role check.
	Materialize(ctx context.Context, projectID uuid.UUID) (*models.Snapshot, error)
	// ShouldMaterialize applies the op-count / wall-clock trigger policy.
	ShouldMaterialize(ctx context.Context, projectID uuid.UUID, policy TriggerPolicy) (bool, error)
}

type snapshotService struct {
	projectRepo repository.ProjectRepository
	elementRepo repository.ElementRepository
	opRepo      repository.OperationRepository
	snapRepo    repository.SnapshotRepository
}

func NewSnapshotService(projectRepo repository.ProjectRepository, elementRepo repository.ElementRepository, opRepo repository.OperationRepository, snapRepo repository.SnapshotRepository) SnapshotService {
	return &snapshotService{projectRepo: projectRepo, elementRepo: elementRepo, opRepo: opRepo, snapRepo: snapRepo}
}

var _ SnapshotService = (*snapshotService)(nil)

func (s *snapshotService) CreateSnapshot(ctx context.Context, projectID, userID uuid.UUID) (*models.Snapshot, error) {
	if err := requireEditor(ctx, s.projectRepo, projectID, userID); err != nil {
		return nil, err
	}
	return s.Materialize(ctx, projectID)
}

func (s *snapshotService) Materialize(ctx context.Context, projectID uuid.UUID) (*models.Snapshot, error) {
	// Counter first, elements second. The element read then reflects at
	// least every operation up to the tagged index, so the snapshot can
	// only over-represent, never under-represent, its index.
	opIndex, err := s.opRepo.CurrentIndex(ctx, projectID)
	if err != nil {
		return nil, err
	}

	els, err := s.elementRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	state := make(map[string]ElementState, len(els))
	for _, el := range els {
		state[el.ElementID] = elementToState(el)
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "encode snapshot body failed")
	}

	snap := &models.Snapshot{
		ProjectID:     projectID,
		OpIndex:       opIndex,
		Elements:      datatypes.JSON(raw),
		FormatVersion: snapshotFormatVersion,
	}
	if err := s.snapRepo.Save(ctx, snap); err != nil {
		return nil, err
	}

	logger.L().Info("snapshot materialized",
		zap.String("project_id", projectID.String()),
		zap.Int64("op_index", opIndex),
		zap.Int("elements", len(els)))
	return snap, nil
}

func (s *snapshotService) ShouldMaterialize(ctx context.Context, projectID uuid.UUID, policy TriggerPolicy) (bool, error) {
	var project models.Project
	if err := s.projectRepo.GetByID(ctx, projectID, &project); err != nil {
		return false, err
	}

	opsSince, err := s.opRepo.CountSince(ctx, projectID, project.LastSnapshotOpIndex)
	if err != nil {
		return false, err
	}
	if opsSince == 0 {
		return false, nil
	}
	if policy.MaxOpsSinceSnapshot > 0 && opsSince > int64(policy.MaxOpsSinceSnapshot) {
		return true, nil
	}

	if policy.MaxTimeSinceSnapshot <= 0 {
		return false, nil
	}
	var snap models.Snapshot
	err = s.snapRepo.GetLatest(ctx, projectID, &snap)
	switch {
	case err == nil:
		return time.Since(snap.CreatedAt) > policy.MaxTimeSinceSnapshot, nil
	case appErr.IsCode(err, appErr.CodeNotFound):
		// Never snapshotted but has pending ops: age threshold counts
		// from project creation.
		return time.Since(project.CreatedAt) > policy.MaxTimeSinceSnapshot, nil
	default:
		return false, err
	}
}
