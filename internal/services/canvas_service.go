package services

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/muralkit/engine/internal/models"
	"github.com/muralkit/engine/internal/repository"
	appErr "github.com/muralkit/engine/pkg/errors"
	"github.com/muralkit/engine/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// CanvasService is the edit path: operations in, replayable state out.
type CanvasService interface {
	// ApplyOperation appends the operation to the log under a fresh
	// sequence index and applies its effect to the element store.
	ApplyOperation(ctx context.Context, projectID, userID uuid.UUID, payload *OperationPayload) (*models.Operation, error)
	// GetState returns the latest snapshot plus the operations needed to
	// bring a client from fromOp (or the snapshot) to head.
	GetState(ctx context.Context, projectID, userID uuid.UUID, fromOp int64) (*CanvasState, error)
	GetElement(ctx context.Context, projectID, userID uuid.UUID, elementID string) (*models.Element, error)
	QueryRegion(ctx context.Context, projectID, userID uuid.UUID, rect models.Rect) ([]models.Element, error)
	QueryByAnchors(ctx context.Context, projectID, userID uuid.UUID, point models.Point, tolerance float64) ([]AnchorMatch, error)
}

// CanvasState is the read-path response: a base snapshot (nil when the
// client is already past it) and the ops to replay on top.
type CanvasState struct {
	Snapshot *models.Snapshot   `json:"snapshot,omitempty"`
	Ops      []models.Operation `json:"ops"`
	FromOp   int64              `json:"from_op"`
}

type canvasService struct {
	projectRepo repository.ProjectRepository
	elementRepo repository.ElementRepository
	opRepo      repository.OperationRepository
	snapRepo    repository.SnapshotRepository
}

func NewCanvasService(projectRepo repository.ProjectRepository, elementRepo repository.ElementRepository, opRepo repository.OperationRepository, snapRepo repository.SnapshotRepository) CanvasService {
	return &canvasService{projectRepo: projectRepo, elementRepo: elementRepo, opRepo: opRepo, snapRepo: snapRepo}
}

var _ CanvasService = (*canvasService)(nil)

func (s *canvasService) ApplyOperation(ctx context.Context, projectID, userID uuid.UUID, payload *OperationPayload) (*models.Operation, error) {
	if err := requireEditor(ctx, s.projectRepo, projectID, userID); err != nil {
		return nil, err
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInvalid, "encode operation payload failed")
	}

	op := &models.Operation{
		ProjectID: projectID,
		IssuerID:  userID,
		Payload:   datatypes.JSON(raw),
	}
	if err := s.opRepo.Append(ctx, op); err != nil {
		return nil, err
	}

	if err := s.applyEffect(ctx, projectID, payload); err != nil {
		// The operation is durably logged; the element store converges on
		// the next replay. Surface the store failure to the caller.
		logger.L().Error("apply operation effect failed",
			zap.String("project_id", projectID.String()),
			zap.Int64("op_index", op.OpIndex),
			zap.Error(err))
		return nil, err
	}

	logger.L().Info("operation applied",
		zap.String("project_id", projectID.String()),
		zap.String("issuer_id", userID.String()),
		zap.Int64("op_index", op.OpIndex),
		zap.String("type", payload.Type))
	return op, nil
}

func (s *canvasService) applyEffect(ctx context.Context, projectID uuid.UUID, payload *OperationPayload) error {
	switch payload.Type {
	case models.OpUpsert:
		_, err := s.elementRepo.Upsert(ctx, stateToElement(projectID, *payload.Element))
		return err
	case models.OpDelete:
		return s.elementRepo.Delete(ctx, projectID, payload.ElementID)
	case models.OpBatch:
		els := make([]models.Element, 0, len(payload.Elements))
		for _, st := range payload.Elements {
			els = append(els, *stateToElement(projectID, st))
		}
		_, err := s.elementRepo.BatchUpsert(ctx, projectID, els)
		return err
	default:
		return appErr.New(appErr.CodeInvalid, "unknown operation type")
	}
}

func (s *canvasService) GetState(ctx context.Context, projectID, userID uuid.UUID, fromOp int64) (*CanvasState, error) {
	if err := requireCollaborator(ctx, s.projectRepo, projectID, userID); err != nil {
		return nil, err
	}

	var project models.Project
	if err := s.projectRepo.GetByID(ctx, projectID, &project); err != nil {
		return nil, err
	}

	var snap models.Snapshot
	base := int64(0)
	haveSnap := false
	err := s.snapRepo.GetLatest(ctx, projectID, &snap)
	switch {
	case err == nil:
		haveSnap = true
		base = snap.OpIndex
	case appErr.IsCode(err, appErr.CodeNotFound):
		// No snapshot yet: replay the full log from zero. Correct but
		// unbounded until the next worker run.
		if project.LastSnapshotOpIndex > 0 {
			return nil, appErr.New(appErr.CodeCorrupt, "snapshot pointer set but no snapshot body").
				WithMeta("pointer", project.LastSnapshotOpIndex)
		}
	default:
		return nil, err
	}

	state := &CanvasState{FromOp: fromOp}
	if fromOp > base {
		// Client is ahead of the snapshot; deltas alone suffice.
		base = fromOp
	} else if haveSnap {
		state.Snapshot = &snap
	}

	ops, err := s.opRepo.ListFrom(ctx, projectID, base+1, 0)
	if err != nil {
		return nil, err
	}
	if err := checkContiguous(base, ops); err != nil {
		return nil, err
	}
	state.Ops = ops
	return state, nil
}

func (s *canvasService) GetElement(ctx context.Context, projectID, userID uuid.UUID, elementID string) (*models.Element, error) {
	if err := requireCollaborator(ctx, s.projectRepo, projectID, userID); err != nil {
		return nil, err
	}
	var el models.Element
	if err := s.elementRepo.Get(ctx, projectID, elementID, &el); err != nil {
		return nil, err
	}
	return &el, nil
}

func (s *canvasService) QueryRegion(ctx context.Context, projectID, userID uuid.UUID, rect models.Rect) ([]models.Element, error) {
	if err := requireCollaborator(ctx, s.projectRepo, projectID, userID); err != nil {
		return nil, err
	}
	els, err := s.elementRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return filterByRegion(els, rect), nil
}

func (s *canvasService) QueryByAnchors(ctx context.Context, projectID, userID uuid.UUID, point models.Point, tolerance float64) ([]AnchorMatch, error) {
	if err := requireCollaborator(ctx, s.projectRepo, projectID, userID); err != nil {
		return nil, err
	}
	els, err := s.elementRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return filterByAnchors(els, point, tolerance), nil
}

func stateToElement(projectID uuid.UUID, st ElementState) *models.Element {
	el := &models.Element{
		ProjectID: projectID,
		ElementID: st.ID,
		X:         st.X,
		Y:         st.Y,
		Width:     st.Width,
		Height:    st.Height,
	}
	if len(st.Payload) > 0 {
		el.Payload = datatypes.JSON(st.Payload)
	}
	if len(st.Anchors) > 0 {
		if raw, err := json.Marshal(st.Anchors); err == nil {
			el.Anchors = datatypes.JSON(raw)
		}
	}
	return el
}

func elementToState(el models.Element) ElementState {
	st := ElementState{
		ID:     el.ElementID,
		X:      el.X,
		Y:      el.Y,
		Width:  el.Width,
		Height: el.Height,
	}
	if len(el.Payload) > 0 {
		st.Payload = json.RawMessage(el.Payload)
	}
	if len(el.Anchors) > 0 {
		_ = json.Unmarshal(el.Anchors, &st.Anchors)
	}
	return st
}
