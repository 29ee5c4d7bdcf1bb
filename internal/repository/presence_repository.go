package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/muralkit/engine/internal/models"
	appErr "github.com/muralkit/engine/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PresenceRepository is the durable fallback behind the ephemeral presence
// cache. Rows never expire on their own; ListFresh filters by last_seen.
type PresenceRepository interface {
	Upsert(ctx context.Context, rec *models.PresenceRecord) error
	ListFresh(ctx context.Context, projectID uuid.UUID, freshness time.Duration) ([]models.PresenceRecord, error)
	Delete(ctx context.Context, projectID, userID uuid.UUID) error
	DeleteByProject(ctx context.Context, projectID uuid.UUID) error
}

type presenceRepository struct {
	db *gorm.DB
}

func NewPresenceRepository(db *gorm.DB) PresenceRepository {
	return &presenceRepository{db: db}
}

func (r *presenceRepository) Upsert(ctx context.Context, rec *models.PresenceRecord) error {
	rec.LastSeen = time.Now()
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "last_seen"}),
	}).Create(rec).Error
	if err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "upsert presence failed")
	}
	return nil
}

func (r *presenceRepository) ListFresh(ctx context.Context, projectID uuid.UUID, freshness time.Duration) ([]models.PresenceRecord, error) {
	cutoff := time.Now().Add(-freshness)
	var out []models.PresenceRecord
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND last_seen >= ?", projectID, cutoff).
		Find(&out).Error
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list presence failed")
	}
	return out, nil
}

func (r *presenceRepository) Delete(ctx context.Context, projectID, userID uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Delete(&models.PresenceRecord{}).Error
	if err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "delete presence failed")
	}
	return nil
}

func (r *presenceRepository) DeleteByProject(ctx context.Context, projectID uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Delete(&models.PresenceRecord{}).Error
	if err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "delete project presence failed")
	}
	return nil
}
