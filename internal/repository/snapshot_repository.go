package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/muralkit/engine/internal/models"
	appErr "github.com/muralkit/engine/pkg/errors"
	"gorm.io/gorm"
)

type SnapshotRepository interface {
	GetLatest(ctx context.Context, projectID uuid.UUID, dest *models.Snapshot) error
	// Save writes the snapshot row and advances the project's snapshot
	// pointer in one transaction, so readers never observe one without
	// the other.
	Save(ctx context.Context, snap *models.Snapshot) error
	DeleteByProject(ctx context.Context, projectID uuid.UUID) error
}

type snapshotRepository struct {
	db *gorm.DB
}

func NewSnapshotRepository(db *gorm.DB) SnapshotRepository {
	return &snapshotRepository{db: db}
}

func (r *snapshotRepository) GetLatest(ctx context.Context, projectID uuid.UUID, dest *models.Snapshot) error {
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("op_index DESC").
		First(dest).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return appErr.New(appErr.CodeNotFound, "snapshot not found")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "get latest snapshot failed")
	}
	return nil
}

func (r *snapshotRepository) Save(ctx context.Context, snap *models.Snapshot) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(snap).Error; err != nil {
			return err
		}
		res := tx.Model(&models.Project{}).
			Where("id = ?", snap.ProjectID).
			Update("last_snapshot_op_index", snap.OpIndex)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return appErr.New(appErr.CodeNotFound, "project not found")
		}
		return nil
	})
	if err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return err
		}
		return appErr.Wrap(err, appErr.CodeInternal, "save snapshot failed")
	}
	return nil
}

func (r *snapshotRepository) DeleteByProject(ctx context.Context, projectID uuid.UUID) error {
	if err := r.db.WithContext(ctx).Where("project_id = ?", projectID).Delete(&models.Snapshot{}).Error; err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "delete project snapshots failed")
	}
	return nil
}
