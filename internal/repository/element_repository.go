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

type ElementRepository interface {
	// Upsert creates or updates by (project_id, element_id) and returns
	// the stored row with updated_at set to now.
	Upsert(ctx context.Context, el *models.Element) (*models.Element, error)
	Get(ctx context.Context, projectID uuid.UUID, elementID string, dest *models.Element) error
	// Delete is idempotent: removing an absent element is not an error.
	Delete(ctx context.Context, projectID uuid.UUID, elementID string) error
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Element, error)
	// BatchUpsert applies all upserts in one transaction, visible
	// all-or-none to readers.
	BatchUpsert(ctx context.Context, projectID uuid.UUID, els []models.Element) ([]models.Element, error)
	DeleteByProject(ctx context.Context, projectID uuid.UUID) error
}

type elementRepository struct {
	db *gorm.DB
}

func NewElementRepository(db *gorm.DB) ElementRepository {
	return &elementRepository{db: db}
}

func upsertConflict() clause.OnConflict {
	return clause.OnConflict{
		Columns: []clause.Column{{Name: "project_id"}, {Name: "element_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"x", "y", "width", "height", "payload", "anchors", "updated_at",
		}),
	}
}

func (r *elementRepository) Upsert(ctx context.Context, el *models.Element) (*models.Element, error) {
	el.UpdatedAt = time.Now()
	if el.CreatedAt.IsZero() {
		el.CreatedAt = el.UpdatedAt
	}
	if err := r.db.WithContext(ctx).Clauses(upsertConflict()).Create(el).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "upsert element failed")
	}
	var stored models.Element
	if err := r.Get(ctx, el.ProjectID, el.ElementID, &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *elementRepository) Get(ctx context.Context, projectID uuid.UUID, elementID string, dest *models.Element) error {
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND element_id = ?", projectID, elementID).
		First(dest).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return appErr.New(appErr.CodeNotFound, "element not found")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "get element failed")
	}
	return nil
}

func (r *elementRepository) Delete(ctx context.Context, projectID uuid.UUID, elementID string) error {
	res := r.db.WithContext(ctx).
		Where("project_id = ? AND element_id = ?", projectID, elementID).
		Delete(&models.Element{})
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeInternal, "delete element failed")
	}
	return nil
}

func (r *elementRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Element, error) {
	var out []models.Element
	if err := r.db.WithContext(ctx).Where("project_id = ?", projectID).Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list elements failed")
	}
	return out, nil
}

func (r *elementRepository) BatchUpsert(ctx context.Context, projectID uuid.UUID, els []models.Element) ([]models.Element, error) {
	now := time.Now()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range els {
			els[i].ProjectID = projectID
			els[i].UpdatedAt = now
			if els[i].CreatedAt.IsZero() {
				els[i].CreatedAt = now
			}
			if err := tx.Clauses(upsertConflict()).Create(&els[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "batch upsert failed")
	}
	return els, nil
}

func (r *elementRepository) DeleteByProject(ctx context.Context, projectID uuid.UUID) error {
	if err := r.db.WithContext(ctx).Where("project_id = ?", projectID).Delete(&models.Element{}).Error; err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "delete project elements failed")
	}
	return nil
}
