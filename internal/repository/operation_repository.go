package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/muralkit/engine/internal/models"
	appErr "github.com/muralkit/engine/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OperationRepository interface {
	// Append assigns the next sequence index and writes the operation in
	// one transaction. Two concurrent appends never share an index; a
	// failure leaves the counter and the log untouched.
	Append(ctx context.Context, op *models.Operation) error
	ListFrom(ctx context.Context, projectID uuid.UUID, fromIndex int64, limit int) ([]models.Operation, error)
	CountSince(ctx context.Context, projectID uuid.UUID, afterIndex int64) (int64, error)
	CurrentIndex(ctx context.Context, projectID uuid.UUID) (int64, error)
}

type operationRepository struct {
	db *gorm.DB
}

func NewOperationRepository(db *gorm.DB) OperationRepository {
	return &operationRepository{db: db}
}

func (r *operationRepository) Append(ctx context.Context, op *models.Operation) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var counter models.ProjectCounter
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&counter, "project_id = ?", op.ProjectID).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return appErr.New(appErr.CodeNotFound, "project counter not found")
			}
			return err
		}

		counter.LastOpIndex++
		op.OpIndex = counter.LastOpIndex

		if err := tx.Create(op).Error; err != nil {
			return err
		}
		return tx.Model(&models.ProjectCounter{}).
			Where("project_id = ?", op.ProjectID).
			Update("last_op_index", counter.LastOpIndex).Error
	})
	if err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return err
		}
		return appErr.Wrap(err, appErr.CodeInternal, "append operation failed")
	}
	return nil
}

func (r *operationRepository) ListFrom(ctx context.Context, projectID uuid.UUID, fromIndex int64, limit int) ([]models.Operation, error) {
	var out []models.Operation
	q := r.db.WithContext(ctx).
		Where("project_id = ? AND op_index >= ?", projectID, fromIndex).
		Order("op_index ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list operations failed")
	}
	return out, nil
}

func (r *operationRepository) CountSince(ctx context.Context, projectID uuid.UUID, afterIndex int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Operation{}).
		Where("project_id = ? AND op_index > ?", projectID, afterIndex).
		Count(&n).Error
	if err != nil {
		return 0, appErr.Wrap(err, appErr.CodeInternal, "count operations failed")
	}
	return n, nil
}

func (r *operationRepository) CurrentIndex(ctx context.Context, projectID uuid.UUID) (int64, error) {
	var counter models.ProjectCounter
	if err := r.db.WithContext(ctx).First(&counter, "project_id = ?", projectID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, appErr.New(appErr.CodeNotFound, "project counter not found")
		}
		return 0, appErr.Wrap(err, appErr.CodeInternal, "read operation counter failed")
	}
	return counter.LastOpIndex, nil
}
