package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/muralkit/engine/internal/models"
	appErr "github.com/muralkit/engine/pkg/errors"
	"gorm.io/gorm"
)

type ProjectRepository interface {
	BaseRepository[models.Project]
	// CreateWithOwner creates the project, its owner collaborator entry,
	// and its operation counter row in one transaction.
	CreateWithOwner(ctx context.Context, p *models.Project) error
	GetWithCollaborators(ctx context.Context, projectID uuid.UUID, dest *models.Project) error
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Project, error)
	ListLive(ctx context.Context) ([]models.Project, error)
	UpsertCollaborator(ctx context.Context, c *models.Collaborator) error
	GetCollaborator(ctx context.Context, projectID, userID uuid.UUID, dest *models.Collaborator) error
}

type projectRepository struct {
	BaseRepository[models.Project]
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{BaseRepository: NewBaseRepository[models.Project](db), db: db}
}

func (r *projectRepository) CreateWithOwner(ctx context.Context, p *models.Project) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		owner := &models.Collaborator{ProjectID: p.ID, UserID: p.OwnerID, Role: models.RoleOwner}
		if err := tx.Create(owner).Error; err != nil {
			return err
		}
		counter := &models.ProjectCounter{ProjectID: p.ID, LastOpIndex: 0}
		return tx.Create(counter).Error
	})
	if err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "create project failed")
	}
	return nil
}

func (r *projectRepository) GetWithCollaborators(ctx context.Context, projectID uuid.UUID, dest *models.Project) error {
	if err := r.db.WithContext(ctx).Preload("Collaborators").First(dest, "id = ?", projectID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return appErr.New(appErr.CodeNotFound, "project not found")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "get project failed")
	}
	return nil
}

func (r *projectRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Project, error) {
	var out []models.Project
	err := r.db.WithContext(ctx).
		Joins("JOIN collaborators ON collaborators.project_id = projects.id").
		Where("collaborators.user_id = ? AND projects.archived = false", userID).
		Order("projects.created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list projects for user failed")
	}
	return out, nil
}

func (r *projectRepository) ListLive(ctx context.Context) ([]models.Project, error) {
	var out []models.Project
	if err := r.db.WithContext(ctx).Where("archived = false").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list live projects failed")
	}
	return out, nil
}

func (r *projectRepository) UpsertCollaborator(ctx context.Context, c *models.Collaborator) error {
	var existing models.Collaborator
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", c.ProjectID, c.UserID).
		First(&existing).Error
	switch {
	case err == nil:
		res := r.db.WithContext(ctx).Model(&models.Collaborator{}).
			Where("project_id = ? AND user_id = ?", c.ProjectID, c.UserID).
			Update("role", c.Role)
		if res.Error != nil {
			return appErr.Wrap(res.Error, appErr.CodeInternal, "update collaborator failed")
		}
		return nil
	case err == gorm.ErrRecordNotFound:
		if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
			return appErr.Wrap(err, appErr.CodeInternal, "create collaborator failed")
		}
		return nil
	default:
		return appErr.Wrap(err, appErr.CodeInternal, "get collaborator failed")
	}
}

func (r *projectRepository) GetCollaborator(ctx context.Context, projectID, userID uuid.UUID, dest *models.Collaborator) error {
	if err := r.db.WithContext(ctx).Where("project_id = ? AND user_id = ?", projectID, userID).First(dest).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return appErr.New(appErr.CodeNotFound, "collaborator not found")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "get collaborator failed")
	}
	return nil
}
