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

// ProjectService handles project lifecycle and collaborator management.
type ProjectService interface {
	CreateProject(ctx context.Context, ownerID uuid.UUID, input *CreateProjectInput) (*models.Project, error)
	GetProject(ctx context.Context, projectID, userID uuid.UUID) (*models.Project, error)
	ListProjects(ctx context.Context, userID uuid.UUID) ([]models.Project, error)
	UpdateProject(ctx context.Context, projectID, userID uuid.UUID, updates *UpdateProjectInput) (*models.Project, error)
	DeleteProject(ctx context.Context, projectID, userID uuid.UUID) error
	AddCollaborator(ctx context.Context, projectID, userID uuid.UUID, input *AddCollaboratorInput) (*models.Collaborator, error)
}

type CreateProjectInput struct {
	Name        string
	Description string
	Settings    map[string]interface{}
}

type UpdateProjectInput struct {
	Name        *string
	Description *string
	Settings    map[string]interface{}
}

type AddCollaboratorInput struct {
	Email string
	Role  string
}

type projectService struct {
	projectRepo  repository.ProjectRepository
	userRepo     repository.UserRepository
	elementRepo  repository.ElementRepository
	snapRepo     repository.SnapshotRepository
	presenceRepo repository.PresenceRepository
}

func NewProjectService(projectRepo repository.ProjectRepository, userRepo repository.UserRepository, elementRepo repository.ElementRepository, snapRepo repository.SnapshotRepository, presenceRepo repository.PresenceRepository) ProjectService {
	return &projectService{
		projectRepo:  projectRepo,
		userRepo:     userRepo,
		elementRepo:  elementRepo,
		snapRepo:     snapRepo,
		presenceRepo: presenceRepo,
	}
}

var _ ProjectService = (*projectService)(nil)

func (s *projectService) CreateProject(ctx context.Context, ownerID uuid.UUID, input *CreateProjectInput) (*models.Project, error) {
	var settings datatypes.JSON
	if input.Settings != nil {
		b, err := json.Marshal(input.Settings)
		if err != nil {
			return nil, appErr.Wrap(err, appErr.CodeInvalid, "invalid settings json")
		}
		settings = datatypes.JSON(b)
	}

	p := &models.Project{
		OwnerID:     ownerID,
		Name:        input.Name,
		Description: input.Description,
		Settings:    settings,
	}
	if err := s.projectRepo.CreateWithOwner(ctx, p); err != nil {
		return nil, err
	}

	logger.L().Info("project created",
		zap.String("project_id", p.ID.String()),
		zap.String("owner_id", ownerID.String()))
	return p, nil
}

func (s *projectService) GetProject(ctx context.Context, projectID, userID uuid.UUID) (*models.Project, error) {
	if err := requireCollaborator(ctx, s.projectRepo, projectID, userID); err != nil {
		return nil, err
	}
	var p models.Project
	if err := s.projectRepo.GetWithCollaborators(ctx, projectID, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *projectService) ListProjects(ctx context.Context, userID uuid.UUID) ([]models.Project, error) {
	return s.projectRepo.ListForUser(ctx, userID)
}

func (s *projectService) UpdateProject(ctx context.Context, projectID, userID uuid.UUID, updates *UpdateProjectInput) (*models.Project, error) {
	if err := requireEditor(ctx, s.projectRepo, projectID, userID); err != nil {
		return nil, err
	}

	var p models.Project
	if err := s.projectRepo.GetByID(ctx, projectID, &p); err != nil {
		return nil, err
	}

	if updates.Name != nil {
		p.Name = *updates.Name
	}
	if updates.Description != nil {
		p.Description = *updates.Description
	}
	if updates.Settings != nil {
		b, err := json.Marshal(updates.Settings)
		if err != nil {
			return nil, appErr.Wrap(err, appErr.CodeInvalid, "invalid settings json")
		}
		p.Settings = datatypes.JSON(b)
	}

	if err := s.projectRepo.Update(ctx, &p); err != nil {
		return nil, err
	}

	logger.L().Info("project updated",
		zap.String("project_id", projectID.String()),
		zap.String("user_id", userID.String()))
	return &p, nil
}

func (s *projectService) DeleteProject(ctx context.Context, projectID, userID uuid.UUID) error {
	if err := requireOwner(ctx, s.projectRepo, projectID, userID); err != nil {
		return err
	}

	// Elements, snapshots and presence go with the project. The operation
	// log stays for audit until a retention policy trims it.
	if err := s.elementRepo.DeleteByProject(ctx, projectID); err != nil {
		return err
	}
	if err := s.snapRepo.DeleteByProject(ctx, projectID); err != nil {
		return err
	}
	if err := s.presenceRepo.DeleteByProject(ctx, projectID); err != nil {
		return err
	}
	if err := s.projectRepo.Delete(ctx, projectID); err != nil {
		return err
	}

	logger.L().Info("project deleted",
		zap.String("project_id", projectID.String()),
		zap.String("owner_id", userID.String()))
	return nil
}

func (s *projectService) AddCollaborator(ctx context.Context, projectID, userID uuid.UUID, input *AddCollaboratorInput) (*models.Collaborator, error) {
	if err := requireOwner(ctx, s.projectRepo, projectID, userID); err != nil {
		return nil, err
	}
	if input.Role != models.RoleEditor && input.Role != models.RoleViewer {
		return nil, appErr.New(appErr.CodeInvalid, "role must be editor or viewer")
	}

	var user models.User
	if err := s.userRepo.GetByEmail(ctx, input.Email, &user); err != nil {
		return nil, err
	}

	c := &models.Collaborator{
		ProjectID: projectID,
		UserID:    user.ID,
		Role:      input.Role,
	}
	if err := s.projectRepo.UpsertCollaborator(ctx, c); err != nil {
		return nil, err
	}

	logger.L().Info("collaborator added",
		zap.String("project_id", projectID.String()),
		zap.String("collaborator_id", user.ID.String()),
		zap.String("role", input.Role))
	return c, nil
}
