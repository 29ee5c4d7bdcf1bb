package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/muralkit/engine/internal/models"
	"github.com/muralkit/engine/internal/repository"
	appErr "github.com/muralkit/engine/pkg/errors"
)

// resolveRole returns the caller's role on the project. Role checks run on
// every request; nothing is cached across requests.
func resolveRole(ctx context.Context, repo repository.ProjectRepository, projectID, userID uuid.UUID) (string, error) {
	var p models.Project
	if err := repo.GetByID(ctx, projectID, &p); err != nil {
		return "", err
	}
	if p.OwnerID == userID {
		return models.RoleOwner, nil
	}
	var c models.Collaborator
	if err := repo.GetCollaborator(ctx, projectID, userID, &c); err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return "", appErr.New(appErr.CodeForbidden, "not a collaborator on this project")
		}
		return "", err
	}
	return c.Role, nil
}

// requireEditor admits owners and editors; viewers and non-collaborators
// are rejected.
func requireEditor(ctx context.Context, repo repository.ProjectRepository, projectID, userID uuid.UUID) error {
	role, err := resolveRole(ctx, repo, projectID, userID)
	if err != nil {
		return err
	}
	if role != models.RoleOwner && role != models.RoleEditor {
		return appErr.New(appErr.CodeForbidden, "viewer role is read-only")
	}
	return nil
}

// requireCollaborator admits any role, including viewers.
func requireCollaborator(ctx context.Context, repo repository.ProjectRepository, projectID, userID uuid.UUID) error {
	_, err := resolveRole(ctx, repo, projectID, userID)
	return err
}

// requireOwner admits only the project owner.
func requireOwner(ctx context.Context, repo repository.ProjectRepository, projectID, userID uuid.UUID) error {
	role, err := resolveRole(ctx, repo, projectID, userID)
	if err != nil {
		return err
	}
	if role != models.RoleOwner {
		return appErr.New(appErr.CodeForbidden, "only the owner may do this")
	}
	return nil
}
