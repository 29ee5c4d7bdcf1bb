package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/muralkit/engine/internal/models"
	appErr "github.com/muralkit/engine/pkg/errors"
)

func TestPresenceService(t *testing.T) {
	projectID := uuid.New()
	userID := uuid.New()
	otherID := uuid.New()

	data := models.PresenceData{
		Cursor: &models.Point{X: 12, Y: 34},
		Tool:   "pen",
		Color:  "#ff0000",
	}

	t.Run("update writes cache and durable mirror", func(t *testing.T) {
		projectRepo := &mockProjectRepository{}
		presenceRepo := &mockPresenceRepository{}
		c := newFakeCache()
		svc := NewPresenceService(projectRepo, presenceRepo, c, 8*time.Second, 5*time.Second)

		grantRole(projectRepo, projectID, userID, models.RoleViewer)
		presenceRepo.On("Upsert", mock.Anything, mock.MatchedBy(func(rec *models.PresenceRecord) bool {
			return rec.ProjectID == projectID && rec.UserID == userID
		})).Return(nil).Once()

		require.NoError(t, svc.Update(context.Background(), projectID, userID, data))

		raw, err := c.Get(context.Background(), presenceKey(projectID, userID))
		require.NoError(t, err)
		var entry models.PresenceEntry
		require.NoError(t, json.Unmarshal(raw, &entry))
		require.Equal(t, userID, entry.UserID)
		require.Equal(t, "pen", entry.Data.Tool)

		mock.AssertExpectationsForObjects(t, presenceRepo)
	})

	t.Run("update survives a failing durable mirror", func(t *testing.T) {
		projectRepo := &mockProjectRepository{}
		presenceRepo := &mockPresenceRepository{}
		c := newFakeCache()
		svc := NewPresenceService(projectRepo, presenceRepo, c, 8*time.Second, 5*time.Second)

		grantRole(projectRepo, projectID, userID, models.RoleViewer)
		presenceRepo.On("Upsert", mock.Anything, mock.Anything).
			Return(appErr.New(appErr.CodeUnavailable, "db down")).Once()

		require.NoError(t, svc.Update(context.Background(), projectID, userID, data))
		_, err := c.Get(context.Background(), presenceKey(projectID, userID))
		require.NoError(t, err)
	})

	t.Run("list reads from the cache", func(t *testing.T) {
		projectRepo := &mockProjectRepository{}
		presenceRepo := &mockPresenceRepository{}
		c := newFakeCache()
		svc := NewPresenceService(projectRepo, presenceRepo, c, 8*time.Second, 5*time.Second)

		grantRole(projectRepo, projectID, userID, models.RoleViewer)
		presenceRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)

		require.NoError(t, svc.Update(context.Background(), projectID, userID, data))

		grantRole(projectRepo, projectID, otherID, models.RoleViewer)
		require.NoError(t, svc.Update(context.Background(), projectID, otherID, models.PresenceData{Tool: "eraser"}))

		entries, err := svc.List(context.Background(), projectID, userID)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		// No durable read happened.
		presenceRepo.AssertNotCalled(t, "ListFresh", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("expired cache entries disappear from list", func(t *testing.T) {
		projectRepo := &mockProjectRepository{}
		presenceRepo := &mockPresenceRepository{}
		c := newFakeCache()
		// TTL short enough to expire inside the test.
		svc := NewPresenceService(projectRepo, presenceRepo, c, 10*time.Millisecond, 5*time.Millisecond)

		grantRole(projectRepo, projectID, userID, models.RoleViewer)
		presenceRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
		require.NoError(t, svc.Update(context.Background(), projectID, userID, data))

		time.Sleep(20 * time.Millisecond)

		// Cache is empty now; the durable fallback answers.
		presenceRepo.On("ListFresh", mock.Anything, projectID, 5*time.Millisecond).
			Return([]models.PresenceRecord{}, nil).Once()

		entries, err := svc.List(context.Background(), projectID, userID)
		require.NoError(t, err)
		require.Empty(t, entries)
		mock.AssertExpectationsForObjects(t, presenceRepo)
	})

	t.Run("nil cache falls back to durable rows", func(t *testing.T) {
		projectRepo := &mockProjectRepository{}
		presenceRepo := &mockPresenceRepository{}
		svc := NewPresenceService(projectRepo, presenceRepo, nil, 8*time.Second, 5*time.Second)

		grantRole(projectRepo, projectID, userID, models.RoleViewer)

		recs := []models.PresenceRecord{
			{
				ProjectID: projectID,
				UserID:    otherID,
				Data:      datatypes.JSON(`{"tool":"pen","cursor":{"x":1,"y":2}}`),
				LastSeen:  time.Now(),
			},
		}
		presenceRepo.On("ListFresh", mock.Anything, projectID, 5*time.Second).Return(recs, nil).Once()

		entries, err := svc.List(context.Background(), projectID, userID)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		require.Equal(t, otherID, entries[0].UserID)
		require.Equal(t, "pen", entries[0].Data.Tool)
	})

	t.Run("remove clears cache and durable row", func(t *testing.T) {
		projectRepo := &mockProjectRepository{}
		presenceRepo := &mockPresenceRepository{}
		c := newFakeCache()
		svc := NewPresenceService(projectRepo, presenceRepo, c, 8*time.Second, 5*time.Second)

		grantRole(projectRepo, projectID, userID, models.RoleViewer)
		presenceRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
		presenceRepo.On("Delete", mock.Anything, projectID, userID).Return(nil).Once()

		require.NoError(t, svc.Update(context.Background(), projectID, userID, data))
		require.NoError(t, svc.Remove(context.Background(), projectID, userID))

		_, err := c.Get(context.Background(), presenceKey(projectID, userID))
		require.Error(t, err)
		mock.AssertExpectationsForObjects(t, presenceRepo)
	})

	t.Run("non-collaborator may not publish presence", func(t *testing.T) {
		projectRepo := &mockProjectRepository{}
		presenceRepo := &mockPresenceRepository{}
		svc := NewPresenceService(projectRepo, presenceRepo, newFakeCache(), 8*time.Second, 5*time.Second)

		stranger := uuid.New()
		project := &models.Project{ID: projectID, OwnerID: uuid.New()}
		projectRepo.On("GetByID", mock.Anything, projectID, &models.Project{}).Return(nil, project)
		projectRepo.On("GetCollaborator", mock.Anything, projectID, stranger, &models.Collaborator{}).
			Return(appErr.New(appErr.CodeNotFound, "collaborator not found"), nil)

		err := svc.Update(context.Background(), projectID, stranger, data)
		require.Error(t, err)
		require.True(t, appErr.IsCode(err, appErr.CodeForbidden))
		presenceRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	})
}
