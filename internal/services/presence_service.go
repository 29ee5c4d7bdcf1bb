package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/muralkit/engine/internal/cache"
	"github.com/muralkit/engine/internal/models"
	"github.com/muralkit/engine/internal/repository"
	appErr "github.com/muralkit/engine/pkg/errors"
	"github.com/muralkit/engine/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// PresenceService tracks ephemeral collaborator cursor/tool state.
// Writes go cache-first with a short TTL and mirror best-effort to the
// durable store; reads prefer the cache and fall back to durable rows
// filtered by a freshness window. Presence is loss-tolerant: a dropped
// update is overwritten by the next heartbeat.
type PresenceService interface {
	Update(ctx context.Context, projectID, userID uuid.UUID, data models.PresenceData) error
	List(ctx context.Context, projectID, userID uuid.UUID) ([]models.PresenceEntry, error)
	Remove(ctx context.Context, projectID, userID uuid.UUID) error
}

type presenceService struct {
	projectRepo  repository.ProjectRepository
	presenceRepo repository.PresenceRepository
	cache        cache.Cache
	ttl          time.Duration
	freshness    time.Duration
}

func NewPresenceService(projectRepo repository.ProjectRepository, presenceRepo repository.PresenceRepository, c cache.Cache, ttl, freshness time.Duration) PresenceService {
	return &presenceService{
		projectRepo:  projectRepo,
		presenceRepo: presenceRepo,
		cache:        c,
		ttl:          ttl,
		freshness:    freshness,
	}
}

var _ PresenceService = (*presenceService)(nil)

func presenceKey(projectID, userID uuid.UUID) string {
	return fmt.Sprintf("presence:%s:%s", projectID, userID)
}

func presencePattern(projectID uuid.UUID) string {
	return fmt.Sprintf("presence:%s:*", projectID)
}

func (s *presenceService) Update(ctx context.Context, projectID, userID uuid.UUID, data models.PresenceData) error {
	if err := requireCollaborator(ctx, s.projectRepo, projectID, userID); err != nil {
		return err
	}

	entry := models.PresenceEntry{
		UserID:    userID,
		ProjectID: projectID,
		Data:      data,
		LastSeen:  time.Now(),
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return appErr.Wrap(err, appErr.CodeInvalid, "encode presence failed")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, presenceKey(projectID, userID), raw, s.ttl); err != nil {
			logger.L().Warn("presence cache write failed, durable mirror only",
				zap.String("project_id", projectID.String()), zap.Error(err))
		}
	}

	dataRaw, err := json.Marshal(data)
	if err != nil {
		return appErr.Wrap(err, appErr.CodeInvalid, "encode presence data failed")
	}
	rec := &models.PresenceRecord{
		ProjectID: projectID,
		UserID:    userID,
		Data:      datatypes.JSON(dataRaw),
	}
	if err := s.presenceRepo.Upsert(ctx, rec); err != nil {
		// Cache carried the update; the mirror catches up on the next
		// heartbeat.
		logger.L().Warn("presence durable mirror failed",
			zap.String("project_id", projectID.String()), zap.Error(err))
	}
	return nil
}

func (s *presenceService) List(ctx context.Context, projectID, userID uuid.UUID) ([]models.PresenceEntry, error) {
	if err := requireCollaborator(ctx, s.projectRepo, projectID, userID); err != nil {
		return nil, err
	}

	if s.cache != nil {
		entries, err := s.listFromCache(ctx, projectID)
		if err == nil && len(entries) > 0 {
			return entries, nil
		}
		if err != nil {
			logger.L().Warn("presence cache read failed, using durable fallback",
				zap.String("project_id", projectID.String()), zap.Error(err))
		}
	}
	return s.listFromDurable(ctx, projectID)
}

func (s *presenceService) listFromCache(ctx context.Context, projectID uuid.UUID) ([]models.PresenceEntry, error) {
	keys, err := s.cache.ScanKeys(ctx, presencePattern(projectID))
	if err != nil {
		return nil, err
	}
	entries := make([]models.PresenceEntry, 0, len(keys))
	for _, key := range keys {
		raw, err := s.cache.Get(ctx, key)
		if err != nil {
			// Expired between scan and get.
			continue
		}
		var entry models.PresenceEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	sortEntries(entries)
	return entries, nil
}

func (s *presenceService) listFromDurable(ctx context.Context, projectID uuid.UUID) ([]models.PresenceEntry, error) {
	recs, err := s.presenceRepo.ListFresh(ctx, projectID, s.freshness)
	if err != nil {
		return nil, err
	}
	entries := make([]models.PresenceEntry, 0, len(recs))
	for _, rec := range recs {
		entry := models.PresenceEntry{
			UserID:    rec.UserID,
			ProjectID: rec.ProjectID,
			LastSeen:  rec.LastSeen,
		}
		_ = json.Unmarshal(rec.Data, &entry.Data)
		entries = append(entries, entry)
	}
	sortEntries(entries)
	return entries, nil
}

func (s *presenceService) Remove(ctx context.Context, projectID, userID uuid.UUID) error {
	if err := requireCollaborator(ctx, s.projectRepo, projectID, userID); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, presenceKey(projectID, userID)); err != nil {
			logger.L().Warn("presence cache delete failed",
				zap.String("project_id", projectID.String()), zap.Error(err))
		}
	}
	return s.presenceRepo.Delete(ctx, projectID, userID)
}

func sortEntries(entries []models.PresenceEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].UserID.String() < entries[j].UserID.String()
	})
}
