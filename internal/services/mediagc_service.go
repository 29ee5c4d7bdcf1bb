package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/muralkit/engine/internal/models"
	"github.com/muralkit/engine/internal/repository"
	"github.com/muralkit/engine/internal/storage"
	"github.com/muralkit/engine/pkg/logger"
	"go.uber.org/zap"
)

// GCConfig configures one reclamation run. DryRun is a pointer so that an
// absent field means true: deletion only ever happens when a caller
// explicitly set dry_run=false.
type GCConfig struct {
	MediaID *uuid.UUID `json:"media_id,omitempty"`
	TTLDays int        `json:"ttl_days"`
	DryRun  *bool      `json:"dry_run,omitempty"`
}

// Effective returns the resolved dry-run flag.
func (c GCConfig) Effective() bool {
	if c.DryRun == nil {
		return true
	}
	return *c.DryRun
}

// GCReport is the outcome of a run. It is returned successfully even when
// no asset qualified.
type GCReport struct {
	DryRun     bool              `json:"dry_run"`
	TTLDays    int               `json:"ttl_days"`
	Scanned    int               `json:"scanned"`
	Candidates []string          `json:"candidates"`
	Deleted    []string          `json:"deleted"`
	Errors     map[string]string `json:"errors,omitempty"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}

// MediaGCService reclaims storage for assets no live project references.
type MediaGCService interface {
	Run(ctx context.Context, cfg GCConfig) (*GCReport, error)
}

type mediaGCService struct {
	projectRepo repository.ProjectRepository
	elementRepo repository.ElementRepository
	mediaRepo   repository.MediaRepository
	genRepo     repository.GenerationRepository
	objects     storage.ObjectStorage
}

func NewMediaGCService(projectRepo repository.ProjectRepository, elementRepo repository.ElementRepository, mediaRepo repository.MediaRepository, genRepo repository.GenerationRepository, objects storage.ObjectStorage) MediaGCService {
	return &mediaGCService{
		projectRepo: projectRepo,
		elementRepo: elementRepo,
		mediaRepo:   mediaRepo,
		genRepo:     genRepo,
		objects:     objects,
	}
}

var _ MediaGCService = (*mediaGCService)(nil)

func (s *mediaGCService) Run(ctx context.Context, cfg GCConfig) (*GCReport, error) {
	report := &GCReport{
		DryRun:     cfg.Effective(),
		TTLDays:    cfg.TTLDays,
		Candidates: []string{},
		Deleted:    []string{},
		Errors:     map[string]string{},
		StartedAt:  time.Now(),
	}

	live, err := s.buildLiveSet(ctx)
	if err != nil {
		return nil, err
	}

	assets, err := s.listAssets(ctx, cfg)
	if err != nil {
		return nil, err
	}
	report.Scanned = len(assets)

	// Select first, delete after: the scan must be complete before any
	// object is removed so a reference written mid-run cannot race a
	// deletion of something it was about to point at. The age threshold
	// covers the remaining window.
	var candidates []models.MediaAsset
	for _, asset := range assets {
		if isReferenced(asset, live) {
			continue
		}
		candidates = append(candidates, asset)
		report.Candidates = append(report.Candidates, asset.StorageKey)
	}

	if report.DryRun {
		logger.L().Info("media gc dry run",
			zap.Int("scanned", report.Scanned),
			zap.Int("candidates", len(report.Candidates)))
		report.FinishedAt = time.Now()
		return report, nil
	}

	for _, asset := range candidates {
		if err := s.objects.Delete(ctx, asset.StorageKey); err != nil {
			report.Errors[asset.StorageKey] = err.Error()
			continue
		}
		if err := s.mediaRepo.Delete(ctx, asset.ID); err != nil {
			report.Errors[asset.StorageKey] = err.Error()
			continue
		}
		report.Deleted = append(report.Deleted, asset.StorageKey)
	}

	logger.L().Info("media gc completed",
		zap.Int("scanned", report.Scanned),
		zap.Int("candidates", len(report.Candidates)),
		zap.Int("deleted", len(report.Deleted)),
		zap.Int("errors", len(report.Errors)))
	report.FinishedAt = time.Now()
	return report, nil
}

func (s *mediaGCService) buildLiveSet(ctx context.Context) (map[string]struct{}, error) {
	live := map[string]struct{}{}

	projects, err := s.projectRepo.ListLive(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range projects {
		els, err := s.elementRepo.ListByProject(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		for _, el := range els {
			collectStrings(el.Payload, live)
		}
	}

	urls, err := s.genRepo.ListOutputURLs(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range urls {
		live[u] = struct{}{}
	}
	return live, nil
}

func (s *mediaGCService) listAssets(ctx context.Context, cfg GCConfig) ([]models.MediaAsset, error) {
	if cfg.MediaID != nil {
		var asset models.MediaAsset
		if err := s.mediaRepo.GetByID(ctx, *cfg.MediaID, &asset); err != nil {
			return nil, err
		}
		if !olderThanTTL(asset, cfg.TTLDays) {
			return []models.MediaAsset{}, nil
		}
		return []models.MediaAsset{asset}, nil
	}
	cutoff := time.Now().AddDate(0, 0, -cfg.TTLDays)
	return s.mediaRepo.ListOlderThan(ctx, cutoff)
}

func olderThanTTL(asset models.MediaAsset, ttlDays int) bool {
	return asset.CreatedAt.Before(time.Now().AddDate(0, 0, -ttlDays))
}
