package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muralkit/engine/internal/models"
	"github.com/muralkit/engine/internal/repository"
	"github.com/muralkit/engine/internal/storage"
	appErr "github.com/muralkit/engine/pkg/errors"
	"github.com/muralkit/engine/pkg/logger"
	"github.com/muralkit/engine/pkg/utils"
)

// MediaService stores uploaded bytes and registers the asset so the GC
// worker can track it.
type MediaService interface {
	Upload(ctx context.Context, ownerID uuid.UUID, data []byte, contentType string) (*models.MediaAsset, error)
}

type mediaService struct {
	mediaRepo repository.MediaRepository
	objects   storage.ObjectStorage
}

func NewMediaService(mediaRepo repository.MediaRepository, objects storage.ObjectStorage) MediaService {
	return &mediaService{mediaRepo: mediaRepo, objects: objects}
}

var _ MediaService = (*mediaService)(nil)

func (s *mediaService) Upload(ctx context.Context, ownerID uuid.UUID, data []byte, contentType string) (*models.MediaAsset, error) {
	if len(data) == 0 {
		return nil, appErr.New(appErr.CodeInvalid, "empty upload body")
	}

	key := fmt.Sprintf("media/%s", uuid.NewString())
	if err := s.objects.Put(ctx, key, data, contentType); err != nil {
		return nil, err
	}

	asset := &models.MediaAsset{
		OwnerID:     ownerID,
		StorageKey:  key,
		URL:         s.objects.PublicURL(key),
		Checksum:    utils.SumSHA256Hex(data),
		ContentType: contentType,
		Size:        int64(len(data)),
	}
	if err := s.mediaRepo.Create(ctx, asset); err != nil {
		// Orphaned object; the GC worker reclaims it after the retention
		// window.
		return nil, err
	}

	logger.L().Info("media uploaded",
		zap.String("owner_id", ownerID.String()),
		zap.String("storage_key", key),
		zap.Int64("size", asset.Size))
	return asset, nil
}
