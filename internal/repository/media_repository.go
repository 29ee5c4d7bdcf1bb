package repository

import (
	"context"
	"time"

	"github.com/muralkit/engine/internal/models"
	appErr "github.com/muralkit/engine/pkg/errors"
	"gorm.io/gorm"
)

type MediaRepository interface {
	BaseRepository[models.MediaAsset]
	GetByStorageKey(ctx context.Context, key string, dest *models.MediaAsset) error
	ListOlderThan(ctx context.Context, cutoff time.Time) ([]models.MediaAsset, error)
}

type mediaRepository struct {
	BaseRepository[models.MediaAsset]
	db *gorm.DB
}

func NewMediaRepository(db *gorm.DB) MediaRepository {
	return &mediaRepository{BaseRepository: NewBaseRepository[models.MediaAsset](db), db: db}
}

func (r *mediaRepository) GetByStorageKey(ctx context.Context, key string, dest *models.MediaAsset) error {
	if err := r.db.WithContext(ctx).Where("storage_key = ?", key).First(dest).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return appErr.New(appErr.CodeNotFound, "media asset not found")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "get media asset failed")
	}
	return nil
}

func (r *mediaRepository) ListOlderThan(ctx context.Context, cutoff time.Time) ([]models.MediaAsset, error) {
	var out []models.MediaAsset
	if err := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list media assets failed")
	}
	return out, nil
}

// GenerationRepository indexes completed generations for the GC live set.
type GenerationRepository interface {
	BaseRepository[models.GenerationRecord]
	ListOutputURLs(ctx context.Context) ([]string, error)
}

type generationRepository struct {
	BaseRepository[models.GenerationRecord]
	db *gorm.DB
}

func NewGenerationRepository(db *gorm.DB) GenerationRepository {
	return &generationRepository{BaseRepository: NewBaseRepository[models.GenerationRecord](db), db: db}
}

func (r *generationRepository) ListOutputURLs(ctx context.Context) ([]string, error) {
	var urls []string
	err := r.db.WithContext(ctx).Model(&models.GenerationRecord{}).
		Where("output_url <> ''").
		Pluck("output_url", &urls).Error
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list generation outputs failed")
	}
	return urls, nil
}
