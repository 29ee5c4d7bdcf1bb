package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/muralkit/engine/internal/models"
	"github.com/muralkit/engine/internal/storage"
	appErr "github.com/muralkit/engine/pkg/errors"
)

type gcFixture struct {
	projectRepo *mockProjectRepository
	elementRepo *mockElementRepository
	mediaRepo   *mockMediaRepository
	genRepo     *mockGenerationRepository
	objects     storage.ObjectStorage
	svc         MediaGCService
}

func newGCFixture(t *testing.T) *gcFixture {
	t.Helper()
	f := &gcFixture{
		projectRepo: &mockProjectRepository{},
		elementRepo: &mockElementRepository{},
		mediaRepo:   &mockMediaRepository{},
		genRepo:     &mockGenerationRepository{},
		objects:     storage.NewMemory(""),
	}
	f.svc = NewMediaGCService(f.projectRepo, f.elementRepo, f.mediaRepo, f.genRepo, f.objects)
	return f
}

func oldAsset(key string) models.MediaAsset {
	return models.MediaAsset{
		ID:         uuid.New(),
		OwnerID:    uuid.New(),
		StorageKey: key,
		URL:        "https://cdn.example.com/" + key,
		CreatedAt:  time.Now().AddDate(0, 0, -30),
	}
}

func TestMediaGCService_Run(t *testing.T) {
	projectID := uuid.New()

	referenced := oldAsset("media/referenced")
	orphan := oldAsset("media/orphan")

	setupScan := func(f *gcFixture, assets []models.MediaAsset) {
		f.projectRepo.On("ListLive", mock.Anything).Return([]models.Project{{ID: projectID}}, nil)
		// One element embeds the referenced asset's storage key in its payload.
		els := []models.Element{{
			ProjectID: projectID,
			ElementID: "img-1",
			Payload:   datatypes.JSON(`{"kind":"image","src":"https://cdn.example.com/media/referenced"}`),
		}}
		f.elementRepo.On("ListByProject", mock.Anything, projectID).Return(els, nil)
		f.genRepo.On("ListOutputURLs", mock.Anything).Return([]string{}, nil)
		f.mediaRepo.On("ListOlderThan", mock.Anything, mock.Anything).Return(assets, nil)
	}

	t.Run("defaults to dry run and deletes nothing", func(t *testing.T) {
		f := newGCFixture(t)
		setupScan(f, []models.MediaAsset{referenced, orphan})
		require.NoError(t, f.objects.Put(context.Background(), orphan.StorageKey, []byte("bytes"), "image/png"))

		report, err := f.svc.Run(context.Background(), GCConfig{TTLDays: 7})
		require.NoError(t, err)
		require.True(t, report.DryRun)
		require.Equal(t, 2, report.Scanned)
		require.Equal(t, []string{orphan.StorageKey}, report.Candidates)
		require.Empty(t, report.Deleted)

		// The object is still there.
		_, err = f.objects.Get(context.Background(), orphan.StorageKey)
		require.NoError(t, err)
		f.mediaRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("dry run is repeatable", func(t *testing.T) {
		f := newGCFixture(t)
		setupScan(f, []models.MediaAsset{referenced, orphan})

		first, err := f.svc.Run(context.Background(), GCConfig{TTLDays: 7})
		require.NoError(t, err)
		second, err := f.svc.Run(context.Background(), GCConfig{TTLDays: 7})
		require.NoError(t, err)
		require.Equal(t, first.Candidates, second.Candidates)
	})

	t.Run("explicit dry_run=false deletes orphans only", func(t *testing.T) {
		f := newGCFixture(t)
		setupScan(f, []models.MediaAsset{referenced, orphan})
		require.NoError(t, f.objects.Put(context.Background(), orphan.StorageKey, []byte("bytes"), "image/png"))
		require.NoError(t, f.objects.Put(context.Background(), referenced.StorageKey, []byte("bytes"), "image/png"))
		f.mediaRepo.On("Delete", mock.Anything, orphan.ID).Return(nil).Once()

		dryRun := false
		report, err := f.svc.Run(context.Background(), GCConfig{TTLDays: 7, DryRun: &dryRun})
		require.NoError(t, err)
		require.False(t, report.DryRun)
		require.Equal(t, []string{orphan.StorageKey}, report.Deleted)
		require.Empty(t, report.Errors)

		_, err = f.objects.Get(context.Background(), orphan.StorageKey)
		require.Error(t, err)
		_, err = f.objects.Get(context.Background(), referenced.StorageKey)
		require.NoError(t, err)
		mock.AssertExpectationsForObjects(t, f.mediaRepo)
	})

	t.Run("referenced asset is never a candidate regardless of age", func(t *testing.T) {
		f := newGCFixture(t)
		setupScan(f, []models.MediaAsset{referenced})

		report, err := f.svc.Run(context.Background(), GCConfig{TTLDays: 7})
		require.NoError(t, err)
		require.Equal(t, 1, report.Scanned)
		require.Empty(t, report.Candidates)
	})

	t.Run("generation output urls count as live references", func(t *testing.T) {
		f := newGCFixture(t)
		genAsset := oldAsset("media/generated")
		f.projectRepo.On("ListLive", mock.Anything).Return([]models.Project{}, nil)
		f.genRepo.On("ListOutputURLs", mock.Anything).Return([]string{genAsset.URL}, nil)
		f.mediaRepo.On("ListOlderThan", mock.Anything, mock.Anything).Return([]models.MediaAsset{genAsset}, nil)

		report, err := f.svc.Run(context.Background(), GCConfig{TTLDays: 7})
		require.NoError(t, err)
		require.Empty(t, report.Candidates)
	})

	t.Run("single asset mode skips assets younger than the ttl", func(t *testing.T) {
		f := newGCFixture(t)
		young := oldAsset("media/young")
		young.CreatedAt = time.Now().Add(-time.Hour)
		f.projectRepo.On("ListLive", mock.Anything).Return([]models.Project{}, nil)
		f.genRepo.On("ListOutputURLs", mock.Anything).Return([]string{}, nil)
		f.mediaRepo.On("GetByID", mock.Anything, young.ID, &models.MediaAsset{}).Return(nil, &young)

		report, err := f.svc.Run(context.Background(), GCConfig{MediaID: &young.ID, TTLDays: 7})
		require.NoError(t, err)
		require.Zero(t, report.Scanned)
		require.Empty(t, report.Candidates)
	})

	t.Run("per-asset failures are recorded, not fatal", func(t *testing.T) {
		f := newGCFixture(t)
		other := oldAsset("media/other")
		setupScan(f, []models.MediaAsset{orphan, other})
		// orphan's object exists; other's row delete fails.
		require.NoError(t, f.objects.Put(context.Background(), orphan.StorageKey, []byte("bytes"), "image/png"))
		require.NoError(t, f.objects.Put(context.Background(), other.StorageKey, []byte("bytes"), "image/png"))
		f.mediaRepo.On("Delete", mock.Anything, orphan.ID).Return(nil).Once()
		f.mediaRepo.On("Delete", mock.Anything, other.ID).
			Return(appErr.New(appErr.CodeUnavailable, "db down")).Once()

		dryRun := false
		report, err := f.svc.Run(context.Background(), GCConfig{TTLDays: 7, DryRun: &dryRun})
		require.NoError(t, err)
		require.Equal(t, []string{orphan.StorageKey}, report.Deleted)
		require.Contains(t, report.Errors, other.StorageKey)
	})
}

func TestGCConfigEffective(t *testing.T) {
	require.True(t, GCConfig{}.Effective())
	v := true
	require.True(t, GCConfig{DryRun: &v}.Effective())
	v = false
	require.False(t, GCConfig{DryRun: &v}.Effective())
}
