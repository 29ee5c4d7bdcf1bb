package services

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/muralkit/engine/internal/cache"
	"github.com/muralkit/engine/internal/models"
	"github.com/muralkit/engine/pkg/logger"
)

func TestMain(m *testing.M) {
	// Initialize logger for tests (required by services)
	_, err := logger.Init("info", "json")
	if err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

// Mock implementations

type mockProjectRepository struct {
	mock.Mock
}

func (m *mockProjectRepository) Create(ctx context.Context, obj *models.Project) error {
	args := m.Called(ctx, obj)
	return args.Error(0)
}

func (m *mockProjectRepository) GetByID(ctx context.Context, id any, dest *models.Project) error {
	args := m.Called(ctx, id, dest)
	if args.Error(0) == nil && args.Get(1) != nil {
		src := args.Get(1).(*models.Project)
		*dest = *src
	}
	return args.Error(0)
}

func (m *mockProjectRepository) Update(ctx context.Context, obj *models.Project) error {
	args := m.Called(ctx, obj)
	return args.Error(0)
}

func (m *mockProjectRepository) Delete(ctx context.Context, id any) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockProjectRepository) CreateWithOwner(ctx context.Context, p *models.Project) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *mockProjectRepository) GetWithCollaborators(ctx context.Context, projectID uuid.UUID, dest *models.Project) error {
	args := m.Called(ctx, projectID, dest)
	if args.Error(0) == nil && args.Get(1) != nil {
		src := args.Get(1).(*models.Project)
		*dest = *src
	}
	return args.Error(0)
}

func (m *mockProjectRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Project, error) {
	args := m.Called(ctx, userID)
	if v := args.Get(0); v != nil {
		return v.([]models.Project), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProjectRepository) ListLive(ctx context.Context) ([]models.Project, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]models.Project), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProjectRepository) UpsertCollaborator(ctx context.Context, c *models.Collaborator) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *mockProjectRepository) GetCollaborator(ctx context.Context, projectID, userID uuid.UUID, dest *models.Collaborator) error {
	args := m.Called(ctx, projectID, userID, dest)
	if args.Error(0) == nil && args.Get(1) != nil {
		src := args.Get(1).(*models.Collaborator)
		*dest = *src
	}
	return args.Error(0)
}

type mockElementRepository struct {
	mock.Mock
}

func (m *mockElementRepository) Upsert(ctx context.Context, el *models.Element) (*models.Element, error) {
	args := m.Called(ctx, el)
	if v := args.Get(0); v != nil {
		return v.(*models.Element), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockElementRepository) Get(ctx context.Context, projectID uuid.UUID, elementID string, dest *models.Element) error {
	args := m.Called(ctx, projectID, elementID, dest)
	if args.Error(0) == nil && args.Get(1) != nil {
		src := args.Get(1).(*models.Element)
		*dest = *src
	}
	return args.Error(0)
}

func (m *mockElementRepository) Delete(ctx context.Context, projectID uuid.UUID, elementID string) error {
	args := m.Called(ctx, projectID, elementID)
	return args.Error(0)
}

func (m *mockElementRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Element, error) {
	args := m.Called(ctx, projectID)
	if v := args.Get(0); v != nil {
		return v.([]models.Element), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockElementRepository) BatchUpsert(ctx context.Context, projectID uuid.UUID, els []models.Element) ([]models.Element, error) {
	args := m.Called(ctx, projectID, els)
	if v := args.Get(0); v != nil {
		return v.([]models.Element), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockElementRepository) DeleteByProject(ctx context.Context, projectID uuid.UUID) error {
	args := m.Called(ctx, projectID)
	return args.Error(0)
}

type mockOperationRepository struct {
	mock.Mock
}

func (m *mockOperationRepository) Append(ctx context.Context, op *models.Operation) error {
	args := m.Called(ctx, op)
	return args.Error(0)
}

func (m *mockOperationRepository) ListFrom(ctx context.Context, projectID uuid.UUID, fromIndex int64, limit int) ([]models.Operation, error) {
	args := m.Called(ctx, projectID, fromIndex, limit)
	if v := args.Get(0); v != nil {
		return v.([]models.Operation), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOperationRepository) CountSince(ctx context.Context, projectID uuid.UUID, afterIndex int64) (int64, error) {
	args := m.Called(ctx, projectID, afterIndex)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockOperationRepository) CurrentIndex(ctx context.Context, projectID uuid.UUID) (int64, error) {
	args := m.Called(ctx, projectID)
	return args.Get(0).(int64), args.Error(1)
}

type mockSnapshotRepository struct {
	mock.Mock
}

func (m *mockSnapshotRepository) GetLatest(ctx context.Context, projectID uuid.UUID, dest *models.Snapshot) error {
	args := m.Called(ctx, projectID, dest)
	if args.Error(0) == nil && args.Get(1) != nil {
		src := args.Get(1).(*models.Snapshot)
		*dest = *src
	}
	return args.Error(0)
}

func (m *mockSnapshotRepository) Save(ctx context.Context, snap *models.Snapshot) error {
	args := m.Called(ctx, snap)
	return args.Error(0)
}

func (m *mockSnapshotRepository) DeleteByProject(ctx context.Context, projectID uuid.UUID) error {
	args := m.Called(ctx, projectID)
	return args.Error(0)
}

type mockPresenceRepository struct {
	mock.Mock
}

func (m *mockPresenceRepository) Upsert(ctx context.Context, rec *models.PresenceRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *mockPresenceRepository) ListFresh(ctx context.Context, projectID uuid.UUID, freshness time.Duration) ([]models.PresenceRecord, error) {
	args := m.Called(ctx, projectID, freshness)
	if v := args.Get(0); v != nil {
		return v.([]models.PresenceRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPresenceRepository) Delete(ctx context.Context, projectID, userID uuid.UUID) error {
	args := m.Called(ctx, projectID, userID)
	return args.Error(0)
}

func (m *mockPresenceRepository) DeleteByProject(ctx context.Context, projectID uuid.UUID) error {
	args := m.Called(ctx, projectID)
	return args.Error(0)
}

type mockMediaRepository struct {
	mock.Mock
}

func (m *mockMediaRepository) Create(ctx context.Context, obj *models.MediaAsset) error {
	args := m.Called(ctx, obj)
	return args.Error(0)
}

func (m *mockMediaRepository) GetByID(ctx context.Context, id any, dest *models.MediaAsset) error {
	args := m.Called(ctx, id, dest)
	if args.Error(0) == nil && args.Get(1) != nil {
		src := args.Get(1).(*models.MediaAsset)
		*dest = *src
	}
	return args.Error(0)
}

func (m *mockMediaRepository) Update(ctx context.Context, obj *models.MediaAsset) error {
	args := m.Called(ctx, obj)
	return args.Error(0)
}

func (m *mockMediaRepository) Delete(ctx context.Context, id any) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockMediaRepository) GetByStorageKey(ctx context.Context, key string, dest *models.MediaAsset) error {
	args := m.Called(ctx, key, dest)
	if args.Error(0) == nil && args.Get(1) != nil {
		src := args.Get(1).(*models.MediaAsset)
		*dest = *src
	}
	return args.Error(0)
}

func (m *mockMediaRepository) ListOlderThan(ctx context.Context, cutoff time.Time) ([]models.MediaAsset, error) {
	args := m.Called(ctx, cutoff)
	if v := args.Get(0); v != nil {
		return v.([]models.MediaAsset), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockGenerationRepository struct {
	mock.Mock
}

func (m *mockGenerationRepository) Create(ctx context.Context, obj *models.GenerationRecord) error {
	args := m.Called(ctx, obj)
	return args.Error(0)
}

func (m *mockGenerationRepository) GetByID(ctx context.Context, id any, dest *models.GenerationRecord) error {
	args := m.Called(ctx, id, dest)
	if args.Error(0) == nil && args.Get(1) != nil {
		src := args.Get(1).(*models.GenerationRecord)
		*dest = *src
	}
	return args.Error(0)
}

func (m *mockGenerationRepository) Update(ctx context.Context, obj *models.GenerationRecord) error {
	args := m.Called(ctx, obj)
	return args.Error(0)
}

func (m *mockGenerationRepository) Delete(ctx context.Context, id any) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockGenerationRepository) ListOutputURLs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

// fakeCache is an in-memory cache with real TTL expiry, for presence tests.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string]fakeCacheEntry
}

type fakeCacheEntry struct {
	value     []byte
	expiresAt time.Time
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]fakeCacheEntry{}}
}

var _ cache.Cache = (*fakeCache)(nil)

func (c *fakeCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = fakeCacheEntry{value: value, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (c *fakeCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, cache.ErrMiss
	}
	return e.value, nil
}

func (c *fakeCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *fakeCache) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// Prefix match is all presence needs: patterns end in ":*".
	prefix := pattern
	if n := len(pattern); n > 0 && pattern[n-1] == '*' {
		prefix = pattern[:n-1]
	}
	var keys []string
	for k, e := range c.entries {
		if time.Now().After(e.expiresAt) {
			continue
		}
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// grantRole arranges the project repo mocks so that userID resolves to the
// given role on projectID.
func grantRole(repo *mockProjectRepository, projectID, userID uuid.UUID, role string) {
	project := &models.Project{ID: projectID, Name: "test-project"}
	if role == models.RoleOwner {
		project.OwnerID = userID
		repo.On("GetByID", mock.Anything, projectID, &models.Project{}).Return(nil, project)
		return
	}
	project.OwnerID = uuid.New()
	repo.On("GetByID", mock.Anything, projectID, &models.Project{}).Return(nil, project)
	collab := &models.Collaborator{ProjectID: projectID, UserID: userID, Role: role}
	repo.On("GetCollaborator", mock.Anything, projectID, userID, &models.Collaborator{}).Return(nil, collab)
}
