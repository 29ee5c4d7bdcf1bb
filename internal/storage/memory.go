package storage

import (
	"context"
	"strings"
	"sync"

	appErr "github.com/muralkit/engine/pkg/errors"
)

type memoryStorage struct {
	mu      sync.RWMutex
	objects map[string][]byte
	baseURL string
}

// NewMemory returns an in-process object storage used in development and
// tests.
func NewMemory(baseURL string) ObjectStorage {
	if baseURL == "" {
		baseURL = "http://localhost:8080/media"
	}
	return &memoryStorage{
		objects: map[string][]byte{},
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

func (m *memoryStorage) Put(ctx context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	m.objects[key] = buf
	return nil
}

func (m *memoryStorage) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, appErr.New(appErr.CodeNotFound, "object not found")
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *memoryStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memoryStorage) PublicURL(key string) string {
	return m.baseURL + "/" + key
}
