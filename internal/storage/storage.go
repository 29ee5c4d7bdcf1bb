package storage

import (
	"context"
	"fmt"

	"github.com/muralkit/engine/pkg/config"
)

// ObjectStorage is the narrow get/put/delete-by-key interface the engine
// consumes. Implementations map keys to a public URL for embedding in
// element payloads.
type ObjectStorage interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

// FromConfig selects the backend named by STORAGE_TYPE.
func FromConfig(ctx context.Context) (ObjectStorage, error) {
	cfg := config.Get()
	switch cfg.StorageType {
	case "s3":
		return NewS3(ctx, cfg.S3Bucket, cfg.MediaBaseURL)
	case "memory":
		return NewMemory(cfg.MediaBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.StorageType)
	}
}
