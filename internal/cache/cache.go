package cache

import (
	"context"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
type missError struct{}

func (missError) Error() string { return "cache miss" }

var ErrMiss error = missError{}

// Cache is the small capability interface the presence store needs:
// set-with-TTL, get, delete, and a key scan for project-scoped reads.
// Implementations are best-effort; callers degrade to the durable
// fallback on error.
type Cache interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	ScanKeys(ctx context.Context, pattern string) ([]string, error)
}
