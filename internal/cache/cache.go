package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired
var ErrMiss = errors.New("cache: miss")

// Cache is a minimal key/value store with TTL. Values are raw bytes; callers
// marshal/unmarshal JSON themselves. It is a read accelerator only and is never
// the source of truth.
//
// Implementations:
//   - Memory, an in-process map with periodic cleanup
//   - Redis
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}
