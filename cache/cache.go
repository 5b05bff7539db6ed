package cache

import (
	"context"
	"time"
)

// Keyer is implemented by values that generate their own cache keys.
type Keyer interface {
	CacheKey() string
}

// Cache is the store surface the record cache rides on. Both adapters
// store string payloads; callers serialize.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	GetOrSet(ctx context.Context, key string, ttl time.Duration, fn func() (any, error)) (string, error)
	Flush(ctx context.Context) error
}
