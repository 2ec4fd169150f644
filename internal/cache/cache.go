// Package cache provides TTL caches for decoded commerce payloads and the
// cache-or-fetch helper built on them.
package cache

import (
	"context"
	"time"
)

// DefaultTTL is how long fetched payloads are kept.
const DefaultTTL = time.Hour

// Cache stores decoded JSON values by key. A Get on an absent or expired
// key reports ok=false with a nil error.
type Cache interface {
	Get(ctx context.Context, key string) (any, bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
