package cache

import (
	"context"
	"time"
)

// Driver is the abstract remote key/value store backing the shared tier.
// Implementations must be safe for concurrent use. A Get miss is reported
// through the bool, not an error; errors indicate the store is unhealthy.
type Driver interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration, tags ...string) error
	Del(ctx context.Context, keys ...string) error
	DelByTag(ctx context.Context, tag string) (int, error)
	DelByPrefix(ctx context.Context, prefix string) (int, error)
	Ping(ctx context.Context) error
	Close() error
}
