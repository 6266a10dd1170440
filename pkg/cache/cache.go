// Package cache provides byte caches shared by the layout engines and the
// snapshot store.
//
// Three backends implement [Cache]:
//   - [MemoryCache]: bounded LRU for the server and interactive sessions
//   - [FileCache]: zstd-compressed entries on disk for CLI runs
//   - [NullCache]: caching disabled
//
// Keys are produced by a [Keyer] so that all callers agree on the key layout.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values under string keys with an optional TTL.
type Cache interface {
	// Get returns the stored value. A miss is reported as (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A ttl <= 0 means the entry does not expire.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the cache.
	Close() error
}

// Default TTLs.
const (
	// TTLLayout bounds how long a computed layout response is reused.
	TTLLayout = 7 * 24 * time.Hour

	// TTLSnapshot bounds how long a persisted viewer snapshot is kept.
	TTLSnapshot = 30 * 24 * time.Hour
)
