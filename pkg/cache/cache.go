// Package cache stores computed artifacts, chiefly structure depictions,
// across runs.
//
// Backends implement [Cache]: [FileCache] for the CLI, [RedisCache] for the
// service and [NullCache] when caching is disabled. Keys are built by a
// [Keyer] so every backend agrees on the layout.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry expiry.
//
// Get reports a miss with ok == false and a nil error. A zero ttl in Set
// means the entry does not expire.
type Cache interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// DefaultDepictionTTL is how long depictions are kept.
const DefaultDepictionTTL = 30 * 24 * time.Hour
