// Package cache provides a small get-or-compute cache with per-entry TTLs.
// Values are JSON encoded so the same call sites work against the in-memory
// backend and Redis.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// Backend stores raw cache entries
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// Cache wraps a Backend. Backend failures degrade to recomputing.
type Cache struct {
	backend Backend
	log     *zap.SugaredLogger
}

// New creates a Cache over the given backend
func New(backend Backend, log *zap.SugaredLogger) *Cache {
	return &Cache{backend: backend, log: log}
}

// Close releases the backend
func (c *Cache) Close() error {
	return c.backend.Close()
}

// GetOrCompute returns the cached value for key, or calls compute and stores
// its result for ttl. Errors from compute are returned and never cached.
func GetOrCompute[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, compute func(context.Context) (T, error)) (T, error) {
	raw, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		c.log.Warnw("cache read failed", "key", key, "error", err)
	}
	if ok {
		var cached T
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		c.log.Warnw("discarding undecodable cache entry", "key", key)
	}

	value, err := compute(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		c.log.Warnw("cache encode failed", "key", key, "error", err)
		return value, nil
	}
	if err := c.backend.Set(ctx, key, encoded, ttl); err != nil {
		c.log.Warnw("cache write failed", "key", key, "error", err)
	}

	return value, nil
}
