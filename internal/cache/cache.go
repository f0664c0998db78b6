// Package cache stores analysis verdicts so a snapshot seen twice is not sent
// to a provider twice.
//
// Two backends exist:
//   - single (Ristretto): in-process cache bounded by value bytes
//   - disabled (noop): stores nothing
//
// Basic usage:
//
//	c, err := cache.New(&cache.Config{Mode: cache.ModeSingle, Ristretto: cache.DefaultRistrettoConfig()}, logger)
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	err = c.SetWithTTL(ctx, key, payload, 10*time.Minute)
//	data, err := c.Get(ctx, key)
//	if errors.Is(err, cache.ErrNotFound) {
//		// miss
//	}
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store. Implementations are safe for
// concurrent use.
type Cache interface {
	// Get returns ErrNotFound on a miss and ErrClosed after Close.
	Get(ctx context.Context, key string) ([]byte, error)

	// SetWithTTL stores value until ttl elapses. A ttl of zero never expires.
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete is idempotent.
	Delete(ctx context.Context, key string) error

	// Close releases resources. Later calls return ErrClosed. Close is idempotent.
	Close() error
}

// Stats reports cache effectiveness.
type Stats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	KeyCount  uint64 `json:"key_count"`
	BytesUsed uint64 `json:"bytes_used"`
	Evictions uint64 `json:"evictions"`
}

// StatsProvider is implemented by caches that keep statistics.
type StatsProvider interface {
	Stats() Stats
}
