package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/rs/zerolog"
)

// ristrettoCache implements Cache on top of Ristretto. Sets are admitted
// asynchronously; Wait flushes the admission buffer.
type ristrettoCache struct {
	cache  *ristretto.Cache[string, []byte]
	log    zerolog.Logger
	mu     sync.RWMutex
	closed bool
}

var (
	_ Cache         = (*ristrettoCache)(nil)
	_ StatsProvider = (*ristrettoCache)(nil)
)

func newRistrettoCache(cfg RistrettoConfig, log zerolog.Logger) (*ristrettoCache, error) {
	bufferItems := cfg.BufferItems
	if bufferItems <= 0 {
		bufferItems = 64
	}

	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: bufferItems,
		Metrics:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("cache: ristretto: %w", err)
	}

	log = log.With().Str("backend", "ristretto").Logger()
	log.Debug().
		Int64("num_counters", cfg.NumCounters).
		Int64("max_cost", cfg.MaxCost).
		Msg("ristretto cache created")
	return &ristrettoCache{cache: c, log: log}, nil
}

// Get returns a copy of the stored value.
func (r *ristrettoCache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, ErrClosed
	}

	value, found := r.cache.Get(key)
	r.log.Debug().Str("key", key).Bool("hit", found).Msg("cache get")
	if !found {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

// SetWithTTL stores a copy of value with cost equal to its length.
func (r *ristrettoCache) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrClosed
	}

	if !r.cache.SetWithTTL(key, append([]byte(nil), value...), int64(len(value)), ttl) {
		r.log.Debug().Str("key", key).Msg("cache set dropped by admission policy")
	}
	return nil
}

// Delete removes key.
func (r *ristrettoCache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrClosed
	}
	r.cache.Del(key)
	return nil
}

// Wait blocks until buffered sets are applied.
func (r *ristrettoCache) Wait() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.closed {
		r.cache.Wait()
	}
}

// Close flushes pending writes and releases the cache.
func (r *ristrettoCache) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.cache.Wait()
	r.cache.Close()
	r.log.Debug().Msg("ristretto cache closed")
	return nil
}

// Stats returns hit/miss and occupancy counters.
func (r *ristrettoCache) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return Stats{}
	}
	m := r.cache.Metrics
	return Stats{
		Hits:      m.Hits(),
		Misses:    m.Misses(),
		KeyCount:  m.KeysAdded() - m.KeysEvicted(),
		BytesUsed: m.CostAdded() - m.CostEvicted(),
		Evictions: m.KeysEvicted(),
	}
}
