package cache

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fertilizer-advisor/internal/domain"
)

// Tiered checks the memory tier first, then Redis, and back-fills memory on a
// Redis hit. Tier errors are logged and treated as misses.
type Tiered struct {
	memory *MemoryCache
	redis  Cache // optional
	logger *logrus.Logger

	stats   Stats
	statsMu sync.RWMutex
}

// NewTiered creates a two-tier cache. redis may be nil.
func NewTiered(memory *MemoryCache, redis Cache, logger *logrus.Logger) *Tiered {
	return &Tiered{
		memory: memory,
		redis:  redis,
		logger: logger,
		stats:  Stats{LastReset: time.Now()},
	}
}

// Get implements Cache. It never returns an error.
func (t *Tiered) Get(ctx context.Context, key string) (*domain.RecommendationResponse, bool, error) {
	if resp, ok, _ := t.memory.Get(ctx, key); ok {
		t.record(func(s *Stats) { s.MemoryHits++ })
		return resp, true, nil
	}
	t.record(func(s *Stats) { s.MemoryMisses++ })

	if t.redis == nil {
		return nil, false, nil
	}

	resp, ok, err := t.redis.Get(ctx, key)
	if err != nil {
		t.record(func(s *Stats) { s.ErrorCount++ })
		t.logger.WithError(err).WithField("cache_tier", "redis").Warn("Cache lookup failed")
		return nil, false, nil
	}
	if !ok {
		t.record(func(s *Stats) { s.RedisMisses++ })
		return nil, false, nil
	}

	t.record(func(s *Stats) { s.RedisHits++ })
	_ = t.memory.Set(ctx, key, resp)
	return resp, true, nil
}

// Set implements Cache. It never returns an error.
func (t *Tiered) Set(ctx context.Context, key string, resp *domain.RecommendationResponse) error {
	_ = t.memory.Set(ctx, key, resp)

	if t.redis != nil {
		if err := t.redis.Set(ctx, key, resp); err != nil {
			t.record(func(s *Stats) { s.ErrorCount++ })
			t.logger.WithError(err).WithField("cache_tier", "redis").Warn("Cache store failed")
		}
	}
	return nil
}

// Stats returns a snapshot of cache statistics.
func (t *Tiered) Stats() Stats {
	t.statsMu.RLock()
	stats := t.stats
	t.statsMu.RUnlock()

	stats.Evictions = t.memory.Evictions()
	return stats
}

// Purge empties the memory tier. Redis entries expire on their own TTL.
func (t *Tiered) Purge() {
	t.memory.Purge()
	t.logger.WithField("cache_tier", "memory").Debug("Cache purged")
}

func (t *Tiered) record(update func(*Stats)) {
	t.statsMu.Lock()
	update(&t.stats)
	t.statsMu.Unlock()
}
