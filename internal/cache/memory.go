package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru"

	"github.com/fertilizer-advisor/internal/domain"
)

// MemoryCache is a size-bounded LRU with a per-entry TTL.
type MemoryCache struct {
	lru       *lru.Cache
	ttl       time.Duration
	evictions int64
}

// NewMemoryCache creates a memory tier holding at most size entries.
func NewMemoryCache(size int, ttl time.Duration) (*MemoryCache, error) {
	if size <= 0 {
		size = 1000
	}
	if ttl == 0 {
		ttl = 15 * time.Minute
	}

	m := &MemoryCache{ttl: ttl}
	cache, err := lru.NewWithEvict(size, func(key interface{}, value interface{}) {
		atomic.AddInt64(&m.evictions, 1)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}
	m.lru = cache
	return m, nil
}

// Get implements Cache.
func (m *MemoryCache) Get(_ context.Context, key string) (*domain.RecommendationResponse, bool, error) {
	value, ok := m.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	entry, ok := value.(*cachedResponse)
	if !ok || entry.expired() {
		m.lru.Remove(key)
		return nil, false, nil
	}
	return entry.Data, true, nil
}

// Set implements Cache.
func (m *MemoryCache) Set(_ context.Context, key string, resp *domain.RecommendationResponse) error {
	now := time.Now()
	m.lru.Add(key, &cachedResponse{Data: resp, CachedAt: now, ExpiresAt: now.Add(m.ttl)})
	return nil
}

// Len returns the number of entries, expired ones included.
func (m *MemoryCache) Len() int {
	return m.lru.Len()
}

// Evictions returns the number of entries dropped by the LRU policy or by
// expiry on read.
func (m *MemoryCache) Evictions() int64 {
	return atomic.LoadInt64(&m.evictions)
}

// Purge empties the cache.
func (m *MemoryCache) Purge() {
	m.lru.Purge()
}
