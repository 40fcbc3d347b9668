// Package cache stores served recommendations keyed by model version and
// soil sample, in an in-process LRU tier and an optional Redis tier.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/fertilizer-advisor/internal/domain"
)

// Cache is a recommendation cache tier.
type Cache interface {
	// Get returns the cached response for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) (*domain.RecommendationResponse, bool, error)

	// Set stores resp under key.
	Set(ctx context.Context, key string, resp *domain.RecommendationResponse) error
}

// Stats represents cache performance statistics
type Stats struct {
	MemoryHits   int64     `json:"memory_hits"`
	MemoryMisses int64     `json:"memory_misses"`
	RedisHits    int64     `json:"redis_hits"`
	RedisMisses  int64     `json:"redis_misses"`
	Evictions    int64     `json:"evictions"`
	ErrorCount   int64     `json:"error_count"`
	LastReset    time.Time `json:"last_reset"`
}

// cachedResponse is the stored form of a response with expiry metadata.
type cachedResponse struct {
	Data      *domain.RecommendationResponse `json:"data"`
	CachedAt  time.Time                      `json:"cached_at"`
	ExpiresAt time.Time                      `json:"expires_at"`
}

func (c *cachedResponse) expired() bool {
	return time.Now().After(c.ExpiresAt)
}

// GenerateKey derives the cache key for a sample served by a model version.
// Responses from different model versions never share a key.
func GenerateKey(modelVersion string, sample domain.SoilSample) string {
	payload, _ := json.Marshal(struct {
		Version string            `json:"v"`
		Sample  domain.SoilSample `json:"s"`
	}{modelVersion, sample})

	hash := sha256.Sum256(payload)
	return "fertilizer:recommendation:" + hex.EncodeToString(hash[:])
}
