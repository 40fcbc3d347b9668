package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fertilizer-advisor/internal/domain"
)

// RedisCache is the shared cache tier.
type RedisCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(config domain.CacheConfig) (*RedisCache, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}
	if config.PoolTimeout > 0 {
		opts.PoolTimeout = config.PoolTimeout
	}
	opts.MaxRetries = config.MaxRetries

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisCacheFromClient(client, config.RedisTTL), nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &RedisCache{redis: client, ttl: ttl}
}

// Get implements Cache.
func (r *RedisCache) Get(ctx context.Context, key string) (*domain.RecommendationResponse, bool, error) {
	val, err := r.redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get recommendation cache: %w", err)
	}

	var cached cachedResponse
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		// corrupted entry
		r.redis.Del(ctx, key)
		return nil, false, nil
	}

	if cached.expired() {
		r.redis.Del(ctx, key)
		return nil, false, nil
	}

	return cached.Data, true, nil
}

// Set implements Cache.
func (r *RedisCache) Set(ctx context.Context, key string, resp *domain.RecommendationResponse) error {
	now := time.Now()
	data, err := json.Marshal(cachedResponse{Data: resp, CachedAt: now, ExpiresAt: now.Add(r.ttl)})
	if err != nil {
		return fmt.Errorf("failed to marshal recommendation cache data: %w", err)
	}
	return r.redis.Set(ctx, key, data, r.ttl).Err()
}

// Delete removes key.
func (r *RedisCache) Delete(ctx context.Context, key string) error {
	return r.redis.Del(ctx, key).Err()
}

// Close closes the Redis client.
func (r *RedisCache) Close() error {
	return r.redis.Close()
}
