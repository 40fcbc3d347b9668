package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fertilizer-advisor/internal/domain"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func testSample() domain.SoilSample {
	return domain.SoilSample{Nitrogen: 45, Phosphorus: 40, Potassium: 50, PH: 6.8, Moisture: 50, Temperature: 25, Crop: domain.CropWheat}
}

func testResponse() *domain.RecommendationResponse {
	return &domain.RecommendationResponse{
		FertilizerType:         domain.FertilizerN,
		QuantityKgPerAcre:      60,
		SoilHealthScore:        91.2,
		ImprovementSuggestions: []string{"ok"},
		InputData:              testSample(),
	}
}

func TestGenerateKey(t *testing.T) {
	s := testSample()
	k1 := GenerateKey("rules-1", s)
	assert.Equal(t, k1, GenerateKey("rules-1", s))
	assert.NotEqual(t, k1, GenerateKey("rules-2", s))

	s.PH = 6.9
	assert.NotEqual(t, k1, GenerateKey("rules-1", s))
	assert.Contains(t, k1, "fertilizer:recommendation:")
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	m, err := NewMemoryCache(2, time.Minute)
	require.NoError(t, err)

	_, ok, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Set(ctx, "a", testResponse()))
	got, ok, err := m.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, testResponse(), got)

	require.NoError(t, m.Set(ctx, "b", testResponse()))
	require.NoError(t, m.Set(ctx, "c", testResponse()))
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, int64(1), m.Evictions())
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	m, err := NewMemoryCache(10, time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, m.Set(ctx, "a", testResponse()))
	time.Sleep(5 * time.Millisecond)

	_, ok, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
}

type stubTier struct {
	entries map[string]*domain.RecommendationResponse
	err     error
	sets    int
}

func (s *stubTier) Get(_ context.Context, key string) (*domain.RecommendationResponse, bool, error) {
	if s.err != nil {
		return nil, false, s.err
	}
	resp, ok := s.entries[key]
	return resp, ok, nil
}

func (s *stubTier) Set(_ context.Context, key string, resp *domain.RecommendationResponse) error {
	s.sets++
	if s.err != nil {
		return s.err
	}
	s.entries[key] = resp
	return nil
}

func TestTieredBackfillsMemory(t *testing.T) {
	ctx := context.Background()
	memory, err := NewMemoryCache(10, time.Minute)
	require.NoError(t, err)
	remote := &stubTier{entries: map[string]*domain.RecommendationResponse{"k": testResponse()}}

	tiered := NewTiered(memory, remote, testLogger())

	got, ok, err := tiered.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, testResponse(), got)

	_, ok, _ = memory.Get(ctx, "k")
	assert.True(t, ok, "redis hit should back-fill memory")

	_, ok, _ = tiered.Get(ctx, "k")
	assert.True(t, ok)

	_, ok, _ = tiered.Get(ctx, "missing")
	assert.False(t, ok)

	stats := tiered.Stats()
	assert.Equal(t, int64(1), stats.MemoryHits)
	assert.Equal(t, int64(2), stats.MemoryMisses)
	assert.Equal(t, int64(1), stats.RedisHits)
	assert.Equal(t, int64(1), stats.RedisMisses)
}

func TestTieredSwallowsTierErrors(t *testing.T) {
	ctx := context.Background()
	memory, err := NewMemoryCache(10, time.Minute)
	require.NoError(t, err)
	remote := &stubTier{entries: map[string]*domain.RecommendationResponse{}, err: errors.New("connection refused")}

	tiered := NewTiered(memory, remote, testLogger())

	require.NoError(t, tiered.Set(ctx, "k", testResponse()))
	assert.Equal(t, 1, remote.sets)

	_, ok, err := tiered.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok, "memory tier still serves")

	_, ok, err = tiered.Get(ctx, "other")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(2), tiered.Stats().ErrorCount)
}

func TestTieredWithoutRedis(t *testing.T) {
	ctx := context.Background()
	memory, err := NewMemoryCache(10, time.Minute)
	require.NoError(t, err)

	tiered := NewTiered(memory, nil, testLogger())
	require.NoError(t, tiered.Set(ctx, "k", testResponse()))

	_, ok, err := tiered.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTieredPurge(t *testing.T) {
	ctx := context.Background()
	memory, err := NewMemoryCache(10, time.Minute)
	require.NoError(t, err)

	tiered := NewTiered(memory, nil, testLogger())
	require.NoError(t, tiered.Set(ctx, "k", testResponse()))
	require.Equal(t, 1, memory.Len())

	tiered.Purge()
	assert.Equal(t, 0, memory.Len())
	_, ok, _ := tiered.Get(ctx, "k")
	assert.False(t, ok)
}

func TestRedisCache(t *testing.T) {
	redisURL := os.Getenv("TEST_REDIS_URL")
	if redisURL == "" {
		t.Skip("TEST_REDIS_URL not set, skipping Redis tests")
	}

	ctx := context.Background()
	c, err := NewRedisCache(domain.CacheConfig{RedisURL: redisURL, RedisTTL: time.Minute})
	require.NoError(t, err)
	defer c.Close()

	key := GenerateKey("test", testSample())
	defer c.Delete(ctx, key)

	_, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, key, testResponse()))
	got, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, testResponse().FertilizerType, got.FertilizerType)
	assert.Equal(t, testResponse().InputData, got.InputData)
}

func TestNewRedisCacheBadURL(t *testing.T) {
	_, err := NewRedisCache(domain.CacheConfig{RedisURL: "not-a-url"})
	assert.Error(t, err)

	c := NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: "localhost:0"}), 0)
	assert.Equal(t, 24*time.Hour, c.ttl)
	_ = c.Close()
}
