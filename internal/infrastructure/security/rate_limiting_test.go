package security

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tymenu/tymenu/internal/infrastructure/config"
	"github.com/tymenu/tymenu/internal/infrastructure/persistence/memory"
)

func TestCacheRateLimiter(t *testing.T) {
	// Arrange
	cache := memory.NewCacheRepository(0)
	defer cache.Close()
	clock := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	limiter := NewCacheRateLimiter(cache, 3, time.Minute)
	limiter.now = func() time.Time { return clock }
	ctx := context.Background()

	// Act / Assert
	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i+1)
	}
	ok, err := limiter.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, _ = limiter.Allow(ctx, "5.6.7.8")
	assert.True(t, ok, "keys are limited independently")

	clock = clock.Add(time.Minute)
	ok, _ = limiter.Allow(ctx, "1.2.3.4")
	assert.True(t, ok, "a new window resets the count")
}

func TestLocalRateLimiter(t *testing.T) {
	clock := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	limiter := NewLocalRateLimiter(60, 2, time.Minute)
	limiter.now = func() time.Time { return clock }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := limiter.Allow(ctx, "client")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := limiter.Allow(ctx, "client")
	assert.False(t, ok, "burst exhausted")

	// 60 per minute refills one token per second.
	clock = clock.Add(time.Second)
	ok, _ = limiter.Allow(ctx, "client")
	assert.True(t, ok)
}

func TestLocalRateLimiterPrune(t *testing.T) {
	clock := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	limiter := NewLocalRateLimiter(10, 1, time.Minute)
	limiter.now = func() time.Time { return clock }

	_, _ = limiter.Allow(context.Background(), "old")
	clock = clock.Add(time.Hour)
	_, _ = limiter.Allow(context.Background(), "fresh")

	assert.Equal(t, 1, limiter.Prune())
	assert.Len(t, limiter.limiters, 1)
}

func TestLocalRateLimiterJanitor(t *testing.T) {
	limiter := NewLocalRateLimiter(10, 1, 5*time.Millisecond)
	_, _ = limiter.Allow(context.Background(), "client")
	require.Equal(t, 1, limiter.Len())

	limiter.Start(0)
	defer limiter.Stop()

	assert.Eventually(t, func() bool { return limiter.Len() == 0 }, time.Second, 5*time.Millisecond)
	limiter.Stop()
}

func TestNewRateLimiterSelectsImplementation(t *testing.T) {
	cfg := &config.Config{RateLimit: config.RateLimitConfig{RequestsPerMin: 10, BurstSize: 5, Window: time.Minute}}
	cache := memory.NewCacheRepository(0)
	defer cache.Close()

	assert.IsType(t, &LocalRateLimiter{}, NewRateLimiter(cfg, cache, zap.NewNop()))

	cfg.Redis.Enabled = true
	assert.IsType(t, &CacheRateLimiter{}, NewRateLimiter(cfg, cache, zap.NewNop()))
}
