package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRateLimiterBurst(t *testing.T) {
	limiter := NewMemoryRateLimiter()
	ctx := context.Background()

	// the burst covers the whole window quota up front
	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "user:1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should pass", i+1)
	}

	allowed, err := limiter.Allow(ctx, "user:1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestMemoryRateLimiterKeysAreIndependent(t *testing.T) {
	limiter := NewMemoryRateLimiter()
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "user:1", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "user:1", 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = limiter.Allow(ctx, "user:2", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestMemoryRateLimiterRefill(t *testing.T) {
	limiter := NewMemoryRateLimiter()
	ctx := context.Background()

	// 100 tokens per 100ms refills every millisecond
	for i := 0; i < 100; i++ {
		_, err := limiter.Allow(ctx, "user:1", 100, 100*time.Millisecond)
		require.NoError(t, err)
	}
	allowed, err := limiter.Allow(ctx, "user:1", 100, 100*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, allowed)

	time.Sleep(10 * time.Millisecond)

	allowed, err = limiter.Allow(ctx, "user:1", 100, 100*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, allowed)
}
