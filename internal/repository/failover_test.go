package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLimiter struct {
	allowed bool
	err     error
	calls   int
}

func (s *stubLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	s.calls++
	return s.allowed, s.err
}

func TestFailoverPrefersPrimary(t *testing.T) {
	primary := &stubLimiter{allowed: false}
	fallback := &stubLimiter{allowed: true}
	logger := zerolog.Nop()
	limiter := NewFailoverRateLimiter(primary, fallback, &logger)

	allowed, err := limiter.Allow(context.Background(), "user:1", 5, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 1, primary.calls)
	assert.Zero(t, fallback.calls)
}

func TestFailoverFallsBackOnError(t *testing.T) {
	primary := &stubLimiter{err: errors.New("connection refused")}
	fallback := &stubLimiter{allowed: true}
	logger := zerolog.Nop()
	limiter := NewFailoverRateLimiter(primary, fallback, &logger)

	allowed, err := limiter.Allow(context.Background(), "user:1", 5, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 1, fallback.calls)
}

func TestFailoverStaysOnFallbackWhileDown(t *testing.T) {
	primary := &stubLimiter{err: errors.New("connection refused")}
	fallback := &stubLimiter{allowed: true}
	logger := zerolog.Nop()
	limiter := NewFailoverRateLimiter(primary, fallback, &logger)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := limiter.Allow(ctx, "user:1", 5, time.Minute)
		require.NoError(t, err)
	}

	// the primary is not hammered while marked down
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 3, fallback.calls)
}

func TestFailoverRecoversAfterCooldown(t *testing.T) {
	primary := &stubLimiter{err: errors.New("connection refused")}
	fallback := &stubLimiter{allowed: true}
	logger := zerolog.Nop()
	limiter := NewFailoverRateLimiter(primary, fallback, &logger)

	ctx := context.Background()
	_, err := limiter.Allow(ctx, "user:1", 5, time.Minute)
	require.NoError(t, err)
	assert.True(t, limiter.isDown.Load())

	// primary comes back, cooldown elapses
	primary.err = nil
	primary.allowed = true
	limiter.lastCheck = time.Now().Add(-2 * time.Minute)

	allowed, err := limiter.Allow(ctx, "user:1", 5, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.False(t, limiter.isDown.Load())
	assert.Equal(t, 1, fallback.calls)
}
