package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func throttleWithRedis(t *testing.T, max int, window time.Duration) (*LoginThrottle, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLoginThrottle(client, max, window), mr
}

func TestThrottleBlocksAfterMaxFailures(t *testing.T) {
	throttle, _ := throttleWithRedis(t, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := throttle.Allow(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, allowed)
		require.NoError(t, throttle.RecordFailure(ctx, "alice"))
	}

	allowed, err := throttle.Allow(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, allowed)

	// another username is unaffected
	allowed, err = throttle.Allow(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestThrottleResetClearsCounter(t *testing.T) {
	throttle, _ := throttleWithRedis(t, 1, time.Minute)
	ctx := context.Background()

	require.NoError(t, throttle.RecordFailure(ctx, "alice"))
	allowed, err := throttle.Allow(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, allowed)

	require.NoError(t, throttle.Reset(ctx, "alice"))
	allowed, err = throttle.Allow(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestThrottleWindowExpires(t *testing.T) {
	throttle, mr := throttleWithRedis(t, 1, time.Minute)
	ctx := context.Background()

	require.NoError(t, throttle.RecordFailure(ctx, "alice"))
	allowed, err := throttle.Allow(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, allowed)

	mr.FastForward(2 * time.Minute)

	allowed, err = throttle.Allow(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestThrottleDisabledWithoutRedis(t *testing.T) {
	throttle := NewLoginThrottle(nil, 1, time.Minute)
	ctx := context.Background()

	require.NoError(t, throttle.RecordFailure(ctx, "alice"))
	allowed, err := throttle.Allow(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, allowed)
}
