package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unreachableClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestFixedWindowLimiterDisabled(t *testing.T) {
	limiter := NewFixedWindowLimiter(nil, "throttle", 0, time.Minute)

	allowed, retry, err := limiter.Allow(context.Background(), "login:203.0.113.7")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Zero(t, retry)
}

func TestFixedWindowLimiterReportsStoreErrors(t *testing.T) {
	limiter := NewFixedWindowLimiter(unreachableClient(t), "throttle", 5, time.Minute)

	allowed, _, err := limiter.Allow(context.Background(), "login:203.0.113.7")
	require.Error(t, err)
	assert.False(t, allowed)
	assert.Contains(t, err.Error(), "throttle:login:203.0.113.7")
}

func TestPingReportsUnreachableServer(t *testing.T) {
	check := Ping(unreachableClient(t))
	assert.Error(t, check(context.Background()))
}
