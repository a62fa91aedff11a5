package redislock

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/logging"
	"github.com/riskibarqy/fixture-calendar-sync/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocker_UnreachableRedisIsDependencyUnavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	locker := New(client, Config{}, logging.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := locker.Lock(ctx, "sync:user-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, usecase.ErrDependencyUnavailable), "got %v", err)

	// The local lock must have been released on failure.
	release, ok := locker.local.TryLock("sync:user-1")
	require.True(t, ok)
	release()
}

func TestLocker_SerializesAcrossLockers(t *testing.T) {
	redisURL := os.Getenv("REDIS_TEST_URL")
	if redisURL == "" {
		t.Skip("REDIS_TEST_URL not set")
	}

	ctx := context.Background()
	first, client, err := NewFromURL(ctx, redisURL, Config{KeyPrefix: "test:" + t.Name() + ":", RetryDelay: 5 * time.Millisecond}, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	second := New(client, Config{KeyPrefix: "test:" + t.Name() + ":", RetryDelay: 5 * time.Millisecond}, logging.NewNop())

	release, err := first.Lock(ctx, "user-1")
	require.NoError(t, err)

	var acquired atomic.Bool
	done := make(chan struct{})
	go func() {
		defer close(done)
		releaseSecond, err := second.Lock(ctx, "user-1")
		if !assert.NoError(t, err) {
			return
		}
		acquired.Store(true)
		releaseSecond()
	}()

	time.Sleep(50 * time.Millisecond)
	assert.False(t, acquired.Load(), "second locker acquired a held lease")
	release()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("second locker never acquired the lease")
	}
	assert.True(t, acquired.Load())
}

func TestLocker_HonoursContextWhileWaiting(t *testing.T) {
	redisURL := os.Getenv("REDIS_TEST_URL")
	if redisURL == "" {
		t.Skip("REDIS_TEST_URL not set")
	}

	ctx := context.Background()
	first, client, err := NewFromURL(ctx, redisURL, Config{KeyPrefix: "test:" + t.Name() + ":"}, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	second := New(client, Config{KeyPrefix: "test:" + t.Name() + ":"}, logging.NewNop())

	release, err := first.Lock(ctx, "user-1")
	require.NoError(t, err)
	defer release()

	waitCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	_, err = second.Lock(waitCtx, "user-1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLocker_RenewsLeaseWhileHeld(t *testing.T) {
	redisURL := os.Getenv("REDIS_TEST_URL")
	if redisURL == "" {
		t.Skip("REDIS_TEST_URL not set")
	}

	ctx := context.Background()
	prefix := "test:" + t.Name() + ":"
	locker, client, err := NewFromURL(ctx, redisURL, Config{KeyPrefix: prefix, Lease: 300 * time.Millisecond}, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	release, err := locker.Lock(ctx, "user-1")
	require.NoError(t, err)

	time.Sleep(time.Second)

	ttl, err := client.PTTL(ctx, prefix+"user-1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0), "lease expired while held")

	taken, err := client.SetNX(ctx, prefix+"user-1", "other", time.Minute).Result()
	require.NoError(t, err)
	assert.False(t, taken, "another worker took a held lease")

	release()
	release()

	exists, err := client.Exists(ctx, prefix+"user-1").Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}
