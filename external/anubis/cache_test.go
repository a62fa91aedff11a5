package anubis

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/user"
)

func countingLoader(calls *atomic.Int32, userID string) func(context.Context) (user.Principal, error) {
	return func(context.Context) (user.Principal, error) {
		calls.Add(1)
		return user.Principal{UserID: userID}, nil
	}
}

func TestPrincipalCache_HitSkipsLoader(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newPrincipalCache(time.Minute, 10)
	for i := 0; i < 3; i++ {
		p, err := c.Resolve(context.Background(), "token-a", countingLoader(&calls, "u-1"))
		require.NoError(t, err)
		assert.Equal(t, "u-1", p.UserID)
	}
	assert.EqualValues(t, 1, calls.Load())
}

func TestPrincipalCache_ExpiredEntryReloads(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newPrincipalCache(20*time.Millisecond, 10)
	_, err := c.Resolve(context.Background(), "token-a", countingLoader(&calls, "u-1"))
	require.NoError(t, err)
	time.Sleep(40 * time.Millisecond)
	_, err = c.Resolve(context.Background(), "token-a", countingLoader(&calls, "u-1"))
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load())
}

func TestPrincipalCache_ErrorsAreNotCached(t *testing.T) {
	t.Parallel()

	c := newPrincipalCache(time.Minute, 10)
	_, err := c.Resolve(context.Background(), "bad", func(context.Context) (user.Principal, error) {
		return user.Principal{}, errors.New("inactive token")
	})
	require.Error(t, err)
	assert.Equal(t, 0, c.store.Len())
}

func TestPrincipalCache_BoundedByMaxEntries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newPrincipalCache(time.Minute, 2)
	for _, token := range []string{"a", "b", "c"} {
		_, err := c.Resolve(context.Background(), token, countingLoader(&calls, token))
		require.NoError(t, err)
	}
	assert.Equal(t, 2, c.store.Len())
	assert.EqualValues(t, 3, calls.Load())
	assert.EqualValues(t, 1, c.store.Stats().Evictions)
}

func TestPrincipalCache_NilDisablesCaching(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newPrincipalCache(-1, 10)
	require.Nil(t, c)
	for i := 0; i < 2; i++ {
		_, err := c.Resolve(context.Background(), "token-a", countingLoader(&calls, "u-1"))
		require.NoError(t, err)
	}
	assert.EqualValues(t, 2, calls.Load())
}
