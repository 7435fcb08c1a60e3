package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCache_CachesWithinTTL(t *testing.T) {
	calls := 0
	source := &mockVersionSource{
		GetTokenVersionFunc: func(ctx context.Context, staffID int64) (int64, error) {
			calls++
			return 3, nil
		},
	}

	cache := NewVersionCache(source, 3*time.Second)
	current := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return current }

	for i := 0; i < 5; i++ {
		v, err := cache.GetTokenVersion(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, int64(3), v)
	}
	assert.Equal(t, 1, calls, "repeated lookups within the TTL should hit the cache")
}

func TestVersionCache_RefetchesAfterTTL(t *testing.T) {
	calls := 0
	source := &mockVersionSource{
		GetTokenVersionFunc: func(ctx context.Context, staffID int64) (int64, error) {
			calls++
			return int64(calls), nil
		},
	}

	cache := NewVersionCache(source, 3*time.Second)
	current := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return current }

	v, err := cache.GetTokenVersion(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	current = current.Add(4 * time.Second)

	v, err = cache.GetTokenVersion(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
	assert.Equal(t, 2, calls)
}

func TestVersionCache_ZeroTTLBypassesCache(t *testing.T) {
	calls := 0
	source := &mockVersionSource{
		GetTokenVersionFunc: func(ctx context.Context, staffID int64) (int64, error) {
			calls++
			return 7, nil
		},
	}

	cache := NewVersionCache(source, 0)

	for i := 0; i < 3; i++ {
		_, err := cache.GetTokenVersion(context.Background(), 1)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, calls, "TTL 0 must hit the store on every validation")
}

func TestVersionCache_InvalidateForcesRefetch(t *testing.T) {
	calls := 0
	source := &mockVersionSource{
		GetTokenVersionFunc: func(ctx context.Context, staffID int64) (int64, error) {
			calls++
			return int64(calls), nil
		},
	}

	cache := NewVersionCache(source, 1*time.Hour)

	v, err := cache.GetTokenVersion(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	cache.Invalidate(1)

	v, err = cache.GetTokenVersion(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v, "invalidation should force a fresh store lookup")
}

func TestVersionCache_ErrorsNotCached(t *testing.T) {
	calls := 0
	storeErr := errors.New("store down")
	source := &mockVersionSource{
		GetTokenVersionFunc: func(ctx context.Context, staffID int64) (int64, error) {
			calls++
			if calls == 1 {
				return 0, storeErr
			}
			return 9, nil
		},
	}

	cache := NewVersionCache(source, 1*time.Hour)

	_, err := cache.GetTokenVersion(context.Background(), 1)
	assert.ErrorIs(t, err, storeErr)

	v, err := cache.GetTokenVersion(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(9), v)
}
