package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() {
		SetClient(nil)
		mr.Close()
	})
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	return mr
}

type cachedPost struct {
	ID      string `json:"id"`
	Caption string `json:"caption"`
}

func TestCacheAside(t *testing.T) {
	setupRedis(t)
	ctx := context.Background()

	fetches := 0
	fetch := func(dest *cachedPost) func() error {
		return func() error {
			fetches++
			dest.ID = "p1"
			dest.Caption = "sunset"
			return nil
		}
	}

	var got cachedPost
	err := CacheAside(ctx, PostKey("p1"), &got, PostTTL, fetch(&got))
	require.NoError(t, err)
	assert.Equal(t, 1, fetches)
	assert.Equal(t, "sunset", got.Caption)

	// Second read is served from Redis without calling fetch.
	var again cachedPost
	err = CacheAside(ctx, PostKey("p1"), &again, PostTTL, fetch(&again))
	require.NoError(t, err)
	assert.Equal(t, 1, fetches)
	assert.Equal(t, got, again)
}

func TestCacheAsideFetchError(t *testing.T) {
	setupRedis(t)

	wantErr := errors.New("store down")
	var got cachedPost
	err := CacheAside(context.Background(), PostKey("p2"), &got, time.Minute, func() error {
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)

	// Nothing cached on failure.
	found, err := GetJSON(context.Background(), PostKey("p2"), &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCacheAsideNilClient(t *testing.T) {
	SetClient(nil)

	fetches := 0
	var got cachedPost
	err := CacheAside(context.Background(), PostKey("p3"), &got, time.Minute, func() error {
		fetches++
		got.ID = "p3"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, fetches)
	assert.Equal(t, "p3", got.ID)
}

func TestInvalidate(t *testing.T) {
	mr := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, PostKey("p1"), cachedPost{ID: "p1"}, time.Minute))
	require.NoError(t, SetJSON(ctx, CommentsKey("p1"), []string{"c1"}, time.Minute))

	InvalidatePost(ctx, "p1")

	assert.False(t, mr.Exists(PostKey("p1")))
	assert.False(t, mr.Exists(CommentsKey("p1")))
}
