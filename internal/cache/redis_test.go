package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration) (*TagCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewTagCache(rdb, ttl), mr
}

func TestTagCache_MissSetHit(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, time.Minute)

	_, ok, err := c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "empty cache should miss")

	stored, err := c.Set(ctx, 0, []string{"go", "sqlite"})
	require.NoError(t, err)
	assert.True(t, stored)

	tags, ok, err := c.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"go", "sqlite"}, tags)
}

func TestTagCache_EmptyListIsAHit(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, time.Minute)

	_, err := c.Set(ctx, 0, nil)
	require.NoError(t, err)

	tags, ok, err := c.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, tags)
}

func TestTagCache_TTLExpires(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, 5*time.Minute)

	_, err := c.Set(ctx, 0, []string{"go"})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, mr.TTL(tagsKey))

	mr.FastForward(6 * time.Minute)

	_, ok, err := c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTagCache_Invalidate(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, time.Minute)

	_, err := c.Set(ctx, 0, []string{"go"})
	require.NoError(t, err)
	require.NoError(t, c.Invalidate(ctx))

	_, ok, err := c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	version, err := c.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
}

func TestTagCache_SetSkipsStaleVersion(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, time.Minute)

	version, err := c.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), version)

	// Another instance invalidates while this one is reading the database.
	require.NoError(t, c.Invalidate(ctx))

	stored, err := c.Set(ctx, version, []string{"stale"})
	require.NoError(t, err)
	assert.False(t, stored)
	assert.False(t, mr.Exists(tagsKey), "stale list must not be cached")

	version, err = c.Version(ctx)
	require.NoError(t, err)
	stored, err = c.Set(ctx, version, []string{"fresh"})
	require.NoError(t, err)
	assert.True(t, stored)

	tags, ok, err := c.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"fresh"}, tags)
}

func TestTagCache_ServerDown(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, time.Minute)
	mr.Close()

	_, _, err := c.Get(ctx)
	assert.Error(t, err)
	_, err = c.Set(ctx, 0, []string{"go"})
	assert.Error(t, err)
	assert.Error(t, c.Invalidate(ctx))
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	rdb, err := Connect(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	defer rdb.Close()

	_, err = Connect(context.Background(), "not-a-url")
	assert.Error(t, err)
}
