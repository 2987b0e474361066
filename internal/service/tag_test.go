package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTagStore struct {
	tags  []string
	calls int
	err   error
	// during runs inside Tags, after the result has been read.
	during func()
}

func (f *fakeTagStore) Tags(context.Context) ([]string, error) {
	f.calls++
	tags := f.tags
	if f.during != nil {
		f.during()
	}
	return tags, f.err
}

type fakeTagCache struct {
	tags        []string
	ok          bool
	version     int64
	getErr      error
	setErr      error
	invalidated int
}

func (f *fakeTagCache) Get(context.Context) ([]string, bool, error) {
	return f.tags, f.ok, f.getErr
}

func (f *fakeTagCache) Version(context.Context) (int64, error) {
	return f.version, f.getErr
}

func (f *fakeTagCache) Set(_ context.Context, version int64, tags []string) (bool, error) {
	if f.setErr != nil {
		return false, f.setErr
	}
	if version != f.version {
		return false, nil
	}
	f.tags, f.ok = tags, true
	return true, nil
}

func (f *fakeTagCache) Invalidate(context.Context) error {
	f.invalidated++
	f.version++
	f.tags, f.ok = nil, false
	return nil
}

func TestTagService_NoCache(t *testing.T) {
	store := &fakeTagStore{tags: []string{"go"}}
	svc := NewTagService(store, nil, testLogger())

	tags, err := svc.All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"go"}, tags)

	svc.Invalidate(context.Background()) // no-op without a cache
}

func TestTagService_ReadThrough(t *testing.T) {
	ctx := context.Background()
	store := &fakeTagStore{tags: []string{"go", "sqlite"}}
	cache := &fakeTagCache{}
	svc := NewTagService(store, cache, testLogger())

	for i := 0; i < 3; i++ {
		tags, err := svc.All(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"go", "sqlite"}, tags)
	}
	assert.Equal(t, 1, store.calls, "later reads should come from the cache")

	svc.Invalidate(ctx)
	store.tags = []string{"rust"}

	tags, err := svc.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"rust"}, tags)
	assert.Equal(t, 2, store.calls)
}

func TestTagService_InvalidateDuringLoadIsNotOverwritten(t *testing.T) {
	ctx := context.Background()
	store := &fakeTagStore{tags: []string{"go"}}
	cache := &fakeTagCache{}
	svc := NewTagService(store, cache, testLogger())

	// A write lands between the database read and the cache fill.
	store.during = func() {
		store.tags = []string{"go", "rust"}
		svc.Invalidate(ctx)
	}

	tags, err := svc.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"go"}, tags, "the in-flight read still returns what it loaded")
	assert.False(t, cache.ok, "the pre-invalidation list must not be cached")

	store.during = nil
	tags, err = svc.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "rust"}, tags)
	assert.Equal(t, 2, store.calls)
}

func TestTagService_CacheFailureFallsBackToStore(t *testing.T) {
	store := &fakeTagStore{tags: []string{"go"}}
	cache := &fakeTagCache{getErr: errors.New("connection refused"), setErr: errors.New("connection refused")}
	svc := NewTagService(store, cache, testLogger())

	tags, err := svc.All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"go"}, tags)
}

func TestTagService_StoreError(t *testing.T) {
	store := &fakeTagStore{err: errors.New("disk I/O error")}
	svc := NewTagService(store, &fakeTagCache{}, testLogger())

	_, err := svc.All(context.Background())
	assert.Error(t, err)
}
