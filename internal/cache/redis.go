// Package cache holds the Redis-backed tag list cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const (
	tagsKey    = "conduit:tags"
	versionKey = "conduit:tags:version"
)

var errStaleVersion = errors.New("cache: tag version changed")

// TagCache stores the distinct tag list as one JSON value with a TTL.
// Every Invalidate bumps a version counter; Set only writes when the
// caller's version is still current, so a list read from the database
// before an invalidation is never cached after it.
type TagCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewTagCache(rdb *redis.Client, ttl time.Duration) *TagCache {
	return &TagCache{rdb: rdb, ttl: ttl}
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("cache: parsing redis url: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("cache: pinging redis: %w", err)
	}
	return rdb, nil
}

// Get returns the cached tags. ok is false on a miss.
func (c *TagCache) Get(ctx context.Context) ([]string, bool, error) {
	raw, err := c.rdb.Get(ctx, tagsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: reading tags: %w", err)
	}

	var tags []string
	if err := json.Unmarshal(raw, &tags); err != nil {
		return nil, false, fmt.Errorf("cache: decoding tags: %w", err)
	}
	return tags, true, nil
}

// Version returns the current invalidation counter. Read it before loading
// the tags from the database and pass it to Set.
func (c *TagCache) Version(ctx context.Context) (int64, error) {
	v, err := c.rdb.Get(ctx, versionKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("cache: reading tag version: %w", err)
	}
	return v, nil
}

// Set caches tags if no Invalidate happened since version was read.
// stored is false when the write was skipped as stale.
func (c *TagCache) Set(ctx context.Context, version int64, tags []string) (stored bool, err error) {
	if tags == nil {
		tags = []string{}
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return false, fmt.Errorf("cache: encoding tags: %w", err)
	}

	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, versionKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return errStaleVersion
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, tagsKey, raw, c.ttl)
			return nil
		})
		return err
	}, versionKey)

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errStaleVersion), errors.Is(err, redis.TxFailedErr):
		return false, nil
	default:
		return false, fmt.Errorf("cache: writing tags: %w", err)
	}
}

func (c *TagCache) Invalidate(ctx context.Context) error {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey)
		pipe.Del(ctx, tagsKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache: invalidating tags: %w", err)
	}
	return nil
}
