package service

import (
	"context"
	"fmt"
	"log/slog"
)

// TagStore lists the distinct tags currently in use.
type TagStore interface {
	Tags(ctx context.Context) ([]string, error)
}

// TagCache is an optional read-through cache for the tag list.
// internal/cache.TagCache implements it on Redis.
type TagCache interface {
	Get(ctx context.Context) (tags []string, ok bool, err error)
	Version(ctx context.Context) (int64, error)
	Set(ctx context.Context, version int64, tags []string) (stored bool, err error)
	Invalidate(ctx context.Context) error
}

// TagService serves GET /api/tags. A nil cache reads the store every time;
// a failing cache is logged and bypassed.
type TagService struct {
	store  TagStore
	cache  TagCache
	logger *slog.Logger
}

func NewTagService(store TagStore, cache TagCache, logger *slog.Logger) *TagService {
	return &TagService{store: store, cache: cache, logger: logger}
}

// All returns the distinct union of every article's tags.
func (s *TagService) All(ctx context.Context) ([]string, error) {
	if s.cache != nil {
		tags, ok, err := s.cache.Get(ctx)
		if err != nil {
			s.logger.Warn("tag cache read failed", slog.String("error", err.Error()))
		} else if ok {
			return tags, nil
		}
	}

	// The version is read before the store so that an Invalidate racing
	// with this load makes the Set below a no-op.
	version, cacheable := int64(0), false
	if s.cache != nil {
		v, err := s.cache.Version(ctx)
		if err != nil {
			s.logger.Warn("tag cache version read failed", slog.String("error", err.Error()))
		} else {
			version, cacheable = v, true
		}
	}

	tags, err := s.store.Tags(ctx)
	if err != nil {
		s.logger.Error("failed to list tags", slog.String("error", err.Error()))
		return nil, fmt.Errorf("service/tag: listing: %w", err)
	}

	if cacheable {
		stored, err := s.cache.Set(ctx, version, tags)
		switch {
		case err != nil:
			s.logger.Warn("tag cache write failed", slog.String("error", err.Error()))
		case !stored:
			s.logger.Debug("tag list changed while loading; not cached")
		}
	}
	return tags, nil
}

// Invalidate drops the cached tag list. It satisfies TagInvalidator.
func (s *TagService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("tag cache invalidation failed", slog.String("error", err.Error()))
	}
}
