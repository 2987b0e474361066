package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/conduit/internal/apperror"
	"github.com/sakif/conduit/internal/model"
	"github.com/sakif/conduit/internal/repository"
	"github.com/sakif/conduit/internal/validation"
)

const DefaultListLimit = 20

// TagInvalidator is told whenever the set of tags in use may have changed.
type TagInvalidator interface {
	Invalidate(ctx context.Context)
}

// ArticleService covers listing, feeds, article mutation and favorites.
type ArticleService struct {
	articles repository.ArticleRepository
	tags     TagInvalidator
	logger   *slog.Logger
}

func NewArticleService(articles repository.ArticleRepository, tags TagInvalidator, logger *slog.Logger) *ArticleService {
	return &ArticleService{
		articles: articles,
		tags:     tags,
		logger:   logger,
	}
}

// ArticleQuery filters GET /api/articles. Zero Limit means an empty page;
// the handler fills in DefaultListLimit when the parameter is absent.
type ArticleQuery struct {
	Tag       string
	Author    string
	Favorited string
	Limit     int `json:"limit" validate:"min=0"`
	Offset    int `json:"offset" validate:"min=0"`
}

// ArticlePage is one page plus the number of matches ignoring pagination.
type ArticlePage struct {
	Articles      []model.Article `json:"articles"`
	ArticlesCount int             `json:"articlesCount"`
}

type ArticleInput struct {
	Title       string   `json:"title" validate:"required,notblank"`
	Description string   `json:"description" validate:"required,notblank"`
	Body        string   `json:"body" validate:"required,notblank"`
	TagList     []string `json:"tagList" validate:"omitempty,dive,notblank"`
}

// ArticleUpdate changes only the non-nil fields. A provided field may not be blank.
type ArticleUpdate struct {
	Title       *string   `json:"title" validate:"omitnil,notblank"`
	Description *string   `json:"description" validate:"omitnil,notblank"`
	Body        *string   `json:"body" validate:"omitnil,notblank"`
	TagList     *[]string `json:"tagList" validate:"omitnil,dive,notblank"`
}

// List returns articles matching q, newest first. Flags are computed
// against viewer, which may be nil.
func (s *ArticleService) List(ctx context.Context, viewer *model.User, q ArticleQuery) (*ArticlePage, error) {
	if err := validation.Struct(q); err != nil {
		return nil, err
	}

	return s.list(ctx, repository.ArticleFilter{
		ListOptions: repository.ListOptions{Limit: q.Limit, Offset: q.Offset},
		Tag:         strings.TrimSpace(q.Tag),
		Author:      strings.TrimSpace(q.Author),
		Favorited:   strings.TrimSpace(q.Favorited),
		ViewerID:    viewerID(viewer),
	})
}

// Feed returns articles written by users that user follows, newest first.
func (s *ArticleService) Feed(ctx context.Context, user *model.User, limit, offset int) (*ArticlePage, error) {
	if err := validation.Struct(ArticleQuery{Limit: limit, Offset: offset}); err != nil {
		return nil, err
	}

	return s.list(ctx, repository.ArticleFilter{
		ListOptions: repository.ListOptions{Limit: limit, Offset: offset},
		FeedOf:      user.ID,
		ViewerID:    user.ID,
	})
}

func (s *ArticleService) list(ctx context.Context, filter repository.ArticleFilter) (*ArticlePage, error) {
	articles, total, err := s.articles.ListArticles(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list articles", slog.String("error", err.Error()))
		return nil, fmt.Errorf("service/article: listing: %w", err)
	}
	return &ArticlePage{Articles: articles, ArticlesCount: total}, nil
}

// Get returns the article with the given slug as seen by viewer.
func (s *ArticleService) Get(ctx context.Context, viewer *model.User, slug string) (*model.Article, error) {
	return s.articles.GetArticleBySlug(ctx, slug, viewerID(viewer))
}

// Create publishes a new article by author. Its slug comes from the title.
func (s *ArticleService) Create(ctx context.Context, author *model.User, in ArticleInput) (*model.Article, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	slug, err := uniqueSlug(ctx, s.articles, title, "")
	if err != nil {
		return nil, fmt.Errorf("service/article: deriving slug: %w", err)
	}

	article := &model.Article{
		Slug:        slug,
		Title:       title,
		Description: in.Description,
		Body:        in.Body,
		TagList:     cleanTags(in.TagList),
		AuthorID:    author.ID,
	}
	if err := s.articles.CreateArticle(ctx, article); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		s.logger.Error("failed to create article",
			slog.String("slug", slug),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/article: creating: %w", err)
	}

	s.tags.Invalidate(ctx)
	s.logger.Info("article created",
		slog.String("slug", article.Slug),
		slog.String("author", author.Username),
	)
	return s.articles.GetArticleBySlug(ctx, article.Slug, author.ID)
}

// Update applies in to article. Ownership is checked by the caller.
func (s *ArticleService) Update(ctx context.Context, viewer *model.User, article *model.Article, in ArticleUpdate) (*model.Article, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	updated := *article
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title != article.Title {
			slug, err := uniqueSlug(ctx, s.articles, title, article.ID)
			if err != nil {
				return nil, fmt.Errorf("service/article: deriving slug: %w", err)
			}
			updated.Title = title
			updated.Slug = slug
		}
	}
	if in.Description != nil {
		updated.Description = *in.Description
	}
	if in.Body != nil {
		updated.Body = *in.Body
	}
	if in.TagList != nil {
		updated.TagList = cleanTags(*in.TagList)
	}

	if err := s.articles.UpdateArticle(ctx, &updated); err != nil {
		if errors.Is(err, apperror.ErrConflict) || errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		s.logger.Error("failed to update article",
			slog.String("slug", article.Slug),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/article: updating %s: %w", article.Slug, err)
	}

	if in.TagList != nil {
		s.tags.Invalidate(ctx)
	}
	s.logger.Info("article updated",
		slog.String("slug", updated.Slug),
		slog.String("previousSlug", article.Slug),
	)
	return s.articles.GetArticleBySlug(ctx, updated.Slug, viewerID(viewer))
}

// Delete removes article and its favorites. Its comments are not deleted.
func (s *ArticleService) Delete(ctx context.Context, article *model.Article) error {
	if err := s.articles.DeleteArticle(ctx, article.ID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		s.logger.Error("failed to delete article",
			slog.String("slug", article.Slug),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("service/article: deleting %s: %w", article.Slug, err)
	}

	s.tags.Invalidate(ctx)
	s.logger.Info("article deleted", slog.String("slug", article.Slug))
	return nil
}

// Favorite marks article as favorited by user. Repeating it changes nothing.
func (s *ArticleService) Favorite(ctx context.Context, user *model.User, article *model.Article) (*model.Article, error) {
	if err := s.articles.Favorite(ctx, user.ID, article.ID); err != nil {
		return nil, s.favoriteErr("favorite", article, err)
	}
	s.logger.Info("article favorited",
		slog.String("slug", article.Slug),
		slog.String("user", user.Username),
	)
	return s.articles.GetArticleBySlug(ctx, article.Slug, user.ID)
}

// Unfavorite is the inverse of Favorite and equally idempotent.
func (s *ArticleService) Unfavorite(ctx context.Context, user *model.User, article *model.Article) (*model.Article, error) {
	if err := s.articles.Unfavorite(ctx, user.ID, article.ID); err != nil {
		return nil, s.favoriteErr("unfavorite", article, err)
	}
	s.logger.Info("article unfavorited",
		slog.String("slug", article.Slug),
		slog.String("user", user.Username),
	)
	return s.articles.GetArticleBySlug(ctx, article.Slug, user.ID)
}

func (s *ArticleService) favoriteErr(op string, article *model.Article, err error) error {
	if errors.Is(err, apperror.ErrNotFound) {
		return err
	}
	s.logger.Error("failed to "+op+" article",
		slog.String("slug", article.Slug),
		slog.String("error", err.Error()),
	)
	return fmt.Errorf("service/article: %s %s: %w", op, article.Slug, err)
}

// cleanTags trims each tag and drops duplicates, keeping first-seen order.
func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
