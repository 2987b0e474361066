// Package repository declares the storage interfaces the service layer depends on.
//
// Services accept these interfaces; internal/repository/sqlite implements them.
// Tests substitute hand-written fakes.
package repository

import (
	"context"

	"github.com/sakif/conduit/internal/model"
)

// ListOptions is a page window. A zero Limit yields an empty page.
type ListOptions struct {
	Limit  int
	Offset int
}

// ArticleFilter narrows an article listing. Empty strings are ignored.
//
// ViewerID is not a filter: it decides the favorited and author.following
// fields of each row. FeedOf restricts results to authors that user follows.
type ArticleFilter struct {
	ListOptions
	Tag       string
	Author    string
	Favorited string
	FeedOf    string
	ViewerID  string
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error

	Follow(ctx context.Context, followerID, followeeID string) error
	Unfollow(ctx context.Context, followerID, followeeID string) error
	IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error)
}

type ArticleRepository interface {
	CreateArticle(ctx context.Context, article *model.Article) error
	GetArticleBySlug(ctx context.Context, slug, viewerID string) (*model.Article, error)
	// SlugTaken reports whether an article other than excludeID owns slug.
	SlugTaken(ctx context.Context, slug, excludeID string) (bool, error)
	UpdateArticle(ctx context.Context, article *model.Article) error
	DeleteArticle(ctx context.Context, id string) error
	ListArticles(ctx context.Context, filter ArticleFilter) ([]model.Article, int, error)

	// Favorite and Unfavorite change the edge and recount favorites_count
	// in one transaction. Both are idempotent.
	Favorite(ctx context.Context, userID, articleID string) error
	Unfavorite(ctx context.Context, userID, articleID string) error

	Tags(ctx context.Context) ([]string, error)
}

type CommentRepository interface {
	CreateComment(ctx context.Context, comment *model.Comment) error
	GetCommentByID(ctx context.Context, id, viewerID string) (*model.Comment, error)
	ListComments(ctx context.Context, articleID, viewerID string) ([]model.Comment, error)
	DeleteComment(ctx context.Context, id string) error
}
