package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/conduit/internal/apperror"
	"github.com/sakif/conduit/internal/model"
	"github.com/sakif/conduit/internal/repository"
	"github.com/sakif/conduit/internal/validation"
)

type CommentService struct {
	comments repository.CommentRepository
	logger   *slog.Logger
}

func NewCommentService(comments repository.CommentRepository, logger *slog.Logger) *CommentService {
	return &CommentService{comments: comments, logger: logger}
}

type CommentInput struct {
	Body string `json:"body" validate:"required,notblank"`
}

// Add posts a comment by author on article.
func (s *CommentService) Add(ctx context.Context, article *model.Article, author *model.User, in CommentInput) (*model.Comment, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	comment := &model.Comment{
		Body:      in.Body,
		ArticleID: article.ID,
		AuthorID:  author.ID,
	}
	if err := s.comments.CreateComment(ctx, comment); err != nil {
		s.logger.Error("failed to create comment",
			slog.String("slug", article.Slug),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/comment: creating on %s: %w", article.Slug, err)
	}

	s.logger.Info("comment added",
		slog.String("commentID", comment.ID),
		slog.String("slug", article.Slug),
	)
	return s.comments.GetCommentByID(ctx, comment.ID, author.ID)
}

// GetByID returns a comment as seen by viewer, regardless of its article.
func (s *CommentService) GetByID(ctx context.Context, viewer *model.User, id string) (*model.Comment, error) {
	return s.comments.GetCommentByID(ctx, id, viewerID(viewer))
}

// ListFor returns the comments of article in the order they were posted.
func (s *CommentService) ListFor(ctx context.Context, viewer *model.User, article *model.Article) ([]model.Comment, error) {
	comments, err := s.comments.ListComments(ctx, article.ID, viewerID(viewer))
	if err != nil {
		s.logger.Error("failed to list comments",
			slog.String("slug", article.Slug),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/comment: listing for %s: %w", article.Slug, err)
	}
	return comments, nil
}

// Delete removes commentID from article. An unknown id is NotFound; a
// comment that belongs to a different article is ErrCommentReference and
// is left untouched.
func (s *CommentService) Delete(ctx context.Context, article *model.Article, commentID string) error {
	comment, err := s.comments.GetCommentByID(ctx, commentID, "")
	if err != nil {
		return err
	}
	if comment.ArticleID != article.ID {
		return apperror.CommentReference()
	}

	if err := s.comments.DeleteComment(ctx, commentID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		s.logger.Error("failed to delete comment",
			slog.String("commentID", commentID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("service/comment: deleting %s: %w", commentID, err)
	}

	s.logger.Info("comment deleted",
		slog.String("commentID", commentID),
		slog.String("slug", article.Slug),
	)
	return nil
}
