package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/xid"
	"github.com/sakif/conduit/internal/apperror"
	"github.com/sakif/conduit/internal/model"
	"github.com/sakif/conduit/internal/repository"
)

var _ repository.CommentRepository = (*DB)(nil)

const commentSelect = `
	SELECT c.id, c.body, c.created_at, c.updated_at, c.article_id, c.author_id,
	       u.username, u.bio, u.image,
	       EXISTS(SELECT 1 FROM follows fo WHERE fo.followee_id = c.author_id AND fo.follower_id = ?)
	FROM comments c
	JOIN users u ON u.id = c.author_id`

func scanComment(row rowScanner) (*model.Comment, error) {
	var (
		c          model.Comment
		bio, image sql.NullString
	)

	err := row.Scan(
		&c.ID,
		&c.Body,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.ArticleID,
		&c.AuthorID,
		&c.Author.Username,
		&bio,
		&image,
		&c.Author.Following,
	)
	if err != nil {
		return nil, err
	}

	c.Author.Bio = stringPtr(bio)
	c.Author.Image = stringPtr(image)
	return &c, nil
}

// CreateComment inserts comment. The caller sets Body, ArticleID and AuthorID.
func (db *DB) CreateComment(ctx context.Context, comment *model.Comment) error {
	t := now()
	comment.ID = xid.New().String()
	comment.CreatedAt = t
	comment.UpdatedAt = t

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO comments (id, body, author_id, article_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		comment.ID,
		comment.Body,
		comment.AuthorID,
		comment.ArticleID,
		comment.CreatedAt,
		comment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating comment on %s: %w", comment.ArticleID, err)
	}
	return nil
}

func (db *DB) GetCommentByID(ctx context.Context, id, viewerID string) (*model.Comment, error) {
	comment, err := scanComment(db.conn.QueryRowContext(ctx,
		commentSelect+` WHERE c.id = ?`,
		viewerID, id,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("comment", id)
		}
		return nil, fmt.Errorf("sqlite: getting comment %s: %w", id, err)
	}
	return comment, nil
}

// ListComments returns the comments of an article in the order they were posted.
func (db *DB) ListComments(ctx context.Context, articleID, viewerID string) ([]model.Comment, error) {
	rows, err := db.conn.QueryContext(ctx,
		commentSelect+` WHERE c.article_id = ? ORDER BY c.created_at ASC, c.rowid ASC`,
		viewerID, articleID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing comments of %s: %w", articleID, err)
	}
	defer rows.Close()

	comments := []model.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning comment row: %w", err)
		}
		comments = append(comments, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating comment rows: %w", err)
	}
	return comments, nil
}

func (db *DB) DeleteComment(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting comment %s: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("comment", id)
	}
	return nil
}
