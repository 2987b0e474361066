package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/xid"
	"github.com/sakif/conduit/internal/apperror"
	"github.com/sakif/conduit/internal/model"
	"github.com/sakif/conduit/internal/repository"
)

var _ repository.ArticleRepository = (*DB)(nil)

// articleSelect reads an article with its author and the two viewer-relative
// flags. It takes the viewer id twice; an empty viewer matches no rows in
// either subquery, so anonymous readers get false for both.
const articleSelect = `
	SELECT a.id, a.slug, a.title, a.description, a.body, a.tag_list,
	       a.favorites_count, a.created_at, a.updated_at, a.author_id,
	       u.username, u.bio, u.image,
	       EXISTS(SELECT 1 FROM favorites f WHERE f.article_id = a.id AND f.user_id = ?),
	       EXISTS(SELECT 1 FROM follows fo WHERE fo.followee_id = a.author_id AND fo.follower_id = ?)
	FROM articles a
	JOIN users u ON u.id = a.author_id`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (*model.Article, error) {
	var (
		a          model.Article
		tags       string
		bio, image sql.NullString
	)

	err := row.Scan(
		&a.ID,
		&a.Slug,
		&a.Title,
		&a.Description,
		&a.Body,
		&tags,
		&a.FavoritesCount,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.AuthorID,
		&a.Author.Username,
		&bio,
		&image,
		&a.Favorited,
		&a.Author.Following,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(tags), &a.TagList); err != nil {
		return nil, fmt.Errorf("decoding tag list of %s: %w", a.ID, err)
	}
	if a.TagList == nil {
		a.TagList = []string{}
	}
	a.Author.Bio = stringPtr(bio)
	a.Author.Image = stringPtr(image)
	return &a, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CreateArticle inserts article and fills in its ID, timestamps and a zero
// favorites count. The caller sets Slug and AuthorID.
func (db *DB) CreateArticle(ctx context.Context, article *model.Article) error {
	tags, err := encodeTags(article.TagList)
	if err != nil {
		return fmt.Errorf("sqlite: encoding tags: %w", err)
	}

	t := now()
	article.ID = xid.New().String()
	article.CreatedAt = t
	article.UpdatedAt = t
	article.FavoritesCount = 0

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO articles
		   (id, slug, title, description, body, tag_list, author_id, favorites_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		article.ID,
		article.Slug,
		article.Title,
		article.Description,
		article.Body,
		tags,
		article.AuthorID,
		article.CreatedAt,
		article.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "articles.slug") {
			return apperror.Conflict("slug", "has already been taken")
		}
		return fmt.Errorf("sqlite: creating article %q: %w", article.Slug, err)
	}
	return nil
}

// GetArticleBySlug returns the article with its author profile resolved
// against viewerID (empty for anonymous).
func (db *DB) GetArticleBySlug(ctx context.Context, slug, viewerID string) (*model.Article, error) {
	row := db.conn.QueryRowContext(ctx,
		articleSelect+` WHERE a.slug = ?`,
		viewerID, viewerID, slug,
	)

	article, err := scanArticle(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("article", slug)
		}
		return nil, fmt.Errorf("sqlite: getting article %q: %w", slug, err)
	}
	return article, nil
}

func (db *DB) SlugTaken(ctx context.Context, slug, excludeID string) (bool, error) {
	var taken bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM articles WHERE slug = ? AND id <> ?)`,
		slug, excludeID,
	).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking slug %q: %w", slug, err)
	}
	return taken, nil
}

// UpdateArticle writes the editable fields of article. The author and the
// favorites count are never changed here.
func (db *DB) UpdateArticle(ctx context.Context, article *model.Article) error {
	tags, err := encodeTags(article.TagList)
	if err != nil {
		return fmt.Errorf("sqlite: encoding tags: %w", err)
	}
	article.UpdatedAt = now()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE articles
		 SET slug = ?, title = ?, description = ?, body = ?, tag_list = ?, updated_at = ?
		 WHERE id = ?`,
		article.Slug,
		article.Title,
		article.Description,
		article.Body,
		tags,
		article.UpdatedAt,
		article.ID,
	)
	if err != nil {
		if isUniqueViolation(err, "articles.slug") {
			return apperror.Conflict("slug", "has already been taken")
		}
		return fmt.Errorf("sqlite: updating article %s: %w", article.ID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("article", article.ID)
	}
	return nil
}

// DeleteArticle removes the article. Its favorites go with it through the
// foreign key; its comments are left in place.
func (db *DB) DeleteArticle(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM articles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting article %s: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("article", id)
	}
	return nil
}

// ListArticles returns one page of articles matching filter, newest first,
// and the number of matching articles ignoring the page window.
//
// Filters that name an unknown user simply match nothing.
func (db *DB) ListArticles(ctx context.Context, filter repository.ArticleFilter) ([]model.Article, int, error) {
	var (
		where []string
		args  []any
	)

	if filter.Tag != "" {
		where = append(where, `EXISTS(SELECT 1 FROM json_each(a.tag_list) WHERE json_each.value = ?)`)
		args = append(args, filter.Tag)
	}
	if filter.Author != "" {
		where = append(where, `u.username = ?`)
		args = append(args, filter.Author)
	}
	if filter.Favorited != "" {
		where = append(where, `a.id IN (
			SELECT fa.article_id FROM favorites fa
			JOIN users fu ON fu.id = fa.user_id
			WHERE fu.username = ?)`)
		args = append(args, filter.Favorited)
	}
	if filter.FeedOf != "" {
		where = append(where, `a.author_id IN (SELECT followee_id FROM follows WHERE follower_id = ?)`)
		args = append(args, filter.FeedOf)
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM articles a JOIN users u ON u.id = a.author_id`+clause,
		args...,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting articles: %w", err)
	}

	articles := []model.Article{}
	if filter.Limit <= 0 || filter.Offset >= total {
		return articles, total, nil
	}

	pageArgs := make([]any, 0, len(args)+4)
	pageArgs = append(pageArgs, filter.ViewerID, filter.ViewerID)
	pageArgs = append(pageArgs, args...)
	pageArgs = append(pageArgs, filter.Limit, filter.Offset)

	rows, err := db.conn.QueryContext(ctx,
		articleSelect+clause+` ORDER BY a.created_at DESC, a.rowid DESC LIMIT ? OFFSET ?`,
		pageArgs...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing articles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("sqlite: scanning article row: %w", err)
		}
		articles = append(articles, *article)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: iterating article rows: %w", err)
	}

	return articles, total, nil
}

// Favorite adds the (user, article) edge and recounts the article's
// favorites in the same transaction.
func (db *DB) Favorite(ctx context.Context, userID, articleID string) error {
	return db.setFavorite(ctx, userID, articleID, true)
}

// Unfavorite removes the edge and recounts, symmetric to Favorite.
func (db *DB) Unfavorite(ctx context.Context, userID, articleID string) error {
	return db.setFavorite(ctx, userID, articleID, false)
}

// setFavorite keeps favorites_count equal to the number of favorites rows.
// The count is recomputed from the edge table rather than incremented, so
// repeating either operation cannot drift it.
func (db *DB) setFavorite(ctx context.Context, userID, articleID string, on bool) (err error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning favorite tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var exists bool
	if err = tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM articles WHERE id = ?)`, articleID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("sqlite: checking article %s: %w", articleID, err)
	}
	if !exists {
		err = apperror.NotFound("article", articleID)
		return err
	}

	if on {
		_, err = tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO favorites (user_id, article_id, created_at) VALUES (?, ?, ?)`,
			userID, articleID, now(),
		)
	} else {
		_, err = tx.ExecContext(ctx,
			`DELETE FROM favorites WHERE user_id = ? AND article_id = ?`,
			userID, articleID,
		)
	}
	if err != nil {
		return fmt.Errorf("sqlite: writing favorite %s/%s: %w", userID, articleID, err)
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE articles
		 SET favorites_count = (SELECT COUNT(*) FROM favorites WHERE article_id = ?)
		 WHERE id = ?`,
		articleID, articleID,
	); err != nil {
		return fmt.Errorf("sqlite: recounting favorites of %s: %w", articleID, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing favorite tx: %w", err)
	}
	return nil
}

// Tags returns every distinct tag in use, sorted.
func (db *DB) Tags(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT DISTINCT j.value
		 FROM articles a, json_each(a.tag_list) j
		 ORDER BY j.value`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing tags: %w", err)
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("sqlite: scanning tag: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating tags: %w", err)
	}
	return tags, nil
}
