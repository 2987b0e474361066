package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/conduit/internal/apperror"
)

func TestComment_AddListDelete(t *testing.T) {
	f := newArticleFixture(t)
	ctx := context.Background()
	jake := f.user(t, "jake")
	fan := f.user(t, "fan")
	a := f.article(t, jake, "Discussed")

	first, err := f.comments.Add(ctx, a, fan, CommentInput{Body: "first!"})
	require.NoError(t, err)
	assert.Equal(t, "fan", first.Author.Username)
	assert.NotEmpty(t, first.ID)

	_, err = f.comments.Add(ctx, a, jake, CommentInput{Body: "thanks"})
	require.NoError(t, err)

	list, err := f.comments.ListFor(ctx, nil, a)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "first!", list[0].Body)
	assert.Equal(t, "thanks", list[1].Body)

	require.NoError(t, f.comments.Delete(ctx, a, first.ID))
	list, _ = f.comments.ListFor(ctx, nil, a)
	assert.Len(t, list, 1)
}

func TestComment_BlankBody(t *testing.T) {
	f := newArticleFixture(t)
	jake := f.user(t, "jake")
	a := f.article(t, jake, "Quiet")

	_, err := f.comments.Add(context.Background(), a, jake, CommentInput{Body: "   "})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestCommentDelete_WrongArticleIsReferenceError(t *testing.T) {
	f := newArticleFixture(t)
	ctx := context.Background()
	jake := f.user(t, "jake")
	a := f.article(t, jake, "Article A")
	b := f.article(t, jake, "Article B")

	c, err := f.comments.Add(ctx, a, jake, CommentInput{Body: "on A"})
	require.NoError(t, err)

	err = f.comments.Delete(ctx, b, c.ID)
	assert.ErrorIs(t, err, apperror.ErrCommentReference)
	assert.NotErrorIs(t, err, apperror.ErrNotFound)

	// Still there.
	_, err = f.comments.GetByID(ctx, nil, c.ID)
	assert.NoError(t, err)
}

func TestCommentDelete_UnknownID(t *testing.T) {
	f := newArticleFixture(t)
	jake := f.user(t, "jake")
	a := f.article(t, jake, "Article")

	err := f.comments.Delete(context.Background(), a, "does-not-exist")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestComment_OrphanedAfterArticleDelete(t *testing.T) {
	f := newArticleFixture(t)
	ctx := context.Background()
	jake := f.user(t, "jake")
	a := f.article(t, jake, "Short lived")

	c, err := f.comments.Add(ctx, a, jake, CommentInput{Body: "still here"})
	require.NoError(t, err)
	require.NoError(t, f.articles.Delete(ctx, a))

	got, err := f.comments.GetByID(ctx, nil, c.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ArticleID)
}
