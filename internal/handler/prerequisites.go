package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/conduit/internal/apperror"
	"github.com/sakif/conduit/internal/auth"
	"github.com/sakif/conduit/internal/model"
)

// Route prerequisites load the resources a route names and check ownership
// before the handler runs. They are chained in a fixed order so that a
// missing article is reported (404) before the caller's permission (403):
//
//	r.With(authn, h.ArticleCtx, RequireArticleAuthor).Put("/", h.HandleUpdate)

type ctxKey int

const (
	articleKey ctxKey = iota
	commentKey
)

func articleFromContext(ctx context.Context) *model.Article {
	a, _ := ctx.Value(articleKey).(*model.Article)
	return a
}

func commentFromContext(ctx context.Context) *model.Comment {
	c, _ := ctx.Value(commentKey).(*model.Comment)
	return c
}

// ArticleCtx loads {slug} as seen by the current user, or responds 404.
// It must run after the auth middleware.
func (h *ArticleHandler) ArticleCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		article, err := h.articles.Get(r.Context(), auth.UserFromContext(r.Context()), chi.URLParam(r, "slug"))
		if err != nil {
			WriteError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), articleKey, article)))
	})
}

// CommentCtx loads {commentId}, or responds 404. The comment is not yet
// checked against the article in the path; the delete itself does that.
func (h *CommentHandler) CommentCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		comment, err := h.comments.GetByID(r.Context(), auth.UserFromContext(r.Context()), chi.URLParam(r, "commentId"))
		if err != nil {
			WriteError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), commentKey, comment)))
	})
}

// RequireArticleAuthor responds 403 unless the current user wrote the
// article loaded by ArticleCtx.
func RequireArticleAuthor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := auth.UserFromContext(r.Context())
		article := articleFromContext(r.Context())
		if user == nil || article == nil || article.AuthorID != user.ID {
			WriteError(w, r, apperror.Forbidden("only the author may change this article"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireCommentAuthor responds 403 unless the current user wrote the
// comment loaded by CommentCtx.
func RequireCommentAuthor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := auth.UserFromContext(r.Context())
		comment := commentFromContext(r.Context())
		if user == nil || comment == nil || comment.AuthorID != user.ID {
			WriteError(w, r, apperror.Forbidden("only the author may delete this comment"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
