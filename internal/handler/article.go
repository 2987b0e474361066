package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sakif/conduit/internal/apperror"
	"github.com/sakif/conduit/internal/auth"
	"github.com/sakif/conduit/internal/service"
)

// ArticleHandler serves /api/articles and the favorite endpoints.
type ArticleHandler struct {
	articles *service.ArticleService
	logger   *slog.Logger
}

func NewArticleHandler(articles *service.ArticleService, logger *slog.Logger) *ArticleHandler {
	return &ArticleHandler{articles: articles, logger: logger}
}

// HandleList returns the newest articles matching the query filters.
//
// HTTP: GET /api/articles?tag=&author=&favorited=&limit=20&offset=0
func (h *ArticleHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset, err := parseWindow(q)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	page, err := h.articles.List(r.Context(), auth.UserFromContext(r.Context()), service.ArticleQuery{
		Tag:       q.Get("tag"),
		Author:    q.Get("author"),
		Favorited: q.Get("favorited"),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// HandleFeed returns articles by users the caller follows.
//
// HTTP: GET /api/articles/feed?limit=20&offset=0
func (h *ArticleHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parseWindow(r.URL.Query())
	if err != nil {
		WriteError(w, r, err)
		return
	}

	page, err := h.articles.Feed(r.Context(), auth.UserFromContext(r.Context()), limit, offset)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// HandleGet returns the article loaded by ArticleCtx.
//
// HTTP: GET /api/articles/{slug}
func (h *ArticleHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, articleResponse{Article: articleFromContext(r.Context())})
}

// HandleCreate publishes an article by the caller.
//
// HTTP: POST /api/articles
// REQUEST BODY: {"article": {"title", "description", "body", "tagList"?}}
func (h *ArticleHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createArticleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, r, err)
		return
	}

	article, err := h.articles.Create(r.Context(), auth.UserFromContext(r.Context()), req.Article)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, articleResponse{Article: article})
}

// HandleUpdate changes the provided fields. A new title changes the slug.
//
// HTTP: PUT /api/articles/{slug}
func (h *ArticleHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateArticleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, r, err)
		return
	}

	article, err := h.articles.Update(r.Context(),
		auth.UserFromContext(r.Context()),
		articleFromContext(r.Context()),
		req.Article,
	)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, articleResponse{Article: article})
}

// HandleDelete removes the article.
//
// HTTP: DELETE /api/articles/{slug}
func (h *ArticleHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.articles.Delete(r.Context(), articleFromContext(r.Context())); err != nil {
		WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleFavorite marks the article as a favorite of the caller.
//
// HTTP: POST /api/articles/{slug}/favorite
func (h *ArticleHandler) HandleFavorite(w http.ResponseWriter, r *http.Request) {
	article, err := h.articles.Favorite(r.Context(), auth.UserFromContext(r.Context()), articleFromContext(r.Context()))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, articleResponse{Article: article})
}

// HandleUnfavorite is the inverse of HandleFavorite.
//
// HTTP: DELETE /api/articles/{slug}/favorite
func (h *ArticleHandler) HandleUnfavorite(w http.ResponseWriter, r *http.Request) {
	article, err := h.articles.Unfavorite(r.Context(), auth.UserFromContext(r.Context()), articleFromContext(r.Context()))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, articleResponse{Article: article})
}

// parseWindow reads limit and offset. Absent values default to
// service.DefaultListLimit and 0; range checks are left to the service.
func parseWindow(q url.Values) (limit, offset int, err error) {
	problems := map[string][]string{}

	limit = service.DefaultListLimit
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil {
			problems["limit"] = []string{"must be an integer"}
		}
	}
	if v := q.Get("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil {
			problems["offset"] = []string{"must be an integer"}
		}
	}

	if len(problems) > 0 {
		return 0, 0, apperror.Invalid(problems)
	}
	return limit, offset, nil
}
