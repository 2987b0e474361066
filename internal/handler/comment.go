package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/conduit/internal/auth"
	"github.com/sakif/conduit/internal/service"
)

// CommentHandler serves /api/articles/{slug}/comments. Every route runs
// behind ArticleCtx.
type CommentHandler struct {
	comments *service.CommentService
	logger   *slog.Logger
}

func NewCommentHandler(comments *service.CommentService, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{comments: comments, logger: logger}
}

// HandleList returns the article's comments, oldest first.
//
// HTTP: GET /api/articles/{slug}/comments
func (h *CommentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	comments, err := h.comments.ListFor(r.Context(), auth.UserFromContext(r.Context()), articleFromContext(r.Context()))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, commentsResponse{Comments: comments})
}

// HandleCreate adds a comment by the caller.
//
// HTTP: POST /api/articles/{slug}/comments
// REQUEST BODY: {"comment": {"body"}}
func (h *CommentHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createCommentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, r, err)
		return
	}

	comment, err := h.comments.Add(r.Context(),
		articleFromContext(r.Context()),
		auth.UserFromContext(r.Context()),
		req.Comment,
	)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, commentResponse{Comment: comment})
}

// HandleDelete removes a comment. A comment id that belongs to a different
// article is rejected with 422 rather than deleted.
//
// HTTP: DELETE /api/articles/{slug}/comments/{commentId}
func (h *CommentHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	err := h.comments.Delete(r.Context(), articleFromContext(r.Context()), chi.URLParam(r, "commentId"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
