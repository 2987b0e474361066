package handler

import (
	"net/http"

	"github.com/sakif/conduit/internal/service"
)

type TagHandler struct {
	tags *service.TagService
}

func NewTagHandler(tags *service.TagService) *TagHandler {
	return &TagHandler{tags: tags}
}

// HandleList returns every tag in use.
//
// HTTP: GET /api/tags
func (h *TagHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	tags, err := h.tags.All(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tagsResponse{Tags: tags})
}
