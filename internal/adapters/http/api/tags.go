package api

import (
	"context"
	"net/http"
)

// TagDependencies defines the interface for keyword expansion.
type TagDependencies interface {
	ExpandKeywords(ctx context.Context, keywords []string) ([]string, error)
}

// TagsHandler handles tag requests.
type TagsHandler struct {
	deps TagDependencies
}

// NewTagsHandler creates a new tags handler.
func NewTagsHandler(deps TagDependencies) *TagsHandler {
	return &TagsHandler{deps: deps}
}

type expandRequest struct {
	Keywords []string `json:"keywords"`
}

// HandleExpand handles POST /tags/expand requests.
func (h *TagsHandler) HandleExpand(w http.ResponseWriter, r *http.Request) {
	const op = "api.expand_tags"
	var req expandRequest
	if !decodeBody(w, r, op, &req) {
		return
	}
	if len(req.Keywords) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errNoKeywords))
		return
	}
	out, err := h.deps.ExpandKeywords(r.Context(), req.Keywords)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	if out == nil {
		out = []string{}
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: out})
}
