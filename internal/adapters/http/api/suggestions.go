package api

import (
	"context"
	"net/http"

	"github.com/okian/skillmatch/internal/domain/model"
)

// SuggestionDependencies defines the interface for recommendation queries.
type SuggestionDependencies interface {
	SuggestUsers(ctx context.Context, callerID string) ([]model.CandidateMatch, error)
	SuggestSessions(ctx context.Context, callerID string) ([]model.CandidateMatch, error)
}

// SuggestionHandler handles suggestion requests.
type SuggestionHandler struct {
	deps SuggestionDependencies
}

// NewSuggestionHandler creates a new suggestion handler.
func NewSuggestionHandler(deps SuggestionDependencies) *SuggestionHandler {
	return &SuggestionHandler{deps: deps}
}

// HandleUsers handles GET /users/suggested requests.
func (h *SuggestionHandler) HandleUsers(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "api.suggest_users", h.deps.SuggestUsers)
}

// HandleSessions handles GET /sessions/suggested requests.
func (h *SuggestionHandler) HandleSessions(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "api.suggest_sessions", h.deps.SuggestSessions)
}

func (h *SuggestionHandler) serve(w http.ResponseWriter, r *http.Request, op string,
	suggest func(context.Context, string) ([]model.CandidateMatch, error),
) {
	caller, ok := callerID(w, r, op)
	if !ok {
		return
	}
	matches, err := suggest(r.Context(), caller)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	if matches == nil {
		matches = []model.CandidateMatch{}
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: matches})
}
