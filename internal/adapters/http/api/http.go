// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/skillmatch/internal/adapters/repository"
	service "github.com/okian/skillmatch/internal/app"
	"github.com/okian/skillmatch/internal/domain/model"
	"github.com/okian/skillmatch/pkg/logger"
)

// UserHeader carries the caller identity set by the auth gateway.
const UserHeader = "X-User-ID"

const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	SkillDependencies
	SessionDependencies
	SuggestionDependencies
	TagDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	skillsHandler     *SkillsHandler
	sessionsHandler   *SessionsHandler
	suggestionHandler *SuggestionHandler
	tagsHandler       *TagsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(statsProvider),
		skillsHandler:     NewSkillsHandler(deps),
		sessionsHandler:   NewSessionsHandler(deps),
		suggestionHandler: NewSuggestionHandler(deps),
		tagsHandler:       NewTagsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /skills", MetricsMiddleware(s.skillsHandler.HandleCreate, "skills"))
	mux.HandleFunc("GET /skills", MetricsMiddleware(s.skillsHandler.HandleList, "skills"))
	mux.HandleFunc("GET /skills/{id}", MetricsMiddleware(s.skillsHandler.HandleGet, "skill"))
	mux.HandleFunc("PUT /skills/{id}", MetricsMiddleware(s.skillsHandler.HandleUpdate, "skill"))
	mux.HandleFunc("DELETE /skills/{id}", MetricsMiddleware(s.skillsHandler.HandleDelete, "skill"))

	// /sessions/suggested is more specific than /sessions/{id} and wins.
	mux.HandleFunc("POST /sessions", MetricsMiddleware(s.sessionsHandler.HandleCreate, "sessions"))
	mux.HandleFunc("GET /sessions", MetricsMiddleware(s.sessionsHandler.HandleList, "sessions"))
	mux.HandleFunc("GET /sessions/public", MetricsMiddleware(s.sessionsHandler.HandlePublic, "sessions_public"))
	mux.HandleFunc("GET /sessions/search", MetricsMiddleware(s.sessionsHandler.HandleSearch, "sessions_search"))
	mux.HandleFunc("GET /sessions/{id}", MetricsMiddleware(s.sessionsHandler.HandleGet, "session"))
	mux.HandleFunc("PUT /sessions/{id}", MetricsMiddleware(s.sessionsHandler.HandleUpdate, "session"))
	mux.HandleFunc("DELETE /sessions/{id}", MetricsMiddleware(s.sessionsHandler.HandleDelete, "session"))

	mux.HandleFunc("GET /users/suggested", MetricsMiddleware(s.suggestionHandler.HandleUsers, "users_suggested"))
	mux.HandleFunc("GET /sessions/suggested", MetricsMiddleware(s.suggestionHandler.HandleSessions, "sessions_suggested"))

	mux.HandleFunc("POST /tags/expand", MetricsMiddleware(s.tagsHandler.HandleExpand, "tags_expand"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// envelope is the success wrapper used by list-style endpoints.
type envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Server-side failures answer with the status text only.
func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil && status < http.StatusInternalServerError {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError translates service and store error kinds to HTTP codes.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	err = Wrap(op, err)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err)
	case errors.Is(err, model.ErrInvalidEntity), errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, service.ErrMissingUser), errors.Is(err, ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized", err)
	case errors.Is(err, service.ErrNotStarted):
		logger.Get().Warn(r.Context(), "service unavailable", logger.String("op", op), logger.Error(err))
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		logger.Get().Error(r.Context(), "request failed",
			logger.String("op", op),
			logger.String("path", r.URL.Path),
			logger.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// callerID reads the caller identity, writing 401 when it is absent.
func callerID(w http.ResponseWriter, r *http.Request, op string) (string, bool) {
	id := strings.TrimSpace(r.Header.Get(UserHeader))
	if id == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", NewKind(op, ErrUnauthorized))
		return "", false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, op string, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return false
	}
	return true
}
