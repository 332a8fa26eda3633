package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/skillmatch/internal/domain/model"
)

// SessionDependencies defines the interface for session operations.
type SessionDependencies interface {
	CreateSession(ctx context.Context, callerID string, in *model.Session) (*model.Session, error)
	GetSession(ctx context.Context, id string) (*model.Session, error)
	ListSessions(ctx context.Context, callerID string) ([]*model.Session, error)
	UpdateSession(ctx context.Context, callerID, id string, in *model.Session) (*model.Session, error)
	DeleteSession(ctx context.Context, callerID, id string) error
	PublicSessions(ctx context.Context, page, limit int) (*model.SessionPage, error)
	SearchSessions(ctx context.Context, query string, status model.SessionStatus, page, limit int) (*model.SessionPage, error)
}

// SessionsHandler handles session requests.
type SessionsHandler struct {
	deps SessionDependencies
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(deps SessionDependencies) *SessionsHandler {
	return &SessionsHandler{deps: deps}
}

// HandleCreate handles POST /sessions requests.
func (h *SessionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_session"
	caller, ok := callerID(w, r, op)
	if !ok {
		return
	}
	var in model.Session
	if !decodeBody(w, r, op, &in) {
		return
	}
	ss, err := h.deps.CreateSession(r.Context(), caller, &in)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, ss)
}

// HandleList handles GET /sessions requests.
func (h *SessionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_sessions"
	caller, ok := callerID(w, r, op)
	if !ok {
		return
	}
	list, err := h.deps.ListSessions(r.Context(), caller)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	if list == nil {
		list = []*model.Session{}
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleGet handles GET /sessions/{id} requests.
func (h *SessionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_session"
	ss, err := h.deps.GetSession(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, ss)
}

// HandleUpdate handles PUT /sessions/{id} requests.
func (h *SessionsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_session"
	caller, ok := callerID(w, r, op)
	if !ok {
		return
	}
	var in model.Session
	if !decodeBody(w, r, op, &in) {
		return
	}
	ss, err := h.deps.UpdateSession(r.Context(), caller, r.PathValue("id"), &in)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, ss)
}

// HandleDelete handles DELETE /sessions/{id} requests.
func (h *SessionsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_session"
	caller, ok := callerID(w, r, op)
	if !ok {
		return
	}
	if err := h.deps.DeleteSession(r.Context(), caller, r.PathValue("id")); err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandlePublic handles GET /sessions/public requests.
func (h *SessionsHandler) HandlePublic(w http.ResponseWriter, r *http.Request) {
	const op = "api.public_sessions"
	page, limit, err := paging(r)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	out, err := h.deps.PublicSessions(r.Context(), page, limit)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleSearch handles GET /sessions/search?q=&status= requests.
func (h *SessionsHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	const op = "api.search_sessions"
	page, limit, err := paging(r)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	q := r.URL.Query()
	out, err := h.deps.SearchSessions(r.Context(), q.Get("q"), model.SessionStatus(q.Get("status")), page, limit)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// paging reads the optional page and limit query parameters. Absent values are zero.
func paging(r *http.Request) (page, limit int, err error) {
	q := r.URL.Query()
	for _, p := range []struct {
		name string
		dst  *int
	}{{"page", &page}, {"limit", &limit}} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		n, convErr := strconv.Atoi(raw)
		if convErr != nil || n < 1 {
			return 0, 0, fmt.Errorf("%w: %s must be a positive integer", ErrBadRequest, p.name)
		}
		*p.dst = n
	}
	return page, limit, nil
}
