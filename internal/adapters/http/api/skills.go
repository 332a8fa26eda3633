package api

import (
	"context"
	"net/http"

	"github.com/okian/skillmatch/internal/domain/model"
)

// SkillDependencies defines the interface for skill operations.
type SkillDependencies interface {
	CreateSkill(ctx context.Context, callerID string, in *model.Skill) (*model.Skill, error)
	GetSkill(ctx context.Context, id string) (*model.Skill, error)
	ListSkills(ctx context.Context, callerID string, role model.Role) ([]*model.Skill, error)
	UpdateSkill(ctx context.Context, callerID, id string, in *model.Skill) (*model.Skill, error)
	DeleteSkill(ctx context.Context, callerID, id string) error
}

// SkillsHandler handles skill requests.
type SkillsHandler struct {
	deps SkillDependencies
}

// NewSkillsHandler creates a new skills handler.
func NewSkillsHandler(deps SkillDependencies) *SkillsHandler {
	return &SkillsHandler{deps: deps}
}

// HandleCreate handles POST /skills requests.
func (h *SkillsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_skill"
	caller, ok := callerID(w, r, op)
	if !ok {
		return
	}
	var in model.Skill
	if !decodeBody(w, r, op, &in) {
		return
	}
	sk, err := h.deps.CreateSkill(r.Context(), caller, &in)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, sk)
}

// HandleList handles GET /skills?role= requests.
func (h *SkillsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_skills"
	caller, ok := callerID(w, r, op)
	if !ok {
		return
	}
	list, err := h.deps.ListSkills(r.Context(), caller, model.Role(r.URL.Query().Get("role")))
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	if list == nil {
		list = []*model.Skill{}
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleGet handles GET /skills/{id} requests.
func (h *SkillsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_skill"
	sk, err := h.deps.GetSkill(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, sk)
}

// HandleUpdate handles PUT /skills/{id} requests.
func (h *SkillsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_skill"
	caller, ok := callerID(w, r, op)
	if !ok {
		return
	}
	var in model.Skill
	if !decodeBody(w, r, op, &in) {
		return
	}
	sk, err := h.deps.UpdateSkill(r.Context(), caller, r.PathValue("id"), &in)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, sk)
}

// HandleDelete handles DELETE /skills/{id} requests.
func (h *SkillsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_skill"
	caller, ok := callerID(w, r, op)
	if !ok {
		return
	}
	if err := h.deps.DeleteSkill(r.Context(), caller, r.PathValue("id")); err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
