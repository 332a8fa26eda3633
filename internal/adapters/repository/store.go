// Package repository persists skills and sessions and answers tag lookups.
package repository

import (
	"context"

	"github.com/okian/skillmatch/internal/domain/model"
)

// TagQuery selects entities of one kind whose tags share at least one member
// with AnyOf. It is a prefilter; exact overlap counting is left to callers.
type TagQuery struct {
	Kind model.Kind
	// Role restricts skills to one role. Empty means any; ignored for sessions.
	Role model.Role
	// ExcludeOwner drops entities owned by this user.
	ExcludeOwner string
	AnyOf        []string
}

// SessionOrder selects the sort applied by FindSessions.
type SessionOrder int

const (
	// OrderNewest sorts by creation time, newest first.
	OrderNewest SessionOrder = iota
	// OrderSchedule sorts by date and start time, earliest first.
	OrderSchedule
)

// SessionFilter selects a page of sessions.
type SessionFilter struct {
	PublicOnly bool
	// Status restricts the lifecycle state. Empty means any.
	Status model.SessionStatus
	// Text matches title, skill category or description, case-insensitively.
	Text  string
	Order SessionOrder
	// Offset and Limit cut the page; a Limit of zero returns everything after Offset.
	Offset int
	Limit  int
}

// Store provides read/write access to taggable entities.
type Store interface {
	CreateSkill(ctx context.Context, s *model.Skill) (*model.Skill, error)
	// GetSkill returns ErrNotFound if the skill is unknown.
	GetSkill(ctx context.Context, id string) (*model.Skill, error)
	// UpdateSkill replaces the owner-editable fields. Tags are left untouched.
	UpdateSkill(ctx context.Context, s *model.Skill) (*model.Skill, error)
	DeleteSkill(ctx context.Context, id string) error
	// ListSkillsByOwner returns the owner's skills; an empty role lists both.
	ListSkillsByOwner(ctx context.Context, ownerID string, role model.Role) ([]*model.Skill, error)

	CreateSession(ctx context.Context, s *model.Session) (*model.Session, error)
	GetSession(ctx context.Context, id string) (*model.Session, error)
	// UpdateSession replaces the host-editable fields. Tags are left untouched.
	UpdateSession(ctx context.Context, s *model.Session) (*model.Session, error)
	DeleteSession(ctx context.Context, id string) error
	ListSessionsByOwner(ctx context.Context, hostID string) ([]*model.Session, error)
	// FindSessions returns one page of matching sessions and the total match count.
	FindSessions(ctx context.Context, f SessionFilter) ([]*model.Session, int, error)

	// UpdateTags replaces the whole tag field of one entity.
	UpdateTags(ctx context.Context, kind model.Kind, id string, tags []string) error
	// FindByTags returns matching entities ordered by creation time.
	FindByTags(ctx context.Context, q TagQuery) ([]model.Taggable, error)

	// Count returns the number of stored entities of kind.
	Count(ctx context.Context, kind model.Kind) (int, error)

	Close() error
}
