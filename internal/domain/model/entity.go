// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Kind names the entity families that carry tags.
type Kind string

// Taggable entity kinds.
const (
	KindSkill   Kind = "skill"
	KindSession Kind = "session"
)

// Role says which side of an exchange a skill sits on.
type Role string

// Skill roles.
const (
	RoleTeaching Role = "teaching"
	RoleLearning Role = "learning"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleTeaching || r == RoleLearning
}

// Counterpart returns the role a match for r must have.
func (r Role) Counterpart() Role {
	if r == RoleTeaching {
		return RoleLearning
	}
	return RoleTeaching
}

// SessionStatus is the lifecycle state of a session.
type SessionStatus string

// Session states.
const (
	StatusUpcoming  SessionStatus = "upcoming"
	StatusCompleted SessionStatus = "completed"
	StatusCancelled SessionStatus = "cancelled"
)

// Valid reports whether s is a known session status.
func (s SessionStatus) Valid() bool {
	switch s {
	case StatusUpcoming, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

const maxProficiency = 100

// Taggable is the view of a skill or session that enrichment and matching need.
type Taggable interface {
	EntityKind() Kind
	EntityID() string
	Owner() string
	// TopicLabel is the headline topic sent with the raw topics for expansion.
	TopicLabel() string
	// Topics returns the free-text items the owner supplied.
	Topics() []string
	EntityTags() []string
}

// Skill is something a user teaches or wants to learn.
type Skill struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Proficiency int       `json:"proficiency"`
	Role        Role      `json:"role"`
	Description string    `json:"description,omitempty"`
	Experience  string    `json:"experience,omitempty"`
	Goals       string    `json:"goals,omitempty"`
	Agenda      []string  `json:"agenda"`
	Tags        []string  `json:"tags"` // written only by enrichment
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (s *Skill) EntityKind() Kind     { return KindSkill }
func (s *Skill) EntityID() string     { return s.ID }
func (s *Skill) Owner() string        { return s.OwnerID }
func (s *Skill) TopicLabel() string   { return s.Name }
func (s *Skill) Topics() []string     { return s.Agenda }
func (s *Skill) EntityTags() []string { return s.Tags }

// Validate checks the fields a caller must supply.
func (s *Skill) Validate() error {
	switch {
	case strings.TrimSpace(s.OwnerID) == "":
		return fmt.Errorf("%w: missing owner_id", ErrInvalidEntity)
	case strings.TrimSpace(s.Name) == "":
		return fmt.Errorf("%w: missing name", ErrInvalidEntity)
	case strings.TrimSpace(s.Category) == "":
		return fmt.Errorf("%w: missing category", ErrInvalidEntity)
	case !s.Role.Valid():
		return fmt.Errorf("%w: role must be teaching or learning", ErrInvalidEntity)
	case s.Proficiency < 0 || s.Proficiency > maxProficiency:
		return fmt.Errorf("%w: proficiency must be within 0..100", ErrInvalidEntity)
	}
	return nil
}

// Session is a scheduled meeting hosted by one user.
type Session struct {
	ID              string        `json:"id"`
	HostID          string        `json:"host_id"`
	Title           string        `json:"title"`
	Description     string        `json:"description,omitempty"`
	Date            string        `json:"date"`
	StartTime       string        `json:"start_time"`
	EndTime         string        `json:"end_time"`
	SkillCategory   string        `json:"skill_category"`
	Status          SessionStatus `json:"status"`
	IsTeaching      bool          `json:"is_teaching"`
	MaxParticipants int           `json:"max_participants,omitempty"`
	IsPublic        bool          `json:"is_public"`
	TeachSkillID    string        `json:"teach_skill_id,omitempty"`
	TeachSkillName  string        `json:"teach_skill_name,omitempty"`
	SubTopics       []string      `json:"sub_topics"`
	MeetingLink     string        `json:"meeting_link,omitempty"`
	FocusKeywords   []string      `json:"focus_keywords"`
	Tags            []string      `json:"tags"` // written only by enrichment
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

func (s *Session) EntityKind() Kind     { return KindSession }
func (s *Session) EntityID() string     { return s.ID }
func (s *Session) Owner() string        { return s.HostID }
func (s *Session) Topics() []string     { return s.FocusKeywords }
func (s *Session) EntityTags() []string { return s.Tags }

// TopicLabel prefers the taught skill's name over the session title.
func (s *Session) TopicLabel() string {
	if name := strings.TrimSpace(s.TeachSkillName); name != "" {
		return name
	}
	return s.Title
}

// Validate checks the fields a caller must supply.
func (s *Session) Validate() error {
	switch {
	case strings.TrimSpace(s.HostID) == "":
		return fmt.Errorf("%w: missing host_id", ErrInvalidEntity)
	case strings.TrimSpace(s.Title) == "":
		return fmt.Errorf("%w: missing title", ErrInvalidEntity)
	case strings.TrimSpace(s.Date) == "":
		return fmt.Errorf("%w: missing date", ErrInvalidEntity)
	case strings.TrimSpace(s.StartTime) == "" || strings.TrimSpace(s.EndTime) == "":
		return fmt.Errorf("%w: missing start_time or end_time", ErrInvalidEntity)
	case strings.TrimSpace(s.SkillCategory) == "":
		return fmt.Errorf("%w: missing skill_category", ErrInvalidEntity)
	case s.Status != "" && !s.Status.Valid():
		return fmt.Errorf("%w: unknown status %q", ErrInvalidEntity, s.Status)
	case s.MaxParticipants < 0:
		return fmt.Errorf("%w: max_participants must not be negative", ErrInvalidEntity)
	}
	return nil
}
