// Package matching finds entities whose tags overlap a keyword set.
package matching

import (
	"context"
	"fmt"
	"sort"

	"github.com/okian/skillmatch/internal/adapters/repository"
	"github.com/okian/skillmatch/internal/domain/model"
	"github.com/okian/skillmatch/internal/domain/tags"
)

// PoolSelector names the population a match runs against.
type PoolSelector struct {
	kind model.Kind
	role model.Role
	name string
}

// Candidate pools.
var (
	TeachingSkills = PoolSelector{kind: model.KindSkill, role: model.RoleTeaching, name: "teaching_skills"}
	LearningSkills = PoolSelector{kind: model.KindSkill, role: model.RoleLearning, name: "learning_skills"}
	Sessions       = PoolSelector{kind: model.KindSession, name: "sessions"}
)

// SkillsWithRole returns the skill pool for role.
func SkillsWithRole(role model.Role) PoolSelector {
	if role == model.RoleLearning {
		return LearningSkills
	}
	return TeachingSkills
}

func (p PoolSelector) String() string { return p.name }

// Kind is the entity kind the pool draws from.
func (p PoolSelector) Kind() model.Kind { return p.kind }

// TagFinder is the store lookup the matcher relies on.
type TagFinder interface {
	FindByTags(ctx context.Context, q repository.TagQuery) ([]model.Taggable, error)
}

// Matcher turns a keyword set into qualifying candidates.
type Matcher struct {
	store TagFinder
}

// New returns a Matcher over store.
func New(store TagFinder) *Matcher {
	return &Matcher{store: store}
}

// Match returns every entity in pool, not owned by excludeOwner, that shares
// at least minOverlap distinct tags with keywords. One owner may appear more
// than once. minOverlap below 1 is treated as 1.
func (m *Matcher) Match(ctx context.Context, keywords []string, pool PoolSelector, excludeOwner string, minOverlap int) ([]model.Candidate, error) {
	if minOverlap < 1 {
		minOverlap = 1
	}
	out := make([]model.Candidate, 0)

	want := tags.NewSet(tags.Flatten(keywords))
	if len(want) < minOverlap {
		return out, nil
	}
	anyOf := want.Keys()
	sort.Strings(anyOf)

	hits, err := m.store.FindByTags(ctx, repository.TagQuery{
		Kind:         pool.kind,
		Role:         pool.role,
		ExcludeOwner: excludeOwner,
		AnyOf:        anyOf,
	})
	if err != nil {
		return nil, fmt.Errorf("match %s: %w", pool, err)
	}

	for _, hit := range hits {
		if hit.Owner() == excludeOwner {
			continue
		}
		shared := want.Shared(hit.EntityTags())
		if len(shared) < minOverlap {
			continue
		}
		out = append(out, model.Candidate{OwnerID: hit.Owner(), Skill: describe(hit, shared)})
	}
	return out, nil
}

func describe(hit model.Taggable, shared []string) model.MatchedSkill {
	ms := model.MatchedSkill{
		EntityID:   hit.EntityID(),
		Kind:       hit.EntityKind(),
		Name:       hit.TopicLabel(),
		SharedTags: shared,
	}
	switch e := hit.(type) {
	case *model.Skill:
		ms.Role = e.Role
	case *model.Session:
		ms.Name = e.Title
	}
	return ms
}
