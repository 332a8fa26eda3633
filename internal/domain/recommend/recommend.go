// Package recommend builds people and session suggestions from a user's
// learning and teaching skills.
package recommend

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/okian/skillmatch/internal/adapters/expansion"
	"github.com/okian/skillmatch/internal/domain/matching"
	"github.com/okian/skillmatch/internal/domain/model"
	"github.com/okian/skillmatch/internal/domain/tags"
	"github.com/okian/skillmatch/pkg/logger"
	"github.com/okian/skillmatch/pkg/metrics"
)

// Target selects what is being recommended.
type Target string

// Recommendation targets.
const (
	TargetPeople   Target = "people"
	TargetSessions Target = "sessions"
)

// ErrUnknownTarget is returned for a Target outside the known set.
var ErrUnknownTarget = errors.New("unknown recommendation target")

const (
	defaultPeopleMinOverlap  = 1
	defaultSessionMinOverlap = 2
)

// SkillLister loads a user's skills by role.
type SkillLister interface {
	ListSkillsByOwner(ctx context.Context, ownerID string, role model.Role) ([]*model.Skill, error)
}

// CandidateMatcher is the matching step used by each pass.
type CandidateMatcher interface {
	Match(ctx context.Context, keywords []string, pool matching.PoolSelector, excludeOwner string, minOverlap int) ([]model.Candidate, error)
}

// Aggregator runs the learning and teaching passes and merges them.
type Aggregator struct {
	skills     SkillLister
	search     expansion.Searcher
	matcher    CandidateMatcher
	peopleMin  int
	sessionMin int
	log        logger.Logger
}

// New wires an Aggregator.
func New(skills SkillLister, search expansion.Searcher, matcher CandidateMatcher, opts ...Option) *Aggregator {
	a := &Aggregator{
		skills:     skills,
		search:     search,
		matcher:    matcher,
		peopleMin:  defaultPeopleMinOverlap,
		sessionMin: defaultSessionMinOverlap,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = logger.Get().Named("recommend")
	}
	return a
}

type pass struct {
	name  string
	role  model.Role
	pool  matching.PoolSelector
	min   int
	found []model.Candidate
}

func (a *Aggregator) passes(target Target) (learning, teaching *pass, err error) {
	switch target {
	case TargetPeople:
		learning = &pass{name: "learning", role: model.RoleLearning, pool: matching.TeachingSkills, min: a.peopleMin}
		teaching = &pass{name: "teaching", role: model.RoleTeaching, pool: matching.LearningSkills, min: a.peopleMin}
	case TargetSessions:
		learning = &pass{name: "learning", role: model.RoleLearning, pool: matching.Sessions, min: a.sessionMin}
		teaching = &pass{name: "teaching", role: model.RoleTeaching, pool: matching.Sessions, min: a.sessionMin}
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownTarget, target)
	}
	return learning, teaching, nil
}

// Recommend returns one row per candidate owner for userID. An empty list
// means nothing matched; expansion failures only skip the affected pass.
func (a *Aggregator) Recommend(ctx context.Context, userID string, target Target) ([]model.CandidateMatch, error) {
	learning, teaching, err := a.passes(target)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range []*pass{learning, teaching} {
		g.Go(func() error {
			found, err := a.run(gctx, userID, target, p)
			if err != nil {
				return err
			}
			p.found = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := Merge(learning.found, teaching.found)
	metrics.RecordRecommendation(string(target), len(out))
	a.log.Debug(ctx, "recommendation built",
		logger.String("user_id", userID),
		logger.String("target", string(target)),
		logger.Int("learning_hits", len(learning.found)),
		logger.Int("teaching_hits", len(teaching.found)),
		logger.Int("candidates", len(out)))
	return out, nil
}

func (a *Aggregator) run(ctx context.Context, userID string, target Target, p *pass) ([]model.Candidate, error) {
	skills, err := a.skills.ListSkillsByOwner(ctx, userID, p.role)
	if err != nil {
		return nil, fmt.Errorf("%s pass: list skills: %w", p.name, err)
	}

	var topics []string
	for _, sk := range skills {
		topics = append(topics, sk.Agenda...)
	}
	topics = tags.Flatten(topics)
	if len(topics) == 0 {
		return nil, nil
	}

	keywords, err := expansion.ExpandWithFallback(ctx, a.search, topics, expansion.FallbackEmpty)
	if err != nil {
		metrics.RecordPassSkipped(string(target), p.name)
		a.log.Warn(ctx, "keyword expansion failed, skipping pass",
			logger.String("user_id", userID),
			logger.String("target", string(target)),
			logger.String("pass", p.name),
			logger.Error(err))
		return nil, nil
	}
	if len(keywords) == 0 {
		return nil, nil
	}

	found, err := a.matcher.Match(ctx, keywords, p.pool, userID, p.min)
	if err != nil {
		return nil, fmt.Errorf("%s pass: %w", p.name, err)
	}
	return found, nil
}
