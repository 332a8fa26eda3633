// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/okian/skillmatch/internal/adapters/expansion"
	"github.com/okian/skillmatch/internal/adapters/repository"
	"github.com/okian/skillmatch/internal/domain/enrichment"
	"github.com/okian/skillmatch/internal/domain/matching"
	"github.com/okian/skillmatch/internal/domain/model"
	"github.com/okian/skillmatch/internal/domain/recommend"
	"github.com/okian/skillmatch/internal/domain/tags"
	"github.com/okian/skillmatch/pkg/logger"
	"github.com/okian/skillmatch/pkg/metrics"
)

// Expander is the expansion service surface the Service depends on.
type Expander interface {
	enrichment.Querier
	expansion.Searcher
}

// Service implements the API dependencies for the skill-matching system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	expander   Expander
	pipeline   *enrichment.Pipeline
	aggregator *recommend.Aggregator

	// Configuration
	peopleMinOverlap  int
	sessionMinOverlap int

	// State
	started bool

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		peopleMinOverlap:  1,
		sessionMinOverlap: 2,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.expander == nil {
		return ErrNoExpander
	}

	s.logger.Info(ctx, "starting skillmatch service...")

	if s.store == nil {
		s.store = repository.NewMemoryStore(ctx)
		s.logger.Info(ctx, "using in-memory store")
	}

	s.pipeline = enrichment.New(s.store, s.expander, enrichment.WithLogger(s.logger.Named("enrichment")))
	s.aggregator = recommend.New(s.store, s.expander, matching.New(s.store),
		recommend.WithPeopleMinOverlap(s.peopleMinOverlap),
		recommend.WithSessionMinOverlap(s.sessionMinOverlap),
		recommend.WithLogger(s.logger.Named("recommend")),
	)

	s.started = true
	s.logger.Info(ctx, "skillmatch service started",
		logger.Int("peopleMinOverlap", s.peopleMinOverlap),
		logger.Int("sessionMinOverlap", s.sessionMinOverlap),
	)
	return nil
}

// Stop drains running enrichment jobs until ctx is done and closes the store.
// The service reports itself stopped before the drain starts.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	pipeline, store := s.pipeline, s.store
	s.mu.Unlock()

	s.logger.Info(ctx, "stopping skillmatch service...")

	var drainErr error
	if pipeline != nil {
		drainErr = pipeline.Wait(ctx)
	}
	if store != nil {
		if err := store.Close(); err != nil {
			s.logger.Warn(ctx, "store close failed", logger.Error(err))
		}
	}

	s.logger.Info(ctx, "skillmatch service stopped")
	return drainErr
}

// WaitForEnrichment blocks until in-flight enrichment jobs finish.
func (s *Service) WaitForEnrichment(ctx context.Context) error {
	p, err := s.enrichmentPipeline()
	if err != nil {
		return err
	}
	return p.Wait(ctx)
}

func (s *Service) enrichmentPipeline() (*enrichment.Pipeline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.pipeline, nil
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

func requireCaller(callerID string) error {
	if strings.TrimSpace(callerID) == "" {
		return ErrMissingUser
	}
	return nil
}

// enrich triggers a background job when the entity has topics.
func (s *Service) enrich(ctx context.Context, e model.Taggable) {
	if len(tags.Clean(e.Topics())) == 0 {
		return
	}
	s.logger.Debug(ctx, "enqueueing enrichment",
		logger.String("kind", string(e.EntityKind())),
		logger.String("entity_id", e.EntityID()),
	)
	s.pipeline.Enqueue(enrichment.JobFor(e))
}

// reenrich runs after an update that changed the topics. Clearing every topic
// clears the tags too, so the entity stops matching at once.
func (s *Service) reenrich(ctx context.Context, e model.Taggable) (cleared bool, err error) {
	if len(tags.Clean(e.Topics())) > 0 {
		s.enrich(ctx, e)
		return false, nil
	}
	if err := s.store.UpdateTags(ctx, e.EntityKind(), e.EntityID(), []string{}); err != nil {
		return false, fmt.Errorf("clear tags: %w", err)
	}
	s.logger.Debug(ctx, "topics cleared, tags reset",
		logger.String("kind", string(e.EntityKind())),
		logger.String("entity_id", e.EntityID()),
	)
	return true, nil
}

// topicsChanged reports whether an update altered what enrichment reads.
func topicsChanged(before, after model.Taggable) bool {
	return before.TopicLabel() != after.TopicLabel() || !slices.Equal(before.Topics(), after.Topics())
}

// CreateSkill stores a skill owned by callerID and schedules enrichment.
func (s *Service) CreateSkill(ctx context.Context, callerID string, in *model.Skill) (*model.Skill, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	in.OwnerID = callerID
	if err := in.Validate(); err != nil {
		return nil, err
	}

	sk, err := s.store.CreateSkill(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("create skill: %w", err)
	}
	s.enrich(ctx, sk)
	return sk, nil
}

// GetSkill returns a skill by id.
func (s *Service) GetSkill(ctx context.Context, id string) (*model.Skill, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.store.GetSkill(ctx, id)
}

// ListSkills returns the caller's skills, optionally filtered by role.
func (s *Service) ListSkills(ctx context.Context, callerID string, role model.Role) ([]*model.Skill, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	if role != "" && !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", model.ErrInvalidEntity, role)
	}
	return s.store.ListSkillsByOwner(ctx, callerID, role)
}

// UpdateSkill replaces the caller's skill. Enrichment re-runs when the topics
// or topic label changed; an update that removes every topic empties the tags.
func (s *Service) UpdateSkill(ctx context.Context, callerID, id string, in *model.Skill) (*model.Skill, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	cur, err := s.store.GetSkill(ctx, id)
	if err != nil {
		return nil, err
	}
	if cur.OwnerID != callerID {
		return nil, ErrForbidden
	}

	in.ID = id
	in.OwnerID = cur.OwnerID
	if err := in.Validate(); err != nil {
		return nil, err
	}
	sk, err := s.store.UpdateSkill(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("update skill: %w", err)
	}
	if topicsChanged(cur, sk) {
		cleared, err := s.reenrich(ctx, sk)
		if err != nil {
			return nil, err
		}
		if cleared {
			sk.Tags = []string{}
		}
	}
	return sk, nil
}

// DeleteSkill removes the caller's skill.
func (s *Service) DeleteSkill(ctx context.Context, callerID, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := requireCaller(callerID); err != nil {
		return err
	}
	cur, err := s.store.GetSkill(ctx, id)
	if err != nil {
		return err
	}
	if cur.OwnerID != callerID {
		return ErrForbidden
	}
	return s.store.DeleteSkill(ctx, id)
}

// CreateSession stores a session hosted by callerID and schedules enrichment.
func (s *Service) CreateSession(ctx context.Context, callerID string, in *model.Session) (*model.Session, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	in.HostID = callerID
	if err := in.Validate(); err != nil {
		return nil, err
	}

	ss, err := s.store.CreateSession(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.enrich(ctx, ss)
	return ss, nil
}

// GetSession returns a session by id.
func (s *Service) GetSession(ctx context.Context, id string) (*model.Session, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.store.GetSession(ctx, id)
}

// ListSessions returns the sessions hosted by the caller.
func (s *Service) ListSessions(ctx context.Context, callerID string) ([]*model.Session, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	return s.store.ListSessionsByOwner(ctx, callerID)
}

// UpdateSession replaces the caller's session.
func (s *Service) UpdateSession(ctx context.Context, callerID, id string, in *model.Session) (*model.Session, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	cur, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if cur.HostID != callerID {
		return nil, ErrForbidden
	}

	in.ID = id
	in.HostID = cur.HostID
	if err := in.Validate(); err != nil {
		return nil, err
	}
	ss, err := s.store.UpdateSession(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	if topicsChanged(cur, ss) {
		cleared, err := s.reenrich(ctx, ss)
		if err != nil {
			return nil, err
		}
		if cleared {
			ss.Tags = []string{}
		}
	}
	return ss, nil
}

// Paging bounds for session listings.
const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// PublicSessions lists upcoming public sessions, earliest first.
func (s *Service) PublicSessions(ctx context.Context, page, limit int) (*model.SessionPage, error) {
	return s.findSessions(ctx, repository.SessionFilter{
		PublicOnly: true,
		Status:     model.StatusUpcoming,
		Order:      repository.OrderSchedule,
	}, page, limit)
}

// SearchSessions matches query against title, skill category and description,
// newest first. An empty query matches every session.
func (s *Service) SearchSessions(ctx context.Context, query string, status model.SessionStatus, page, limit int) (*model.SessionPage, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", model.ErrInvalidEntity, status)
	}
	return s.findSessions(ctx, repository.SessionFilter{
		Status: status,
		Text:   strings.TrimSpace(query),
		Order:  repository.OrderNewest,
	}, page, limit)
}

// findSessions applies paging to f. Zero page or limit take the defaults.
func (s *Service) findSessions(ctx context.Context, f repository.SessionFilter, page, limit int) (*model.SessionPage, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	switch {
	case page < 0:
		return nil, fmt.Errorf("%w: page must be positive", model.ErrInvalidEntity)
	case limit < 0 || limit > MaxPageLimit:
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", model.ErrInvalidEntity, MaxPageLimit)
	}
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = DefaultPageLimit
	}

	f.Offset = (page - 1) * limit
	f.Limit = limit
	list, total, err := s.store.FindSessions(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("find sessions: %w", err)
	}
	return model.NewSessionPage(list, total, page, limit), nil
}

// DeleteSession removes the caller's session.
func (s *Service) DeleteSession(ctx context.Context, callerID, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := requireCaller(callerID); err != nil {
		return err
	}
	cur, err := s.store.GetSession(ctx, id)
	if err != nil {
		return err
	}
	if cur.HostID != callerID {
		return ErrForbidden
	}
	return s.store.DeleteSession(ctx, id)
}

// SuggestUsers recommends people for the caller.
func (s *Service) SuggestUsers(ctx context.Context, callerID string) ([]model.CandidateMatch, error) {
	return s.suggest(ctx, callerID, recommend.TargetPeople)
}

// SuggestSessions recommends sessions for the caller.
func (s *Service) SuggestSessions(ctx context.Context, callerID string) ([]model.CandidateMatch, error) {
	return s.suggest(ctx, callerID, recommend.TargetSessions)
}

func (s *Service) suggest(ctx context.Context, callerID string, target recommend.Target) ([]model.CandidateMatch, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	return s.aggregator.Recommend(ctx, callerID, target)
}

// ExpandKeywords expands free keywords, returning the cleaned input when the
// expansion service is unavailable.
func (s *Service) ExpandKeywords(ctx context.Context, keywords []string) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	out, err := expansion.ExpandWithFallback(ctx, s.expander, keywords, expansion.FallbackOriginal)
	if err != nil {
		s.logger.Warn(ctx, "keyword expansion failed, returning original keywords", logger.Error(err))
	}
	return out, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":           s.started,
		"peopleMinOverlap":  s.peopleMinOverlap,
		"sessionMinOverlap": s.sessionMinOverlap,
	}

	if s.started {
		skills, err := s.store.Count(ctx, model.KindSkill)
		if err != nil {
			s.logger.Warn(ctx, "count skills failed", logger.Error(err))
		}
		sessions, err := s.store.Count(ctx, model.KindSession)
		if err != nil {
			s.logger.Warn(ctx, "count sessions failed", logger.Error(err))
		}

		stats["skills"] = skills
		stats["sessions"] = sessions
		stats["enrichmentInFlight"] = s.pipeline.InFlight()

		metrics.UpdateStoreEntities(string(model.KindSkill), skills)
		metrics.UpdateStoreEntities(string(model.KindSession), sessions)
	}

	return stats
}
