package repository

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/okian/skillmatch/internal/domain/model"
	"github.com/okian/skillmatch/pkg/metrics"
)

// tagIndex maps a tag to the ids of the entities carrying it.
type tagIndex map[string]map[string]struct{}

func (ix tagIndex) add(id string, tags []string) {
	for _, t := range tags {
		ids, ok := ix[t]
		if !ok {
			ids = make(map[string]struct{})
			ix[t] = ids
		}
		ids[id] = struct{}{}
	}
}

func (ix tagIndex) remove(id string, tags []string) {
	for _, t := range tags {
		if ids, ok := ix[t]; ok {
			delete(ids, id)
			if len(ids) == 0 {
				delete(ix, t)
			}
		}
	}
}

// MemoryStore is an in-memory Store with an inverted tag index per kind.
// Entities are copied on the way in and out so callers never share state.
type MemoryStore struct {
	mu       sync.RWMutex
	skills   map[string]*model.Skill
	sessions map[string]*model.Session
	index    map[model.Kind]tagIndex

	opts options

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore constructs an empty store and starts its metrics updater,
// which runs until ctx is done or Close is called.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		skills:   make(map[string]*model.Skill),
		sessions: make(map[string]*model.Session),
		index: map[model.Kind]tagIndex{
			model.KindSkill:   make(tagIndex),
			model.KindSession: make(tagIndex),
		},
		opts:     defaultOptions(),
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(&s.opts)
	}
	s.startMetricsUpdater(ctx)
	return s
}

// Close stops the background metrics updater.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.opts.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics()
			}
		}
	}()
}

func (s *MemoryStore) updateMetrics() {
	s.mu.RLock()
	skills, sessions := len(s.skills), len(s.sessions)
	s.mu.RUnlock()

	metrics.UpdateStoreEntities(string(model.KindSkill), skills)
	metrics.UpdateStoreEntities(string(model.KindSession), sessions)
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, metrics.SinceMs(start))
}

func cloneSkill(in *model.Skill) *model.Skill {
	out := *in
	out.Agenda = slices.Clone(in.Agenda)
	out.Tags = slices.Clone(in.Tags)
	if out.Agenda == nil {
		out.Agenda = []string{}
	}
	if out.Tags == nil {
		out.Tags = []string{}
	}
	return &out
}

func cloneSession(in *model.Session) *model.Session {
	out := *in
	out.SubTopics = slices.Clone(in.SubTopics)
	out.FocusKeywords = slices.Clone(in.FocusKeywords)
	out.Tags = slices.Clone(in.Tags)
	if out.SubTopics == nil {
		out.SubTopics = []string{}
	}
	if out.FocusKeywords == nil {
		out.FocusKeywords = []string{}
	}
	if out.Tags == nil {
		out.Tags = []string{}
	}
	return &out
}

// CreateSkill stores a new skill with a fresh id and empty tags.
func (s *MemoryStore) CreateSkill(_ context.Context, in *model.Skill) (*model.Skill, error) {
	defer observe("create_skill", time.Now())

	sk := cloneSkill(in)
	sk.ID = s.opts.newID()
	sk.Tags = []string{}
	sk.CreatedAt = s.opts.now()
	sk.UpdatedAt = sk.CreatedAt

	s.mu.Lock()
	s.skills[sk.ID] = sk
	s.mu.Unlock()
	return cloneSkill(sk), nil
}

// GetSkill returns a copy of the skill.
func (s *MemoryStore) GetSkill(_ context.Context, id string) (*model.Skill, error) {
	defer observe("get_skill", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()
	sk, ok := s.skills[id]
	if !ok {
		return nil, fmt.Errorf("skill %s: %w", id, ErrNotFound)
	}
	return cloneSkill(sk), nil
}

// UpdateSkill replaces editable fields and keeps id, owner, tags and creation time.
func (s *MemoryStore) UpdateSkill(_ context.Context, in *model.Skill) (*model.Skill, error) {
	defer observe("update_skill", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.skills[in.ID]
	if !ok {
		return nil, fmt.Errorf("skill %s: %w", in.ID, ErrNotFound)
	}
	next := cloneSkill(in)
	next.OwnerID = cur.OwnerID
	next.Tags = cur.Tags
	next.CreatedAt = cur.CreatedAt
	next.UpdatedAt = s.opts.now()
	s.skills[in.ID] = next
	return cloneSkill(next), nil
}

// DeleteSkill removes the skill and its index entries.
func (s *MemoryStore) DeleteSkill(_ context.Context, id string) error {
	defer observe("delete_skill", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	sk, ok := s.skills[id]
	if !ok {
		return fmt.Errorf("skill %s: %w", id, ErrNotFound)
	}
	s.index[model.KindSkill].remove(id, sk.Tags)
	delete(s.skills, id)
	return nil
}

// ListSkillsByOwner returns the owner's skills ordered by creation time.
func (s *MemoryStore) ListSkillsByOwner(_ context.Context, ownerID string, role model.Role) ([]*model.Skill, error) {
	defer observe("list_skills", time.Now())

	s.mu.RLock()
	out := make([]*model.Skill, 0)
	for _, sk := range s.skills {
		if sk.OwnerID != ownerID || (role != "" && sk.Role != role) {
			continue
		}
		out = append(out, cloneSkill(sk))
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return before(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID) })
	return out, nil
}

// CreateSession stores a new session with a fresh id and empty tags.
func (s *MemoryStore) CreateSession(_ context.Context, in *model.Session) (*model.Session, error) {
	defer observe("create_session", time.Now())

	ss := cloneSession(in)
	ss.ID = s.opts.newID()
	ss.Tags = []string{}
	if ss.Status == "" {
		ss.Status = model.StatusUpcoming
	}
	ss.CreatedAt = s.opts.now()
	ss.UpdatedAt = ss.CreatedAt

	s.mu.Lock()
	s.sessions[ss.ID] = ss
	s.mu.Unlock()
	return cloneSession(ss), nil
}

// GetSession returns a copy of the session.
func (s *MemoryStore) GetSession(_ context.Context, id string) (*model.Session, error) {
	defer observe("get_session", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()
	ss, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return cloneSession(ss), nil
}

// UpdateSession replaces editable fields and keeps id, host, tags and creation time.
func (s *MemoryStore) UpdateSession(_ context.Context, in *model.Session) (*model.Session, error) {
	defer observe("update_session", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.sessions[in.ID]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", in.ID, ErrNotFound)
	}
	next := cloneSession(in)
	next.HostID = cur.HostID
	next.Tags = cur.Tags
	if next.Status == "" {
		next.Status = cur.Status
	}
	next.CreatedAt = cur.CreatedAt
	next.UpdatedAt = s.opts.now()
	s.sessions[in.ID] = next
	return cloneSession(next), nil
}

// DeleteSession removes the session and its index entries.
func (s *MemoryStore) DeleteSession(_ context.Context, id string) error {
	defer observe("delete_session", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	ss, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	s.index[model.KindSession].remove(id, ss.Tags)
	delete(s.sessions, id)
	return nil
}

// ListSessionsByOwner returns the sessions hosted by hostID ordered by creation time.
func (s *MemoryStore) ListSessionsByOwner(_ context.Context, hostID string) ([]*model.Session, error) {
	defer observe("list_sessions", time.Now())

	s.mu.RLock()
	out := make([]*model.Session, 0)
	for _, ss := range s.sessions {
		if ss.HostID == hostID {
			out = append(out, cloneSession(ss))
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return before(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID) })
	return out, nil
}

// FindSessions scans all sessions; the memory store keeps no secondary index
// for status or text.
func (s *MemoryStore) FindSessions(_ context.Context, f SessionFilter) ([]*model.Session, int, error) {
	defer observe("find_sessions", time.Now())

	text := strings.ToLower(strings.TrimSpace(f.Text))

	s.mu.RLock()
	matched := make([]*model.Session, 0)
	for _, ss := range s.sessions {
		if f.PublicOnly && !ss.IsPublic {
			continue
		}
		if f.Status != "" && ss.Status != f.Status {
			continue
		}
		if text != "" && !containsFold(text, ss.Title, ss.SkillCategory, ss.Description) {
			continue
		}
		matched = append(matched, cloneSession(ss))
	}
	s.mu.RUnlock()

	switch f.Order {
	case OrderSchedule:
		sort.Slice(matched, func(i, j int) bool {
			a, b := matched[i], matched[j]
			if a.Date != b.Date {
				return a.Date < b.Date
			}
			if a.StartTime != b.StartTime {
				return a.StartTime < b.StartTime
			}
			return before(a.CreatedAt, a.ID, b.CreatedAt, b.ID)
		})
	default:
		sort.Slice(matched, func(i, j int) bool {
			return before(matched[j].CreatedAt, matched[j].ID, matched[i].CreatedAt, matched[i].ID)
		})
	}

	total := len(matched)
	lo := min(max(f.Offset, 0), total)
	hi := total
	if f.Limit > 0 {
		hi = min(lo+f.Limit, total)
	}

	return slices.Clip(matched[lo:hi]), total, nil
}

// containsFold reports whether any field contains the lower-cased needle.
func containsFold(needle string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

// UpdateTags replaces the tag field and re-indexes the entity.
func (s *MemoryStore) UpdateTags(_ context.Context, kind model.Kind, id string, tags []string) error {
	defer observe("update_tags", time.Now())

	next := slices.Clone(tags)
	if next == nil {
		next = []string{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch kind {
	case model.KindSkill:
		sk, ok := s.skills[id]
		if !ok {
			return fmt.Errorf("skill %s: %w", id, ErrNotFound)
		}
		s.index[kind].remove(id, sk.Tags)
		sk.Tags = next
		s.index[kind].add(id, next)
	case model.KindSession:
		ss, ok := s.sessions[id]
		if !ok {
			return fmt.Errorf("session %s: %w", id, ErrNotFound)
		}
		s.index[kind].remove(id, ss.Tags)
		ss.Tags = next
		s.index[kind].add(id, next)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return nil
}

// FindByTags unions the index entries of q.AnyOf and filters by owner and role.
func (s *MemoryStore) FindByTags(_ context.Context, q TagQuery) ([]model.Taggable, error) {
	defer observe("find_by_tags", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	ix, ok := s.index[q.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, q.Kind)
	}

	ids := make(map[string]struct{})
	for _, t := range q.AnyOf {
		for id := range ix[t] {
			ids[id] = struct{}{}
		}
	}

	out := make([]model.Taggable, 0, len(ids))
	for id := range ids {
		switch q.Kind {
		case model.KindSkill:
			sk := s.skills[id]
			if sk == nil || sk.OwnerID == q.ExcludeOwner || (q.Role != "" && sk.Role != q.Role) {
				continue
			}
			out = append(out, cloneSkill(sk))
		case model.KindSession:
			ss := s.sessions[id]
			if ss == nil || ss.HostID == q.ExcludeOwner {
				continue
			}
			out = append(out, cloneSession(ss))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return before(createdAt(out[i]), out[i].EntityID(), createdAt(out[j]), out[j].EntityID())
	})
	return out, nil
}

// Count returns the number of stored entities of kind.
func (s *MemoryStore) Count(_ context.Context, kind model.Kind) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch kind {
	case model.KindSkill:
		return len(s.skills), nil
	case model.KindSession:
		return len(s.sessions), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

func createdAt(t model.Taggable) time.Time {
	switch e := t.(type) {
	case *model.Skill:
		return e.CreatedAt
	case *model.Session:
		return e.CreatedAt
	}
	return time.Time{}
}

// before orders by creation time, then id.
func before(at time.Time, aID string, bt time.Time, bID string) bool {
	if !at.Equal(bt) {
		return at.Before(bt)
	}
	return aID < bID
}

var _ Store = (*MemoryStore)(nil)
