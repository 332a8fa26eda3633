// Package enrichment derives tags for skills and sessions in the background.
package enrichment

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/skillmatch/internal/adapters/repository"
	"github.com/okian/skillmatch/internal/domain/model"
	"github.com/okian/skillmatch/internal/domain/tags"
	"github.com/okian/skillmatch/pkg/logger"
	"github.com/okian/skillmatch/pkg/metrics"
)

// Job outcomes, also used as metric labels.
const (
	outcomeTagged     = "tagged"
	outcomeEmpty      = "empty"
	outcomeMissing    = "missing"
	outcomeStoreError = "store_error"
)

// Job describes one enrichment run. Topics are captured when the job is
// triggered, not re-read from the store.
type Job struct {
	Kind       model.Kind
	EntityID   string
	TopicLabel string
	RawTopics  []string
}

// JobFor builds the Job for a freshly written entity.
func JobFor(e model.Taggable) Job {
	return Job{
		Kind:       e.EntityKind(),
		EntityID:   e.EntityID(),
		TopicLabel: e.TopicLabel(),
		RawTopics:  slices.Clone(e.Topics()),
	}
}

// Querier produces tags for a topic label and raw topics.
type Querier interface {
	Query(ctx context.Context, topic string, subTopics []string) ([]string, error)
}

// Store is the entity access enrichment needs.
type Store interface {
	GetSkill(ctx context.Context, id string) (*model.Skill, error)
	GetSession(ctx context.Context, id string) (*model.Session, error)
	UpdateTags(ctx context.Context, kind model.Kind, id string, tags []string) error
}

// Pipeline runs each Job on its own goroutine. Jobs are at-most-once: there
// is no queue, retry or persistence, and concurrent jobs for the same entity
// resolve as last write wins.
type Pipeline struct {
	store    Store
	querier  Querier
	logger   logger.Logger
	wg       sync.WaitGroup
	inFlight atomic.Int64
}

// New creates a Pipeline.
func New(store Store, querier Querier, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:   store,
		querier: querier,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Get().Named("enrichment")
	}
	return p
}

// Enqueue starts job in the background and returns immediately. The job does
// not inherit any request context.
func (p *Pipeline) Enqueue(job Job) {
	p.wg.Add(1)
	p.inFlight.Add(1)
	metrics.EnrichmentStarted()

	go func() {
		start := time.Now()
		defer func() {
			p.inFlight.Add(-1)
			metrics.EnrichmentFinished(metrics.SinceMs(start))
			p.wg.Done()
		}()
		outcome := p.process(context.Background(), job)
		metrics.RecordEnrichmentJob(string(job.Kind), outcome)
	}()
}

// InFlight reports the number of running jobs.
func (p *Pipeline) InFlight() int64 { return p.inFlight.Load() }

// Wait blocks until every running job has finished or ctx is done.
func (p *Pipeline) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		p.logger.Warn(ctx, "enrichment drain timed out", logger.Int("in_flight", int(p.InFlight())))
		return fmt.Errorf("enrichment drain timed out: %w", ctx.Err())
	}
}

func (p *Pipeline) process(ctx context.Context, job Job) string {
	fields := []logger.Field{
		logger.String("kind", string(job.Kind)),
		logger.String("entity_id", job.EntityID),
	}

	if err := p.exists(ctx, job); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			p.logger.Debug(ctx, "entity gone before enrichment", fields...)
			return outcomeMissing
		}
		metrics.RecordErrorByComponent("enrichment", "load")
		p.logger.Error(ctx, "failed to load entity for enrichment", append(fields, logger.Error(err))...)
		return outcomeStoreError
	}

	outcome := outcomeTagged
	derived, err := p.querier.Query(ctx, job.TopicLabel, job.RawTopics)
	if err != nil {
		p.logger.Warn(ctx, "tag expansion failed, storing empty tags", append(fields, logger.Error(err))...)
		derived = []string{}
		outcome = outcomeEmpty
	}
	derived = tags.Flatten(derived)
	if len(derived) == 0 {
		outcome = outcomeEmpty
	}

	if err := p.store.UpdateTags(ctx, job.Kind, job.EntityID, derived); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			p.logger.Debug(ctx, "entity deleted during enrichment", fields...)
			return outcomeMissing
		}
		metrics.RecordErrorByComponent("enrichment", "update_tags")
		p.logger.Error(ctx, "failed to store tags", append(fields, logger.Error(err))...)
		return outcomeStoreError
	}

	p.logger.Debug(ctx, "entity enriched", append(fields, logger.Strings("tags", derived))...)
	return outcome
}

func (p *Pipeline) exists(ctx context.Context, job Job) error {
	switch job.Kind {
	case model.KindSkill:
		_, err := p.store.GetSkill(ctx, job.EntityID)
		return err
	case model.KindSession:
		_, err := p.store.GetSession(ctx, job.EntityID)
		return err
	}
	return fmt.Errorf("%w: %q", repository.ErrUnknownKind, job.Kind)
}
