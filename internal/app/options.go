package service

import (
	"github.com/okian/skillmatch/internal/adapters/repository"
	"github.com/okian/skillmatch/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the entity store. The in-memory store is used when unset.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithExpander sets the expansion client.
func WithExpander(e Expander) Option {
	return func(s *Service) {
		if e != nil {
			s.expander = e
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPeopleMinOverlap sets the shared-tag threshold for user suggestions.
func WithPeopleMinOverlap(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.peopleMinOverlap = n
		}
	}
}

// WithSessionMinOverlap sets the shared-tag threshold for session suggestions.
func WithSessionMinOverlap(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.sessionMinOverlap = n
		}
	}
}
