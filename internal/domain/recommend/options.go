package recommend

import "github.com/okian/skillmatch/pkg/logger"

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithPeopleMinOverlap sets the shared-tag threshold for people suggestions.
func WithPeopleMinOverlap(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.peopleMin = n
		}
	}
}

// WithSessionMinOverlap sets the shared-tag threshold for session suggestions.
func WithSessionMinOverlap(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.sessionMin = n
		}
	}
}

// WithLogger sets the aggregator logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.log = l
		}
	}
}
