package expansion

import (
	"context"

	"github.com/okian/skillmatch/internal/domain/tags"
)

// Fallback chooses what a caller gets when expansion fails.
type Fallback int

const (
	// FallbackEmpty yields no keywords.
	FallbackEmpty Fallback = iota
	// FallbackOriginal yields the caller's cleaned keywords unchanged.
	FallbackOriginal
)

func (f Fallback) String() string {
	switch f {
	case FallbackEmpty:
		return "empty"
	case FallbackOriginal:
		return "original"
	default:
		return "unknown"
	}
}

// Searcher is the part of Client used for keyword expansion.
type Searcher interface {
	Search(ctx context.Context, keywords []string) ([]string, error)
}

// ExpandWithFallback calls Search and applies policy on failure. The error is
// returned alongside the fallback value so callers can still log or skip.
func ExpandWithFallback(ctx context.Context, s Searcher, keywords []string, policy Fallback) ([]string, error) {
	out, err := s.Search(ctx, keywords)
	if err == nil {
		return out, nil
	}
	if policy == FallbackOriginal {
		return tags.Clean(keywords), err
	}
	return []string{}, err
}
