package seed

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/skillmatch/internal/domain/model"
	"github.com/okian/skillmatch/pkg/logger"
)

var suggestionPaths = []string{"/users/suggested", "/sessions/suggested"}

// verifySuggestions fetches both suggestion lists for every user and checks
// that nobody is offered to themselves and no candidate appears twice.
func verifySuggestions(ctx context.Context, config *Config, client *HTTPClient, users []User, stats *Stats) error {
	log := logger.Get().Named("seed")

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
	)
	matched := make(map[string]struct{})
	userChan := make(chan string, config.Workers*2)

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range userChan {
				for _, path := range suggestionPaths {
					var env suggestionEnvelope
					err := client.getJSON(ctx, path, id, &env)

					mu.Lock()
					if err != nil {
						if firstErr == nil {
							firstErr = err
						}
						mu.Unlock()
						continue
					}
					stats.SuggestionsRetrieved++
					self, dups := checkMatches(id, env.Data)
					stats.SelfMatches += self
					stats.DuplicateCandidates += dups
					if len(env.Data) > 0 {
						matched[id] = struct{}{}
					}
					mu.Unlock()
				}
			}
		}()
	}

	go func() {
		defer close(userChan)
		for _, u := range users {
			select {
			case <-ctx.Done():
				return
			case userChan <- u.ID:
			}
		}
	}()
	wg.Wait()

	stats.UsersWithMatches = len(matched)
	if firstErr != nil {
		return fmt.Errorf("fetching suggestions: %w", firstErr)
	}
	if stats.SelfMatches > 0 || stats.DuplicateCandidates > 0 {
		return fmt.Errorf("%w: %d self matches, %d duplicate candidates",
			ErrVerification, stats.SelfMatches, stats.DuplicateCandidates)
	}

	log.Info(ctx, "suggestions verified",
		logger.Int("retrieved", stats.SuggestionsRetrieved),
		logger.Int("usersWithMatches", stats.UsersWithMatches))
	return nil
}

// checkMatches counts rows naming the requester and repeated candidate ids.
func checkMatches(userID string, rows []model.CandidateMatch) (self, duplicates int) {
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if row.CandidateID == userID {
			self++
		}
		if _, dup := seen[row.CandidateID]; dup {
			duplicates++
		}
		seen[row.CandidateID] = struct{}{}
	}
	return self, duplicates
}
