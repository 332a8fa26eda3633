// Package seed populates a running service with random users, skills and
// sessions, then checks the suggestions it returns.
package seed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/skillmatch/pkg/logger"
)

// Runner configuration constants.
const (
	pollInterval  = 200 * time.Millisecond
	inFlightKey   = "enrichmentInFlight"
	percentFactor = 100
)

// ErrVerification is returned when suggestions break an invariant.
var ErrVerification = errors.New("suggestion verification failed")

// Run executes a complete seeding run.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("seed")
	if config.Workers < 1 {
		config.Workers = 1
	}

	log.Info(ctx, "starting seed run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("users", config.NumUsers),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout))

	client := newHTTPClient(config.BaseURL, config.Timeout)

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, client); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate and submit
	users := GenerateUsers(ctx, config.NumUsers, config.Seed)
	stats.UsersGenerated = len(users)
	submitRequests(ctx, config, client, requests(users), stats)

	// Step 3: Wait for enrichment
	if err := waitForEnrichment(ctx, client, config.WaitTimeout); err != nil {
		log.Warn(ctx, "enrichment did not drain, verifying anyway", logger.Error(err))
	}

	// Step 4: Fetch and verify suggestions
	if err := verifySuggestions(ctx, config, client, users, stats); err != nil {
		return stats, err
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient) error {
	resp, err := client.do(ctx, http.MethodGet, "/healthz", "", nil)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	return nil
}

// waitForEnrichment polls /stats until no enrichment job is in flight.
func waitForEnrichment(ctx context.Context, client *HTTPClient, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		var stats map[string]any
		if err := client.getJSON(ctx, "/stats", "", &stats); err == nil {
			if n, ok := stats[inFlightKey].(float64); ok && n == 0 {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for enrichment: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate float64
	if stats.RequestsSubmitted > 0 {
		successRate = float64(stats.RequestsSuccessful) / float64(stats.RequestsSubmitted) * percentFactor
	}

	logger.Get().Named("seed").Info(ctx, "final statistics",
		logger.Int("usersGenerated", stats.UsersGenerated),
		logger.Int("requestsSubmitted", stats.RequestsSubmitted),
		logger.Int("requestsFailed", stats.RequestsFailed),
		logger.Int("suggestionsRetrieved", stats.SuggestionsRetrieved),
		logger.Int("usersWithMatches", stats.UsersWithMatches),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate))
}
