package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/skillmatch/internal/adapters/http/api"
	"github.com/okian/skillmatch/pkg/logger"
)

// HTTPClient wraps http.Client and sets the caller identity header.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path, user string, body any) (*http.Response, error) {
	var r io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set(api.UserHeader, user)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

// getJSON performs a GET and decodes a 200 response into v.
func (c *HTTPClient) getJSON(ctx context.Context, path, user string, v any) error {
	resp, err := c.do(ctx, http.MethodGet, path, user, nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("GET %s: decode: %w", path, err)
	}
	return nil
}

// submitRequests posts every request using a pool of workers.
func submitRequests(ctx context.Context, config *Config, client *HTTPClient, reqs []request, stats *Stats) {
	log := logger.Get().Named("seed")
	log.Info(ctx, "submitting requests", logger.Int("requests", len(reqs)), logger.Int("workers", config.Workers))

	var submitted, successful, failed atomic.Int64
	reqChan := make(chan request, config.Workers*2)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := range reqChan {
				submitted.Add(1)
				if err := submitSingle(ctx, client, r); err != nil {
					failed.Add(1)
					if config.Verbose {
						log.Warn(ctx, "request failed", logger.String("path", r.path), logger.Error(err))
					}
					continue
				}
				successful.Add(1)
			}
		}()
	}

	go func() {
		defer close(reqChan)
		for _, r := range reqs {
			select {
			case <-ctx.Done():
				return
			case reqChan <- r:
			}
		}
	}()

	wg.Wait()

	stats.RequestsSubmitted = int(submitted.Load())
	stats.RequestsSuccessful = int(successful.Load())
	stats.RequestsFailed = int(failed.Load())

	log.Info(ctx, "submission completed",
		logger.Int("successful", stats.RequestsSuccessful),
		logger.Int("failed", stats.RequestsFailed))
}

func submitSingle(ctx context.Context, client *HTTPClient, r request) error {
	resp, err := client.do(ctx, http.MethodPost, r.path, r.user, r.body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("POST %s: unexpected status %d", r.path, resp.StatusCode)
	}
	return nil
}
