// Package expansion talks to the semantic-expansion service that turns topics
// and keywords into related tags.
package expansion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okian/skillmatch/internal/domain/tags"
	"github.com/okian/skillmatch/pkg/logger"
	"github.com/okian/skillmatch/pkg/metrics"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 1 << 20

	opQuery  = "query"
	opSearch = "search"
)

// Client calls the expansion service. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	limiter *rate.Limiter
	cache   Cache
	log     logger.Logger
}

// New returns a Client for baseURL, e.g. "http://127.0.0.1:5000/api/v1".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Get().Named("expansion")
	}
	return c
}

type queryRequest struct {
	Topic     string   `json:"topic"`
	SubTopics []string `json:"sub_topics"`
}

type searchRequest struct {
	Keywords []string `json:"keywords"`
}

type expansionResponse struct {
	Response []string `json:"response"`
}

// Query derives tags for an entity from its topic label and raw topics.
func (c *Client) Query(ctx context.Context, topic string, subTopics []string) ([]string, error) {
	subTopics = tags.Clean(subTopics)
	if len(subTopics) == 0 {
		return []string{}, nil
	}
	return c.post(ctx, opQuery, "/llm/query", queryRequest{Topic: strings.TrimSpace(topic), SubTopics: subTopics})
}

// Search expands matching keywords into related terms.
func (c *Client) Search(ctx context.Context, keywords []string) ([]string, error) {
	keywords = tags.Clean(keywords)
	if len(keywords) == 0 {
		return []string{}, nil
	}

	if c.cache != nil {
		cached, ok, err := c.cache.Get(ctx, keywords)
		switch {
		case err != nil:
			metrics.RecordExpansionCache("error")
			c.log.Warn(ctx, "expansion cache read failed", logger.Error(err))
		case ok:
			metrics.RecordExpansionCache("hit")
			return cached, nil
		default:
			metrics.RecordExpansionCache("miss")
		}
	}

	out, err := c.post(ctx, opSearch, "/search/keywords", searchRequest{Keywords: keywords})
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, keywords, out); err != nil {
			c.log.Warn(ctx, "expansion cache write failed", logger.Error(err))
		}
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, op, path string, payload any) (out []string, err error) {
	start := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
			metrics.RecordErrorByComponent("expansion", op)
		}
		metrics.RecordExpansionRequest(op, result, metrics.SinceMs(start))
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %s: rate limit: %w", ErrUnavailable, op, err)
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: encode: %w", ErrUnavailable, op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read body: %w", ErrUnavailable, op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Op: op, Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var parsed expansionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %s: decode: %w", ErrUnavailable, op, err)
	}

	out = tags.Flatten(parsed.Response)
	c.log.Debug(ctx, "expansion completed",
		logger.String("op", op),
		logger.Int("terms", len(out)),
		logger.Duration("took", time.Since(start)))
	return out, nil
}
