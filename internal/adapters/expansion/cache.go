package expansion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores Search results keyed by the keyword set.
type Cache interface {
	Get(ctx context.Context, keywords []string) ([]string, bool, error)
	Set(ctx context.Context, keywords []string, expanded []string) error
}

const cacheKeyPrefix = "skillmatch:expansion:"

// RedisCache is a Cache backed by Redis string keys with a TTL.
type RedisCache struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

// NewRedisCache wraps rdb. ttl <= 0 stores entries without expiry.
func NewRedisCache(rdb redis.UniversalClient, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached expansion, reporting false on a miss.
func (c *RedisCache) Get(ctx context.Context, keywords []string) ([]string, bool, error) {
	raw, err := c.rdb.Get(ctx, CacheKey(keywords)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false, fmt.Errorf("decode cached expansion: %w", err)
	}
	return out, true, nil
}

// Set stores expanded under the keyword set.
func (c *RedisCache) Set(ctx context.Context, keywords []string, expanded []string) error {
	raw, err := json.Marshal(expanded)
	if err != nil {
		return fmt.Errorf("encode expansion: %w", err)
	}
	if err := c.rdb.Set(ctx, CacheKey(keywords), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// CacheKey is order and case insensitive over the keyword set.
func CacheKey(keywords []string) string {
	norm := make([]string, 0, len(keywords))
	for _, k := range keywords {
		norm = append(norm, strings.ToLower(strings.TrimSpace(k)))
	}
	sort.Strings(norm)
	sum := sha256.Sum256([]byte(strings.Join(norm, "\x00")))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}
