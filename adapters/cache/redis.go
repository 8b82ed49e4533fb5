// Package cache keeps arXiv search results in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/satriahrh/synapse/domain"
)

const keyPrefix = "synapse:search:"

type SearchCache struct {
	rdb    redis.Cmdable
	hasher domain.Hasher
	ttl    time.Duration
}

var _ domain.SearchCache = (*SearchCache)(nil)

func NewSearchCache(rdb redis.Cmdable, hasher domain.Hasher, ttl time.Duration) *SearchCache {
	return &SearchCache{rdb: rdb, hasher: hasher, ttl: ttl}
}

// Key derives the cache key for q. Queries differing only in case or
// surrounding whitespace share a key.
func (c *SearchCache) Key(q domain.SearchQuery) string {
	raw := fmt.Sprintf("%s|%d|%d|%s|%s",
		strings.ToLower(strings.TrimSpace(q.Query)), q.Start, q.MaxResults, q.SortBy, q.SortOrder)
	return keyPrefix + c.hasher.Hash([]byte(raw))
}

func (c *SearchCache) Get(ctx context.Context, q domain.SearchQuery) ([]domain.Paper, bool, error) {
	data, err := c.rdb.Get(ctx, c.Key(q)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get search results: %w", err)
	}
	var papers []domain.Paper
	if err := json.Unmarshal(data, &papers); err != nil {
		return nil, false, fmt.Errorf("failed to decode search results: %w", err)
	}
	return papers, true, nil
}

func (c *SearchCache) Set(ctx context.Context, q domain.SearchQuery, papers []domain.Paper) error {
	data, err := json.Marshal(papers)
	if err != nil {
		return fmt.Errorf("failed to encode search results: %w", err)
	}
	if err := c.rdb.Set(ctx, c.Key(q), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save search results: %w", err)
	}
	return nil
}
