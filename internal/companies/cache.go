package companies

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jimdaga/tophive/internal/content"
	"github.com/jimdaga/tophive/internal/metrics"
	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "companies:lookup:"

// CachedSource memoizes another Source in redis. Cache failures never fail
// a lookup; they only cost a call to the wrapped source.
type CachedSource struct {
	next Source
	rdb  redis.UniversalClient
	ttl  time.Duration
}

// NewCachedSource wraps next with a redis cache of the given TTL
func NewCachedSource(next Source, rdb redis.UniversalClient, ttl time.Duration) *CachedSource {
	return &CachedSource{next: next, rdb: rdb, ttl: ttl}
}

func cacheKey(query string) string {
	return cacheKeyPrefix + strings.ToLower(strings.TrimSpace(query))
}

// Search implements Source
func (s *CachedSource) Search(ctx context.Context, query string) ([]content.Company, error) {
	key := cacheKey(query)

	cached, err := s.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var companies []content.Company
		if jsonErr := json.Unmarshal(cached, &companies); jsonErr == nil {
			metrics.LookupCache.WithLabelValues("hit").Inc()
			return companies, nil
		}
		metrics.LookupCache.WithLabelValues("error").Inc()
	case errors.Is(err, redis.Nil):
		metrics.LookupCache.WithLabelValues("miss").Inc()
	default:
		metrics.LookupCache.WithLabelValues("error").Inc()
		slog.Warn("Company lookup cache read failed", "error", err)
	}

	companies, err := s.next.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(companies); err == nil {
		if err := s.rdb.Set(ctx, key, payload, s.ttl).Err(); err != nil {
			slog.Warn("Company lookup cache write failed", "error", err)
		}
	}

	return companies, nil
}
