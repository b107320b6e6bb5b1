// Package cache holds the Redis read-through cache for the operator load report.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/crm-kit/lead-router/internal/domain"
)

const (
	generationKey = "lead-router:stats:generation"
	reportPrefix  = "lead-router:stats:operator-load:"
)

// StatsCache stores the last computed load report for a short TTL.
// Reports are keyed by a generation counter that Invalidate bumps, so a
// report computed before an invalidation lands under a key no reader
// looks at again. A nil *StatsCache is valid and never hits.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStatsCache returns nil when caching is disabled.
func NewStatsCache(client *redis.Client, ttl time.Duration) *StatsCache {
	if client == nil || ttl <= 0 {
		return nil
	}
	return &StatsCache{client: client, ttl: ttl}
}

// Get returns the cached report for the current generation, whether it was
// present, and the generation a subsequent Set must be stamped with.
func (c *StatsCache) Get(ctx context.Context) ([]domain.OperatorLoad, bool, int64, error) {
	if c == nil {
		return nil, false, 0, nil
	}
	gen, err := c.generation(ctx)
	if err != nil {
		return nil, false, 0, err
	}
	raw, err := c.client.Get(ctx, reportKey(gen)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, gen, nil
	}
	if err != nil {
		return nil, false, gen, fmt.Errorf("read stats cache: %w", err)
	}
	var report []domain.OperatorLoad
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, false, gen, fmt.Errorf("decode stats cache: %w", err)
	}
	return report, true, gen, nil
}

// Set stores report under generation gen for the configured TTL.
func (c *StatsCache) Set(ctx context.Context, gen int64, report []domain.OperatorLoad) error {
	if c == nil {
		return nil
	}
	raw, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode stats cache: %w", err)
	}
	if err := c.client.Set(ctx, reportKey(gen), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("write stats cache: %w", err)
	}
	return nil
}

// Invalidate advances the generation, orphaning every report written so far.
func (c *StatsCache) Invalidate(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		return fmt.Errorf("invalidate stats cache: %w", err)
	}
	return nil
}

func (c *StatsCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read stats generation: %w", err)
	}
	return gen, nil
}

func reportKey(gen int64) string {
	return reportPrefix + strconv.FormatInt(gen, 10)
}
