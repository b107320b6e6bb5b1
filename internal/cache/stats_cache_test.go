package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crm-kit/lead-router/internal/domain"
)

func newTestCache(t *testing.T, ttl time.Duration) (*StatsCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStatsCache(client, ttl), mr
}

func TestStatsCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, time.Minute)

	_, hit, gen, err := c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Zero(t, gen)

	report := []domain.OperatorLoad{
		{OperatorID: 1, Name: "Alice", MaxLoad: 2, IsActive: true, CurrentLoad: 1},
		{OperatorID: 2, Name: "Bob", MaxLoad: 10, IsActive: false, CurrentLoad: 0},
	}
	require.NoError(t, c.Set(ctx, gen, report))

	got, hit, _, err := c.Get(ctx)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, report, got)
}

func TestStatsCacheExpires(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, 2*time.Second)

	require.NoError(t, c.Set(ctx, 0, []domain.OperatorLoad{{OperatorID: 1, Name: "Alice"}}))
	mr.FastForward(3 * time.Second)

	_, hit, _, err := c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestStatsCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, time.Minute)

	require.NoError(t, c.Set(ctx, 0, []domain.OperatorLoad{{OperatorID: 1}}))
	require.NoError(t, c.Invalidate(ctx))

	_, hit, gen, err := c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, int64(1), gen)
}

func TestStatsCacheIgnoresWritesFromEarlierGeneration(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, time.Minute)

	_, _, gen, err := c.Get(ctx)
	require.NoError(t, err)

	// The report was computed before this invalidation and arrives late.
	require.NoError(t, c.Invalidate(ctx))
	require.NoError(t, c.Set(ctx, gen, []domain.OperatorLoad{{OperatorID: 1, CurrentLoad: 0}}))

	_, hit, current, err := c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, gen+1, current)

	fresh := []domain.OperatorLoad{{OperatorID: 1, CurrentLoad: 1}}
	require.NoError(t, c.Set(ctx, current, fresh))
	got, hit, _, err := c.Get(ctx)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, fresh, got)
}

func TestStatsCacheDisabled(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, NewStatsCache(nil, time.Minute))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	c := NewStatsCache(client, 0)
	assert.Nil(t, c)

	require.NoError(t, c.Set(ctx, 0, []domain.OperatorLoad{{OperatorID: 1}}))
	_, hit, _, err := c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
	require.NoError(t, c.Invalidate(ctx))
}

func TestStatsCacheSurfacesBackendErrors(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, time.Minute)
	mr.Close()

	_, _, _, err := c.Get(ctx)
	assert.Error(t, err)
	assert.Error(t, c.Invalidate(ctx))
}
