package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/crm-kit/lead-router/internal/domain"
	apperrors "github.com/crm-kit/lead-router/pkg/util"
)

func TestRegisterInteractionAssignsAndReportsLoad(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.operator(t, "Alice", 5)
	bot := env.source(t, "Telegram Bot")
	env.link(t, bot.ID, WeightInput{OperatorID: alice.ID, Weight: 100})

	it, err := env.distribution.RegisterInteraction(ctx, "user123", bot.ID, ptr("hello"))
	require.NoError(t, err)
	require.NotNil(t, it.OperatorID)
	assert.Equal(t, alice.ID, *it.OperatorID)
	assert.Equal(t, domain.InteractionStatusOpen, it.Status)
	assert.Equal(t, "hello", *it.Message)

	report, err := env.distribution.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, report, 1)
	assert.Equal(t, "Alice", report[0].Name)
	assert.Equal(t, 5, report[0].MaxLoad)
	assert.True(t, report[0].IsActive)
	assert.Equal(t, 1, report[0].CurrentLoad)

	assert.Equal(t, int64(1), env.metrics.Snapshot().Assigned)
}

func TestRegisterInteractionWithoutCapacityIsUnassigned(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	op := env.operator(t, "Busy", 1)
	src := env.source(t, "Form")
	env.link(t, src.ID, WeightInput{OperatorID: op.ID, Weight: 1})

	first, err := env.distribution.RegisterInteraction(ctx, "a", src.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, first.OperatorID)

	second, err := env.distribution.RegisterInteraction(ctx, "b", src.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, second.OperatorID)
	assert.Equal(t, domain.InteractionStatusOpen, second.Status)
	assert.Equal(t, 2, env.store.InteractionCount())

	snap := env.metrics.Snapshot()
	assert.Equal(t, int64(1), snap.Assigned)
	assert.Equal(t, int64(1), snap.Unassigned)
}

func TestRegisterInteractionUnknownSource(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.distribution.RegisterInteraction(context.Background(), "user123", 999, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
	assert.Zero(t, env.store.LeadCount(), "lead must not survive a failed unit of work")
}

func TestAssignDoesNotRecord(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	op := env.operator(t, "Alice", 1)
	src := env.source(t, "Site")
	env.link(t, src.ID, WeightInput{OperatorID: op.ID, Weight: 1})

	for i := 0; i < 3; i++ {
		chosen, err := env.distribution.Assign(ctx, src.ID)
		require.NoError(t, err)
		require.NotNil(t, chosen)
		assert.Equal(t, op.ID, *chosen)
	}
	assert.Zero(t, env.store.InteractionCount())
}

func TestAssignNoCandidate(t *testing.T) {
	env := newTestEnv(t)
	src := env.source(t, "Lonely")

	chosen, err := env.distribution.Assign(context.Background(), src.ID)
	require.NoError(t, err)
	assert.Nil(t, chosen)
}

func TestAssignUnknownSource(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.distribution.Assign(context.Background(), 404)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}

func TestRoundTripSharesLead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	src := env.source(t, "Chat")

	a, err := env.distribution.ResolveLead(ctx, "visitor-9")
	require.NoError(t, err)
	b, err := env.distribution.ResolveLead(ctx, "visitor-9")
	require.NoError(t, err)

	first, err := env.distribution.RecordInteraction(ctx, a.ID, src.ID, nil, nil)
	require.NoError(t, err)
	second, err := env.distribution.RecordInteraction(ctx, b.ID, src.ID, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, first.LeadID, second.LeadID)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestRecordInteractionValidatesReferences(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	src := env.source(t, "Chat")
	lead, err := env.distribution.ResolveLead(ctx, "v")
	require.NoError(t, err)

	_, err = env.distribution.RecordInteraction(ctx, 12345, src.ID, nil, nil)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))

	_, err = env.distribution.RecordInteraction(ctx, lead.ID, 12345, nil, nil)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))

	_, err = env.distribution.RecordInteraction(ctx, lead.ID, src.ID, ptr(int64(12345)), nil)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))

	assert.Zero(t, env.store.InteractionCount())
}

func TestStatsIncludesIdleAndInactiveOperators(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	busy := env.operator(t, "Busy", 3)
	idle := env.operator(t, "Idle", 4)
	off := env.operator(t, "Off", 2)
	_, err := env.catalog.UpdateOperator(ctx, off.ID, OperatorPatch{IsActive: ptr(false)})
	require.NoError(t, err)

	src := env.source(t, "Web")
	env.link(t, src.ID, WeightInput{OperatorID: busy.ID, Weight: 1})
	for _, ext := range []string{"x", "y"} {
		_, err := env.distribution.RegisterInteraction(ctx, ext, src.ID, nil)
		require.NoError(t, err)
	}

	report, err := env.distribution.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, report, 3)

	byID := map[int64]domain.OperatorLoad{}
	for _, row := range report {
		byID[row.OperatorID] = row
	}
	assert.Equal(t, 2, byID[busy.ID].CurrentLoad)
	assert.Equal(t, 0, byID[idle.ID].CurrentLoad)
	assert.Equal(t, 4, byID[idle.ID].MaxLoad)
	assert.False(t, byID[off.ID].IsActive)
}

func TestDistributionFollowsWeightsEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.operator(t, "A", 100000)
	b := env.operator(t, "B", 100000)
	src := env.source(t, "Ads")
	env.link(t, src.ID, WeightInput{OperatorID: a.ID, Weight: 1}, WeightInput{OperatorID: b.ID, Weight: 3})

	const trials = 10000
	counts := map[int64]int{}
	for i := 0; i < trials; i++ {
		chosen, err := env.distribution.Assign(ctx, src.ID)
		require.NoError(t, err)
		require.NotNil(t, chosen)
		counts[*chosen]++
	}
	assert.InDelta(t, 0.25, float64(counts[a.ID])/trials, 0.025)
	assert.InDelta(t, 0.75, float64(counts[b.ID])/trials, 0.025)
}

func TestConcurrentRegistrationsForSameLead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	op := env.operator(t, "Wide", 1000)
	src := env.source(t, "Burst")
	env.link(t, src.ID, WeightInput{OperatorID: op.ID, Weight: 1})

	const callers = 32
	leadIDs := make([]int64, callers)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < callers; i++ {
		g.Go(func() error {
			it, err := env.distribution.RegisterInteraction(gctx, "dup-lead", src.ID, nil)
			if err != nil {
				return err
			}
			leadIDs[i] = it.LeadID
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 1, env.store.LeadCount())
	assert.Equal(t, callers, env.store.InteractionCount())
	for _, id := range leadIDs {
		assert.Equal(t, leadIDs[0], id)
	}
}
