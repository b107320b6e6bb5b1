package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crm-kit/lead-router/internal/domain"
	apperrors "github.com/crm-kit/lead-router/pkg/util"
)

func TestCreateOperatorDefaults(t *testing.T) {
	env := newTestEnv(t)
	op, err := env.catalog.CreateOperator(context.Background(), OperatorInput{Name: "  Alice  "})
	require.NoError(t, err)
	assert.Equal(t, "Alice", op.Name)
	assert.Equal(t, domain.DefaultMaxLoad, op.MaxLoad)
	assert.True(t, op.IsActive)
	assert.NotZero(t, op.ID)
}

func TestCreateOperatorValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.catalog.CreateOperator(ctx, OperatorInput{Name: ""})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	_, err = env.catalog.CreateOperator(ctx, OperatorInput{Name: "Bob", MaxLoad: -1})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
}

func TestUpdateOperatorPatchesFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	op := env.operator(t, "Alice", 5)

	updated, err := env.catalog.UpdateOperator(ctx, op.ID, OperatorPatch{MaxLoad: ptr(8), IsActive: ptr(false)})
	require.NoError(t, err)
	assert.Equal(t, "Alice", updated.Name)
	assert.Equal(t, 8, updated.MaxLoad)
	assert.False(t, updated.IsActive)

	got, err := env.catalog.GetOperator(ctx, op.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, got)

	_, err = env.catalog.UpdateOperator(ctx, op.ID, OperatorPatch{MaxLoad: ptr(0)})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	_, err = env.catalog.UpdateOperator(ctx, 999, OperatorPatch{Name: ptr("x")})
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}

func TestListOperatorsOrdered(t *testing.T) {
	env := newTestEnv(t)
	a := env.operator(t, "A", 1)
	b := env.operator(t, "B", 1)

	ops, err := env.catalog.ListOperators(context.Background())
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, a.ID, ops[0].ID)
	assert.Equal(t, b.ID, ops[1].ID)
}

func TestCreateSourceDuplicateConflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.source(t, "Telegram Bot")

	_, err := env.catalog.CreateSource(ctx, "Telegram Bot")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "CONFLICT"))

	sources, err := env.catalog.ListSources(ctx)
	require.NoError(t, err)
	assert.Len(t, sources, 1)
}

func TestConfigureSourceWeightsUpserts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.operator(t, "A", 1)
	b := env.operator(t, "B", 1)
	src := env.source(t, "Web")

	env.link(t, src.ID, WeightInput{OperatorID: a.ID, Weight: 10})
	links, err := env.catalog.ConfigureSourceWeights(ctx, src.ID, []WeightInput{
		{OperatorID: a.ID, Weight: 20},
		{OperatorID: b.ID, Weight: 0},
	})
	require.NoError(t, err)
	assert.Equal(t, []domain.SourceOperatorLink{
		{SourceID: src.ID, OperatorID: a.ID, Weight: 20},
		{SourceID: src.ID, OperatorID: b.ID, Weight: 0},
	}, links)

	listed, err := env.catalog.SourceLinks(ctx, src.ID)
	require.NoError(t, err)
	assert.Equal(t, links, listed)
}

func TestConfigureSourceWeightsIsAllOrNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.operator(t, "A", 1)
	src := env.source(t, "Web")

	_, err := env.catalog.ConfigureSourceWeights(ctx, src.ID, []WeightInput{
		{OperatorID: a.ID, Weight: 5},
		{OperatorID: 777, Weight: 5},
	})
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))

	links, err := env.catalog.SourceLinks(ctx, src.ID)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestConfigureSourceWeightsValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.operator(t, "A", 1)
	src := env.source(t, "Web")

	cases := map[string][]WeightInput{
		"empty":     nil,
		"negative":  {{OperatorID: a.ID, Weight: -1}},
		"duplicate": {{OperatorID: a.ID, Weight: 1}, {OperatorID: a.ID, Weight: 2}},
	}
	for name, weights := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := env.catalog.ConfigureSourceWeights(ctx, src.ID, weights)
			assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
		})
	}

	_, err := env.catalog.ConfigureSourceWeights(ctx, 999, []WeightInput{{OperatorID: a.ID, Weight: 1}})
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}

func TestCloseInteractionFreesCapacityAndIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	op := env.operator(t, "Solo", 1)
	src := env.source(t, "Web")
	env.link(t, src.ID, WeightInput{OperatorID: op.ID, Weight: 1})

	it, err := env.distribution.RegisterInteraction(ctx, "first", src.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, it.OperatorID)

	closed, err := env.catalog.CloseInteraction(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InteractionStatusClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)

	again, err := env.catalog.CloseInteraction(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, closed.ClosedAt, again.ClosedAt)
	assert.Equal(t, int64(1), env.metrics.Snapshot().ClosedInteracts)

	next, err := env.distribution.RegisterInteraction(ctx, "second", src.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, next.OperatorID)
	assert.Equal(t, op.ID, *next.OperatorID)

	_, err = env.catalog.CloseInteraction(ctx, 98765)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}
