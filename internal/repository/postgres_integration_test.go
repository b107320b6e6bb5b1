//go:build integration

package repository_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/crm-kit/lead-router/internal/domain"
	"github.com/crm-kit/lead-router/internal/persistence"
	"github.com/crm-kit/lead-router/internal/repository"
	"github.com/crm-kit/lead-router/internal/service"
)

func newPostgresStore(t *testing.T) (*repository.PostgresStore, *pgxpool.Pool) {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, persistence.RunMigrations(ctx, pool, zap.NewNop()))
	_, err = pool.Exec(ctx, `TRUNCATE interactions, leads, source_operator_links, sources, operators RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return repository.NewPostgresStore(pool), pool
}

func TestPostgresLeadUniqueness(t *testing.T) {
	store, _ := newPostgresStore(t)
	ctx := context.Background()

	err := store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		require.NoError(t, tx.Leads().Create(ctx, &domain.Lead{ExternalID: "user123"}))

		err := tx.Leads().Create(ctx, &domain.Lead{ExternalID: "user123"})
		assert.ErrorIs(t, err, repository.ErrDuplicateKey)

		// the savepoint keeps the transaction usable after the violation
		lead, err := tx.Leads().GetByExternalID(ctx, "user123")
		require.NoError(t, err)
		assert.NotZero(t, lead.ID)
		return nil
	})
	require.NoError(t, err)
}

func TestPostgresWithinTxRollsBack(t *testing.T) {
	store, _ := newPostgresStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		require.NoError(t, tx.Sources().Create(ctx, &domain.Source{Name: "Web"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		sources, err := tx.Sources().List(ctx)
		require.NoError(t, err)
		assert.Empty(t, sources)
		return nil
	})
	require.NoError(t, err)
}

func TestPostgresRoutingQueries(t *testing.T) {
	store, _ := newPostgresStore(t)
	ctx := context.Background()

	err := store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		alice := &domain.Operator{Name: "Alice", IsActive: true, MaxLoad: 2}
		off := &domain.Operator{Name: "Off", IsActive: false, MaxLoad: 2}
		require.NoError(t, tx.Operators().Create(ctx, alice))
		require.NoError(t, tx.Operators().Create(ctx, off))

		src := &domain.Source{Name: "Telegram Bot"}
		require.NoError(t, tx.Sources().Create(ctx, src))
		require.NoError(t, tx.Sources().UpsertLink(ctx, domain.SourceOperatorLink{SourceID: src.ID, OperatorID: alice.ID, Weight: 5}))
		require.NoError(t, tx.Sources().UpsertLink(ctx, domain.SourceOperatorLink{SourceID: src.ID, OperatorID: alice.ID, Weight: 100}))
		require.NoError(t, tx.Sources().UpsertLink(ctx, domain.SourceOperatorLink{SourceID: src.ID, OperatorID: off.ID, Weight: 1}))

		linked, err := tx.Sources().LinkedActiveOperators(ctx, src.ID)
		require.NoError(t, err)
		assert.Equal(t, []domain.LinkedOperator{{OperatorID: alice.ID, Weight: 100, MaxLoad: 2}}, linked)

		lead := &domain.Lead{ExternalID: "v"}
		require.NoError(t, tx.Leads().Create(ctx, lead))
		it := &domain.Interaction{LeadID: lead.ID, SourceID: src.ID, OperatorID: &alice.ID, Status: domain.InteractionStatusOpen}
		require.NoError(t, tx.Interactions().Create(ctx, it))
		closedOne := &domain.Interaction{LeadID: lead.ID, SourceID: src.ID, OperatorID: &alice.ID, Status: domain.InteractionStatusOpen}
		require.NoError(t, tx.Interactions().Create(ctx, closedOne))
		require.NoError(t, tx.Interactions().Close(ctx, closedOne.ID, time.Now()))
		assert.ErrorIs(t, tx.Interactions().Close(ctx, closedOne.ID, time.Now()), pgx.ErrNoRows)

		counts, err := tx.Interactions().OpenCountByOperator(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[int64]int{alice.ID: 1}, counts)

		report, err := tx.Operators().LoadReport(ctx)
		require.NoError(t, err)
		require.Len(t, report, 2)
		assert.Equal(t, 1, report[0].CurrentLoad)
		assert.Equal(t, 0, report[1].CurrentLoad)
		assert.False(t, report[1].IsActive)
		return nil
	})
	require.NoError(t, err)

	// a foreign key violation aborts the transaction, so it gets its own
	err = store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return tx.Sources().UpsertLink(ctx, domain.SourceOperatorLink{SourceID: 1, OperatorID: 9999, Weight: 1})
	})
	assert.ErrorIs(t, err, repository.ErrInvalidReference)
}

func TestPostgresConcurrentResolve(t *testing.T) {
	store, pool := newPostgresStore(t)
	distribution := service.NewDistributionService(service.DistributionDependencies{Store: store})

	const callers = 24
	ids := make([]int64, callers)
	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < callers; i++ {
		g.Go(func() error {
			lead, err := distribution.ResolveLead(ctx, "racer")
			if err != nil {
				return err
			}
			ids[i] = lead.ID
			return nil
		})
	}
	require.NoError(t, g.Wait())

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	var count int
	require.NoError(t, pool.QueryRow(context.Background(), `SELECT COUNT(*) FROM leads WHERE external_id = 'racer'`).Scan(&count))
	assert.Equal(t, 1, count)
}
