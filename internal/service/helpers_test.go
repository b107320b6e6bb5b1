package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crm-kit/lead-router/internal/domain"
	"github.com/crm-kit/lead-router/internal/events"
	"github.com/crm-kit/lead-router/internal/observability"
	"github.com/crm-kit/lead-router/internal/repository/memory"
)

type testEnv struct {
	store        *memory.Store
	metrics      *observability.Metrics
	dispatcher   events.Dispatcher
	stats        *StatsAggregator
	distribution *DistributionService
	catalog      *CatalogService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	store := memory.NewStore()
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	stats := NewStatsAggregator(store, nil, logger)

	NewMonitoringService(dispatcher, stats, metrics, logger).RegisterHandlers()

	return &testEnv{
		store:      store,
		metrics:    metrics,
		dispatcher: dispatcher,
		stats:      stats,
		distribution: NewDistributionService(DistributionDependencies{
			Store:      store,
			Registry:   NewLeadRegistry(logger, metrics),
			Selector:   NewCandidateSelector(NewLoadTracker()),
			Picker:     NewWeightedPicker(1),
			Recorder:   NewInteractionRecorder(),
			Stats:      stats,
			Dispatcher: dispatcher,
			Logger:     logger,
		}),
		catalog: NewCatalogService(store, dispatcher, logger),
	}
}

func (e *testEnv) operator(t *testing.T, name string, maxLoad int) *domain.Operator {
	t.Helper()
	op, err := e.catalog.CreateOperator(context.Background(), OperatorInput{Name: name, MaxLoad: maxLoad})
	require.NoError(t, err)
	return op
}

func (e *testEnv) source(t *testing.T, name string) *domain.Source {
	t.Helper()
	src, err := e.catalog.CreateSource(context.Background(), name)
	require.NoError(t, err)
	return src
}

func (e *testEnv) link(t *testing.T, sourceID int64, weights ...WeightInput) {
	t.Helper()
	_, err := e.catalog.ConfigureSourceWeights(context.Background(), sourceID, weights)
	require.NoError(t, err)
}

func ptr[T any](v T) *T { return &v }
