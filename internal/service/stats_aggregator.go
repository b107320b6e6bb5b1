package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/crm-kit/lead-router/internal/cache"
	"github.com/crm-kit/lead-router/internal/domain"
	"github.com/crm-kit/lead-router/internal/repository"
)

// StatsAggregator builds the per-operator load report.
type StatsAggregator struct {
	store  repository.Store
	cache  *cache.StatsCache
	logger *zap.Logger
}

// NewStatsAggregator creates the aggregator. statsCache may be nil.
func NewStatsAggregator(store repository.Store, statsCache *cache.StatsCache, logger *zap.Logger) *StatsAggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsAggregator{store: store, cache: statsCache, logger: logger}
}

// Report lists every operator with its capacity, active flag and open load.
// Cache failures degrade to a direct read. The generation is read before
// the database so a write committed in between orphans this report.
func (a *StatsAggregator) Report(ctx context.Context) ([]domain.OperatorLoad, error) {
	cached, hit, gen, err := a.cache.Get(ctx)
	if err != nil {
		a.logger.Warn("stats cache read failed", zap.Error(err))
	}
	if hit {
		return cached, nil
	}
	cacheable := err == nil

	var report []domain.OperatorLoad
	err = a.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		report, err = tx.Operators().LoadReport(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load report: %w", err)
	}

	if cacheable {
		if err := a.cache.Set(ctx, gen, report); err != nil {
			a.logger.Warn("stats cache write failed", zap.Error(err))
		}
	}
	return report, nil
}

// Invalidate orphans any cached report.
func (a *StatsAggregator) Invalidate(ctx context.Context) error {
	return a.cache.Invalidate(ctx)
}
