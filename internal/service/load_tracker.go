package service

import (
	"context"
	"fmt"

	"github.com/crm-kit/lead-router/internal/repository"
)

// LoadTracker reports how many open interactions each operator holds.
type LoadTracker struct{}

// NewLoadTracker creates the tracker.
func NewLoadTracker() *LoadTracker {
	return &LoadTracker{}
}

// CurrentLoad is a lock-free snapshot. Operators without open interactions
// are absent from the map; a missing key means zero.
func (t *LoadTracker) CurrentLoad(ctx context.Context, tx repository.Tx) (map[int64]int, error) {
	counts, err := tx.Interactions().OpenCountByOperator(ctx)
	if err != nil {
		return nil, fmt.Errorf("count open interactions: %w", err)
	}
	return counts, nil
}
