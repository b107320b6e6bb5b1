package service

import (
	"context"
	"fmt"

	"github.com/crm-kit/lead-router/internal/domain"
	"github.com/crm-kit/lead-router/internal/repository"
)

// CandidateSelector computes which operators may take a lead from a source.
type CandidateSelector struct {
	loads *LoadTracker
}

// NewCandidateSelector creates the selector.
func NewCandidateSelector(loads *LoadTracker) *CandidateSelector {
	if loads == nil {
		loads = NewLoadTracker()
	}
	return &CandidateSelector{loads: loads}
}

// Eligible returns active operators linked to sourceID whose open load is
// below their capacity. An empty slice means nobody is available.
func (s *CandidateSelector) Eligible(ctx context.Context, tx repository.Tx, sourceID int64) ([]domain.Candidate, error) {
	linked, err := tx.Sources().LinkedActiveOperators(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("load routing links: %w", err)
	}
	if len(linked) == 0 {
		return []domain.Candidate{}, nil
	}

	loads, err := s.loads.CurrentLoad(ctx, tx)
	if err != nil {
		return nil, err
	}

	candidates := make([]domain.Candidate, 0, len(linked))
	for _, op := range linked {
		if !op.HasCapacity(loads[op.OperatorID]) {
			continue
		}
		candidates = append(candidates, domain.Candidate{OperatorID: op.OperatorID, Weight: op.Weight})
	}
	return candidates, nil
}
