package service

import (
	"context"
	"fmt"

	"github.com/crm-kit/lead-router/internal/domain"
	"github.com/crm-kit/lead-router/internal/repository"
)

// InteractionRecorder persists assignment decisions.
type InteractionRecorder struct{}

// NewInteractionRecorder creates the recorder.
func NewInteractionRecorder() *InteractionRecorder {
	return &InteractionRecorder{}
}

// Record inserts an open interaction. A nil operatorID records an
// unassigned lead.
func (r *InteractionRecorder) Record(ctx context.Context, tx repository.Tx, leadID, sourceID int64, operatorID *int64, message *string) (*domain.Interaction, error) {
	it := &domain.Interaction{
		LeadID:     leadID,
		SourceID:   sourceID,
		OperatorID: operatorID,
		Status:     domain.InteractionStatusOpen,
		Message:    message,
	}
	if err := tx.Interactions().Create(ctx, it); err != nil {
		return nil, fmt.Errorf("record interaction: %w", err)
	}
	return it, nil
}
