package dto

import (
	"time"

	"github.com/crm-kit/lead-router/internal/domain"
)

// RegisterInteractionRequest payload for the full routing flow.
type RegisterInteractionRequest struct {
	ExternalLeadID string  `json:"external_lead_id" validate:"required,notblank,max=255"`
	SourceID       int64   `json:"source_id" validate:"required,gt=0"`
	Message        *string `json:"message" validate:"omitempty,max=4000"`
}

// RecordInteractionRequest payload for recording a decision made elsewhere.
type RecordInteractionRequest struct {
	LeadID     int64   `json:"lead_id" validate:"required,gt=0"`
	SourceID   int64   `json:"source_id" validate:"required,gt=0"`
	OperatorID *int64  `json:"operator_id" validate:"omitempty,gt=0"`
	Message    *string `json:"message" validate:"omitempty,max=4000"`
}

// InteractionResponse response.
type InteractionResponse struct {
	ID         int64                    `json:"id"`
	LeadID     int64                    `json:"lead_id"`
	SourceID   int64                    `json:"source_id"`
	OperatorID *int64                   `json:"operator_id"`
	Status     domain.InteractionStatus `json:"status"`
	Message    *string                  `json:"message"`
	CreatedAt  time.Time                `json:"created_at"`
	ClosedAt   *time.Time               `json:"closed_at,omitempty"`
}

// NewInteractionResponse maps an interaction.
func NewInteractionResponse(it *domain.Interaction) InteractionResponse {
	return InteractionResponse{
		ID:         it.ID,
		LeadID:     it.LeadID,
		SourceID:   it.SourceID,
		OperatorID: it.OperatorID,
		Status:     it.Status,
		Message:    it.Message,
		CreatedAt:  it.CreatedAt,
		ClosedAt:   it.ClosedAt,
	}
}

// AssignResponse carries the selected operator, null when none is free.
type AssignResponse struct {
	OperatorID *int64 `json:"operator_id"`
}
