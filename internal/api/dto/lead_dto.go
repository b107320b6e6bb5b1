package dto

import "github.com/crm-kit/lead-router/internal/domain"

// ResolveLeadRequest payload.
type ResolveLeadRequest struct {
	ExternalLeadID string `json:"external_lead_id" validate:"required,notblank,max=255"`
}

// LeadResponse response.
type LeadResponse struct {
	ID         int64  `json:"id"`
	ExternalID string `json:"external_id"`
}

// NewLeadResponse maps a lead.
func NewLeadResponse(lead *domain.Lead) LeadResponse {
	return LeadResponse{ID: lead.ID, ExternalID: lead.ExternalID}
}
