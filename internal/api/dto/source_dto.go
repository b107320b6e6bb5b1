package dto

import (
	"time"

	"github.com/crm-kit/lead-router/internal/domain"
)

// CreateSourceRequest payload.
type CreateSourceRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

// SourceWeightRequest is one element of POST /sources/:id/config.
type SourceWeightRequest struct {
	OperatorID int64 `json:"operator_id" validate:"required,gt=0"`
	Weight     *int  `json:"weight" validate:"required,gte=0"`
}

// SourceResponse response.
type SourceResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// NewSourceResponse maps a source.
func NewSourceResponse(src *domain.Source) SourceResponse {
	return SourceResponse{ID: src.ID, Name: src.Name, CreatedAt: src.CreatedAt}
}

// SourceLinkResponse response.
type SourceLinkResponse struct {
	OperatorID int64 `json:"operator_id"`
	Weight     int   `json:"weight"`
}

// NewSourceLinkResponses maps routing links.
func NewSourceLinkResponses(links []domain.SourceOperatorLink) []SourceLinkResponse {
	out := make([]SourceLinkResponse, 0, len(links))
	for _, l := range links {
		out = append(out, SourceLinkResponse{OperatorID: l.OperatorID, Weight: l.Weight})
	}
	return out
}
