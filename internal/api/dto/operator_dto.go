package dto

import (
	"time"

	"github.com/crm-kit/lead-router/internal/domain"
)

// CreateOperatorRequest payload. MaxLoad defaults to 10 when omitted.
type CreateOperatorRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	MaxLoad  *int   `json:"max_load" validate:"omitempty,gt=0"`
	IsActive *bool  `json:"is_active"`
}

// UpdateOperatorRequest payload; absent fields stay unchanged.
type UpdateOperatorRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=255"`
	MaxLoad  *int    `json:"max_load" validate:"omitempty,gt=0"`
	IsActive *bool   `json:"is_active"`
}

// OperatorResponse response.
type OperatorResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	MaxLoad   int       `json:"max_load"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// NewOperatorResponse maps an operator.
func NewOperatorResponse(op *domain.Operator) OperatorResponse {
	return OperatorResponse{
		ID:        op.ID,
		Name:      op.Name,
		MaxLoad:   op.MaxLoad,
		IsActive:  op.IsActive,
		CreatedAt: op.CreatedAt,
	}
}

// OperatorLoadResponse is one row of GET /stats/.
type OperatorLoadResponse struct {
	OperatorID  int64  `json:"operator_id"`
	Operator    string `json:"operator"`
	MaxLoad     int    `json:"max_load"`
	IsActive    bool   `json:"is_active"`
	CurrentLoad int    `json:"current_load"`
}

// NewOperatorLoadResponses maps the load report.
func NewOperatorLoadResponses(rows []domain.OperatorLoad) []OperatorLoadResponse {
	out := make([]OperatorLoadResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, OperatorLoadResponse{
			OperatorID:  row.OperatorID,
			Operator:    row.Name,
			MaxLoad:     row.MaxLoad,
			IsActive:    row.IsActive,
			CurrentLoad: row.CurrentLoad,
		})
	}
	return out
}
