package domain

import "time"

// InteractionStatus enumerates lifecycle states for interactions.
type InteractionStatus string

const (
	InteractionStatusOpen   InteractionStatus = "open"
	InteractionStatusClosed InteractionStatus = "closed"
)

// Interaction is one contact of a lead through a source. A nil OperatorID
// means no operator was available when it was registered.
type Interaction struct {
	ID         int64
	LeadID     int64
	SourceID   int64
	OperatorID *int64
	Status     InteractionStatus
	Message    *string
	CreatedAt  time.Time
	ClosedAt   *time.Time
}

// IsAssigned reports whether an operator was chosen.
func (i Interaction) IsAssigned() bool {
	return i.OperatorID != nil
}
