package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventInteractionRegistered EventType = "interaction_registered"
	EventInteractionClosed     EventType = "interaction_closed"
	EventOperatorChanged       EventType = "operator_changed"
	EventSourceConfigured      EventType = "source_configured"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NewEvent stamps a payload with a fresh id and the current time.
func NewEvent(eventType EventType, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// InteractionRegisteredPayload payload. OperatorID is nil when nobody had capacity.
type InteractionRegisteredPayload struct {
	InteractionID int64  `json:"interaction_id"`
	LeadID        int64  `json:"lead_id"`
	SourceID      int64  `json:"source_id"`
	OperatorID    *int64 `json:"operator_id,omitempty"`
}

// InteractionClosedPayload payload.
type InteractionClosedPayload struct {
	InteractionID int64  `json:"interaction_id"`
	OperatorID    *int64 `json:"operator_id,omitempty"`
}

// OperatorChangedPayload payload.
type OperatorChangedPayload struct {
	OperatorID int64 `json:"operator_id"`
	IsActive   bool  `json:"is_active"`
	MaxLoad    int   `json:"max_load"`
}

// SourceConfiguredPayload payload.
type SourceConfiguredPayload struct {
	SourceID int64 `json:"source_id"`
	Links    int   `json:"links"`
}
