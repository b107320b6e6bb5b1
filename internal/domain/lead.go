package domain

import "time"

// Lead is a unique external contact.
type Lead struct {
	ID         int64
	ExternalID string
	CreatedAt  time.Time
}
