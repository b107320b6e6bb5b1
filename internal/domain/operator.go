package domain

import "time"

// DefaultMaxLoad is applied when an operator is created without an explicit capacity.
const DefaultMaxLoad = 10

// Operator models a human agent that receives leads.
type Operator struct {
	ID        int64
	Name      string
	IsActive  bool
	MaxLoad   int
	CreatedAt time.Time
}

// OperatorLoad is one row of the current-load report.
type OperatorLoad struct {
	OperatorID  int64  `json:"operator_id"`
	Name        string `json:"operator"`
	MaxLoad     int    `json:"max_load"`
	IsActive    bool   `json:"is_active"`
	CurrentLoad int    `json:"current_load"`
}
