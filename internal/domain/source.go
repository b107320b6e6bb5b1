package domain

import "time"

// Source is an inbound channel leads arrive through.
type Source struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// SourceOperatorLink routes a share of a source's traffic to an operator.
type SourceOperatorLink struct {
	SourceID   int64
	OperatorID int64
	Weight     int
}

// LinkedOperator is a routing link joined with the operator's capacity.
type LinkedOperator struct {
	OperatorID int64
	Weight     int
	MaxLoad    int
}

// Candidate is an operator eligible to receive the next lead from a source.
type Candidate struct {
	OperatorID int64
	Weight     int
}

// HasCapacity reports whether the operator can take one more open interaction.
func (l LinkedOperator) HasCapacity(currentLoad int) bool {
	return currentLoad < l.MaxLoad
}
