package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu            sync.Mutex
	requestCount  map[string]int64
	errorCount    map[string]int64
	requestMillis map[string]int64
	assigned      int64
	unassigned    int64
	leadConflicts int64
	closed        int64
}

// Snapshot is the JSON view served on /metrics.
type Snapshot struct {
	Requests        map[string]int64 `json:"requests"`
	Errors          map[string]int64 `json:"errors"`
	RequestMillis   map[string]int64 `json:"request_millis"`
	Assigned        int64            `json:"interactions_assigned"`
	Unassigned      int64            `json:"interactions_unassigned"`
	LeadConflicts   int64            `json:"lead_conflicts"`
	ClosedInteracts int64            `json:"interactions_closed"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:  make(map[string]int64),
		errorCount:    make(map[string]int64),
		requestMillis: make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
	m.requestMillis[key] += duration.Milliseconds()
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordAssignment counts a registered interaction by outcome.
func (m *Metrics) RecordAssignment(assigned bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if assigned {
		m.assigned++
		return
	}
	m.unassigned++
}

// RecordLeadConflict counts lead inserts that lost a uniqueness race.
func (m *Metrics) RecordLeadConflict() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leadConflicts++
}

// RecordClosed counts interactions moved to closed.
func (m *Metrics) RecordClosed() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Requests:        copyCounts(m.requestCount),
		Errors:          copyCounts(m.errorCount),
		RequestMillis:   copyCounts(m.requestMillis),
		Assigned:        m.assigned,
		Unassigned:      m.unassigned,
		LeadConflicts:   m.leadConflicts,
		ClosedInteracts: m.closed,
	}
}

func copyCounts(src map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
