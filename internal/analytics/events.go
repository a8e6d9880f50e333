// Package analytics records what the memory service does: every index build
// and every query becomes an event that is published to Kafka, and
// successful builds are kept as history rows in PostgreSQL.
package analytics

import "time"

type EventType string

const (
	EventIndexBuilt  EventType = "index_built"
	EventIndexFailed EventType = "index_failed"
	EventQuery       EventType = "memory_query"
	EventZeroResult  EventType = "zero_result"
)

type BuildEvent struct {
	Type         EventType `json:"type"`
	Collection   string    `json:"collection"`
	Documents    int       `json:"documents"`
	Skipped      int       `json:"skipped"`
	Terms        int       `json:"terms"`
	AvgDocLength float64   `json:"avg_doc_length"`
	Persisted    bool      `json:"persisted"`
	Reason       string    `json:"reason,omitempty"`
	LatencyMs    int64     `json:"latency_ms"`
	Timestamp    time.Time `json:"timestamp"`
}

type QueryEvent struct {
	Type       EventType `json:"type"`
	Scope      string    `json:"scope"`
	Collection string    `json:"collection,omitempty"`
	Query      string    `json:"query"`
	TopK       int       `json:"top_k"`
	Returned   int       `json:"returned"`
	CacheHit   bool      `json:"cache_hit"`
	LatencyMs  int64     `json:"latency_ms"`
	Timestamp  time.Time `json:"timestamp"`
}
