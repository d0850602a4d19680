package analytics

import "time"

// EventType identifies which modelling operation produced an event.
type EventType string

const (
	EventReformulation    EventType = "reformulation"
	EventModelling        EventType = "modelling"
	EventSessionModelling EventType = "session_modelling"
)

// QueryEvent records one modelling request for the analytics pipeline.
type QueryEvent struct {
	Type        EventType `json:"type"`
	Query       string    `json:"query,omitempty"`
	SessionID   string    `json:"session_id,omitempty"`
	SessionSize int       `json:"session_size,omitempty"`
	TermsOut    int       `json:"terms_out"`
	LatencyMs   int64     `json:"latency_ms"`
	CacheHit    bool      `json:"cache_hit"`
	Timestamp   time.Time `json:"timestamp"`
	RequestID   string    `json:"request_id"`
}
