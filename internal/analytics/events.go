package analytics

import "time"

type EventType string

const (
	EventQuery      EventType = "query"
	EventCacheHit   EventType = "cache_hit"
	EventZeroResult EventType = "zero_result"
	EventFailed     EventType = "query_failed"
)

// QueryEvent describes one evaluated query, from a batch run or from serve.
type QueryEvent struct {
	Type      EventType `json:"type"`
	Source    string    `json:"source"`
	QueryID   string    `json:"query_id,omitempty"`
	Query     string    `json:"query"`
	Model     string    `json:"model"`
	TotalHits int       `json:"total_hits"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Expanded  bool      `json:"expanded"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// Classify sets Type from the other fields.
func (e *QueryEvent) Classify(err error) {
	switch {
	case err != nil:
		e.Type = EventFailed
	case e.CacheHit:
		e.Type = EventCacheHit
	case e.TotalHits == 0:
		e.Type = EventZeroResult
	default:
		e.Type = EventQuery
	}
}
