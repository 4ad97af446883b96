package streams

import (
	"encoding/json"
	"time"
)

// Stream name constants
const (
	StreamBriefingEvents  = "briefing:events"
	StreamBriefingResults = "briefing:results"
)

// Consumer group constants
const (
	GroupGoWorkers = "go-workers"
)

// Schema version constant
const (
	SchemaVersionV1 = "v1"
)

// BriefingEvent announces a lifecycle change of a briefing request
type BriefingEvent struct {
	RequestID  string    `json:"request_id"`
	BriefingID string    `json:"briefing_id,omitempty"`
	UserID     uint      `json:"user_id"`
	Status     string    `json:"status"`          // generating/completed/failed
	Error      string    `json:"error,omitempty"` // failure reason
	OccurredAt time.Time `json:"occurred_at"`
}

// BriefingResult is a briefing produced by an external research pipeline
type BriefingResult struct {
	RequestID string          `json:"request_id"`
	Status    string          `json:"status"`   // completed/failed
	Document  json.RawMessage `json:"document"` // briefing document, camelCase JSON
	Error     string          `json:"error"`    // error message if failed
}
