package v1

import (
	"encoding/json"
	"time"
)

// Envelope is the versioned event envelope every journey topic carries.
// Field names are part of the wire contract; add fields, never rename them.
type Envelope struct {
	EventID          string    `json:"event_id"`
	EventType        string    `json:"event_type"`
	OccurredAt       time.Time `json:"occurred_at"`
	SourceService    string    `json:"source_service"`
	TraceID          string    `json:"trace_id,omitempty"`
	SchemaVersion    int       `json:"schema_version"`
	PartitionKeyPath string    `json:"partition_key_path"`
	PartitionKey     string    `json:"partition_key"`
	// Attempt is set by the bus on delivery, starting at 1.
	Attempt int             `json:"attempt,omitempty"`
	Data    json.RawMessage `json:"data"`
}
