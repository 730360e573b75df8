package entities

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	domainerrors "journeystitch/contexts/journey-analytics/journey-stitching/domain/errors"
)

// Event is one immutable business event as received from the raw stream.
// CorrelationKeys keeps the declared order with blanks and repeats removed.
type Event struct {
	EventID         string
	Activity        string
	CorrelationKeys []string
	Timestamp       time.Time
	Payload         []byte
}

type rawEvent struct {
	EventID         string   `json:"eventId"`
	Activity        string   `json:"activity"`
	CorrelationKeys []string `json:"correlationKeys"`
	Timestamp       *string  `json:"timestamp"`
}

// ParseEvent decodes a raw payload and validates the fields stitching depends on.
// Every failure is a *ValidationError.
func ParseEvent(payload []byte) (Event, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return Event{}, &domainerrors.ValidationError{Fields: []domainerrors.FieldError{
			{Field: "payload", Message: "is empty"},
		}}
	}

	var raw rawEvent
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return Event{}, &domainerrors.ValidationError{Fields: []domainerrors.FieldError{
			{Field: "payload", Message: "is not a valid event object: " + err.Error()},
		}}
	}

	event := Event{
		EventID:         strings.TrimSpace(raw.EventID),
		Activity:        strings.TrimSpace(raw.Activity),
		CorrelationKeys: NormalizeCorrelationKeys(raw.CorrelationKeys),
		Payload:         append([]byte(nil), trimmed...),
	}

	var fields []domainerrors.FieldError
	if raw.Timestamp == nil || strings.TrimSpace(*raw.Timestamp) == "" {
		fields = append(fields, domainerrors.FieldError{Field: "timestamp", Message: "is required"})
	} else {
		ts, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(*raw.Timestamp))
		if err != nil {
			fields = append(fields, domainerrors.FieldError{Field: "timestamp", Message: "must be an ISO-8601 instant"})
		} else {
			event.Timestamp = ts.UTC()
		}
	}
	fields = append(fields, event.fieldErrors()...)
	if len(fields) > 0 {
		return Event{}, &domainerrors.ValidationError{Fields: fields}
	}
	return event, nil
}

// Validate checks an already constructed event.
func (e Event) Validate() error {
	fields := e.fieldErrors()
	if e.Timestamp.IsZero() {
		fields = append(fields, domainerrors.FieldError{Field: "timestamp", Message: "is required"})
	}
	if len(fields) > 0 {
		return &domainerrors.ValidationError{Fields: fields}
	}
	return nil
}

func (e Event) fieldErrors() []domainerrors.FieldError {
	var fields []domainerrors.FieldError
	if strings.TrimSpace(e.EventID) == "" {
		fields = append(fields, domainerrors.FieldError{Field: "eventId", Message: "is required"})
	}
	if len(NormalizeCorrelationKeys(e.CorrelationKeys)) == 0 {
		fields = append(fields, domainerrors.FieldError{Field: "correlationKeys", Message: "must contain at least one key"})
	}
	return fields
}

// NormalizeCorrelationKeys trims keys, drops blanks and keeps first occurrences.
func NormalizeCorrelationKeys(keys []string) []string {
	if len(keys) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}
