package httptransport

import "encoding/json"

type PublishEventResponse struct {
	EventID      string `json:"event_id"`
	Topic        string `json:"topic"`
	PartitionKey string `json:"partition_key"`
	Status       string `json:"status"`
}

type MergeDTO struct {
	WinnerJourneyID string `json:"winner_journey_id"`
	LoserJourneyID  string `json:"loser_journey_id"`
}

type StitchEventResponse struct {
	EventID            string     `json:"event_id"`
	JourneyID          string     `json:"journey_id"`
	CandidateJourneyID string     `json:"candidate_journey_id"`
	Minted             bool       `json:"minted"`
	Merges             []MergeDTO `json:"merges"`
	Partition          string     `json:"partition"`
	Journey            JourneyDTO `json:"journey"`
}

type JourneyCountersDTO struct {
	Events             int64 `json:"events"`
	DistinctActivities int64 `json:"distinct_activities"`
}

type TimelineEntryDTO struct {
	EventID   string `json:"event_id"`
	Activity  string `json:"activity"`
	Timestamp string `json:"timestamp"`
}

type JourneyDTO struct {
	JourneyID       string             `json:"journey_id"`
	FirstSeenAt     string             `json:"first_seen_at"`
	LastSeenAt      string             `json:"last_seen_at"`
	Status          string             `json:"status"`
	CorrelationKeys []string           `json:"correlation_keys"`
	EventIDs        []string           `json:"event_ids"`
	Counters        JourneyCountersDTO `json:"counters"`
	Timeline        []TimelineEntryDTO `json:"timeline"`
}

type GetJourneyResponse struct {
	RequestedJourneyID string     `json:"requested_journey_id"`
	Redirected         bool       `json:"redirected"`
	Item               JourneyDTO `json:"item"`
}

type CorrelationKeyResponse struct {
	CK                 string `json:"ck"`
	JourneyID          string `json:"journey_id"`
	CanonicalJourneyID string `json:"canonical_journey_id"`
	UpdatedAt          string `json:"updated_at"`
}

type ArchivedEventResponse struct {
	EventID         string          `json:"event_id"`
	Activity        string          `json:"activity"`
	CorrelationKeys []string        `json:"correlation_keys"`
	Timestamp       string          `json:"timestamp"`
	JourneyID       string          `json:"journey_id"`
	Partition       string          `json:"partition"`
	IngestedAt      string          `json:"ingested_at"`
	Raw             json.RawMessage `json:"raw,omitempty"`
}

type FieldErrorDTO struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Fields  []FieldErrorDTO `json:"fields,omitempty"`
}
