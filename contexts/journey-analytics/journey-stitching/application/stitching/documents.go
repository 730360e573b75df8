package stitching

import (
	"encoding/json"
	"fmt"
	"time"

	"journeystitch/contexts/journey-analytics/journey-stitching/domain/entities"
	domainerrors "journeystitch/contexts/journey-analytics/journey-stitching/domain/errors"
)

// Default collection names shared with existing deployments.
const (
	DefaultCkMapCollection     = "ckmap"
	DefaultRedirectCollection  = "redirects"
	DefaultJourneyCollection   = "journeys-v1"
	DefaultEventCollectionBase = "events"
)

type ckMappingDocument struct {
	CK        string    `json:"ck"`
	JourneyID string    `json:"journeyId,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type redirectDocument struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type journeyCountersDocument struct {
	Events             int64 `json:"events"`
	DistinctActivities int64 `json:"distinctActivities"`
}

type timelineEntryDocument struct {
	EventID   string    `json:"eventId"`
	Activity  string    `json:"activity"`
	Timestamp time.Time `json:"timestamp"`
}

type journeyDocument struct {
	JourneyID       string                  `json:"journeyId"`
	FirstSeenAt     time.Time               `json:"firstSeenAt"`
	LastSeenAt      time.Time               `json:"lastSeenAt"`
	Status          string                  `json:"status"`
	CorrelationKeys []string                `json:"correlationKeys"`
	EventIDs        []string                `json:"eventIds"`
	Counters        journeyCountersDocument `json:"counters"`
	Timeline        []timelineEntryDocument `json:"timeline"`
}

type archivedEventDocument struct {
	EventID         string          `json:"eventId"`
	Activity        string          `json:"activity"`
	CorrelationKeys []string        `json:"correlationKeys"`
	Timestamp       time.Time       `json:"timestamp"`
	JourneyID       string          `json:"journeyId"`
	IngestedAt      time.Time       `json:"ingestedAt"`
	Raw             json.RawMessage `json:"raw,omitempty"`
}

func decodeCkMapping(raw []byte) (entities.CkMapping, error) {
	var doc ckMappingDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return entities.CkMapping{}, fmt.Errorf("%w: ck mapping: %v", domainerrors.ErrCorruptDocument, err)
	}
	return entities.CkMapping{CK: doc.CK, JourneyID: doc.JourneyID, UpdatedAt: doc.UpdatedAt.UTC()}, nil
}

func encodeCkMapping(mapping entities.CkMapping) ([]byte, error) {
	return json.Marshal(ckMappingDocument{
		CK:        mapping.CK,
		JourneyID: mapping.JourneyID,
		UpdatedAt: mapping.UpdatedAt.UTC(),
	})
}

func decodeRedirect(raw []byte) (entities.RedirectEdge, error) {
	var doc redirectDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return entities.RedirectEdge{}, fmt.Errorf("%w: redirect: %v", domainerrors.ErrCorruptDocument, err)
	}
	return entities.RedirectEdge{From: doc.From, To: doc.To, UpdatedAt: doc.UpdatedAt.UTC()}, nil
}

func encodeRedirect(edge entities.RedirectEdge) ([]byte, error) {
	return json.Marshal(redirectDocument{From: edge.From, To: edge.To, UpdatedAt: edge.UpdatedAt.UTC()})
}

func decodeJourney(raw []byte) (entities.JourneyProjection, error) {
	var doc journeyDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return entities.JourneyProjection{}, fmt.Errorf("%w: journey: %v", domainerrors.ErrCorruptDocument, err)
	}
	projection := entities.JourneyProjection{
		JourneyID:       doc.JourneyID,
		FirstSeenAt:     doc.FirstSeenAt.UTC(),
		LastSeenAt:      doc.LastSeenAt.UTC(),
		Status:          entities.JourneyStatus(doc.Status),
		CorrelationKeys: append([]string{}, doc.CorrelationKeys...),
		EventIDs:        append([]string{}, doc.EventIDs...),
		Counters: entities.JourneyCounters{
			Events:             doc.Counters.Events,
			DistinctActivities: doc.Counters.DistinctActivities,
		},
		Timeline: make([]entities.TimelineEntry, 0, len(doc.Timeline)),
	}
	for _, entry := range doc.Timeline {
		projection.Timeline = append(projection.Timeline, entities.TimelineEntry{
			EventID:   entry.EventID,
			Activity:  entry.Activity,
			Timestamp: entry.Timestamp.UTC(),
		})
	}
	return projection, nil
}

func encodeJourney(projection entities.JourneyProjection) ([]byte, error) {
	doc := journeyDocument{
		JourneyID:       projection.JourneyID,
		FirstSeenAt:     projection.FirstSeenAt.UTC(),
		LastSeenAt:      projection.LastSeenAt.UTC(),
		Status:          string(projection.Status),
		CorrelationKeys: append([]string{}, projection.CorrelationKeys...),
		EventIDs:        append([]string{}, projection.EventIDs...),
		Counters: journeyCountersDocument{
			Events:             projection.Counters.Events,
			DistinctActivities: projection.Counters.DistinctActivities,
		},
		Timeline: make([]timelineEntryDocument, 0, len(projection.Timeline)),
	}
	for _, entry := range projection.Timeline {
		doc.Timeline = append(doc.Timeline, timelineEntryDocument{
			EventID:   entry.EventID,
			Activity:  entry.Activity,
			Timestamp: entry.Timestamp.UTC(),
		})
	}
	return json.Marshal(doc)
}

func decodeArchivedEvent(partition string, raw []byte) (entities.ArchivedEvent, error) {
	var doc archivedEventDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return entities.ArchivedEvent{}, fmt.Errorf("%w: archived event: %v", domainerrors.ErrCorruptDocument, err)
	}
	return entities.ArchivedEvent{
		EventID:         doc.EventID,
		Activity:        doc.Activity,
		CorrelationKeys: append([]string(nil), doc.CorrelationKeys...),
		Timestamp:       doc.Timestamp.UTC(),
		Payload:         []byte(doc.Raw),
		JourneyID:       doc.JourneyID,
		Partition:       partition,
		IngestedAt:      doc.IngestedAt.UTC(),
	}, nil
}

func encodeArchivedEvent(event entities.ArchivedEvent) ([]byte, error) {
	doc := archivedEventDocument{
		EventID:         event.EventID,
		Activity:        event.Activity,
		CorrelationKeys: append([]string(nil), event.CorrelationKeys...),
		Timestamp:       event.Timestamp.UTC(),
		JourneyID:       event.JourneyID,
		IngestedAt:      event.IngestedAt.UTC(),
	}
	if len(event.Payload) > 0 && json.Valid(event.Payload) {
		doc.Raw = json.RawMessage(event.Payload)
	}
	return json.Marshal(doc)
}
