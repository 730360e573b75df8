package entities

import "time"

type JourneyStatus string

const (
	JourneyStatusOpen JourneyStatus = "OPEN"
)

type JourneyCounters struct {
	Events             int64
	DistinctActivities int64
}

type TimelineEntry struct {
	EventID   string
	Activity  string
	Timestamp time.Time
}

// JourneyProjection is the running summary of every event folded into a journey.
type JourneyProjection struct {
	JourneyID       string
	FirstSeenAt     time.Time
	LastSeenAt      time.Time
	Status          JourneyStatus
	CorrelationKeys []string
	EventIDs        []string
	Counters        JourneyCounters
	Timeline        []TimelineEntry
}

// NewJourneyProjection seeds an empty projection anchored at seenAt.
func NewJourneyProjection(journeyID string, seenAt time.Time) JourneyProjection {
	return JourneyProjection{
		JourneyID:       journeyID,
		FirstSeenAt:     seenAt.UTC(),
		LastSeenAt:      seenAt.UTC(),
		Status:          JourneyStatusOpen,
		CorrelationKeys: []string{},
		EventIDs:        []string{},
		Timeline:        []TimelineEntry{},
	}
}

// Fold applies one event and returns the updated projection.
// Events is incremented and the timeline appended on every call, including
// redeliveries; CorrelationKeys and EventIDs behave as sets.
func (p JourneyProjection) Fold(event Event) JourneyProjection {
	next := p.clone()
	ts := event.Timestamp.UTC()
	if next.FirstSeenAt.IsZero() || ts.Before(next.FirstSeenAt) {
		next.FirstSeenAt = ts
	}
	if next.LastSeenAt.IsZero() || ts.After(next.LastSeenAt) {
		next.LastSeenAt = ts
	}
	if next.Status == "" {
		next.Status = JourneyStatusOpen
	}

	next.Counters.Events++
	for _, key := range event.CorrelationKeys {
		next.CorrelationKeys = appendUnique(next.CorrelationKeys, key)
	}
	next.EventIDs = appendUnique(next.EventIDs, event.EventID)
	next.Timeline = append(next.Timeline, TimelineEntry{
		EventID:   event.EventID,
		Activity:  event.Activity,
		Timestamp: ts,
	})
	next.Counters.DistinctActivities = countDistinctActivities(next.Timeline)
	return next
}

// HasEvent reports whether eventID was folded at least once.
func (p JourneyProjection) HasEvent(eventID string) bool {
	for _, id := range p.EventIDs {
		if id == eventID {
			return true
		}
	}
	return false
}

func (p JourneyProjection) clone() JourneyProjection {
	next := p
	next.CorrelationKeys = append(make([]string, 0, len(p.CorrelationKeys)+1), p.CorrelationKeys...)
	next.EventIDs = append(make([]string, 0, len(p.EventIDs)+1), p.EventIDs...)
	next.Timeline = append(make([]TimelineEntry, 0, len(p.Timeline)+1), p.Timeline...)
	return next
}

func appendUnique(values []string, value string) []string {
	for _, existing := range values {
		if existing == value {
			return values
		}
	}
	return append(values, value)
}

func countDistinctActivities(timeline []TimelineEntry) int64 {
	seen := make(map[string]struct{}, len(timeline))
	for _, entry := range timeline {
		if entry.Activity == "" {
			continue
		}
		seen[entry.Activity] = struct{}{}
	}
	return int64(len(seen))
}
