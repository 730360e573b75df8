package entities

import "time"

// ArchivedEvent is the raw event as persisted in its daily partition.
type ArchivedEvent struct {
	EventID         string
	Activity        string
	CorrelationKeys []string
	Timestamp       time.Time
	Payload         []byte
	JourneyID       string
	Partition       string
	IngestedAt      time.Time
}

func NewArchivedEvent(event Event, journeyID string, partition string, ingestedAt time.Time) ArchivedEvent {
	return ArchivedEvent{
		EventID:         event.EventID,
		Activity:        event.Activity,
		CorrelationKeys: append([]string(nil), event.CorrelationKeys...),
		Timestamp:       event.Timestamp.UTC(),
		Payload:         append([]byte(nil), event.Payload...),
		JourneyID:       journeyID,
		Partition:       partition,
		IngestedAt:      ingestedAt.UTC(),
	}
}
