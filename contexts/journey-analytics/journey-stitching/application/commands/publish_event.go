package commands

import (
	"context"
	"log/slog"
	"time"

	application "journeystitch/contexts/journey-analytics/journey-stitching/application"
	"journeystitch/contexts/journey-analytics/journey-stitching/domain/entities"
	"journeystitch/contexts/journey-analytics/journey-stitching/ports"
)

const (
	RawEventType          = "journey.event.raw"
	rawEventSourceName    = "journey-ingest"
	rawEventSchemaVersion = 1
)

type PublishEventResult struct {
	EventID      string
	Topic        string
	PartitionKey string
}

// PublishEventUseCase accepts a raw event payload and hands it to the bus.
// Malformed payloads are rejected here instead of being dead-lettered later.
type PublishEventUseCase struct {
	Publisher     ports.EventPublisher
	Clock         ports.Clock
	Topic         string
	SourceService string
	Logger        *slog.Logger
}

func (u PublishEventUseCase) Execute(ctx context.Context, payload []byte) (PublishEventResult, error) {
	logger := application.ResolveLogger(u.Logger)
	event, err := entities.ParseEvent(payload)
	if err != nil {
		logger.Warn("publish event rejected",
			"event", "journey_publish_invalid_event",
			"module", "journey-analytics/journey-stitching",
			"layer", "application",
			"error", err.Error(),
		)
		return PublishEventResult{}, err
	}

	envelope := BuildRawEventEnvelope(event, u.sourceService(), u.now())
	topic := u.topic()
	if err := u.Publisher.Publish(ctx, topic, envelope); err != nil {
		logger.Error("publish event failed",
			"event", "journey_publish_failed",
			"module", "journey-analytics/journey-stitching",
			"layer", "application",
			"event_id", event.EventID,
			"topic", topic,
			"error", err.Error(),
		)
		return PublishEventResult{}, err
	}

	logger.Info("raw event published",
		"event", "journey_publish_accepted",
		"module", "journey-analytics/journey-stitching",
		"layer", "application",
		"event_id", event.EventID,
		"topic", topic,
		"partition_key", envelope.PartitionKey,
	)
	return PublishEventResult{
		EventID:      event.EventID,
		Topic:        topic,
		PartitionKey: envelope.PartitionKey,
	}, nil
}

// BuildRawEventEnvelope partitions by the first declared correlation key so
// events sharing it are consumed in order by one worker.
func BuildRawEventEnvelope(event entities.Event, sourceService string, now time.Time) ports.EventEnvelope {
	partitionKey := event.EventID
	if len(event.CorrelationKeys) > 0 {
		partitionKey = event.CorrelationKeys[0]
	}
	return ports.EventEnvelope{
		EventID:          event.EventID,
		EventType:        RawEventType,
		OccurredAt:       now.UTC(),
		SourceService:    sourceService,
		SchemaVersion:    rawEventSchemaVersion,
		PartitionKeyPath: "correlationKeys[0]",
		PartitionKey:     partitionKey,
		Data:             append([]byte(nil), event.Payload...),
	}
}

func (u PublishEventUseCase) topic() string {
	if u.Topic == "" {
		return "events.raw"
	}
	return u.Topic
}

func (u PublishEventUseCase) sourceService() string {
	if u.SourceService == "" {
		return rawEventSourceName
	}
	return u.SourceService
}

func (u PublishEventUseCase) now() time.Time {
	if u.Clock == nil {
		return time.Now().UTC()
	}
	return u.Clock.Now().UTC()
}
