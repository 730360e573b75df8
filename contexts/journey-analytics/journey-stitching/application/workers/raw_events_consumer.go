package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	application "journeystitch/contexts/journey-analytics/journey-stitching/application"
	"journeystitch/contexts/journey-analytics/journey-stitching/application/commands"
	"journeystitch/contexts/journey-analytics/journey-stitching/domain/entities"
	domainerrors "journeystitch/contexts/journey-analytics/journey-stitching/domain/errors"
	"journeystitch/contexts/journey-analytics/journey-stitching/ports"
)

const (
	defaultRawEventsTopic  = "events.raw"
	defaultDeadLetterTopic = "events.raw.dlq"
	defaultConsumerGroup   = "journey-consumer-group"
	deadLetteredEventType  = "journey.event.dead_lettered"
)

// EventStitcher runs the stitching pipeline for one parsed event.
type EventStitcher interface {
	Execute(ctx context.Context, event entities.Event) (commands.StitchEventResult, error)
}

// RawEventsConsumer feeds the raw topic into the stitching pipeline.
// Events that can never succeed are dead-lettered and acknowledged; every
// other failure is returned so the bus redelivers.
type RawEventsConsumer struct {
	Subscriber      ports.EventSubscriber
	DeadLetters     ports.EventPublisher
	Stitcher        EventStitcher
	Clock           ports.Clock
	Topic           string
	DeadLetterTopic string
	ConsumerGroup   string
	Telemetry       ports.Telemetry
	Logger          *slog.Logger
}

type deadLetterPayload struct {
	Reason        string          `json:"reason"`
	SourceTopic   string          `json:"source_topic"`
	ConsumerGroup string          `json:"consumer_group"`
	FailedAt      time.Time       `json:"failed_at"`
	Attempt       int             `json:"attempt,omitempty"`
	Original      json.RawMessage `json:"original,omitempty"`
	OriginalText  string          `json:"original_text,omitempty"`
}

func (c RawEventsConsumer) Start(ctx context.Context) error {
	return c.Subscriber.Subscribe(ctx, c.topic(), c.consumerGroup(), c.Handle)
}

// Handle processes one delivery. A nil return acknowledges it.
func (c RawEventsConsumer) Handle(ctx context.Context, envelope ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)

	event, err := entities.ParseEvent(envelope.Data)
	if err != nil {
		// Execute never sees the event, so the outcome is counted here.
		application.ResolveTelemetry(c.Telemetry).IncStitchOutcome(commands.OutcomeInvalid)
		return c.deadLetter(ctx, envelope, err)
	}

	result, err := c.Stitcher.Execute(ctx, event)
	switch {
	case err == nil:
		logger.Debug("raw event consumed",
			"event", "journey_raw_event_consumed",
			"module", "journey-analytics/journey-stitching",
			"layer", "worker",
			"event_id", event.EventID,
			"journey_id", result.JourneyID,
		)
		return nil
	case domainerrors.IsValidation(err):
		return c.deadLetter(ctx, envelope, err)
	case domainerrors.IsConsistencyViolation(err):
		logger.Error("raw event hit redirect consistency violation",
			"event", "journey_raw_event_consistency_violation",
			"module", "journey-analytics/journey-stitching",
			"layer", "worker",
			"alert", true,
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	default:
		logger.Warn("raw event processing failed, awaiting redelivery",
			"event", "journey_raw_event_retry",
			"module", "journey-analytics/journey-stitching",
			"layer", "worker",
			"event_id", event.EventID,
			"attempt", envelope.Attempt,
			"error", err.Error(),
		)
		return err
	}
}

func (c RawEventsConsumer) deadLetter(ctx context.Context, envelope ports.EventEnvelope, cause error) error {
	logger := application.ResolveLogger(c.Logger)
	payload := deadLetterPayload{
		Reason:        cause.Error(),
		SourceTopic:   c.topic(),
		ConsumerGroup: c.consumerGroup(),
		FailedAt:      c.now(),
		Attempt:       envelope.Attempt,
	}
	if len(envelope.Data) > 0 && json.Valid(envelope.Data) {
		payload.Original = envelope.Data
	} else {
		payload.OriginalText = string(envelope.Data)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode dead letter payload: %w", err)
	}

	dead := envelope
	dead.EventType = deadLetteredEventType
	dead.OccurredAt = payload.FailedAt
	dead.Data = data
	if err := c.DeadLetters.Publish(ctx, c.deadLetterTopic(), dead); err != nil {
		logger.Error("dead letter publish failed",
			"event", "journey_raw_event_dead_letter_failed",
			"module", "journey-analytics/journey-stitching",
			"layer", "worker",
			"event_id", envelope.EventID,
			"error", err.Error(),
		)
		return err
	}
	application.ResolveTelemetry(c.Telemetry).DeadLettered(c.topic())

	logger.Warn("raw event dead-lettered",
		"event", "journey_raw_event_dead_lettered",
		"module", "journey-analytics/journey-stitching",
		"layer", "worker",
		"event_id", envelope.EventID,
		"dead_letter_topic", c.deadLetterTopic(),
		"reason", cause.Error(),
	)
	return nil
}

func (c RawEventsConsumer) topic() string {
	if c.Topic == "" {
		return defaultRawEventsTopic
	}
	return c.Topic
}

func (c RawEventsConsumer) deadLetterTopic() string {
	if c.DeadLetterTopic == "" {
		return defaultDeadLetterTopic
	}
	return c.DeadLetterTopic
}

func (c RawEventsConsumer) consumerGroup() string {
	if c.ConsumerGroup == "" {
		return defaultConsumerGroup
	}
	return c.ConsumerGroup
}

func (c RawEventsConsumer) now() time.Time {
	if c.Clock == nil {
		return time.Now().UTC()
	}
	return c.Clock.Now().UTC()
}
