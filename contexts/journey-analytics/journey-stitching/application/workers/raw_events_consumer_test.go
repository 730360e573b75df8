package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	application "journeystitch/contexts/journey-analytics/journey-stitching/application"
	"journeystitch/contexts/journey-analytics/journey-stitching/application/commands"
	"journeystitch/contexts/journey-analytics/journey-stitching/domain/entities"
	domainerrors "journeystitch/contexts/journey-analytics/journey-stitching/domain/errors"
	"journeystitch/contexts/journey-analytics/journey-stitching/ports"
)

type stubSubscriber struct {
	topic   string
	group   string
	handler func(context.Context, ports.EventEnvelope) error
}

func (s *stubSubscriber) Subscribe(
	_ context.Context,
	topic string,
	consumerGroup string,
	handler func(context.Context, ports.EventEnvelope) error,
) error {
	s.topic = topic
	s.group = consumerGroup
	s.handler = handler
	return nil
}

type stubPublisher struct {
	err    error
	topics []string
	events []ports.EventEnvelope
}

func (p *stubPublisher) Publish(_ context.Context, topic string, event ports.EventEnvelope) error {
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
	return nil
}

type stubStitcher struct {
	err   error
	calls []entities.Event
}

func (s *stubStitcher) Execute(_ context.Context, event entities.Event) (commands.StitchEventResult, error) {
	s.calls = append(s.calls, event)
	if s.err != nil {
		return commands.StitchEventResult{}, s.err
	}
	return commands.StitchEventResult{JourneyID: "J1"}, nil
}

type countingTelemetry struct {
	application.NopTelemetry
	outcomes     []string
	deadLettered []string
}

func (c *countingTelemetry) IncStitchOutcome(outcome string) {
	c.outcomes = append(c.outcomes, outcome)
}
func (c *countingTelemetry) DeadLettered(topic string) {
	c.deadLettered = append(c.deadLettered, topic)
}

type stubClock struct{}

func (stubClock) Now() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }

func rawEnvelope(data string) ports.EventEnvelope {
	return ports.EventEnvelope{
		EventID:      "E1",
		EventType:    commands.RawEventType,
		PartitionKey: "CK1",
		Data:         json.RawMessage(data),
	}
}

const validRaw = `{"eventId":"E1","activity":"Start","correlationKeys":["CK1"],"timestamp":"2025-01-01T00:00:00Z"}`

func TestRawEventsConsumerSubscribesWithDefaults(t *testing.T) {
	subscriber := &stubSubscriber{}
	consumer := RawEventsConsumer{Subscriber: subscriber, Stitcher: &stubStitcher{}}
	if err := consumer.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if subscriber.topic != "events.raw" || subscriber.group != "journey-consumer-group" {
		t.Fatalf("unexpected subscription %s/%s", subscriber.topic, subscriber.group)
	}
	if subscriber.handler == nil {
		t.Fatalf("expected handler registration")
	}
}

func TestRawEventsConsumerStitchesValidEvents(t *testing.T) {
	stitcher := &stubStitcher{}
	dlq := &stubPublisher{}
	consumer := RawEventsConsumer{Stitcher: stitcher, DeadLetters: dlq, Clock: stubClock{}}

	if err := consumer.Handle(context.Background(), rawEnvelope(validRaw)); err != nil {
		t.Fatalf("expected ack, got %v", err)
	}
	if len(stitcher.calls) != 1 || stitcher.calls[0].EventID != "E1" {
		t.Fatalf("expected one stitch call, got %+v", stitcher.calls)
	}
	if len(dlq.events) != 0 {
		t.Fatalf("valid events must not be dead-lettered")
	}
}

func TestRawEventsConsumerDeadLettersUnparseablePayload(t *testing.T) {
	stitcher := &stubStitcher{}
	dlq := &stubPublisher{}
	consumer := RawEventsConsumer{Stitcher: stitcher, DeadLetters: dlq, Clock: stubClock{}}

	if err := consumer.Handle(context.Background(), rawEnvelope(`not-json`)); err != nil {
		t.Fatalf("poison messages must be acknowledged, got %v", err)
	}
	if len(stitcher.calls) != 0 {
		t.Fatalf("unparseable payload must not reach the stitcher")
	}
	if len(dlq.events) != 1 || dlq.topics[0] != "events.raw.dlq" {
		t.Fatalf("expected one dead letter, got %+v", dlq.topics)
	}

	dead := dlq.events[0]
	if dead.EventType != deadLetteredEventType || dead.PartitionKey != "CK1" {
		t.Fatalf("unexpected dead letter envelope %+v", dead)
	}
	var payload deadLetterPayload
	if err := json.Unmarshal(dead.Data, &payload); err != nil {
		t.Fatalf("decode dead letter: %v", err)
	}
	if payload.OriginalText != "not-json" || payload.SourceTopic != "events.raw" || payload.Reason == "" {
		t.Fatalf("unexpected dead letter payload %+v", payload)
	}
}

func TestRawEventsConsumerDeadLettersValidationFailures(t *testing.T) {
	stitcher := &stubStitcher{err: &domainerrors.ValidationError{Fields: []domainerrors.FieldError{{Field: "correlationKeys", Message: "is required"}}}}
	dlq := &stubPublisher{}
	consumer := RawEventsConsumer{Stitcher: stitcher, DeadLetters: dlq, Clock: stubClock{}}

	if err := consumer.Handle(context.Background(), rawEnvelope(validRaw)); err != nil {
		t.Fatalf("validation failures must be acknowledged, got %v", err)
	}
	if len(dlq.events) != 1 {
		t.Fatalf("expected dead letter")
	}
	var payload deadLetterPayload
	if err := json.Unmarshal(dlq.events[0].Data, &payload); err != nil {
		t.Fatalf("decode dead letter: %v", err)
	}
	if len(payload.Original) == 0 {
		t.Fatalf("valid JSON originals must be embedded as JSON")
	}
}

func TestRawEventsConsumerRedeliversWhenDeadLetterFails(t *testing.T) {
	boom := errors.New("dlq unavailable")
	consumer := RawEventsConsumer{Stitcher: &stubStitcher{}, DeadLetters: &stubPublisher{err: boom}}

	if err := consumer.Handle(context.Background(), rawEnvelope(`{}`)); !errors.Is(err, boom) {
		t.Fatalf("expected dead letter failure to surface, got %v", err)
	}
}

func TestRawEventsConsumerRedeliversTransientFailures(t *testing.T) {
	boom := errors.New("store timeout")
	dlq := &stubPublisher{}
	consumer := RawEventsConsumer{Stitcher: &stubStitcher{err: boom}, DeadLetters: dlq}

	if err := consumer.Handle(context.Background(), rawEnvelope(validRaw)); !errors.Is(err, boom) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if len(dlq.events) != 0 {
		t.Fatalf("transient failures must not be dead-lettered")
	}
}

func TestRawEventsConsumerSurfacesConsistencyViolations(t *testing.T) {
	cycle := fmt.Errorf("%w: J1 -> J2 -> J1", domainerrors.ErrRedirectCycle)
	dlq := &stubPublisher{}
	consumer := RawEventsConsumer{Stitcher: &stubStitcher{err: cycle}, DeadLetters: dlq}

	err := consumer.Handle(context.Background(), rawEnvelope(validRaw))
	if !errors.Is(err, domainerrors.ErrRedirectCycle) {
		t.Fatalf("expected cycle error, got %v", err)
	}
	if len(dlq.events) != 0 {
		t.Fatalf("consistency violations must not be dead-lettered")
	}
}

func TestRawEventsConsumerCountsUnparseablePayloads(t *testing.T) {
	telemetry := &countingTelemetry{}
	consumer := RawEventsConsumer{Stitcher: &stubStitcher{}, DeadLetters: &stubPublisher{}, Telemetry: telemetry}

	if err := consumer.Handle(context.Background(), rawEnvelope(`{"eventId":`)); err != nil {
		t.Fatalf("poison messages must be acknowledged, got %v", err)
	}
	if len(telemetry.outcomes) != 1 || telemetry.outcomes[0] != commands.OutcomeInvalid {
		t.Fatalf("expected one invalid outcome, got %v", telemetry.outcomes)
	}
	if len(telemetry.deadLettered) != 1 || telemetry.deadLettered[0] != "events.raw" {
		t.Fatalf("expected one dead letter from events.raw, got %v", telemetry.deadLettered)
	}
}

func TestRawEventsConsumerCountsValidationDeadLetters(t *testing.T) {
	telemetry := &countingTelemetry{}
	stitcher := &stubStitcher{err: &domainerrors.ValidationError{Fields: []domainerrors.FieldError{{Field: "eventId", Message: "is required"}}}}
	consumer := RawEventsConsumer{Stitcher: stitcher, DeadLetters: &stubPublisher{}, Telemetry: telemetry}

	if err := consumer.Handle(context.Background(), rawEnvelope(validRaw)); err != nil {
		t.Fatalf("validation failures must be acknowledged, got %v", err)
	}
	// The stitcher owns the outcome for events it saw.
	if len(telemetry.outcomes) != 0 {
		t.Fatalf("consumer must not double count outcomes, got %v", telemetry.outcomes)
	}
	if len(telemetry.deadLettered) != 1 {
		t.Fatalf("expected one dead letter, got %v", telemetry.deadLettered)
	}
}

func TestRawEventsConsumerAlertsOnInvalidMerge(t *testing.T) {
	var logs bytes.Buffer
	invalid := fmt.Errorf("%w: cannot merge \"J1\" into itself", domainerrors.ErrInvalidMerge)
	dlq := &stubPublisher{}
	consumer := RawEventsConsumer{
		Stitcher:    &stubStitcher{err: invalid},
		DeadLetters: dlq,
		Logger:      slog.New(slog.NewJSONHandler(&logs, nil)),
	}

	err := consumer.Handle(context.Background(), rawEnvelope(validRaw))
	if !errors.Is(err, domainerrors.ErrInvalidMerge) {
		t.Fatalf("expected invalid merge error, got %v", err)
	}
	if len(dlq.events) != 0 {
		t.Fatalf("invalid merges must not be dead-lettered")
	}
	out := logs.String()
	if !strings.Contains(out, `"event":"journey_raw_event_consistency_violation"`) || !strings.Contains(out, `"alert":true`) {
		t.Fatalf("expected alert log for invalid merge, got %s", out)
	}
}
