package commands_test

import (
	"context"
	"errors"
	"testing"

	"journeystitch/contexts/journey-analytics/journey-stitching/adapters/memory"
	"journeystitch/contexts/journey-analytics/journey-stitching/application/commands"
	domainerrors "journeystitch/contexts/journey-analytics/journey-stitching/domain/errors"
	"journeystitch/contexts/journey-analytics/journey-stitching/ports"
)

type failingPublisher struct{ err error }

func (p failingPublisher) Publish(context.Context, string, ports.EventEnvelope) error { return p.err }

func TestPublishEventPartitionsByFirstKey(t *testing.T) {
	bus := memory.NewBus(nil)
	useCase := commands.PublishEventUseCase{Publisher: bus, Clock: fixedClock{}}

	payload := []byte(`{"eventId":"E1","activity":"Start","correlationKeys":["CK9","CK1"],"timestamp":"2025-01-01T10:00:00Z"}`)
	result, err := useCase.Execute(context.Background(), payload)
	if err != nil {
		t.Fatalf("publish should succeed: %v", err)
	}
	if result.Topic != "events.raw" || result.PartitionKey != "CK9" || result.EventID != "E1" {
		t.Fatalf("unexpected result %+v", result)
	}

	published := bus.Published("events.raw")
	if len(published) != 1 {
		t.Fatalf("expected one envelope, got %d", len(published))
	}
	envelope := published[0]
	if envelope.EventType != commands.RawEventType || envelope.PartitionKey != "CK9" {
		t.Fatalf("unexpected envelope %+v", envelope)
	}
	if !envelope.OccurredAt.Equal(processedAt) {
		t.Fatalf("expected envelope stamped with clock time, got %s", envelope.OccurredAt)
	}
	if string(envelope.Data) != string(payload) {
		t.Fatalf("raw payload must be forwarded untouched")
	}
}

func TestPublishEventRejectsMalformedPayload(t *testing.T) {
	bus := memory.NewBus(nil)
	useCase := commands.PublishEventUseCase{Publisher: bus}

	_, err := useCase.Execute(context.Background(), []byte(`{"eventId":"E1","correlationKeys":[]}`))
	if !errors.Is(err, domainerrors.ErrInvalidEvent) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(bus.Published("events.raw")) != 0 {
		t.Fatalf("invalid events must not be published")
	}
}

func TestPublishEventReturnsBusErrors(t *testing.T) {
	boom := errors.New("broker down")
	useCase := commands.PublishEventUseCase{Publisher: failingPublisher{err: boom}, Topic: "custom.raw"}

	_, err := useCase.Execute(context.Background(), []byte(`{"eventId":"E1","correlationKeys":["CK1"],"timestamp":"2025-01-01T10:00:00Z"}`))
	if !errors.Is(err, boom) {
		t.Fatalf("expected bus error, got %v", err)
	}
}
