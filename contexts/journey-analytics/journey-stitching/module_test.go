package journeystitching

import (
	"context"
	"testing"

	"journeystitch/contexts/journey-analytics/journey-stitching/ports"
)

func TestInMemoryModulePublishConsumeAndRead(t *testing.T) {
	module := NewInMemoryModule(nil)
	ctx := context.Background()
	if err := module.Consumer.Start(ctx); err != nil {
		t.Fatalf("start consumer: %v", err)
	}

	payloads := []string{
		`{"eventId":"E1","activity":"Visit","correlationKeys":["cookie-1"],"timestamp":"2025-01-01T10:00:00Z"}`,
		`{"eventId":"E2","activity":"Login","correlationKeys":["user-7"],"timestamp":"2025-01-01T10:01:00Z"}`,
		`{"eventId":"E3","activity":"Checkout","correlationKeys":["user-7","cookie-1"],"timestamp":"2025-01-01T10:02:00Z"}`,
	}
	for _, payload := range payloads {
		if _, err := module.Handler.PublishEventHandler(ctx, []byte(payload)); err != nil {
			t.Fatalf("publish %s: %v", payload, err)
		}
	}

	cookie, err := module.Handler.LookupCorrelationKeyHandler(ctx, "cookie-1")
	if err != nil {
		t.Fatalf("lookup cookie: %v", err)
	}
	user, err := module.Handler.LookupCorrelationKeyHandler(ctx, "user-7")
	if err != nil {
		t.Fatalf("lookup user: %v", err)
	}
	if cookie.CanonicalJourneyID != user.CanonicalJourneyID {
		t.Fatalf("linked keys must share a canonical journey: %+v vs %+v", cookie, user)
	}

	journey, err := module.Handler.GetJourneyHandler(ctx, cookie.JourneyID, true)
	if err != nil {
		t.Fatalf("get journey: %v", err)
	}
	if journey.Item.JourneyID != cookie.CanonicalJourneyID {
		t.Fatalf("expected canonical %s, got %s", cookie.CanonicalJourneyID, journey.Item.JourneyID)
	}
	if len(journey.Item.EventIDs) == 0 || journey.Item.EventIDs[len(journey.Item.EventIDs)-1] != "E3" {
		t.Fatalf("linking event must land on the canonical journey, got %v", journey.Item.EventIDs)
	}
	if len(module.Bus.Published("events.raw.dlq")) != 0 {
		t.Fatalf("no event should be dead-lettered")
	}
}

func TestInMemoryModuleDeadLettersInvalidDeliveries(t *testing.T) {
	module := NewInMemoryModule(nil)
	ctx := context.Background()
	if err := module.Consumer.Start(ctx); err != nil {
		t.Fatalf("start consumer: %v", err)
	}

	if err := module.Bus.Publish(ctx, "events.raw", rawEnvelopeFor(`{"eventId":"E9","correlationKeys":[]}`)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(module.Bus.Published("events.raw.dlq")) != 1 {
		t.Fatalf("invalid delivery must be dead-lettered")
	}
	if len(module.Store.Collection("ckmap")) != 0 {
		t.Fatalf("invalid delivery must not claim keys")
	}
}

func rawEnvelopeFor(data string) ports.EventEnvelope {
	return ports.EventEnvelope{EventID: "E9", EventType: "journey.event.raw", Data: []byte(data)}
}
