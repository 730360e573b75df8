package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"journeystitch/contexts/journey-analytics/journey-stitching/ports"
)

type countingObserver struct {
	mu           sync.Mutex
	redelivered  int
	deadLettered int
}

func (o *countingObserver) Redelivered(string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.redelivered++
}

func (o *countingObserver) DeadLettered(string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.deadLettered++
}

func waitFor(t *testing.T, ch <-chan ports.EventEnvelope) ports.EventEnvelope {
	t.Helper()
	select {
	case event := <-ch:
		return event
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for delivery")
		return ports.EventEnvelope{}
	}
}

func TestKafkaPreservesOrderPerPartitionKey(t *testing.T) {
	bus, err := NewKafka(nil, Options{Partitions: 4}, nil)
	if err != nil {
		t.Fatalf("new kafka: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	seen := map[string][]string{}
	done := make(chan ports.EventEnvelope, 64)
	if err := bus.Subscribe(ctx, "events.raw", "g1", func(_ context.Context, event ports.EventEnvelope) error {
		mu.Lock()
		seen[event.PartitionKey] = append(seen[event.PartitionKey], event.EventID)
		mu.Unlock()
		done <- event
		return nil
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	for i := 0; i < 10; i++ {
		for _, key := range []string{"CK1", "CK2", "CK3"} {
			event := ports.EventEnvelope{EventID: fmt.Sprintf("%s-%02d", key, i), PartitionKey: key}
			if err := bus.Publish(ctx, "events.raw", event); err != nil {
				t.Fatalf("publish: %v", err)
			}
		}
	}
	for i := 0; i < 30; i++ {
		waitFor(t, done)
	}

	mu.Lock()
	defer mu.Unlock()
	for key, ids := range seen {
		for i, id := range ids {
			if id != fmt.Sprintf("%s-%02d", key, i) {
				t.Fatalf("out of order delivery for %s: %v", key, ids)
			}
		}
	}
}

func TestKafkaRedeliversUntilHandlerSucceeds(t *testing.T) {
	observer := &countingObserver{}
	bus, err := NewKafka(nil, Options{MaxDeliveries: 3, Observer: observer}, nil)
	if err != nil {
		t.Fatalf("new kafka: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	attempts := 0
	done := make(chan ports.EventEnvelope, 1)
	_ = bus.Subscribe(ctx, "events.raw", "g1", func(_ context.Context, event ports.EventEnvelope) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		done <- event
		return nil
	})

	if err := bus.Publish(ctx, "events.raw", ports.EventEnvelope{EventID: "E1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if event := waitFor(t, done); event.Attempt != 3 {
		t.Fatalf("expected the third attempt to succeed, got attempt %d", event.Attempt)
	}

	observer.mu.Lock()
	defer observer.mu.Unlock()
	if observer.redelivered != 2 || observer.deadLettered != 0 {
		t.Fatalf("expected 2 redeliveries and no dead letter, got %+v", observer)
	}
}

func TestKafkaDeadLettersAfterMaxDeliveries(t *testing.T) {
	observer := &countingObserver{}
	bus, err := NewKafka(nil, Options{MaxDeliveries: 2, Observer: observer}, nil)
	if err != nil {
		t.Fatalf("new kafka: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dead := make(chan ports.EventEnvelope, 1)
	_ = bus.Subscribe(ctx, "events.raw.dlq", "audit", func(_ context.Context, event ports.EventEnvelope) error {
		dead <- event
		return nil
	})
	_ = bus.Subscribe(ctx, "events.raw", "g1", func(context.Context, ports.EventEnvelope) error {
		return errors.New("permanent")
	})

	if err := bus.Publish(ctx, "events.raw", ports.EventEnvelope{EventID: "E1", PartitionKey: "CK1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	event := waitFor(t, dead)
	if event.EventID != "E1" {
		t.Fatalf("unexpected dead letter %+v", event)
	}

	observer.mu.Lock()
	defer observer.mu.Unlock()
	if observer.redelivered != 1 || observer.deadLettered != 1 {
		t.Fatalf("expected 1 redelivery and 1 dead letter, got %+v", observer)
	}
}

func TestKafkaRejectsDuplicateGroupAndStopsOnCancel(t *testing.T) {
	bus, err := NewKafka([]string{"localhost:9092"}, Options{Partitions: 2}, nil)
	if err != nil {
		t.Fatalf("new kafka: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())

	handler := func(context.Context, ports.EventEnvelope) error { return nil }
	if err := bus.Subscribe(ctx, "events.raw", "g1", handler); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := bus.Subscribe(ctx, "events.raw", "g1", handler); !errors.Is(err, ErrGroupAlreadySubscribed) {
		t.Fatalf("expected duplicate group error, got %v", err)
	}

	cancel()
	stopped := make(chan struct{})
	go func() {
		_ = bus.Wait()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatalf("workers did not stop after cancel")
	}

	if err := bus.Subscribe(context.Background(), "events.raw", "g1", handler); err != nil {
		t.Fatalf("group should be free after its workers stopped: %v", err)
	}
}

func TestKafkaPublishWithoutConsumerGroupFails(t *testing.T) {
	bus, err := NewKafka(nil, Options{}, nil)
	if err != nil {
		t.Fatalf("new kafka: %v", err)
	}
	err = bus.Publish(context.Background(), "events.raw", ports.EventEnvelope{EventID: "E1"})
	if !errors.Is(err, ports.ErrNoConsumerGroup) {
		t.Fatalf("expected ErrNoConsumerGroup, got %v", err)
	}

	received := make(chan ports.EventEnvelope, 1)
	if err := bus.Subscribe(context.Background(), "events.raw", "g1", func(_ context.Context, event ports.EventEnvelope) error {
		received <- event
		return nil
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := bus.Publish(context.Background(), "events.raw", ports.EventEnvelope{EventID: "E2"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got := waitFor(t, received); got.EventID != "E2" {
		t.Fatalf("expected only the event published after subscribe, got %s", got.EventID)
	}
}

func TestNewKafkaRejectsNegativeBackoff(t *testing.T) {
	if _, err := NewKafka(nil, Options{RedeliveryBackoff: -time.Second}, nil); err == nil {
		t.Fatalf("expected error")
	}
}

func TestKafkaDeadLetterTopicMapping(t *testing.T) {
	bus, err := NewKafka(nil, Options{DeadLetterTopics: map[string]string{"events.raw": "journeys.poison"}}, nil)
	if err != nil {
		t.Fatalf("new kafka: %v", err)
	}
	if got := bus.deadLetterTopic("events.raw"); got != "journeys.poison" {
		t.Fatalf("expected mapped topic, got %s", got)
	}
	if got := bus.deadLetterTopic("other"); got != "other.dlq" {
		t.Fatalf("expected suffixed topic, got %s", got)
	}
}
