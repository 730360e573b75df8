package memory

import (
	"context"
	"log/slog"
	"sync"

	application "journeystitch/contexts/journey-analytics/journey-stitching/application"
	"journeystitch/contexts/journey-analytics/journey-stitching/ports"
)

type subscription struct {
	group   string
	handler func(context.Context, ports.EventEnvelope) error
}

// Bus delivers published envelopes synchronously to subscribers and keeps a
// copy of everything published per topic.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]subscription
	published   map[string][]ports.EventEnvelope
	logger      *slog.Logger
}

func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		subscribers: make(map[string][]subscription),
		published:   make(map[string][]ports.EventEnvelope),
		logger:      application.ResolveLogger(logger),
	}
}

func (b *Bus) Publish(ctx context.Context, topic string, event ports.EventEnvelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	b.published[topic] = append(b.published[topic], event)
	subs := append([]subscription(nil), b.subscribers[topic]...)
	b.mu.Unlock()

	for _, sub := range subs {
		if err := sub.handler(ctx, event); err != nil {
			b.logger.Warn("memory bus handler failed",
				"event", "journey_memory_bus_handler_failed",
				"module", "journey-analytics/journey-stitching",
				"layer", "adapter",
				"topic", topic,
				"consumer_group", sub.group,
				"event_id", event.EventID,
				"error", err.Error(),
			)
		}
	}
	return nil
}

func (b *Bus) Subscribe(
	_ context.Context,
	topic string,
	consumerGroup string,
	handler func(context.Context, ports.EventEnvelope) error,
) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[topic] = append(b.subscribers[topic], subscription{group: consumerGroup, handler: handler})
	return nil
}

// Published returns every envelope published to topic so far.
func (b *Bus) Published(topic string) []ports.EventEnvelope {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]ports.EventEnvelope(nil), b.published[topic]...)
}
