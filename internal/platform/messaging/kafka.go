package messaging

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"journeystitch/contexts/journey-analytics/journey-stitching/ports"
)

var ErrGroupAlreadySubscribed = errors.New("consumer group already subscribed to topic")

// DeliveryObserver is notified about redeliveries and dead letters.
type DeliveryObserver interface {
	Redelivered(topic string)
	DeadLettered(topic string)
}

type Options struct {
	Partitions        int
	MaxDeliveries     int
	RedeliveryBackoff time.Duration
	// DeadLetterTopics maps a topic to where its exhausted messages go;
	// unmapped topics use topic + DeadLetterSuffix.
	DeadLetterTopics map[string]string
	DeadLetterSuffix string
	BufferSize       int
	Observer         DeliveryObserver
}

// Kafka is the event bus adapter used by the API and worker processes.
// Current implementation is in-process publish/subscribe while runtime wiring
// is finalized for external brokers.
//
// Every consumer group owns Partitions ordered queues; an envelope is routed by
// the hash of its partition key, so messages sharing a key are handled in
// publish order by one goroutine. A failed delivery is retried in place with
// linear backoff and, after MaxDeliveries attempts, copied to the dead-letter
// topic.
type Kafka struct {
	mu      sync.RWMutex
	groups  map[string]map[string]*consumerGroup
	options Options
	brokers []string
	workers errgroup.Group
	logger  *slog.Logger
}

type consumerGroup struct {
	name       string
	topic      string
	partitions []chan ports.EventEnvelope
	handler    func(context.Context, ports.EventEnvelope) error
}

func NewKafka(brokers []string, options Options, logger *slog.Logger) (*Kafka, error) {
	if options.Partitions <= 0 {
		options.Partitions = 1
	}
	if options.MaxDeliveries <= 0 {
		options.MaxDeliveries = 1
	}
	if options.RedeliveryBackoff < 0 {
		return nil, fmt.Errorf("redelivery backoff must not be negative: %s", options.RedeliveryBackoff)
	}
	if options.DeadLetterSuffix == "" {
		options.DeadLetterSuffix = ".dlq"
	}
	if options.BufferSize <= 0 {
		options.BufferSize = 128
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Kafka{
		groups:  make(map[string]map[string]*consumerGroup),
		options: options,
		brokers: append([]string(nil), brokers...),
		logger:  logger,
	}, nil
}

// Publish blocks until every subscribed group has queued the envelope or ctx
// is done. Nothing is retained for groups that subscribe later, so a topic
// without groups fails with ports.ErrNoConsumerGroup.
func (k *Kafka) Publish(ctx context.Context, topic string, event ports.EventEnvelope) error {
	k.mu.RLock()
	groups := make([]*consumerGroup, 0, len(k.groups[topic]))
	for _, group := range k.groups[topic] {
		groups = append(groups, group)
	}
	k.mu.RUnlock()

	if len(groups) == 0 {
		k.logger.Warn("event not published, no consumer group",
			"event", "kafka_publish_no_consumer_group",
			"module", "internal/platform/messaging",
			"layer", "platform",
			"topic", topic,
			"event_id", event.EventID,
		)
		return fmt.Errorf("%w: %s", ports.ErrNoConsumerGroup, topic)
	}

	for _, group := range groups {
		partition := k.partitionFor(event)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case group.partitions[partition] <- event:
		}
	}

	k.logger.Debug("event published",
		"event", "kafka_publish",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"topic", topic,
		"event_id", event.EventID,
		"event_type", event.EventType,
		"partition_key", event.PartitionKey,
		"consumer_groups", len(groups),
	)
	return nil
}

// Subscribe starts one worker per partition for the group. Workers stop when
// ctx is cancelled; Wait blocks until they have.
func (k *Kafka) Subscribe(
	ctx context.Context,
	topic string,
	consumerGroupName string,
	handler func(context.Context, ports.EventEnvelope) error,
) error {
	group := &consumerGroup{
		name:       consumerGroupName,
		topic:      topic,
		partitions: make([]chan ports.EventEnvelope, k.options.Partitions),
		handler:    handler,
	}
	for i := range group.partitions {
		group.partitions[i] = make(chan ports.EventEnvelope, k.options.BufferSize)
	}

	k.mu.Lock()
	if _, exists := k.groups[topic][consumerGroupName]; exists {
		k.mu.Unlock()
		return fmt.Errorf("%w: %s/%s", ErrGroupAlreadySubscribed, topic, consumerGroupName)
	}
	if k.groups[topic] == nil {
		k.groups[topic] = make(map[string]*consumerGroup)
	}
	k.groups[topic][consumerGroupName] = group
	k.mu.Unlock()

	for i := range group.partitions {
		partition := i
		k.workers.Go(func() error {
			k.consume(ctx, group, partition)
			return nil
		})
	}

	k.logger.Info("consumer group subscribed",
		"event", "kafka_subscribe",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"topic", topic,
		"consumer_group", consumerGroupName,
		"partitions", len(group.partitions),
		"brokers", k.brokers,
	)
	return nil
}

// Wait blocks until every partition worker has stopped.
func (k *Kafka) Wait() error {
	return k.workers.Wait()
}

func (k *Kafka) consume(ctx context.Context, group *consumerGroup, partition int) {
	defer k.removeGroup(group)
	queue := group.partitions[partition]
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-queue:
			k.deliver(ctx, group, partition, event)
		}
	}
}

func (k *Kafka) deliver(ctx context.Context, group *consumerGroup, partition int, event ports.EventEnvelope) {
	for attempt := 1; ; attempt++ {
		event.Attempt = attempt
		err := group.handler(ctx, event)
		if err == nil {
			return
		}
		if ctx.Err() != nil {
			return
		}

		if attempt >= k.options.MaxDeliveries {
			k.logger.Error("consumer handler exhausted deliveries",
				"event", "kafka_consume_exhausted",
				"module", "internal/platform/messaging",
				"layer", "platform",
				"topic", group.topic,
				"consumer_group", group.name,
				"partition", partition,
				"event_id", event.EventID,
				"event_type", event.EventType,
				"attempts", attempt,
				"error", err.Error(),
			)
			k.deadLetter(ctx, group, event)
			return
		}

		k.logger.Warn("consumer handler failed, redelivering",
			"event", "kafka_consume_failed",
			"module", "internal/platform/messaging",
			"layer", "platform",
			"topic", group.topic,
			"consumer_group", group.name,
			"partition", partition,
			"event_id", event.EventID,
			"event_type", event.EventType,
			"attempt", attempt,
			"error", err.Error(),
		)
		if k.options.Observer != nil {
			k.options.Observer.Redelivered(group.topic)
		}
		if !sleepContext(ctx, k.options.RedeliveryBackoff*time.Duration(attempt)) {
			return
		}
	}
}

func (k *Kafka) deadLetter(ctx context.Context, group *consumerGroup, event ports.EventEnvelope) {
	topic := k.deadLetterTopic(group.topic)
	if err := k.Publish(ctx, topic, event); err != nil {
		k.logger.Error("dead letter publish failed",
			"event", "kafka_dead_letter_failed",
			"module", "internal/platform/messaging",
			"layer", "platform",
			"topic", topic,
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return
	}
	if k.options.Observer != nil {
		k.options.Observer.DeadLettered(group.topic)
	}
	k.logger.Warn("event dead-lettered",
		"event", "kafka_dead_lettered",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"topic", topic,
		"consumer_group", group.name,
		"event_id", event.EventID,
	)
}

func (k *Kafka) deadLetterTopic(topic string) string {
	if target, ok := k.options.DeadLetterTopics[topic]; ok && target != "" {
		return target
	}
	return topic + k.options.DeadLetterSuffix
}

func (k *Kafka) partitionFor(event ports.EventEnvelope) int {
	key := event.PartitionKey
	if key == "" {
		key = event.EventID
	}
	hash := fnv.New32a()
	_, _ = hash.Write([]byte(key))
	return int(hash.Sum32() % uint32(k.options.Partitions))
}

func (k *Kafka) removeGroup(target *consumerGroup) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if current, ok := k.groups[target.topic][target.name]; ok && current == target {
		delete(k.groups[target.topic], target.name)
	}
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
