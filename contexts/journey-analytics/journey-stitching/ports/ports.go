package ports

import (
	"context"
	"errors"
	"time"

	"journeystitch/contexts/journey-analytics/journey-stitching/domain/entities"
	contractsv1 "journeystitch/contracts/gen/events/v1"
)

// ErrSkipWrite returned from an UpdateFunc leaves the stored document untouched.
var ErrSkipWrite = errors.New("skip document write")

// ErrNoConsumerGroup is returned by a publisher that has nowhere to deliver
// an envelope; the caller must not treat the event as accepted.
var ErrNoConsumerGroup = errors.New("no consumer group subscribed to topic")

// UpdateFunc computes the next document from the current one.
// It runs inside the adapter's per-document critical section and may be
// invoked more than once when the adapter retries a lost race.
type UpdateFunc func(current []byte, found bool) ([]byte, error)

// DocumentStore is the key-value document store every stitching component
// persists through. Atomicity is guaranteed per document only.
type DocumentStore interface {
	Get(ctx context.Context, collection string, id string) ([]byte, bool, error)
	// MultiGet omits missing ids from the result instead of failing.
	MultiGet(ctx context.Context, collection string, ids []string) (map[string][]byte, error)
	// Put replaces the whole document.
	Put(ctx context.Context, collection string, id string, doc []byte) error
	// Update is an atomic read-modify-write with upsert-if-absent semantics.
	// It returns the document as stored after the call.
	Update(ctx context.Context, collection string, id string, fn UpdateFunc) ([]byte, error)
}

// ClaimStore owns correlation key to journey bindings.
type ClaimStore interface {
	BulkLookup(ctx context.Context, keys []string) (map[string]string, error)
	Claim(ctx context.Context, key string, journeyID string) (bool, error)
	Lookup(ctx context.Context, key string) (entities.CkMapping, bool, error)
}

// RedirectResolver owns the merge graph between journey ids.
type RedirectResolver interface {
	RecordMerge(ctx context.Context, winner string, loser string) error
	ResolveCanonical(ctx context.Context, journeyID string) (string, error)
}

// JourneyAggregator owns journey projections.
type JourneyAggregator interface {
	Fold(ctx context.Context, journeyID string, event entities.Event) (entities.JourneyProjection, error)
	Get(ctx context.Context, journeyID string) (entities.JourneyProjection, error)
}

// EventArchive persists raw events into daily partitions.
type EventArchive interface {
	Archive(ctx context.Context, event entities.ArchivedEvent) error
	Get(ctx context.Context, partition string, eventID string) (entities.ArchivedEvent, error)
}

// Clock allows deterministic testing of timestamps and partition names.
type Clock interface {
	Now() time.Time
}

// JourneyIDGenerator mints the candidate id for an event with no known keys.
type JourneyIDGenerator interface {
	NewJourneyID(ctx context.Context, event entities.Event) (string, error)
}

// Span is one traced unit of work.
type Span interface {
	SetAttributes(attrs map[string]string)
	RecordError(err error)
	End()
}

// Telemetry exposes tracing and pipeline counters without binding the
// application layer to a metrics or tracing SDK.
type Telemetry interface {
	StartSpan(ctx context.Context, name string) (context.Context, Span)
	IncStitchOutcome(outcome string)
	IncClaimConflict()
	IncMerge()
	IncJourneyMinted()
	ObserveStitchDuration(d time.Duration)
	DeadLettered(topic string)
}

// EventEnvelope reuses the canonical cross-runtime envelope contract.
type EventEnvelope = contractsv1.Envelope

// EventPublisher publishes canonical envelopes to a topic.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

// EventSubscriber registers a topic consumer callback.
// A handler error asks the bus to redeliver the message.
type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}
