package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	application "journeystitch/contexts/journey-analytics/journey-stitching/application"
	"journeystitch/contexts/journey-analytics/journey-stitching/domain/entities"
	"journeystitch/contexts/journey-analytics/journey-stitching/ports"
)

// FaultFunc lets tests fail a store operation. A non-nil return aborts it.
type FaultFunc func(op string, collection string, id string) error

// Store is an in-memory document store for local runtime and tests.
// It is not intended as production persistence.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string][]byte
	fault       FaultFunc
	sequence    uint64
	logger      *slog.Logger
}

func NewStore(logger *slog.Logger) *Store {
	return &Store{
		collections: make(map[string]map[string][]byte),
		logger:      application.ResolveLogger(logger),
	}
}

// SetFault installs or clears (nil) the fault hook.
func (s *Store) SetFault(fault FaultFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = fault
}

func (s *Store) Get(ctx context.Context, collection string, id string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkFault("get", collection, id); err != nil {
		return nil, false, err
	}

	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, false, nil
	}
	return cloneBytes(doc), true, nil
}

func (s *Store) MultiGet(ctx context.Context, collection string, ids []string) (map[string][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkFault("multi_get", collection, ""); err != nil {
		return nil, err
	}

	docs := make(map[string][]byte, len(ids))
	items := s.collections[collection]
	for _, id := range ids {
		if doc, ok := items[id]; ok {
			docs[id] = cloneBytes(doc)
		}
	}
	return docs, nil
}

func (s *Store) Put(ctx context.Context, collection string, id string, doc []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkFault("put", collection, id); err != nil {
		return err
	}

	s.bucket(collection)[id] = cloneBytes(doc)
	return nil
}

// Update runs fn while holding the store lock, which makes every update
// atomic with respect to all other operations.
func (s *Store) Update(ctx context.Context, collection string, id string, fn ports.UpdateFunc) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkFault("update", collection, id); err != nil {
		return nil, err
	}

	items := s.bucket(collection)
	current, found := items[id]
	next, err := fn(cloneBytes(current), found)
	if errors.Is(err, ports.ErrSkipWrite) {
		return cloneBytes(current), nil
	}
	if err != nil {
		return nil, err
	}
	items[id] = cloneBytes(next)
	return cloneBytes(next), nil
}

// Collection returns a copy of every document in collection, for inspection.
func (s *Store) Collection(collection string) map[string][]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]byte, len(s.collections[collection]))
	for id, doc := range s.collections[collection] {
		out[id] = cloneBytes(doc)
	}
	return out
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewJourneyID(_ context.Context, _ entities.Event) (string, error) {
	value := atomic.AddUint64(&s.sequence, 1)
	return fmt.Sprintf("journey-%d", value), nil
}

func (s *Store) bucket(collection string) map[string][]byte {
	items, ok := s.collections[collection]
	if !ok {
		items = make(map[string][]byte)
		s.collections[collection] = items
	}
	return items
}

func (s *Store) checkFault(op string, collection string, id string) error {
	if s.fault == nil {
		return nil
	}
	if err := s.fault(op, collection, id); err != nil {
		s.logger.Debug("memory store fault injected",
			"event", "journey_memory_store_fault",
			"module", "journey-analytics/journey-stitching",
			"layer", "adapter",
			"op", op,
			"collection", collection,
			"id", id,
			"error", err.Error(),
		)
		return err
	}
	return nil
}

func cloneBytes(in []byte) []byte {
	if in == nil {
		return nil
	}
	return append([]byte(nil), in...)
}
