package stitching

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	application "journeystitch/contexts/journey-analytics/journey-stitching/application"
	"journeystitch/contexts/journey-analytics/journey-stitching/domain/entities"
	"journeystitch/contexts/journey-analytics/journey-stitching/ports"
)

// ClaimStore keeps one document per correlation key in Collection.
type ClaimStore struct {
	Store      ports.DocumentStore
	Clock      ports.Clock
	Collection string
	Logger     *slog.Logger
}

// BulkLookup returns the owner of every key that has one; unmapped keys are absent.
func (s ClaimStore) BulkLookup(ctx context.Context, keys []string) (map[string]string, error) {
	keys = entities.NormalizeCorrelationKeys(keys)
	result := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	docs, err := s.Store.MultiGet(ctx, s.collection(), keys)
	if err != nil {
		return nil, fmt.Errorf("bulk lookup correlation keys: %w", err)
	}
	for key, raw := range docs {
		mapping, err := decodeCkMapping(raw)
		if err != nil {
			return nil, err
		}
		if mapping.JourneyID != "" {
			result[key] = mapping.JourneyID
		}
	}
	return result, nil
}

// Claim attempts to bind key to journeyID. The returned flag reflects the
// owner read back after the conditional update, not the caller's intent.
func (s ClaimStore) Claim(ctx context.Context, key string, journeyID string) (bool, error) {
	key = strings.TrimSpace(key)
	if key == "" || strings.TrimSpace(journeyID) == "" {
		return false, fmt.Errorf("claim requires key and journey id")
	}
	now := s.now()

	_, err := s.Store.Update(ctx, s.collection(), key, func(current []byte, found bool) ([]byte, error) {
		mapping := entities.CkMapping{CK: key}
		if found {
			decoded, err := decodeCkMapping(current)
			if err != nil {
				return nil, err
			}
			mapping = decoded
			mapping.CK = key
		}
		next, _ := mapping.Claim(journeyID, now)
		return encodeCkMapping(next)
	})
	if err != nil {
		return false, fmt.Errorf("claim correlation key %s: %w", key, err)
	}

	mapping, found, err := s.Lookup(ctx, key)
	if err != nil {
		return false, err
	}
	owned := found && mapping.JourneyID == journeyID
	application.ResolveLogger(s.Logger).Debug("correlation key claim attempted",
		"event", "journey_ck_claim_attempted",
		"module", "journey-analytics/journey-stitching",
		"layer", "application",
		"ck", key,
		"journey_id", journeyID,
		"owner_journey_id", mapping.JourneyID,
		"owned", owned,
	)
	return owned, nil
}

// Lookup reads a single mapping document.
func (s ClaimStore) Lookup(ctx context.Context, key string) (entities.CkMapping, bool, error) {
	raw, found, err := s.Store.Get(ctx, s.collection(), key)
	if err != nil {
		return entities.CkMapping{}, false, fmt.Errorf("read correlation key %s: %w", key, err)
	}
	if !found {
		return entities.CkMapping{}, false, nil
	}
	mapping, err := decodeCkMapping(raw)
	if err != nil {
		return entities.CkMapping{}, false, err
	}
	if mapping.CK == "" {
		mapping.CK = key
	}
	return mapping, mapping.JourneyID != "", nil
}

func (s ClaimStore) collection() string {
	if s.Collection == "" {
		return DefaultCkMapCollection
	}
	return s.Collection
}

func (s ClaimStore) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}
