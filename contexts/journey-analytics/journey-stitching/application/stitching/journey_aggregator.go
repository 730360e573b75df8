package stitching

import (
	"context"
	"fmt"
	"log/slog"

	application "journeystitch/contexts/journey-analytics/journey-stitching/application"
	"journeystitch/contexts/journey-analytics/journey-stitching/domain/entities"
	domainerrors "journeystitch/contexts/journey-analytics/journey-stitching/domain/errors"
	"journeystitch/contexts/journey-analytics/journey-stitching/ports"
)

// JourneyAggregator keeps one projection document per journey in Collection.
type JourneyAggregator struct {
	Store      ports.DocumentStore
	Collection string
	Logger     *slog.Logger
}

// Fold upserts the projection and applies event inside one atomic update.
func (a JourneyAggregator) Fold(ctx context.Context, journeyID string, event entities.Event) (entities.JourneyProjection, error) {
	stored, err := a.Store.Update(ctx, a.collection(), journeyID, func(current []byte, found bool) ([]byte, error) {
		projection := entities.NewJourneyProjection(journeyID, event.Timestamp)
		if found {
			decoded, err := decodeJourney(current)
			if err != nil {
				return nil, err
			}
			projection = decoded
			projection.JourneyID = journeyID
		}
		return encodeJourney(projection.Fold(event))
	})
	if err != nil {
		return entities.JourneyProjection{}, fmt.Errorf("fold event %s into journey %s: %w", event.EventID, journeyID, err)
	}

	projection, err := decodeJourney(stored)
	if err != nil {
		return entities.JourneyProjection{}, err
	}
	application.ResolveLogger(a.Logger).Debug("journey projection folded",
		"event", "journey_projection_folded",
		"module", "journey-analytics/journey-stitching",
		"layer", "application",
		"journey_id", journeyID,
		"event_id", event.EventID,
		"events", projection.Counters.Events,
	)
	return projection, nil
}

func (a JourneyAggregator) Get(ctx context.Context, journeyID string) (entities.JourneyProjection, error) {
	raw, found, err := a.Store.Get(ctx, a.collection(), journeyID)
	if err != nil {
		return entities.JourneyProjection{}, fmt.Errorf("read journey %s: %w", journeyID, err)
	}
	if !found {
		return entities.JourneyProjection{}, domainerrors.ErrJourneyNotFound
	}
	return decodeJourney(raw)
}

func (a JourneyAggregator) collection() string {
	if a.Collection == "" {
		return DefaultJourneyCollection
	}
	return a.Collection
}
