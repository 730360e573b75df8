package stitching

import (
	"context"

	"journeystitch/contexts/journey-analytics/journey-stitching/domain/entities"
	"journeystitch/contexts/journey-analytics/journey-stitching/domain/services"
)

// DeterministicJourneyIDs mints ids from the event's keys and id, so a
// redelivered first event proposes the same journey again.
type DeterministicJourneyIDs struct{}

func (DeterministicJourneyIDs) NewJourneyID(_ context.Context, event entities.Event) (string, error) {
	return services.DeterministicJourneyID(event.CorrelationKeys, event.EventID), nil
}
