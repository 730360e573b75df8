package queries

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	application "journeystitch/contexts/journey-analytics/journey-stitching/application"
	"journeystitch/contexts/journey-analytics/journey-stitching/domain/entities"
	domainerrors "journeystitch/contexts/journey-analytics/journey-stitching/domain/errors"
	"journeystitch/contexts/journey-analytics/journey-stitching/ports"
)

type GetJourneyResult struct {
	RequestedJourneyID string
	Journey            entities.JourneyProjection
}

// GetJourneyUseCase is a redirect-aware reader: asking for a merged-away id
// returns the canonical journey's projection.
type GetJourneyUseCase struct {
	Redirects ports.RedirectResolver
	Journeys  ports.JourneyAggregator
	Logger    *slog.Logger
}

func (u GetJourneyUseCase) Execute(ctx context.Context, journeyID string) (GetJourneyResult, error) {
	journeyID = strings.TrimSpace(journeyID)
	if journeyID == "" {
		return GetJourneyResult{}, fmt.Errorf("%w: journey id is required", domainerrors.ErrInvalidQuery)
	}

	canonical, err := u.Redirects.ResolveCanonical(ctx, journeyID)
	if err != nil {
		application.ResolveLogger(u.Logger).Error("journey canonical resolution failed",
			"event", "journey_get_resolve_failed",
			"module", "journey-analytics/journey-stitching",
			"layer", "application",
			"journey_id", journeyID,
			"error", err.Error(),
		)
		return GetJourneyResult{}, err
	}

	journey, err := u.Journeys.Get(ctx, canonical)
	if err != nil {
		return GetJourneyResult{}, err
	}
	return GetJourneyResult{RequestedJourneyID: journeyID, Journey: journey}, nil
}

// ExecuteStored returns the projection stored under journeyID without
// following redirects. Events folded into a journey before it lost a merge
// stay there.
func (u GetJourneyUseCase) ExecuteStored(ctx context.Context, journeyID string) (GetJourneyResult, error) {
	journeyID = strings.TrimSpace(journeyID)
	if journeyID == "" {
		return GetJourneyResult{}, fmt.Errorf("%w: journey id is required", domainerrors.ErrInvalidQuery)
	}
	journey, err := u.Journeys.Get(ctx, journeyID)
	if err != nil {
		return GetJourneyResult{}, err
	}
	return GetJourneyResult{RequestedJourneyID: journeyID, Journey: journey}, nil
}
