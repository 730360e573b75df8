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

type LookupCorrelationKeyResult struct {
	Mapping            entities.CkMapping
	CanonicalJourneyID string
}

type LookupCorrelationKeyUseCase struct {
	Claims    ports.ClaimStore
	Redirects ports.RedirectResolver
	Logger    *slog.Logger
}

func (u LookupCorrelationKeyUseCase) Execute(ctx context.Context, key string) (LookupCorrelationKeyResult, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return LookupCorrelationKeyResult{}, fmt.Errorf("%w: correlation key is required", domainerrors.ErrInvalidQuery)
	}

	mapping, found, err := u.Claims.Lookup(ctx, key)
	if err != nil {
		return LookupCorrelationKeyResult{}, err
	}
	if !found {
		return LookupCorrelationKeyResult{}, domainerrors.ErrCorrelationKeyNotFound
	}

	canonical, err := u.Redirects.ResolveCanonical(ctx, mapping.JourneyID)
	if err != nil {
		application.ResolveLogger(u.Logger).Error("correlation key canonical resolution failed",
			"event", "journey_lookup_key_resolve_failed",
			"module", "journey-analytics/journey-stitching",
			"layer", "application",
			"ck", key,
			"journey_id", mapping.JourneyID,
			"error", err.Error(),
		)
		return LookupCorrelationKeyResult{}, err
	}
	return LookupCorrelationKeyResult{Mapping: mapping, CanonicalJourneyID: canonical}, nil
}
