package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	application "journeystitch/contexts/journey-analytics/journey-stitching/application"
	"journeystitch/contexts/journey-analytics/journey-stitching/application/stitching"
	"journeystitch/contexts/journey-analytics/journey-stitching/domain/entities"
	domainerrors "journeystitch/contexts/journey-analytics/journey-stitching/domain/errors"
	"journeystitch/contexts/journey-analytics/journey-stitching/domain/services"
	"journeystitch/contexts/journey-analytics/journey-stitching/ports"
)

const (
	OutcomeStitched             = "stitched"
	OutcomeInvalid              = "invalid"
	OutcomeConsistencyViolation = "consistency_violation"
	OutcomeTransientFailure     = "transient_failure"
)

type Merge struct {
	Winner string
	Loser  string
}

type StitchEventResult struct {
	JourneyID          string
	CandidateJourneyID string
	Minted             bool
	Merges             []Merge
	Partition          string
	Projection         entities.JourneyProjection
}

type StitchEventUseCase struct {
	Claims              ports.ClaimStore
	Redirects           ports.RedirectResolver
	Journeys            ports.JourneyAggregator
	Archive             ports.EventArchive
	IDGenerator         ports.JourneyIDGenerator
	Clock               ports.Clock
	Telemetry           ports.Telemetry
	EventCollectionBase string
	Logger              *slog.Logger
}

// Execute stitches one event in this order:
// 1) validation
// 2) bulk lookup of known correlation keys
// 3) candidate selection or minting
// 4) claim loop with merge on conflict
// 5) canonical resolution
// 6) raw event archive
// 7) projection fold.
// Any store error aborts the pipeline; re-running the same event is safe.
func (u StitchEventUseCase) Execute(ctx context.Context, event entities.Event) (StitchEventResult, error) {
	telemetry := application.ResolveTelemetry(u.Telemetry)
	started := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "journey.stitch_event")
	defer span.End()
	span.SetAttributes(map[string]string{"event.id": event.EventID})

	result, err := u.stitch(ctx, event)
	telemetry.ObserveStitchDuration(time.Since(started))
	telemetry.IncStitchOutcome(classifyOutcome(err))
	if err != nil {
		span.RecordError(err)
		return StitchEventResult{}, err
	}
	span.SetAttributes(map[string]string{"journey.id": result.JourneyID})
	return result, nil
}

func (u StitchEventUseCase) stitch(ctx context.Context, event entities.Event) (StitchEventResult, error) {
	logger := application.ResolveLogger(u.Logger)
	telemetry := application.ResolveTelemetry(u.Telemetry)
	event.CorrelationKeys = entities.NormalizeCorrelationKeys(event.CorrelationKeys)
	if err := event.Validate(); err != nil {
		logger.Warn("stitch event rejected",
			"event", "journey_stitch_invalid_event",
			"module", "journey-analytics/journey-stitching",
			"layer", "application",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return StitchEventResult{}, err
	}

	logger.Info("stitch event started",
		"event", "journey_stitch_started",
		"module", "journey-analytics/journey-stitching",
		"layer", "application",
		"event_id", event.EventID,
		"correlation_keys", len(event.CorrelationKeys),
	)

	existing, err := u.Claims.BulkLookup(ctx, event.CorrelationKeys)
	if err != nil {
		logger.Error("stitch event lookup failed",
			"event", "journey_stitch_lookup_failed",
			"module", "journey-analytics/journey-stitching",
			"layer", "application",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return StitchEventResult{}, err
	}

	result := StitchEventResult{}
	candidate := ""
	for _, key := range event.CorrelationKeys {
		if journeyID, ok := existing[key]; ok && journeyID != "" {
			candidate = journeyID
			break
		}
	}
	if candidate == "" {
		minted, err := u.IDGenerator.NewJourneyID(ctx, event)
		if err != nil {
			return StitchEventResult{}, fmt.Errorf("mint journey id: %w", err)
		}
		candidate = minted
		result.Minted = true
		telemetry.IncJourneyMinted()
	}
	result.CandidateJourneyID = candidate

	// Keys claimed before a mid-loop merge stay bound to the earlier candidate;
	// the redirect written by that merge keeps them reachable.
	for _, key := range event.CorrelationKeys {
		owned, err := u.Claims.Claim(ctx, key, candidate)
		if err != nil {
			logger.Error("stitch event claim failed",
				"event", "journey_stitch_claim_failed",
				"module", "journey-analytics/journey-stitching",
				"layer", "application",
				"event_id", event.EventID,
				"ck", key,
				"journey_id", candidate,
				"error", err.Error(),
			)
			return StitchEventResult{}, err
		}
		if owned {
			continue
		}
		telemetry.IncClaimConflict()

		owner, err := u.resolveOwner(ctx, key, existing)
		if err != nil {
			return StitchEventResult{}, err
		}
		if owner == candidate {
			continue
		}

		winner, loser, err := services.ResolveMergeDirection(owner, candidate)
		if err != nil {
			return StitchEventResult{}, err
		}
		if err := u.Redirects.RecordMerge(ctx, winner, loser); err != nil {
			logger.Error("stitch event merge failed",
				"event", "journey_stitch_merge_failed",
				"module", "journey-analytics/journey-stitching",
				"layer", "application",
				"event_id", event.EventID,
				"winner_journey_id", winner,
				"loser_journey_id", loser,
				"error", err.Error(),
			)
			return StitchEventResult{}, err
		}
		telemetry.IncMerge()
		result.Merges = append(result.Merges, Merge{Winner: winner, Loser: loser})
		logger.Info("stitch event merged journeys",
			"event", "journey_stitch_merged",
			"module", "journey-analytics/journey-stitching",
			"layer", "application",
			"event_id", event.EventID,
			"ck", key,
			"winner_journey_id", winner,
			"loser_journey_id", loser,
		)
		candidate = winner
	}

	final, err := u.Redirects.ResolveCanonical(ctx, candidate)
	if err != nil {
		if domainerrors.IsConsistencyViolation(err) {
			logger.Error("redirect graph consistency violation",
				"event", "journey_stitch_redirect_inconsistent",
				"module", "journey-analytics/journey-stitching",
				"layer", "application",
				"alert", true,
				"event_id", event.EventID,
				"journey_id", candidate,
				"error", err.Error(),
			)
		}
		return StitchEventResult{}, err
	}
	result.JourneyID = final

	now := u.now()
	result.Partition = services.EventPartition(u.eventCollectionBase(), now)
	if err := u.Archive.Archive(ctx, entities.NewArchivedEvent(event, final, result.Partition, now)); err != nil {
		logger.Error("stitch event archive failed",
			"event", "journey_stitch_archive_failed",
			"module", "journey-analytics/journey-stitching",
			"layer", "application",
			"event_id", event.EventID,
			"partition", result.Partition,
			"error", err.Error(),
		)
		return StitchEventResult{}, err
	}

	projection, err := u.Journeys.Fold(ctx, final, event)
	if err != nil {
		logger.Error("stitch event fold failed",
			"event", "journey_stitch_fold_failed",
			"module", "journey-analytics/journey-stitching",
			"layer", "application",
			"event_id", event.EventID,
			"journey_id", final,
			"error", err.Error(),
		)
		return StitchEventResult{}, err
	}
	result.Projection = projection

	logger.Info("stitch event completed",
		"event", "journey_stitch_completed",
		"module", "journey-analytics/journey-stitching",
		"layer", "application",
		"event_id", event.EventID,
		"journey_id", final,
		"minted", result.Minted,
		"merges", len(result.Merges),
		"partition", result.Partition,
	)
	return result, nil
}

func (u StitchEventUseCase) resolveOwner(ctx context.Context, key string, existing map[string]string) (string, error) {
	if owner := existing[key]; owner != "" {
		return owner, nil
	}
	mapping, found, err := u.Claims.Lookup(ctx, key)
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("%w: %s", domainerrors.ErrClaimUnresolved, key)
	}
	return mapping.JourneyID, nil
}

func (u StitchEventUseCase) eventCollectionBase() string {
	if u.EventCollectionBase == "" {
		return stitching.DefaultEventCollectionBase
	}
	return u.EventCollectionBase
}

func (u StitchEventUseCase) now() time.Time {
	if u.Clock == nil {
		return time.Now().UTC()
	}
	return u.Clock.Now().UTC()
}

func classifyOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeStitched
	case domainerrors.IsValidation(err):
		return OutcomeInvalid
	case domainerrors.IsConsistencyViolation(err):
		return OutcomeConsistencyViolation
	default:
		return OutcomeTransientFailure
	}
}
