package stitching

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	application "journeystitch/contexts/journey-analytics/journey-stitching/application"
	"journeystitch/contexts/journey-analytics/journey-stitching/domain/entities"
	domainerrors "journeystitch/contexts/journey-analytics/journey-stitching/domain/errors"
	"journeystitch/contexts/journey-analytics/journey-stitching/domain/services"
	"journeystitch/contexts/journey-analytics/journey-stitching/ports"
)

// RedirectResolver stores one edge per superseded journey id in Collection.
type RedirectResolver struct {
	Store      ports.DocumentStore
	Clock      ports.Clock
	Collection string
	MaxHops    int
	Logger     *slog.Logger
}

// RecordMerge writes loser -> winner. When loser already points elsewhere the
// smaller of the two targets keeps the edge and the larger one is merged into
// it, so no previously linked journey is disconnected.
func (r RedirectResolver) RecordMerge(ctx context.Context, winner string, loser string) error {
	if err := services.ValidateMerge(winner, loser); err != nil {
		return err
	}
	return r.recordMerge(ctx, winner, loser, 0)
}

func (r RedirectResolver) recordMerge(ctx context.Context, winner string, loser string, depth int) error {
	if depth > r.maxHops() {
		return fmt.Errorf("%w: re-pointing %s", domainerrors.ErrRedirectChainTooLong, loser)
	}
	now := r.now()

	var displaced string
	_, err := r.Store.Update(ctx, r.collection(), loser, func(current []byte, found bool) ([]byte, error) {
		displaced = ""
		if found {
			existing, err := decodeRedirect(current)
			if err != nil {
				return nil, err
			}
			switch {
			case existing.To == winner:
				return nil, ports.ErrSkipWrite
			case existing.To != "" && existing.To < winner:
				displaced = existing.To
				return nil, ports.ErrSkipWrite
			case existing.To != "":
				displaced = existing.To
			}
		}
		return encodeRedirect(entities.RedirectEdge{From: loser, To: winner, UpdatedAt: now})
	})
	if err != nil {
		return fmt.Errorf("record redirect %s -> %s: %w", loser, winner, err)
	}

	logger := application.ResolveLogger(r.Logger)
	if displaced == "" {
		logger.Info("journey merge recorded",
			"event", "journey_merge_recorded",
			"module", "journey-analytics/journey-stitching",
			"layer", "application",
			"winner_journey_id", winner,
			"loser_journey_id", loser,
		)
		return nil
	}

	nextWinner, nextLoser, err := services.ResolveMergeDirection(displaced, winner)
	if err != nil {
		return err
	}
	logger.Warn("journey redirect already targeted another journey",
		"event", "journey_merge_redirect_repointed",
		"module", "journey-analytics/journey-stitching",
		"layer", "application",
		"loser_journey_id", loser,
		"requested_winner_journey_id", winner,
		"existing_target_journey_id", displaced,
		"follow_up_winner_journey_id", nextWinner,
		"follow_up_loser_journey_id", nextLoser,
	)
	return r.recordMerge(ctx, nextWinner, nextLoser, depth+1)
}

// ResolveCanonical follows redirects to the terminal journey id.
func (r RedirectResolver) ResolveCanonical(ctx context.Context, journeyID string) (string, error) {
	final, hops, err := services.WalkRedirects(journeyID, r.maxHops(), func(id string) (string, bool, error) {
		edge, found, err := r.Edge(ctx, id)
		if err != nil || !found {
			return "", false, err
		}
		return edge.To, true, nil
	})
	if err != nil {
		return "", err
	}
	if hops > 0 {
		application.ResolveLogger(r.Logger).Debug("journey id resolved through redirects",
			"event", "journey_redirect_resolved",
			"module", "journey-analytics/journey-stitching",
			"layer", "application",
			"journey_id", journeyID,
			"canonical_journey_id", final,
			"hops", hops,
		)
	}
	return final, nil
}

// Edge reads the redirect recorded for from, if any.
func (r RedirectResolver) Edge(ctx context.Context, from string) (entities.RedirectEdge, bool, error) {
	raw, found, err := r.Store.Get(ctx, r.collection(), from)
	if err != nil {
		return entities.RedirectEdge{}, false, fmt.Errorf("read redirect %s: %w", from, err)
	}
	if !found {
		return entities.RedirectEdge{}, false, nil
	}
	edge, err := decodeRedirect(raw)
	if err != nil {
		return entities.RedirectEdge{}, false, err
	}
	return edge, edge.To != "", nil
}

func (r RedirectResolver) collection() string {
	if r.Collection == "" {
		return DefaultRedirectCollection
	}
	return r.Collection
}

func (r RedirectResolver) maxHops() int {
	if r.MaxHops <= 0 {
		return services.DefaultMaxRedirectHops
	}
	return r.MaxHops
}

func (r RedirectResolver) now() time.Time {
	if r.Clock == nil {
		return time.Now().UTC()
	}
	return r.Clock.Now().UTC()
}
