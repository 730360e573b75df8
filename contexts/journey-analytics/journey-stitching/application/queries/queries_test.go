package queries_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"journeystitch/contexts/journey-analytics/journey-stitching/adapters/memory"
	"journeystitch/contexts/journey-analytics/journey-stitching/application/queries"
	"journeystitch/contexts/journey-analytics/journey-stitching/application/stitching"
	"journeystitch/contexts/journey-analytics/journey-stitching/domain/entities"
	domainerrors "journeystitch/contexts/journey-analytics/journey-stitching/domain/errors"
)

type fixedClock struct{}

func (fixedClock) Now() time.Time { return time.Date(2025, 4, 9, 8, 0, 0, 0, time.UTC) }

type fixture struct {
	claims    stitching.ClaimStore
	redirects stitching.RedirectResolver
	journeys  stitching.JourneyAggregator
	archive   stitching.EventArchive
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := memory.NewStore(nil)
	f := fixture{
		claims:    stitching.ClaimStore{Store: store, Clock: fixedClock{}},
		redirects: stitching.RedirectResolver{Store: store, Clock: fixedClock{}},
		journeys:  stitching.JourneyAggregator{Store: store},
		archive:   stitching.EventArchive{Store: store},
	}

	ctx := context.Background()
	event := entities.Event{
		EventID:         "E1",
		Activity:        "Start",
		CorrelationKeys: []string{"CK1"},
		Timestamp:       time.Date(2025, 4, 8, 23, 0, 0, 0, time.UTC),
		Payload:         []byte(`{"eventId":"E1"}`),
	}
	if _, err := f.claims.Claim(ctx, "CK1", "J-B"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := f.redirects.RecordMerge(ctx, "J-A", "J-B"); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if _, err := f.journeys.Fold(ctx, "J-A", event); err != nil {
		t.Fatalf("fold: %v", err)
	}
	archived := entities.NewArchivedEvent(event, "J-A", "events-2025.04.09", fixedClock{}.Now())
	if err := f.archive.Archive(ctx, archived); err != nil {
		t.Fatalf("archive: %v", err)
	}
	return f
}

func TestGetJourneyFollowsRedirects(t *testing.T) {
	f := newFixture(t)
	useCase := queries.GetJourneyUseCase{Redirects: f.redirects, Journeys: f.journeys}

	result, err := useCase.Execute(context.Background(), "J-B")
	if err != nil {
		t.Fatalf("get journey: %v", err)
	}
	if result.RequestedJourneyID != "J-B" || result.Journey.JourneyID != "J-A" {
		t.Fatalf("expected J-B to resolve to J-A, got %+v", result)
	}

	if _, err := useCase.Execute(context.Background(), "J-Z"); !errors.Is(err, domainerrors.ErrJourneyNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := useCase.Execute(context.Background(), "  "); !errors.Is(err, domainerrors.ErrInvalidQuery) {
		t.Fatalf("expected invalid query, got %v", err)
	}
}

func TestLookupCorrelationKeyReportsCanonicalJourney(t *testing.T) {
	f := newFixture(t)
	useCase := queries.LookupCorrelationKeyUseCase{Claims: f.claims, Redirects: f.redirects}

	result, err := useCase.Execute(context.Background(), "CK1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if result.Mapping.JourneyID != "J-B" || result.CanonicalJourneyID != "J-A" {
		t.Fatalf("stale claim must be reported alongside its canonical journey, got %+v", result)
	}

	if _, err := useCase.Execute(context.Background(), "CK-unknown"); !errors.Is(err, domainerrors.ErrCorrelationKeyNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLookupCorrelationKeyLogsResolveFailure(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(nil)
	claims := stitching.ClaimStore{Store: store, Clock: fixedClock{}}
	if _, err := claims.Claim(ctx, "CK-loop", "J-X"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	_ = store.Put(ctx, stitching.DefaultRedirectCollection, "J-X", []byte(`{"from":"J-X","to":"J-Y"}`))
	_ = store.Put(ctx, stitching.DefaultRedirectCollection, "J-Y", []byte(`{"from":"J-Y","to":"J-X"}`))

	var logs bytes.Buffer
	useCase := queries.LookupCorrelationKeyUseCase{
		Claims:    claims,
		Redirects: stitching.RedirectResolver{Store: store, Clock: fixedClock{}},
		Logger:    slog.New(slog.NewJSONHandler(&logs, nil)),
	}
	if _, err := useCase.Execute(ctx, "CK-loop"); !errors.Is(err, domainerrors.ErrRedirectCycle) {
		t.Fatalf("expected cycle error, got %v", err)
	}
	out := logs.String()
	if !strings.Contains(out, `"event":"journey_lookup_key_resolve_failed"`) || !strings.Contains(out, `"ck":"CK-loop"`) {
		t.Fatalf("expected resolve failure log, got %s", out)
	}
}

func TestGetArchivedEventByProcessingDay(t *testing.T) {
	f := newFixture(t)
	useCase := queries.GetArchivedEventUseCase{Archive: f.archive}

	for _, day := range []string{"2025.04.09", "2025-04-09"} {
		event, err := useCase.Execute(context.Background(), day, "E1")
		if err != nil {
			t.Fatalf("get archived event for %s: %v", day, err)
		}
		if event.JourneyID != "J-A" || event.Partition != "events-2025.04.09" {
			t.Fatalf("unexpected archived event %+v", event)
		}
	}

	if _, err := useCase.Execute(context.Background(), "2025.04.08", "E1"); !errors.Is(err, domainerrors.ErrEventNotFound) {
		t.Fatalf("event time must not select the partition, got %v", err)
	}
	if _, err := useCase.Execute(context.Background(), "yesterday", "E1"); !errors.Is(err, domainerrors.ErrInvalidQuery) {
		t.Fatalf("expected invalid day, got %v", err)
	}
}

func TestGetJourneyStoredSkipsRedirects(t *testing.T) {
	f := newFixture(t)
	useCase := queries.GetJourneyUseCase{Redirects: f.redirects, Journeys: f.journeys}

	if _, err := useCase.ExecuteStored(context.Background(), "J-B"); !errors.Is(err, domainerrors.ErrJourneyNotFound) {
		t.Fatalf("J-B never had its own projection, got %v", err)
	}
	result, err := useCase.ExecuteStored(context.Background(), "J-A")
	if err != nil || result.Journey.JourneyID != "J-A" {
		t.Fatalf("expected stored J-A, got %+v err=%v", result, err)
	}
}
