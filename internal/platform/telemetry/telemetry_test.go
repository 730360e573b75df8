package telemetry

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestTelemetryCountsPipelineSignals(t *testing.T) {
	tel := New()
	tel.IncStitchOutcome("stitched")
	tel.IncStitchOutcome("stitched")
	tel.IncStitchOutcome("invalid")
	tel.IncClaimConflict()
	tel.IncMerge()
	tel.IncJourneyMinted()
	tel.Redelivered("events.raw")
	tel.DeadLettered("events.raw")
	tel.ObserveStitchDuration(15 * time.Millisecond)

	if got := testutil.ToFloat64(tel.stitchOutcomes.WithLabelValues("stitched")); got != 2 {
		t.Fatalf("expected 2 stitched, got %v", got)
	}
	if got := testutil.ToFloat64(tel.claimConflicts); got != 1 {
		t.Fatalf("expected 1 conflict, got %v", got)
	}
	if got := testutil.ToFloat64(tel.deadLettered.WithLabelValues("events.raw")); got != 1 {
		t.Fatalf("expected 1 dead letter, got %v", got)
	}
}

func TestTelemetryServesMetrics(t *testing.T) {
	tel := New()
	tel.IncMerge()
	tel.ObserveHTTPRequest(http.MethodGet, "/v1/journeys/{journey_id}", http.StatusOK, time.Millisecond)

	server := httptest.NewServer(tel.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{"journey_merges_total 1", "http_requests_total", "go_goroutines"} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("expected %q in scrape output", want)
		}
	}
}

func TestTelemetrySpansWithoutProvider(t *testing.T) {
	tel := New()
	ctx, span := tel.StartSpan(context.Background(), "journey.stitch_event")
	if ctx == nil {
		t.Fatalf("expected context")
	}
	span.SetAttributes(map[string]string{"event.id": "E1"})
	span.RecordError(errors.New("boom"))
	span.RecordError(nil)
	span.End()
}
