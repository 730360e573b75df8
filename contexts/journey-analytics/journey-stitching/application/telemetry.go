package application

import (
	"context"
	"time"

	"journeystitch/contexts/journey-analytics/journey-stitching/ports"
)

// ResolveTelemetry falls back to a sink that records nothing.
func ResolveTelemetry(telemetry ports.Telemetry) ports.Telemetry {
	if telemetry != nil {
		return telemetry
	}
	return NopTelemetry{}
}

type NopTelemetry struct{}

type nopSpan struct{}

func (NopTelemetry) StartSpan(ctx context.Context, _ string) (context.Context, ports.Span) {
	return ctx, nopSpan{}
}
func (NopTelemetry) IncStitchOutcome(string)             {}
func (NopTelemetry) IncClaimConflict()                   {}
func (NopTelemetry) IncMerge()                           {}
func (NopTelemetry) IncJourneyMinted()                   {}
func (NopTelemetry) ObserveStitchDuration(time.Duration) {}
func (NopTelemetry) DeadLettered(string)                 {}

func (nopSpan) SetAttributes(map[string]string) {}
func (nopSpan) RecordError(error)               {}
func (nopSpan) End()                            {}
