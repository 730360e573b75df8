package telemetry

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"journeystitch/contexts/journey-analytics/journey-stitching/ports"
)

const tracerName = "journeystitch/journey-stitching"

// Telemetry implements ports.Telemetry on Prometheus and the global
// OpenTelemetry tracer provider. It also counts bus redeliveries and dead
// letters for the messaging layer.
type Telemetry struct {
	registry *prometheus.Registry
	tracer   trace.Tracer

	stitchOutcomes   *prometheus.CounterVec
	stitchDuration   prometheus.Histogram
	claimConflicts   prometheus.Counter
	merges           prometheus.Counter
	journeysMinted   prometheus.Counter
	redeliveries     *prometheus.CounterVec
	deadLettered     *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpRequestTimes *prometheus.HistogramVec
}

func New() *Telemetry {
	t := &Telemetry{
		registry: prometheus.NewRegistry(),
		tracer:   otel.Tracer(tracerName),
		stitchOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "journey_stitch_events_total",
				Help: "Total number of stitched events by outcome",
			},
			[]string{"outcome"},
		),
		stitchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "journey_stitch_duration_seconds",
				Help:    "Duration of the stitching pipeline per event",
				Buckets: prometheus.DefBuckets,
			},
		),
		claimConflicts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "journey_claim_conflicts_total",
				Help: "Total number of correlation key claims that found another owner",
			},
		),
		merges: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "journey_merges_total",
				Help: "Total number of journey merges recorded",
			},
		),
		journeysMinted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "journey_minted_total",
				Help: "Total number of journey ids minted",
			},
		),
		redeliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "journey_bus_redeliveries_total",
				Help: "Total number of message redeliveries by topic",
			},
			[]string{"topic"},
		),
		deadLettered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "journey_bus_dead_lettered_total",
				Help: "Total number of messages dead-lettered by topic",
			},
			[]string{"topic"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestTimes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
	t.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		t.stitchOutcomes,
		t.stitchDuration,
		t.claimConflicts,
		t.merges,
		t.journeysMinted,
		t.redeliveries,
		t.deadLettered,
		t.httpRequests,
		t.httpRequestTimes,
	)
	return t
}

// Handler serves the registry in the Prometheus exposition format.
func (t *Telemetry) Handler() http.Handler {
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{Registry: t.registry})
}

func (t *Telemetry) Registry() *prometheus.Registry { return t.registry }

func (t *Telemetry) StartSpan(ctx context.Context, name string) (context.Context, ports.Span) {
	ctx, span := t.tracer.Start(ctx, name)
	return ctx, otelSpan{span: span}
}

func (t *Telemetry) IncStitchOutcome(outcome string) {
	t.stitchOutcomes.WithLabelValues(outcome).Inc()
}

func (t *Telemetry) IncClaimConflict() { t.claimConflicts.Inc() }
func (t *Telemetry) IncMerge()         { t.merges.Inc() }
func (t *Telemetry) IncJourneyMinted() { t.journeysMinted.Inc() }

func (t *Telemetry) ObserveStitchDuration(d time.Duration) {
	t.stitchDuration.Observe(d.Seconds())
}

func (t *Telemetry) Redelivered(topic string)  { t.redeliveries.WithLabelValues(topic).Inc() }
func (t *Telemetry) DeadLettered(topic string) { t.deadLettered.WithLabelValues(topic).Inc() }

func (t *Telemetry) ObserveHTTPRequest(method string, route string, status int, d time.Duration) {
	t.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	t.httpRequestTimes.WithLabelValues(method, route).Observe(d.Seconds())
}

type otelSpan struct {
	span trace.Span
}

func (s otelSpan) SetAttributes(attrs map[string]string) {
	kvs := make([]attribute.KeyValue, 0, len(attrs))
	for key, value := range attrs {
		kvs = append(kvs, attribute.String(key, value))
	}
	s.span.SetAttributes(kvs...)
}

func (s otelSpan) RecordError(err error) {
	if err == nil {
		return
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

func (s otelSpan) End() { s.span.End() }
