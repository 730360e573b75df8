package otel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Options selects how a process exports pipeline spans.
type Options struct {
	ServiceName string
	// Process distinguishes the api and worker processes of one service.
	Process  string
	Endpoint string
	Enabled  bool
	// SampleRatio applies to root spans; children follow their parent.
	// Zero samples every trace.
	SampleRatio float64
}

// Shutdown flushes buffered spans and stops the exporter.
type Shutdown func(context.Context) error

func noopShutdown(context.Context) error { return nil }

func (o Options) active() bool {
	return o.Enabled && strings.TrimSpace(o.Endpoint) != ""
}

func (o Options) sampler() sdktrace.Sampler {
	if o.SampleRatio <= 0 || o.SampleRatio >= 1 {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(o.SampleRatio))
}

// Setup installs the global tracer provider used by platform telemetry.
// Without an endpoint, or when disabled, nothing is registered and the
// global no-op provider stays in place.
func Setup(ctx context.Context, opts Options, logger *slog.Logger) (Shutdown, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !opts.active() {
		logger.Info("tracing disabled",
			"event", "otel_tracing_disabled",
			"module", "internal/platform/otel",
			"layer", "platform",
			"enabled", opts.Enabled,
		)
		return noopShutdown, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(strings.TrimSpace(opts.Endpoint)))
	if err != nil {
		return noopShutdown, fmt.Errorf("create otlp exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			semconv.ServiceName(opts.ServiceName),
			attribute.String("journeystitch.process", opts.Process),
		),
	)
	if err != nil {
		_ = exporter.Shutdown(ctx)
		return noopShutdown, fmt.Errorf("build trace resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(opts.sampler()),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("tracing enabled",
		"event", "otel_tracing_enabled",
		"module", "internal/platform/otel",
		"layer", "platform",
		"endpoint", opts.Endpoint,
		"process", opts.Process,
		"sample_ratio", opts.SampleRatio,
	)
	return func(ctx context.Context) error {
		return errors.Join(provider.ForceFlush(ctx), provider.Shutdown(ctx))
	}, nil
}
