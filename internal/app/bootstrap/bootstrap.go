package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	journeystitching "journeystitch/contexts/journey-analytics/journey-stitching"
	"journeystitch/contexts/journey-analytics/journey-stitching/adapters/memory"
	postgresadapter "journeystitch/contexts/journey-analytics/journey-stitching/adapters/postgres"
	sqliteadapter "journeystitch/contexts/journey-analytics/journey-stitching/adapters/sqlite"
	"journeystitch/contexts/journey-analytics/journey-stitching/application/stitching"
	"journeystitch/contexts/journey-analytics/journey-stitching/ports"
	"journeystitch/internal/platform/config"
	"journeystitch/internal/platform/db"
	"journeystitch/internal/platform/httpserver"
	"journeystitch/internal/platform/logging"
	"journeystitch/internal/platform/messaging"
	platformotel "journeystitch/internal/platform/otel"
	"journeystitch/internal/platform/telemetry"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

const deadLetterAuditGroup = "journey-dead-letter-audit"

type APIApp struct {
	runtime          *runtime
	server           *httpserver.Server
	embeddedConsumer bool
}

type WorkerApp struct {
	runtime *runtime
	ops     *httpserver.Server
}

// runtime holds everything both processes share.
type runtime struct {
	cfg       config.Config
	logger    *slog.Logger
	telemetry *telemetry.Telemetry
	bus       *messaging.Kafka
	module    journeystitching.Module
	closers   []func(context.Context) error
}

func BuildAPI(ctx context.Context) (*APIApp, error) {
	rt, err := buildRuntime(ctx, "api")
	if err != nil {
		return nil, err
	}
	server := httpserver.New(rt.module, rt.telemetry, rt.logger, normalizeAddr(rt.cfg.HTTPPort))
	return &APIApp{
		runtime:          rt,
		server:           server,
		embeddedConsumer: rt.cfg.EmbeddedConsumer,
	}, nil
}

func BuildWorker(ctx context.Context) (*WorkerApp, error) {
	rt, err := buildRuntime(ctx, "worker")
	if err != nil {
		return nil, err
	}
	return &WorkerApp{
		runtime: rt,
		ops:     httpserver.NewOps(rt.telemetry, rt.logger, normalizeAddr(rt.cfg.HTTPPort)),
	}, nil
}

func buildRuntime(ctx context.Context, process string) (_ *runtime, err error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat, cfg.ServiceName).With("process", process)
	slog.SetDefault(logger)

	rt := &runtime{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = rt.close(context.Background())
		}
	}()

	shutdownTracing, err := platformotel.Setup(ctx, platformotel.Options{
		ServiceName: cfg.ServiceName,
		Process:     process,
		Endpoint:    cfg.OTelEndpoint,
		Enabled:     cfg.OTelEnabled,
		SampleRatio: cfg.OTelSampleRatio,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("setup tracing: %w", err)
	}
	rt.closers = append(rt.closers, shutdownTracing)
	rt.telemetry = telemetry.New()

	rt.bus, err = messaging.NewKafka(cfg.KafkaBrokers, messaging.Options{
		Partitions:        cfg.ConsumerPartitions,
		MaxDeliveries:     cfg.MaxDeliveries,
		RedeliveryBackoff: cfg.RedeliveryBackoff,
		DeadLetterTopics:  map[string]string{cfg.RawEventsTopic: cfg.DeadLetterTopic},
		Observer:          rt.telemetry,
	}, logger)
	if err != nil {
		return nil, err
	}

	documents, err := rt.openDocumentStore(ctx)
	if err != nil {
		return nil, err
	}
	idGenerator, err := journeyIDGenerator(cfg.JourneyIDStrategy)
	if err != nil {
		return nil, err
	}

	rt.module = journeystitching.NewModule(journeystitching.Dependencies{
		Documents:   documents,
		Clock:       postgresadapter.SystemClock{},
		IDGenerator: idGenerator,
		Publisher:   rt.bus,
		Subscriber:  rt.bus,
		Telemetry:   rt.telemetry,
		Collections: journeystitching.Collections{
			CkMap:     cfg.CkMapCollection,
			Redirects: cfg.RedirectCollection,
			Journeys:  cfg.JourneyCollection,
			EventBase: cfg.EventCollectionBase,
		},
		RawEventsTopic:  cfg.RawEventsTopic,
		DeadLetterTopic: cfg.DeadLetterTopic,
		ConsumerGroup:   cfg.ConsumerGroup,
		SourceService:   cfg.ServiceName,
		MaxRedirectHops: cfg.MaxRedirectHops,
		Logger:          logger,
	})

	logger.Info("runtime built",
		"event", "bootstrap_runtime_built",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"store_driver", cfg.StoreDriver,
		"journey_id_strategy", cfg.JourneyIDStrategy,
		"tracing", cfg.TracingEnabled(),
	)
	return rt, nil
}

func (rt *runtime) openDocumentStore(ctx context.Context) (ports.DocumentStore, error) {
	switch rt.cfg.StoreDriver {
	case config.StoreDriverPostgres:
		pg, err := db.Connect(ctx, rt.cfg.PostgresDSN, db.PoolOptions{
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		})
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, func(context.Context) error { return pg.Close() })

		repo := postgresadapter.NewRepository(pg.DB, rt.logger)
		if err := repo.AutoMigrate(ctx); err != nil {
			return nil, err
		}
		return repo, nil
	case config.StoreDriverSQLite:
		store, err := sqliteadapter.Open(ctx, rt.cfg.SQLitePath, rt.logger)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, func(context.Context) error { return store.Close() })
		return store, nil
	case config.StoreDriverMemory:
		return memory.NewStore(rt.logger), nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", rt.cfg.StoreDriver)
	}
}

func journeyIDGenerator(strategy string) (ports.JourneyIDGenerator, error) {
	switch strategy {
	case config.JourneyIDStrategyUUID:
		return postgresadapter.UUIDGenerator{}, nil
	case config.JourneyIDStrategyHash:
		return stitching.DeterministicJourneyIDs{}, nil
	default:
		return nil, fmt.Errorf("unsupported journey id strategy %q", strategy)
	}
}

// startConsumers subscribes the stitching consumer and a dead-letter audit
// logger on the bus.
func (rt *runtime) startConsumers(ctx context.Context) error {
	if err := rt.module.Consumer.Start(ctx); err != nil {
		return err
	}
	return rt.bus.Subscribe(ctx, rt.cfg.DeadLetterTopic, deadLetterAuditGroup, func(_ context.Context, event ports.EventEnvelope) error {
		rt.logger.Warn("dead letter received",
			"event", "bootstrap_dead_letter_received",
			"module", "internal/app/bootstrap",
			"layer", "platform",
			"topic", rt.cfg.DeadLetterTopic,
			"event_id", event.EventID,
			"event_type", event.EventType,
			"partition_key", event.PartitionKey,
		)
		return nil
	})
}

func (rt *runtime) close(ctx context.Context) error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

func (a *APIApp) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	if a.embeddedConsumer {
		if err := a.runtime.startConsumers(gctx); err != nil {
			return err
		}
		g.Go(a.runtime.bus.Wait)
	}
	g.Go(func() error { return a.server.Run(gctx) })

	a.runtime.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"embedded_consumer", a.embeddedConsumer,
	)
	return g.Wait()
}

func (a *APIApp) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return a.runtime.close(ctx)
}

func (w *WorkerApp) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	if err := w.runtime.startConsumers(gctx); err != nil {
		return err
	}
	g.Go(w.runtime.bus.Wait)
	g.Go(func() error { return w.ops.Run(gctx) })

	w.runtime.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"topic", w.runtime.cfg.RawEventsTopic,
		"consumer_group", w.runtime.cfg.ConsumerGroup,
		"partitions", w.runtime.cfg.ConsumerPartitions,
	)
	return g.Wait()
}

func (w *WorkerApp) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return w.runtime.close(ctx)
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
