package journeystitching

import (
	"log/slog"

	httpadapter "journeystitch/contexts/journey-analytics/journey-stitching/adapters/http"
	"journeystitch/contexts/journey-analytics/journey-stitching/adapters/memory"
	"journeystitch/contexts/journey-analytics/journey-stitching/application/commands"
	"journeystitch/contexts/journey-analytics/journey-stitching/application/queries"
	"journeystitch/contexts/journey-analytics/journey-stitching/application/stitching"
	"journeystitch/contexts/journey-analytics/journey-stitching/application/workers"
	"journeystitch/contexts/journey-analytics/journey-stitching/ports"
)

// Module is the composition surface for journey stitching.
// Runtime wiring consumes Handler and Consumer; Store and Bus are set only by
// NewInMemoryModule, for tests and inspection.
type Module struct {
	Handler  httpadapter.Handler
	Stitcher commands.StitchEventUseCase
	Consumer workers.RawEventsConsumer
	Store    *memory.Store
	Bus      *memory.Bus
}

type Collections struct {
	CkMap     string
	Redirects string
	Journeys  string
	EventBase string
}

type Dependencies struct {
	Documents       ports.DocumentStore
	Clock           ports.Clock
	IDGenerator     ports.JourneyIDGenerator
	Publisher       ports.EventPublisher
	Subscriber      ports.EventSubscriber
	Telemetry       ports.Telemetry
	Collections     Collections
	RawEventsTopic  string
	DeadLetterTopic string
	ConsumerGroup   string
	SourceService   string
	MaxRedirectHops int
	Logger          *slog.Logger
}

// NewModule wires the stitching components and use cases against explicit ports.
func NewModule(deps Dependencies) Module {
	claims := stitching.ClaimStore{
		Store:      deps.Documents,
		Clock:      deps.Clock,
		Collection: deps.Collections.CkMap,
		Logger:     deps.Logger,
	}
	redirects := stitching.RedirectResolver{
		Store:      deps.Documents,
		Clock:      deps.Clock,
		Collection: deps.Collections.Redirects,
		MaxHops:    deps.MaxRedirectHops,
		Logger:     deps.Logger,
	}
	journeys := stitching.JourneyAggregator{
		Store:      deps.Documents,
		Collection: deps.Collections.Journeys,
		Logger:     deps.Logger,
	}
	archive := stitching.EventArchive{Store: deps.Documents}

	stitch := commands.StitchEventUseCase{
		Claims:              claims,
		Redirects:           redirects,
		Journeys:            journeys,
		Archive:             archive,
		IDGenerator:         deps.IDGenerator,
		Clock:               deps.Clock,
		Telemetry:           deps.Telemetry,
		EventCollectionBase: deps.Collections.EventBase,
		Logger:              deps.Logger,
	}
	publish := commands.PublishEventUseCase{
		Publisher:     deps.Publisher,
		Clock:         deps.Clock,
		Topic:         deps.RawEventsTopic,
		SourceService: deps.SourceService,
		Logger:        deps.Logger,
	}

	handler := httpadapter.Handler{
		PublishEvent: publish,
		StitchEvent:  stitch,
		GetJourney: queries.GetJourneyUseCase{
			Redirects: redirects,
			Journeys:  journeys,
			Logger:    deps.Logger,
		},
		LookupKey: queries.LookupCorrelationKeyUseCase{
			Claims:    claims,
			Redirects: redirects,
			Logger:    deps.Logger,
		},
		GetArchivedEvent: queries.GetArchivedEventUseCase{
			Archive:             archive,
			EventCollectionBase: deps.Collections.EventBase,
		},
		Logger: deps.Logger,
	}

	consumer := workers.RawEventsConsumer{
		Subscriber:      deps.Subscriber,
		DeadLetters:     deps.Publisher,
		Stitcher:        stitch,
		Clock:           deps.Clock,
		Topic:           deps.RawEventsTopic,
		DeadLetterTopic: deps.DeadLetterTopic,
		ConsumerGroup:   deps.ConsumerGroup,
		Telemetry:       deps.Telemetry,
		Logger:          deps.Logger,
	}

	return Module{Handler: handler, Stitcher: stitch, Consumer: consumer}
}

// NewInMemoryModule wires the module against the in-memory store and bus.
func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore(logger)
	bus := memory.NewBus(logger)
	module := NewModule(Dependencies{
		Documents:   store,
		Clock:       store,
		IDGenerator: store,
		Publisher:   bus,
		Subscriber:  bus,
		Logger:      logger,
	})
	module.Store = store
	module.Bus = bus
	return module
}
