package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	StoreDriverMemory   = "memory"
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"

	JourneyIDStrategyUUID = "uuid"
	JourneyIDStrategyHash = "hash"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"journey-stitch"`
	HTTPPort    string `env:"HTTP_PORT"    envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL"    envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT"   envDefault:"json"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"memory"`
	PostgresDSN string `env:"POSTGRES_DSN"`
	SQLitePath  string `env:"SQLITE_PATH"  envDefault:"journeys.db"`

	KafkaBrokers       []string      `env:"KAFKA_BROKERS"        envDefault:"localhost:9092" envSeparator:","`
	RawEventsTopic     string        `env:"RAW_EVENTS_TOPIC"     envDefault:"events.raw"`
	DeadLetterTopic    string        `env:"DEAD_LETTER_TOPIC"    envDefault:"events.raw.dlq"`
	ConsumerGroup      string        `env:"CONSUMER_GROUP"       envDefault:"journey-consumer-group"`
	ConsumerPartitions int           `env:"CONSUMER_PARTITIONS"  envDefault:"4"`
	MaxDeliveries      int           `env:"MAX_DELIVERIES"       envDefault:"5"`
	RedeliveryBackoff  time.Duration `env:"REDELIVERY_BACKOFF"   envDefault:"200ms"`
	EmbeddedConsumer   bool          `env:"EMBEDDED_CONSUMER"    envDefault:"true"`

	CkMapCollection     string `env:"CKMAP_COLLECTION"      envDefault:"ckmap"`
	RedirectCollection  string `env:"REDIRECT_COLLECTION"   envDefault:"redirects"`
	JourneyCollection   string `env:"JOURNEY_COLLECTION"    envDefault:"journeys-v1"`
	EventCollectionBase string `env:"EVENT_COLLECTION_BASE" envDefault:"events"`

	JourneyIDStrategy string `env:"JOURNEY_ID_STRATEGY" envDefault:"uuid"`
	MaxRedirectHops   int    `env:"MAX_REDIRECT_HOPS"   envDefault:"64"`

	OTelEndpoint    string  `env:"OTEL_ENDPOINT"`
	OTelEnabled     bool    `env:"OTEL_ENABLED"      envDefault:"true"`
	OTelSampleRatio float64 `env:"OTEL_SAMPLE_RATIO" envDefault:"1"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	c.JourneyIDStrategy = strings.ToLower(strings.TrimSpace(c.JourneyIDStrategy))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))

	brokers := make([]string, 0, len(c.KafkaBrokers))
	for _, value := range c.KafkaBrokers {
		value = strings.TrimSpace(value)
		if value != "" {
			brokers = append(brokers, value)
		}
	}
	c.KafkaBrokers = brokers
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	switch c.StoreDriver {
	case StoreDriverMemory, StoreDriverSQLite:
	case StoreDriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			errs = append(errs, errors.New("POSTGRES_DSN is required when STORE_DRIVER=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver))
	}
	if c.StoreDriver == StoreDriverSQLite && strings.TrimSpace(c.SQLitePath) == "" {
		errs = append(errs, errors.New("SQLITE_PATH is required when STORE_DRIVER=sqlite"))
	}

	switch c.JourneyIDStrategy {
	case JourneyIDStrategyUUID, JourneyIDStrategyHash:
	default:
		errs = append(errs, fmt.Errorf("unsupported JOURNEY_ID_STRATEGY %q", c.JourneyIDStrategy))
	}

	if c.ConsumerPartitions < 1 {
		errs = append(errs, errors.New("CONSUMER_PARTITIONS must be positive"))
	}
	if c.MaxDeliveries < 1 {
		errs = append(errs, errors.New("MAX_DELIVERIES must be positive"))
	}
	if c.RedeliveryBackoff < 0 {
		errs = append(errs, errors.New("REDELIVERY_BACKOFF must not be negative"))
	}
	if c.MaxRedirectHops < 1 {
		errs = append(errs, errors.New("MAX_REDIRECT_HOPS must be positive"))
	}
	if c.OTelSampleRatio <= 0 || c.OTelSampleRatio > 1 {
		errs = append(errs, errors.New("OTEL_SAMPLE_RATIO must be in (0, 1]"))
	}
	for name, value := range map[string]string{
		"RAW_EVENTS_TOPIC":      c.RawEventsTopic,
		"DEAD_LETTER_TOPIC":     c.DeadLetterTopic,
		"CONSUMER_GROUP":        c.ConsumerGroup,
		"CKMAP_COLLECTION":      c.CkMapCollection,
		"REDIRECT_COLLECTION":   c.RedirectCollection,
		"JOURNEY_COLLECTION":    c.JourneyCollection,
		"EVENT_COLLECTION_BASE": c.EventCollectionBase,
	} {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, fmt.Errorf("%s must not be empty", name))
		}
	}
	if c.RawEventsTopic != "" && c.RawEventsTopic == c.DeadLetterTopic {
		errs = append(errs, errors.New("DEAD_LETTER_TOPIC must differ from RAW_EVENTS_TOPIC"))
	}
	return errors.Join(errs...)
}

// TracingEnabled reports whether an OTLP exporter should be installed.
func (c Config) TracingEnabled() bool {
	return c.OTelEnabled && strings.TrimSpace(c.OTelEndpoint) != ""
}
