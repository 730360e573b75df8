package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if cfg.StoreDriver != StoreDriverMemory || cfg.JourneyIDStrategy != JourneyIDStrategyUUID {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.CkMapCollection != "ckmap" || cfg.JourneyCollection != "journeys-v1" || cfg.EventCollectionBase != "events" {
		t.Fatalf("unexpected collection defaults %+v", cfg)
	}
	if cfg.MaxRedirectHops != 64 || cfg.RedeliveryBackoff != 200*time.Millisecond {
		t.Fatalf("unexpected limits %+v", cfg)
	}
	if cfg.TracingEnabled() {
		t.Fatalf("tracing must stay off without an endpoint")
	}
	if !cfg.EmbeddedConsumer {
		t.Fatalf("api must consume its own raw topic by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", " SQLite ")
	t.Setenv("SQLITE_PATH", "/tmp/journeys.db")
	t.Setenv("KAFKA_BROKERS", "a:9092, ,b:9092")
	t.Setenv("JOURNEY_ID_STRATEGY", "hash")
	t.Setenv("MAX_DELIVERIES", "9")
	t.Setenv("OTEL_ENDPOINT", "http://collector:4318")
	t.Setenv("OTEL_SAMPLE_RATIO", "0.25")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StoreDriver != StoreDriverSQLite || cfg.SQLitePath != "/tmp/journeys.db" {
		t.Fatalf("unexpected store settings %+v", cfg)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "b:9092" {
		t.Fatalf("unexpected brokers %v", cfg.KafkaBrokers)
	}
	if cfg.JourneyIDStrategy != JourneyIDStrategyHash || cfg.MaxDeliveries != 9 {
		t.Fatalf("unexpected overrides %+v", cfg)
	}
	if !cfg.TracingEnabled() || cfg.OTelSampleRatio != 0.25 {
		t.Fatalf("tracing should be enabled with an endpoint, got %+v", cfg)
	}
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("JOURNEY_ID_STRATEGY", "sequential")
	t.Setenv("CONSUMER_PARTITIONS", "0")
	t.Setenv("OTEL_SAMPLE_RATIO", "1.5")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"POSTGRES_DSN", "JOURNEY_ID_STRATEGY", "CONSUMER_PARTITIONS", "OTEL_SAMPLE_RATIO"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %s in %q", want, err.Error())
		}
	}
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	t.Setenv("REDELIVERY_BACKOFF", "soon")
	if _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}
}
