package config

import (
	"flag"
	"strings"
	"testing"
	"time"
)

type envTestConfig struct {
	Port int `env:"DWH_TEST_PORT" envDefault:"123"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Port != 123 {
		t.Fatalf("expected default port 123, got %d", cfg.Port)
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("DWH_TEST_PORT", "not-an-int")
	err := ParseEnv(&cfg)
	if err == nil || !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env error, got %v", err)
	}
}

func TestParse_EnvThenFlags(t *testing.T) {
	t.Setenv("PG_WAREHOUSE_URL", "postgres://${user}@${host}/de")
	t.Setenv("PG_WAREHOUSE_USER", "etl")
	t.Setenv("PG_WAREHOUSE_HOST", "db")
	t.Setenv("KAFKA_HOST", "broker")
	t.Setenv("BATCH_SIZE", "50")

	cfg, err := Parse("dds", flag.NewFlagSet("dds", flag.ContinueOnError), []string{"-batch-size", "7", "-interval", "2s"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.BatchSize != 7 || cfg.BatchInterval != 2*time.Second {
		t.Fatalf("flags not applied: %+v", cfg)
	}
	if got := cfg.Kafka.Bootstrap(); got != "broker:9092" {
		t.Fatalf("bootstrap = %q", got)
	}
	if cfg.Kafka.SourceTopic != "stg-service-orders" || cfg.Kafka.DestinationTopic != "dds-service-orders" {
		t.Fatalf("unexpected topics: %+v", cfg.Kafka)
	}
	if cfg.Kafka.ConsumerGroup != "dwh-dds" {
		t.Fatalf("group = %q", cfg.Kafka.ConsumerGroup)
	}
	dsn, err := cfg.Warehouse.DSN()
	if err != nil || dsn != "postgres://etl@db/de" {
		t.Fatalf("dsn = %q, %v", dsn, err)
	}
	if cfg.FinalStatus != "CLOSED" || cfg.Warehouse.Driver != "pgx" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	base := Stage{BatchSize: 1, BatchInterval: time.Second, InputSource: "kafka", OutputSink: "kafka", Kafka: Kafka{SourceTopic: "t"}}
	base.Warehouse.URL = "file:x.db"
	if err := base.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	bad := base
	bad.InputSource = "file"
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for file input without path")
	}
	bad = base
	bad.OutputSink = "stdout"
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for unknown output sink")
	}
	bad = base
	bad.BatchSize = 0
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for zero batch size")
	}
	bad = base
	bad.Warehouse.URL = ""
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for missing DSN")
	}
}
