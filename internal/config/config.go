// Package config loads stage settings from the environment and lets
// command-line flags override them.
package config

import (
	"flag"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"

	"dwh/internal/sqldb"
)

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

type Kafka struct {
	Host             string        `env:"HOST" envDefault:"localhost"`
	Port             int           `env:"PORT" envDefault:"9092"`
	ConsumerGroup    string        `env:"CONSUMER_GROUP"`
	SourceTopic      string        `env:"SOURCE_TOPIC"`
	DestinationTopic string        `env:"DESTINATION_TOPIC"`
	PollTimeout      time.Duration `env:"POLL_TIMEOUT" envDefault:"1s"`
}

// Bootstrap returns host:port.
func (k Kafka) Bootstrap() string { return net.JoinHostPort(k.Host, strconv.Itoa(k.Port)) }

type Catalog struct {
	Backend string `env:"BACKEND" envDefault:"memory"`
	Dir     string `env:"DIR" envDefault:"data/catalog"`
	Seed    string `env:"SEED"`
}

// Stage configures one pipeline service.
type Stage struct {
	Name      string
	Kafka     Kafka            `envPrefix:"KAFKA_"`
	Warehouse sqldb.DataSource `envPrefix:"PG_WAREHOUSE_"`
	Catalog   Catalog          `envPrefix:"CATALOG_"`

	// InputSource is kafka or file.
	InputSource string `env:"INPUT_SOURCE" envDefault:"kafka"`
	InputFile   string `env:"INPUT_FILE"`
	// OutputSink is kafka, file or both. File output goes to
	// <OutputDir>/<stage>.jsonl.
	OutputSink string `env:"OUTPUT_SINK" envDefault:"kafka"`
	OutputDir  string `env:"OUTPUT_DIR" envDefault:"data/out"`

	ObjectType    string        `env:"OBJECT_TYPE" envDefault:"order"`
	FinalStatus   string        `env:"FINAL_STATUS" envDefault:"CLOSED"`
	LoadSource    string        `env:"LOAD_SRC" envDefault:"orders-system-kafka"`
	BatchSize     int           `env:"BATCH_SIZE" envDefault:"100"`
	BatchInterval time.Duration `env:"BATCH_INTERVAL" envDefault:"25s"`
	HTTPAddr      string        `env:"HTTP_ADDR" envDefault:":2112"`
	Migrate       bool          `env:"MIGRATE" envDefault:"true"`
}

var defaultTopics = map[string][2]string{
	"stg": {"order-service_orders", "stg-service-orders"},
	"dds": {"stg-service-orders", "dds-service-orders"},
	"cdm": {"dds-service-orders", ""},
}

// Parse reads the environment for the named stage and then applies flag
// overrides from args. Flag defaults show the environment values.
func Parse(name string, fs *flag.FlagSet, args []string) (Stage, error) {
	cfg := Stage{Name: name}
	if err := ParseEnv(&cfg); err != nil {
		return Stage{}, err
	}
	topics := defaultTopics[name]
	if cfg.Kafka.SourceTopic == "" {
		cfg.Kafka.SourceTopic = topics[0]
	}
	if cfg.Kafka.DestinationTopic == "" {
		cfg.Kafka.DestinationTopic = topics[1]
	}
	if cfg.Kafka.ConsumerGroup == "" {
		cfg.Kafka.ConsumerGroup = "dwh-" + name
	}

	fs.StringVar(&cfg.Kafka.Host, "kafka-host", cfg.Kafka.Host, "kafka host")
	fs.IntVar(&cfg.Kafka.Port, "kafka-port", cfg.Kafka.Port, "kafka port")
	fs.StringVar(&cfg.Kafka.ConsumerGroup, "group", cfg.Kafka.ConsumerGroup, "consumer group")
	fs.StringVar(&cfg.Kafka.SourceTopic, "source-topic", cfg.Kafka.SourceTopic, "inbound topic")
	fs.StringVar(&cfg.Kafka.DestinationTopic, "destination-topic", cfg.Kafka.DestinationTopic, "outbound topic")
	fs.StringVar(&cfg.Warehouse.Driver, "driver", cfg.Warehouse.Driver, "warehouse driver: pgx, postgres or sqlite")
	fs.StringVar(&cfg.Warehouse.URL, "dsn", cfg.Warehouse.URL, "warehouse DSN, may reference ${user}, ${password} and ${host}")
	fs.StringVar(&cfg.Catalog.Backend, "catalog", cfg.Catalog.Backend, "catalog backend: memory, pebble or badger")
	fs.StringVar(&cfg.Catalog.Dir, "catalog-dir", cfg.Catalog.Dir, "catalog data directory")
	fs.StringVar(&cfg.Catalog.Seed, "catalog-seed", cfg.Catalog.Seed, "catalog JSON snapshot loaded at start")
	fs.StringVar(&cfg.InputSource, "input", cfg.InputSource, "input source: kafka or file")
	fs.StringVar(&cfg.InputFile, "input-file", cfg.InputFile, "JSONL input for -input=file")
	fs.StringVar(&cfg.OutputSink, "output", cfg.OutputSink, "output sink: kafka, file or both")
	fs.StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, "directory for file output")
	fs.StringVar(&cfg.FinalStatus, "final-status", cfg.FinalStatus, "order status that triggers stats")
	fs.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "max messages per batch")
	fs.DurationVar(&cfg.BatchInterval, "interval", cfg.BatchInterval, "batch interval")
	fs.StringVar(&cfg.HTTPAddr, "http", cfg.HTTPAddr, "metrics listen address")
	fs.BoolVar(&cfg.Migrate, "migrate", cfg.Migrate, "apply schema migrations at start")
	if err := fs.Parse(args); err != nil {
		return Stage{}, err
	}
	return cfg, cfg.Validate()
}

// Validate checks the settings a stage cannot start without.
func (c Stage) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	if c.BatchInterval <= 0 {
		return fmt.Errorf("batch interval must be positive, got %s", c.BatchInterval)
	}
	switch c.InputSource {
	case "kafka":
		if c.Kafka.SourceTopic == "" {
			return fmt.Errorf("kafka input needs a source topic")
		}
	case "file":
		if c.InputFile == "" {
			return fmt.Errorf("file input needs -input-file")
		}
	default:
		return fmt.Errorf("unknown input source %q", c.InputSource)
	}
	switch c.OutputSink {
	case "kafka", "file", "both":
	default:
		return fmt.Errorf("unknown output sink %q", c.OutputSink)
	}
	if c.Warehouse.URL == "" {
		return fmt.Errorf("warehouse DSN is required")
	}
	return nil
}
