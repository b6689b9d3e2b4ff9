// Package service wires one pipeline stage: warehouse, catalog, input
// source, output publisher, metrics endpoint and the batch schedule.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"dwh/internal/catalog"
	"dwh/internal/config"
	"dwh/internal/job"
	"dwh/internal/metrics"
	"dwh/internal/queue"
	"dwh/internal/sqldb"
)

type Service struct {
	cfg     config.Stage
	DB      *sqldb.DB
	Metrics *metrics.Registry

	source  queue.Source
	kafka   *queue.KafkaSource
	closers []io.Closer
}

// Open connects the warehouse, applies migrations when enabled and opens
// the input source.
func Open(ctx context.Context, cfg config.Stage) (*Service, error) {
	db, err := sqldb.Open(ctx, cfg.Warehouse)
	if err != nil {
		return nil, fmt.Errorf("open warehouse: %w", err)
	}
	s := &Service{cfg: cfg, DB: db, Metrics: metrics.NewRegistry(cfg.Name)}
	s.closers = append(s.closers, db)
	if cfg.Migrate {
		applied, err := sqldb.Migrate(ctx, db)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		log.Printf("migrations applied stage=%s count=%d", cfg.Name, len(applied))
	}
	if err := s.openSource(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Service) openSource() error {
	switch s.cfg.InputSource {
	case "file":
		fs, err := queue.NewFileSource(s.cfg.InputFile)
		if err != nil {
			return fmt.Errorf("open input file: %w", err)
		}
		s.source = fs
	default:
		ks, err := queue.NewKafkaSource(s.cfg.Kafka.Bootstrap(), s.cfg.Kafka.ConsumerGroup, s.cfg.Kafka.SourceTopic, s.cfg.Kafka.PollTimeout)
		if err != nil {
			return err
		}
		s.source, s.kafka = ks, ks
	}
	s.closers = append(s.closers, s.source)
	return nil
}

func (s *Service) Source() queue.Source { return s.source }

// Catalog opens the reference catalog configured for the stage.
func (s *Service) Catalog() (*catalog.Enricher, error) {
	st, closer, err := catalog.Open(s.cfg.Catalog.Backend, s.cfg.Catalog.Dir, s.cfg.Catalog.Seed)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	s.closers = append(s.closers, closer)
	return catalog.NewEnricher(st), nil
}

// Publisher returns the output sink: the destination topic, a JSONL file
// or both.
func (s *Service) Publisher() (queue.Publisher, error) {
	var pubs []queue.Publisher
	if s.cfg.OutputSink == "file" || s.cfg.OutputSink == "both" {
		fp, err := queue.NewFilePublisher(s.cfg.OutputDir, s.cfg.Name+".jsonl")
		if err != nil {
			return nil, fmt.Errorf("init file output: %w", err)
		}
		pubs = append(pubs, fp)
	}
	if s.cfg.OutputSink == "kafka" || s.cfg.OutputSink == "both" {
		if s.cfg.Kafka.DestinationTopic == "" {
			return nil, errors.New("kafka output needs a destination topic")
		}
		kp := queue.NewKafkaPublisher(s.cfg.Kafka.Bootstrap(), s.cfg.Kafka.DestinationTopic)
		s.closers = append(s.closers, kp)
		pubs = append(pubs, kp)
	}
	if len(pubs) == 1 {
		return pubs[0], nil
	}
	return queue.NewMultiPublisher(pubs...), nil
}

// HTTPHandler serves /metrics and /healthz. Health fails while the warehouse
// is unreachable.
func (s *Service) HTTPHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.Metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		status := map[string]any{"status": "ok", "stage": s.cfg.Name}
		if err := s.DB.PingContext(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			status["status"] = "unavailable"
			status["error"] = err.Error()
		}
		_ = json.NewEncoder(w).Encode(status)
	})
	return mux
}

// Run serves HTTP and runs the batch schedule until ctx is done.
func (s *Service) Run(ctx context.Context, h job.Handler) error {
	srv := &http.Server{Addr: s.cfg.HTTPAddr, Handler: s.HTTPHandler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server stage=%s err=%v", s.cfg.Name, err)
		}
	}()

	log.Printf("starting stage=%s input=%s batch=%d interval=%s", s.cfg.Name, s.cfg.InputSource, s.cfg.BatchSize, s.cfg.BatchInterval)
	s.Runner(h).Schedule(ctx, s.cfg.BatchInterval, s.cfg.BatchSize)

	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdown)
}

// Runner returns the batch runner for h over the stage source.
func (s *Service) Runner(h job.Handler) *job.Runner {
	r := job.NewRunner(s.cfg.Name, s.source, h, s.Metrics)
	if s.kafka != nil {
		r.AfterBatch(s.reportLag)
	}
	return r
}

func (s *Service) reportLag(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	for partition, pos := range s.kafka.Positions() {
		head, err := queue.HeadOffset(ctx, s.cfg.Kafka.Bootstrap(), s.cfg.Kafka.SourceTopic, int(partition))
		if err != nil {
			log.Printf("lag stage=%s partition=%d err=%v", s.cfg.Name, partition, err)
			continue
		}
		s.Metrics.SourceLag.WithLabelValues(strconv.Itoa(int(partition))).Set(float64(queue.Lag(head, pos)))
	}
}

// Close releases everything opened, last first.
func (s *Service) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
