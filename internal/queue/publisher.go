package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Publisher emits JSON-encoded messages keyed by key.
type Publisher interface {
	Publish(ctx context.Context, key string, v any) error
}

// Record is the line format written by FilePublisher.
type Record struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
	TS    int64           `json:"ts"`
}

// MultiPublisher fans out messages to multiple publishers.
type MultiPublisher struct {
	pubs []Publisher
}

func NewMultiPublisher(ps ...Publisher) *MultiPublisher {
	return &MultiPublisher{pubs: ps}
}

func (m *MultiPublisher) Publish(ctx context.Context, key string, v any) error {
	for _, p := range m.pubs {
		if err := p.Publish(ctx, key, v); err != nil {
			return err
		}
	}
	return nil
}

// FilePublisher appends records to a JSONL file.
type FilePublisher struct {
	mu   sync.Mutex
	path string
}

func NewFilePublisher(dir string, filename string) (*FilePublisher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir: %w", err)
	}
	return &FilePublisher{path: filepath.Join(dir, filename)}, nil
}

func (w *FilePublisher) Path() string { return w.path }

func (w *FilePublisher) Publish(_ context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(Record{Key: key, Value: b, TS: time.Now().UnixMilli()}); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// KafkaPublisher publishes to a Kafka topic. Pure-Go client (segmentio/kafka-go).
type KafkaPublisher struct {
	writer kafkaMessageWriter
}

// kafkaMessageWriter abstracts kafka.Writer for testability.
type kafkaMessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// NewKafkaPublisher creates a synchronous writer that hashes keys to
// partitions, so all messages of one key stay ordered.
// bootstrap can be a comma-separated list of host:port.
func NewKafkaPublisher(bootstrap string, topic string) *KafkaPublisher {
	var brokers []string
	for _, a := range strings.Split(bootstrap, ",") {
		if a = strings.TrimSpace(a); a != "" {
			brokers = append(brokers, a)
		}
	}
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		Async:                  false,
		AllowAutoTopicCreation: true,
	}}
}

// NewKafkaPublisherWith is only for tests to inject a fake writer.
func NewKafkaPublisherWith(w kafkaMessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

func (k *KafkaPublisher) Publish(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: b}); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

func (k *KafkaPublisher) Close() error {
	if c, ok := k.writer.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
