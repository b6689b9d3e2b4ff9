package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	ck "github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// kafkaConsumer abstracts ck.Consumer for testability.
type kafkaConsumer interface {
	ReadMessage(timeout time.Duration) (*ck.Message, error)
	CommitMessage(m *ck.Message) ([]ck.TopicPartition, error)
	Seek(partition ck.TopicPartition, ignoredTimeoutMs int) error
	Close() error
}

type partitionKey struct {
	topic     string
	partition int32
}

// KafkaSource consumes a topic with manual offset commits. Once a message
// of a partition is nacked, later messages of that partition are not
// committed either, so Rewind can seek back without losing anything.
type KafkaSource struct {
	consumer kafkaConsumer
	timeout  time.Duration

	mu       sync.Mutex
	nacked   map[partitionKey]int64
	consumed map[int32]int64
}

// NewKafkaSource subscribes groupID to topic. bootstrap can be a
// comma-separated list of host:port.
func NewKafkaSource(bootstrap, groupID, topic string, pollTimeout time.Duration) (*KafkaSource, error) {
	c, err := ck.NewConsumer(&ck.ConfigMap{
		"bootstrap.servers":  bootstrap,
		"group.id":           groupID,
		"enable.auto.commit": false,
		"isolation.level":    "read_committed",
		"auto.offset.reset":  "earliest",
	})
	if err != nil {
		return nil, fmt.Errorf("consumer: %w", err)
	}
	if err := c.SubscribeTopics([]string{topic}, nil); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	return NewKafkaSourceWith(c, pollTimeout), nil
}

// NewKafkaSourceWith is only for tests to inject a fake consumer.
func NewKafkaSourceWith(c kafkaConsumer, pollTimeout time.Duration) *KafkaSource {
	return &KafkaSource{consumer: c, timeout: pollTimeout, nacked: map[partitionKey]int64{}, consumed: map[int32]int64{}}
}

func (k *KafkaSource) Next(ctx context.Context) (Message, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}
	msg, err := k.consumer.ReadMessage(k.timeout)
	if err != nil {
		var kerr ck.Error
		if errors.As(err, &kerr) && kerr.Code() == ck.ErrTimedOut {
			return Message{}, ErrNoMessage
		}
		return Message{}, fmt.Errorf("read message: %w", err)
	}
	m := Message{
		Key:       msg.Key,
		Value:     msg.Value,
		Partition: msg.TopicPartition.Partition,
		Offset:    int64(msg.TopicPartition.Offset),
		Time:      msg.Timestamp,
	}
	if msg.TopicPartition.Topic != nil {
		m.Topic = *msg.TopicPartition.Topic
	}
	k.mu.Lock()
	k.consumed[m.Partition] = m.Offset
	k.mu.Unlock()
	return m, nil
}

func (k *KafkaSource) Ack(_ context.Context, m Message) error {
	k.mu.Lock()
	_, blocked := k.nacked[partitionKey{m.Topic, m.Partition}]
	k.mu.Unlock()
	if blocked {
		return nil
	}
	topic := m.Topic
	if _, err := k.consumer.CommitMessage(&ck.Message{
		TopicPartition: ck.TopicPartition{Topic: &topic, Partition: m.Partition, Offset: ck.Offset(m.Offset)},
	}); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (k *KafkaSource) Nack(m Message) {
	k.mu.Lock()
	defer k.mu.Unlock()
	key := partitionKey{m.Topic, m.Partition}
	if off, ok := k.nacked[key]; !ok || m.Offset < off {
		k.nacked[key] = m.Offset
	}
}

func (k *KafkaSource) Rewind(_ context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	for key, off := range k.nacked {
		topic := key.topic
		if err := k.consumer.Seek(ck.TopicPartition{Topic: &topic, Partition: key.partition, Offset: ck.Offset(off)}, 0); err != nil {
			return fmt.Errorf("seek %s[%d]@%d: %w", key.topic, key.partition, off, err)
		}
		delete(k.nacked, key)
	}
	return nil
}

// Positions returns the offset of the last message read per partition.
func (k *KafkaSource) Positions() map[int32]int64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := make(map[int32]int64, len(k.consumed))
	for p, off := range k.consumed {
		out[p] = off
	}
	return out
}

func (k *KafkaSource) Close() error { return k.consumer.Close() }
