// Package queue moves messages between pipeline stages.
package queue

import (
	"context"
	"errors"
	"time"
)

// ErrNoMessage reports that no message is available right now.
var ErrNoMessage = errors.New("no message available")

// Message is one consumed record. Partition and Offset locate it in its
// source.
type Message struct {
	Key       []byte
	Value     []byte
	Topic     string
	Partition int32
	Offset    int64
	Time      time.Time
}

// Source is a pull-based, at-least-once message source. A message that is
// neither acked nor nacked counts as nacked.
type Source interface {
	// Next returns the next message or ErrNoMessage without blocking
	// beyond the source's poll timeout.
	Next(ctx context.Context) (Message, error)
	// Ack marks m processed.
	Ack(ctx context.Context, m Message) error
	// Nack marks m for redelivery.
	Nack(m Message)
	// Rewind repositions the source at the earliest nacked message.
	Rewind(ctx context.Context) error
	Close() error
}
