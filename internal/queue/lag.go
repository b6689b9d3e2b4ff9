package queue

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// HeadOffset returns the offset of the last message written to the
// partition, or -1 for an empty partition.
func HeadOffset(ctx context.Context, bootstrap, topic string, partition int) (int64, error) {
	conn, err := kafka.DialLeader(ctx, "tcp", bootstrap, topic, partition)
	if err != nil {
		return 0, fmt.Errorf("dial leader %s[%d]: %w", topic, partition, err)
	}
	defer conn.Close()
	off, err := conn.ReadLastOffset()
	if err != nil {
		return 0, fmt.Errorf("read last offset %s[%d]: %w", topic, partition, err)
	}
	return off - 1, nil
}

// Lag is the number of messages between the consumed position and the head.
func Lag(head, position int64) int64 {
	if head < position {
		return 0
	}
	return head - position
}
