package queue

import (
	"context"
	"sync"
)

// MemorySource serves messages from a slice. Offsets are slice indexes.
type MemorySource struct {
	mu      sync.Mutex
	msgs    []Message
	next    int
	nacked  int
	acked   map[int64]bool
	hasNack bool
}

func NewMemorySource(values ...[]byte) *MemorySource {
	s := &MemorySource{acked: map[int64]bool{}}
	for _, v := range values {
		s.append(Message{Value: v})
	}
	return s
}

// Push appends a message.
func (s *MemorySource) Push(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.append(m)
}

func (s *MemorySource) append(m Message) {
	m.Offset = int64(len(s.msgs))
	s.msgs = append(s.msgs, m)
}

func (s *MemorySource) Next(ctx context.Context) (Message, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.msgs) {
		return Message{}, ErrNoMessage
	}
	m := s.msgs[s.next]
	s.next++
	return m, nil
}

func (s *MemorySource) Ack(_ context.Context, m Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acked[m.Offset] = true
	return nil
}

func (s *MemorySource) Nack(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasNack || int(m.Offset) < s.nacked {
		s.nacked = int(m.Offset)
	}
	s.hasNack = true
}

func (s *MemorySource) Rewind(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasNack {
		s.next = s.nacked
		s.hasNack = false
	}
	return nil
}

// Acked reports whether the message at offset was acked.
func (s *MemorySource) Acked(offset int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acked[offset]
}

// Pending returns the number of messages not yet delivered.
func (s *MemorySource) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs) - s.next
}

func (s *MemorySource) Close() error { return nil }
