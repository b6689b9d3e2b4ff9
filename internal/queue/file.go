package queue

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// FileSource reads newline-delimited messages from a file. Lines written by
// FilePublisher are unwrapped to their key and value; any other line is the
// value itself. Lines appended after the source is exhausted are picked up
// by the next poll.
type FileSource struct {
	path string
	mem  *MemorySource
	read int
}

func NewFileSource(path string) (*FileSource, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat: %w", err)
	}
	return &FileSource{path: path, mem: NewMemorySource()}, nil
}

func (f *FileSource) Next(ctx context.Context) (Message, error) {
	m, err := f.mem.Next(ctx)
	if !errors.Is(err, ErrNoMessage) {
		return m, err
	}
	if err := f.load(); err != nil {
		return Message{}, err
	}
	return f.mem.Next(ctx)
}

func (f *FileSource) load() error {
	file, err := os.Open(f.path)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer file.Close()
	s := bufio.NewScanner(file)
	s.Buffer(make([]byte, 64*1024), 16<<20)
	line := 0
	for s.Scan() {
		b := bytes.TrimSpace(s.Bytes())
		if len(b) == 0 {
			continue
		}
		line++
		if line <= f.read {
			continue
		}
		f.mem.Push(decodeLine(b, f.path))
		f.read = line
	}
	return s.Err()
}

func decodeLine(b []byte, topic string) Message {
	var rec Record
	if err := json.Unmarshal(b, &rec); err == nil && len(rec.Value) > 0 {
		return Message{Key: []byte(rec.Key), Value: append([]byte(nil), rec.Value...), Topic: topic}
	}
	return Message{Value: append([]byte(nil), b...), Topic: topic}
}

func (f *FileSource) Ack(ctx context.Context, m Message) error { return f.mem.Ack(ctx, m) }

func (f *FileSource) Nack(m Message) { f.mem.Nack(m) }

func (f *FileSource) Rewind(ctx context.Context) error { return f.mem.Rewind(ctx) }

func (f *FileSource) Close() error { return nil }
