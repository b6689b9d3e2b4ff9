package catalog

import (
	"fmt"
	"io"
)

// Open returns the store for backend (memory|pebble|badger) and a closer
// for it. The memory backend is seeded from seedFile when set.
func Open(backend, dir, seedFile string) (Store, io.Closer, error) {
	var st Store
	var closer io.Closer = nopCloser{}
	switch backend {
	case "", "memory":
		st = NewInMemoryStore()
	case "pebble":
		ps, err := NewPebbleStore(dir)
		if err != nil {
			return nil, nil, err
		}
		st, closer = ps, ps
	case "badger":
		bs, err := NewBadgerStore(dir)
		if err != nil {
			return nil, nil, err
		}
		st, closer = bs, bs
	default:
		return nil, nil, fmt.Errorf("unknown catalog backend %q", backend)
	}
	if seedFile != "" {
		entries, err := ReadEntries(seedFile)
		if err != nil {
			_ = closer.Close()
			return nil, nil, fmt.Errorf("seed catalog: %w", err)
		}
		if err := st.Put(entries...); err != nil {
			_ = closer.Close()
			return nil, nil, fmt.Errorf("seed catalog: %w", err)
		}
	}
	return st, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
