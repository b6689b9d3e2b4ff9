package catalog

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/cockroachdb/pebble"
	"github.com/samber/mo"
)

// PebbleStore implements Store using PebbleDB.
type PebbleStore struct {
	db *pebble.DB
}

func NewPebbleStore(dir string) (*PebbleStore, error) {
	opts := &pebble.Options{
		// reference data is small and read-mostly
		MemTableSize:          16 << 20,
		L0CompactionThreshold: 4,
		L0StopWritesThreshold: 12,
	}
	d, err := pebble.Open(filepath.Clean(dir), opts)
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}
	return &PebbleStore{db: d}, nil
}

func (p *PebbleStore) Close() error { return p.db.Close() }

func (p *PebbleStore) Get(id string) (mo.Option[Entry], error) {
	v, closer, err := p.db.Get([]byte(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return mo.None[Entry](), nil
	}
	if err != nil {
		return mo.None[Entry](), fmt.Errorf("pebble get %s: %w", id, err)
	}
	defer closer.Close()
	e, err := decodeEntry(v)
	if err != nil {
		return mo.None[Entry](), fmt.Errorf("decode %s: %w", id, err)
	}
	return mo.Some(e), nil
}

func (p *PebbleStore) GetMany(ids []string) (map[string]Entry, error) {
	out := make(map[string]Entry, len(ids))
	for _, id := range ids {
		opt, err := p.Get(id)
		if err != nil {
			return nil, err
		}
		if e, ok := opt.Get(); ok {
			out[id] = e
		}
	}
	return out, nil
}

func (p *PebbleStore) Put(entries ...Entry) error {
	wb := p.db.NewBatch()
	defer wb.Close()
	for _, e := range entries {
		if e.ID == "" {
			return fmt.Errorf("put: entry without id")
		}
		b, err := encodeEntry(e)
		if err != nil {
			return err
		}
		if err := wb.Set([]byte(e.ID), b, nil); err != nil {
			return err
		}
	}
	return wb.Commit(pebble.Sync)
}

func (p *PebbleStore) Range(fn func(e Entry) error) error {
	it, err := p.db.NewIter(nil)
	if err != nil {
		return fmt.Errorf("pebble iter: %w", err)
	}
	defer it.Close()
	for it.First(); it.Valid(); it.Next() {
		e, err := decodeEntry(append([]byte(nil), it.Value()...))
		if err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return it.Error()
}

// LoadAll replaces all keys with entries in one batch.
func (p *PebbleStore) LoadAll(entries []Entry) error {
	wb := p.db.NewBatch()
	defer wb.Close()
	it, err := p.db.NewIter(nil)
	if err != nil {
		return fmt.Errorf("pebble iter: %w", err)
	}
	for it.First(); it.Valid(); it.Next() {
		if err := wb.Delete(append([]byte(nil), it.Key()...), nil); err != nil {
			_ = it.Close()
			return err
		}
	}
	if err := it.Close(); err != nil {
		return err
	}
	for _, e := range entries {
		if e.ID == "" {
			return fmt.Errorf("load: entry without id")
		}
		b, err := encodeEntry(e)
		if err != nil {
			return err
		}
		if err := wb.Set([]byte(e.ID), b, nil); err != nil {
			return err
		}
	}
	return wb.Commit(pebble.Sync)
}
