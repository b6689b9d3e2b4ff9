package catalog

import (
	"errors"
	"fmt"
	"path/filepath"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/samber/mo"
)

// BadgerStore implements Store using BadgerDB.
type BadgerStore struct {
	db *badger.DB
}

func NewBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(filepath.Clean(dir)).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger open: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (b *BadgerStore) Close() error { return b.db.Close() }

func (b *BadgerStore) Get(id string) (mo.Option[Entry], error) {
	var out mo.Option[Entry]
	err := b.db.View(func(txn *badger.Txn) error {
		e, ok, err := getEntry(txn, id)
		out = mo.TupleToOption(e, ok)
		return err
	})
	if err != nil {
		return mo.None[Entry](), fmt.Errorf("badger get %s: %w", id, err)
	}
	return out, nil
}

func (b *BadgerStore) GetMany(ids []string) (map[string]Entry, error) {
	out := make(map[string]Entry, len(ids))
	err := b.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			e, ok, err := getEntry(txn, id)
			if err != nil {
				return err
			}
			if ok {
				out[id] = e
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger get many: %w", err)
	}
	return out, nil
}

func getEntry(txn *badger.Txn, id string) (Entry, bool, error) {
	item, err := txn.Get([]byte(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	v, err := item.ValueCopy(nil)
	if err != nil {
		return Entry{}, false, err
	}
	e, err := decodeEntry(v)
	if err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

func (b *BadgerStore) Put(entries ...Entry) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return setEntries(txn, entries)
	})
}

func setEntries(txn *badger.Txn, entries []Entry) error {
	for _, e := range entries {
		if e.ID == "" {
			return fmt.Errorf("entry without id")
		}
		v, err := encodeEntry(e)
		if err != nil {
			return err
		}
		if err := txn.Set([]byte(e.ID), v); err != nil {
			return err
		}
	}
	return nil
}

func (b *BadgerStore) Range(fn func(e Entry) error) error {
	return b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			v, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			e, err := decodeEntry(v)
			if err != nil {
				return err
			}
			if err := fn(e); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadAll replaces all keys with entries in one transaction.
func (b *BadgerStore) LoadAll(entries []Entry) error {
	return b.db.Update(func(txn *badger.Txn) error {
		// collect keys first to avoid mutating while iterating
		it := txn.NewIterator(badger.IteratorOptions{})
		var keys [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return setEntries(txn, entries)
	})
}
