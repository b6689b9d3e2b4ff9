// Package catalog serves the reference data used to enrich orders: user
// names and logins, restaurant names and menus.
package catalog

import (
	"fmt"
	"sort"
	"sync"

	"github.com/samber/mo"

	"dwh/internal/model"
)

// MenuItem is one product on a restaurant menu.
type MenuItem struct {
	ID       string        `json:"_id"`
	Name     string        `json:"name"`
	Category string        `json:"category"`
	Price    model.Decimal `json:"price"`
}

// Entry is a user or a restaurant. Users carry a login, restaurants a menu.
type Entry struct {
	ID    string     `json:"_id"`
	Name  string     `json:"name"`
	Login string     `json:"login,omitempty"`
	Menu  []MenuItem `json:"menu,omitempty"`
}

// Store abstracts the catalog backend. Unknown ids are absent, not errors.
type Store interface {
	Get(id string) (mo.Option[Entry], error)
	GetMany(ids []string) (map[string]Entry, error)
	Put(entries ...Entry) error
	Range(fn func(e Entry) error) error
	LoadAll(entries []Entry) error
}

// InMemoryStore is a simple thread-safe map store.
type InMemoryStore struct {
	mu   sync.RWMutex
	data map[string]Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{data: make(map[string]Entry)}
}

func (s *InMemoryStore) Get(id string) (mo.Option[Entry], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[id]
	return mo.TupleToOption(e, ok), nil
}

func (s *InMemoryStore) GetMany(ids []string) (map[string]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Entry, len(ids))
	for _, id := range ids {
		if e, ok := s.data[id]; ok {
			out[id] = e
		}
	}
	return out, nil
}

func (s *InMemoryStore) Put(entries ...Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		if e.ID == "" {
			return fmt.Errorf("put: entry without id")
		}
		s.data[e.ID] = e
	}
	return nil
}

// Range visits entries in id order.
func (s *InMemoryStore) Range(fn func(e Entry) error) error {
	s.mu.RLock()
	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	for _, id := range ids {
		s.mu.RLock()
		e, ok := s.data[id]
		s.mu.RUnlock()
		if !ok {
			continue
		}
		if err := fn(e); err != nil {
			return fmt.Errorf("range callback failed: %w", err)
		}
	}
	return nil
}

// LoadAll replaces the store contents with entries.
func (s *InMemoryStore) LoadAll(entries []Entry) error {
	data := make(map[string]Entry, len(entries))
	for _, e := range entries {
		if e.ID == "" {
			return fmt.Errorf("load: entry without id")
		}
		data[e.ID] = e
	}
	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	return nil
}
