package catalog

import (
	"sync"
	"testing"

	"dwh/internal/model"
)

func seedEntries() []Entry {
	return []Entry{
		{ID: "u1", Name: "Ann", Login: "ann"},
		{ID: "r1", Name: "Cafe", Menu: []MenuItem{
			{ID: "p1", Name: "Tea", Category: "drinks", Price: model.MustDecimal("2.50")},
			{ID: "p2", Name: "Soup", Category: "food", Price: model.MustDecimal("5")},
		}},
	}
}

// storeContract runs the behaviour every backend must share.
func storeContract(t *testing.T, st Store) {
	t.Helper()
	if err := st.Put(seedEntries()...); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := st.Get("r1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	r, ok := got.Get()
	if !ok || r.Name != "Cafe" || len(r.Menu) != 2 || r.Menu[0].Price.String() != "2.50" {
		t.Fatalf("unexpected r1: %+v ok=%v", r, ok)
	}

	missing, err := st.Get("nope")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing.IsPresent() {
		t.Fatalf("unknown id should be absent")
	}

	many, err := st.GetMany([]string{"u1", "nope", "r1"})
	if err != nil {
		t.Fatalf("get many: %v", err)
	}
	if len(many) != 2 || many["u1"].Login != "ann" {
		t.Fatalf("unexpected get many: %+v", many)
	}

	if err := st.LoadAll([]Entry{{ID: "u2", Name: "Bob"}}); err != nil {
		t.Fatalf("load all: %v", err)
	}
	var ids []string
	if err := st.Range(func(e Entry) error { ids = append(ids, e.ID); return nil }); err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(ids) != 1 || ids[0] != "u2" {
		t.Fatalf("load all should replace contents, got %v", ids)
	}

	if err := st.Put(Entry{Name: "anonymous"}); err == nil {
		t.Fatalf("expected error for entry without id")
	}
}

func TestInMemoryStore_Contract(t *testing.T) {
	storeContract(t, NewInMemoryStore())
}

func TestPebbleStore_Contract(t *testing.T) {
	st, err := NewPebbleStore(t.TempDir())
	if err != nil {
		t.Fatalf("pebble open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	storeContract(t, st)
}

func TestBadgerStore_Contract(t *testing.T) {
	st, err := NewBadgerStore(t.TempDir())
	if err != nil {
		t.Fatalf("badger open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	storeContract(t, st)
}

func TestInMemoryStore_ConcurrentReadsAndWrites(t *testing.T) {
	s := NewInMemoryStore()
	var wg sync.WaitGroup
	for _, id := range []string{"u1", "u2", "r1", "r2"} {
		id := id
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				if err := s.Put(Entry{ID: id, Name: id}); err != nil {
					t.Errorf("put: %v", err)
					return
				}
				if _, err := s.GetMany([]string{"u1", "r1"}); err != nil {
					t.Errorf("get many: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
	n := 0
	_ = s.Range(func(Entry) error { n++; return nil })
	if n != 4 {
		t.Fatalf("range count=%d want=4", n)
	}
}

func TestOpen_SeedsMemoryBackend(t *testing.T) {
	dir := t.TempDir()
	snap := NewFilesystemSnapshotter(dir)
	src := NewInMemoryStore()
	_ = src.Put(seedEntries()...)
	path, err := snap.WriteSnapshot("seed", src)
	if err != nil {
		t.Fatalf("write snapshot: %v", err)
	}

	st, closer, err := Open("memory", "", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer closer.Close()
	if got, _ := st.Get("u1"); got.OrEmpty().Name != "Ann" {
		t.Fatalf("seed not loaded: %+v", got)
	}

	if _, _, err := Open("redis", "", ""); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}
