package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"dwh/internal/catalog"
	"dwh/internal/cdm"
	"dwh/internal/dds"
	"dwh/internal/metrics"
	"dwh/internal/model"
	"dwh/internal/normalize"
	"dwh/internal/queue"
	"dwh/internal/sqldb/sqldbtest"
	"dwh/internal/stg"
)

type published struct {
	key   string
	value []byte
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, key string, v any) error {
	if p.err != nil {
		return p.err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{key: key, value: b})
	return nil
}

const rawOrder = `{"objectId":"O1","objectType":"order","sentAt":"2024-01-01T10:00:00Z",
"payload":{"id":"O1","date":"2024-01-01 09:00:00","cost":"100.50","payment":"100.50","status":%q,
"restaurant":{"id":"R1"},"user":{"id":"U1"},
"products":[{"id":"P1","name":"Tea","price":"50.25","quantity":2}]}}`

func orderMessage(status string) []byte {
	return []byte(fmt.Sprintf(rawOrder, status))
}

func testCatalog(t *testing.T) *catalog.Enricher {
	t.Helper()
	st := catalog.NewInMemoryStore()
	require.NoError(t, st.Put(
		catalog.Entry{ID: "R1", Name: "Cafe", Menu: []catalog.MenuItem{{ID: "P1", Name: "Tea", Category: "drinks"}}},
		catalog.Entry{ID: "U1", Name: "Ann", Login: "ann"},
	))
	return catalog.NewEnricher(st)
}

func newDdsRunner(t *testing.T, out queue.Publisher) (*Runner, *queue.MemorySource, *metrics.Registry) {
	t.Helper()
	db := sqldbtest.Open(t)
	m := metrics.NewRegistry("dds")
	vault := dds.NewRepository(db, dds.Options{FinalStatus: "CLOSED"})
	h := NewDdsHandler(normalize.New("order", testCatalog(t)), vault, out, "CLOSED", m)
	src := queue.NewMemorySource()
	return NewRunner("dds", src, h, m), src, m
}

func TestDdsHandler_FinalOrderPublishesStatsOnce(t *testing.T) {
	out := &recordingPublisher{}
	r, src, m := newDdsRunner(t, out)
	src.Push(queue.Message{Value: orderMessage("CLOSED")})

	_, err := r.RunBatch(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, out.msgs, 1)
	require.Equal(t, "U1", out.msgs[0].key)

	var rows []model.StatsRow
	require.NoError(t, json.Unmarshal(out.msgs[0].value, &rows))
	require.Len(t, rows, 2)
	require.Equal(t, "P1", *rows[0].ProductID)
	require.EqualValues(t, 1, rows[0].OrderCount)
	require.Equal(t, "drinks", *rows[1].CategoryName)
	require.Equal(t, 1.0, testutil.ToFloat64(m.Staged))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Published))
}

func TestDdsHandler_OpenOrderPublishesNothing(t *testing.T) {
	out := &recordingPublisher{}
	r, src, m := newDdsRunner(t, out)
	src.Push(queue.Message{Value: orderMessage("OPEN")})

	res, err := r.RunBatch(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, 1, res.Acked)
	require.Empty(t, out.msgs)
	require.Equal(t, 1.0, testutil.ToFloat64(m.Staged))
}

func TestDdsHandler_ForeignAndMalformedMessagesAreSkipped(t *testing.T) {
	out := &recordingPublisher{}
	r, src, _ := newDdsRunner(t, out)
	src.Push(queue.Message{Value: []byte(`{"objectId":"X","objectType":"user","payload":{}}`)})
	src.Push(queue.Message{Value: []byte(`not json`)})
	src.Push(queue.Message{Value: orderMessage("CLOSED")})

	res, err := r.RunBatch(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, BatchResult{Consumed: 3, Acked: 1, Skipped: 2}, res)
	require.True(t, src.Acked(0))
	require.True(t, src.Acked(1))
	require.Len(t, out.msgs, 1)
}

func TestDdsHandler_PublishFailureLeavesMessageUnacked(t *testing.T) {
	out := &recordingPublisher{err: errors.New("broker unavailable")}
	r, src, _ := newDdsRunner(t, out)
	src.Push(queue.Message{Value: orderMessage("CLOSED")})

	res, err := r.RunBatch(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, 1, res.Failed)
	require.False(t, src.Acked(0))

	// the replay stages nothing new and publishes once the broker is back
	out.err = nil
	res, err = r.RunBatch(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, 1, res.Acked)
	require.Len(t, out.msgs, 1)
}

func TestStgHandler_SavesRawAndForwardsEnriched(t *testing.T) {
	db := sqldbtest.Open(t)
	m := metrics.NewRegistry("stg")
	out := &recordingPublisher{}
	events := stg.NewRepository(db)
	h := NewStgHandler(normalize.New("order", testCatalog(t)), events, out, m)
	src := queue.NewMemorySource(orderMessage("OPEN"), []byte(`{"objectType":"order","payload":{}}`))

	res, err := NewRunner("stg", src, h, m).RunBatch(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, BatchResult{Consumed: 2, Acked: 1, Skipped: 1}, res)

	payload, ok, err := events.Payload(context.Background(), "O1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Contains(t, payload, `"status":"OPEN"`)

	require.Len(t, out.msgs, 1)
	require.Equal(t, "O1", out.msgs[0].key)
	var ev model.Event
	require.NoError(t, json.Unmarshal(out.msgs[0].value, &ev))
	require.Equal(t, "Cafe", ev.Payload.Restaurant.Name)
	require.Equal(t, "ann", ev.Payload.User.Login)
	require.Equal(t, "drinks", ev.Payload.Products[0].Category)
}

func TestCdmHandler_MergesStatsAndSkipsGarbage(t *testing.T) {
	db := sqldbtest.Open(t)
	m := metrics.NewRegistry("cdm")
	marts := cdm.NewRepository(db)
	stats := `[{"userId":"U1","productId":"P1","productName":"Tea","orderCount":3},
{"userId":"U1","categoryId":"c-1","categoryName":"drinks","orderCount":3}]`
	src := queue.NewMemorySource([]byte(stats), []byte(`{"userId":"U1"}`), []byte(stats))

	res, err := NewRunner("cdm", src, NewCdmHandler(marts, m), m).RunBatch(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, BatchResult{Consumed: 3, Acked: 2, Skipped: 1}, res)
	require.Equal(t, 4.0, testutil.ToFloat64(m.Merged))

	products, err := marts.ProductCounters(context.Background(), "U1")
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.EqualValues(t, 3, products[0].Count)
}
