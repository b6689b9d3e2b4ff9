package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dwh/internal/cdm"
	"dwh/internal/config"
	"dwh/internal/sqldb"
)

const seedCatalog = `[
  {"_id": "R1", "name": "Cafe", "menu": [{"_id": "P1", "name": "Tea", "category": "drinks", "price": 50}]},
  {"_id": "U1", "name": "Ann", "login": "ann"}
]`

const rawEvents = `{"object_id": 1, "object_type": "order", "sent_dttm": "2024-01-01 10:00:00", "payload": {"_id": "O1", "date": "2024-01-01 09:00:00", "cost": 100, "payment": 100, "final_status": "CLOSED", "restaurant": {"id": "R1"}, "user": {"id": "U1"}, "order_items": [{"id": "P1", "name": "Tea", "price": 50, "quantity": 2}]}}
{"object_id": 2, "object_type": "order", "sent_dttm": "2024-01-01 10:05:00", "payload": {"_id": "O2", "date": "2024-01-01 09:30:00", "cost": 50, "payment": 50, "final_status": "OPEN", "restaurant": {"id": "R1"}, "user": {"id": "U1"}, "order_items": [{"id": "P1", "name": "Tea", "price": 50, "quantity": 1}]}}
{"object_id": 3, "object_type": "user", "payload": {"_id": "U1"}}
`

func writeFile(t *testing.T, path, body string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func stageConfig(name, dir, input string) config.Stage {
	return config.Stage{
		Name: name,
		Warehouse: sqldb.DataSource{
			Driver: "sqlite",
			URL:    "file:" + filepath.Join(dir, "dwh.db") + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_time_format=sqlite",
		},
		Catalog:       config.Catalog{Backend: "memory", Seed: filepath.Join(dir, "catalog.json")},
		InputSource:   "file",
		InputFile:     input,
		OutputSink:    "file",
		OutputDir:     filepath.Join(dir, "out"),
		ObjectType:    "order",
		FinalStatus:   "CLOSED",
		LoadSource:    "test",
		BatchSize:     100,
		BatchInterval: time.Second,
		HTTPAddr:      ":0",
		Migrate:       true,
	}
}

func runStage(t *testing.T, cfg config.Stage) *Service {
	t.Helper()
	ctx := context.Background()
	svc, err := Open(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	h, err := svc.Handler()
	require.NoError(t, err)
	res, err := svc.Runner(h).RunBatch(ctx, cfg.BatchSize)
	require.NoError(t, err)
	require.Zero(t, res.Failed)
	return svc
}

func TestPipeline_FileStagesFeedEachOther(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "catalog.json"), seedCatalog)
	input := writeFile(t, filepath.Join(dir, "events.jsonl"), rawEvents)

	runStage(t, stageConfig("stg", dir, input))
	runStage(t, stageConfig("dds", dir, filepath.Join(dir, "out", "stg.jsonl")))
	svc := runStage(t, stageConfig("cdm", dir, filepath.Join(dir, "out", "dds.jsonl")))

	ctx := context.Background()
	marts := cdm.NewRepository(svc.DB)
	products, err := marts.ProductCounters(ctx, "U1")
	require.NoError(t, err)
	require.Equal(t, []cdm.Counter{{UserID: "U1", ID: "P1", Name: "Tea", Count: 1}}, products)
	categories, err := marts.CategoryCounters(ctx, "U1")
	require.NoError(t, err)
	require.Len(t, categories, 1)
	require.Equal(t, "drinks", categories[0].Name)
	require.EqualValues(t, 1, categories[0].Count)

	stats, err := os.ReadFile(filepath.Join(dir, "out", "dds.jsonl"))
	require.NoError(t, err)
	require.Equal(t, 1, strings.Count(string(stats), "\n"), "one stats message for the closed order")
}

func TestHTTPHandler_HealthAndMetrics(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, filepath.Join(dir, "events.jsonl"), "")
	cfg := stageConfig("cdm", dir, input)
	svc, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer svc.Close()

	rec := httptest.NewRecorder()
	svc.HTTPHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = httptest.NewRecorder()
	svc.HTTPHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Contains(t, rec.Body.String(), `stage="cdm"`)
}

func TestHandler_UnknownStage(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, filepath.Join(dir, "events.jsonl"), "")
	svc, err := Open(context.Background(), stageConfig("xyz", dir, input))
	require.NoError(t, err)
	defer svc.Close()
	_, err = svc.Handler()
	require.Error(t, err)
}
