// Package sqldbtest opens throwaway warehouses for package tests.
package sqldbtest

import (
	"context"
	"database/sql"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"dwh/internal/sqldb"
)

// Open returns a migrated SQLite warehouse that lives in t.TempDir.
func Open(t testing.TB) *sqldb.DB {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "dwh.db")
	db, err := sqldb.Open(ctx, sqldb.DataSource{
		Driver: "sqlite",
		URL:    "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_time_format=sqlite",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = sqldb.Migrate(ctx, db)
	require.NoError(t, err)
	return db
}

// PostgresURLEnv names the variable holding a Postgres URL for the opt-in
// Postgres runs. Tests using OpenPostgres skip when it is unset.
const PostgresURLEnv = "PG_WAREHOUSE_TEST_URL"

// OpenPostgres returns a migrated Postgres warehouse in a fresh schema that
// is dropped on cleanup, so concurrent packages never share tables.
func OpenPostgres(t testing.TB) *sqldb.DB {
	t.Helper()
	base := os.Getenv(PostgresURLEnv)
	if base == "" {
		t.Skipf("%s not set", PostgresURLEnv)
	}
	ctx := context.Background()
	schema := "dwh_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	admin, err := sql.Open("pgx", base)
	require.NoError(t, err)
	t.Cleanup(func() { _ = admin.Close() })
	_, err = admin.ExecContext(ctx, "CREATE SCHEMA "+schema)
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = admin.ExecContext(context.Background(), "DROP SCHEMA "+schema+" CASCADE") })

	u, err := url.Parse(base)
	require.NoError(t, err)
	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()

	db, err := sqldb.Open(ctx, sqldb.DataSource{Driver: "pgx", URL: u.String()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = sqldb.Migrate(ctx, db)
	require.NoError(t, err)
	return db
}

// Each runs fn as a subtest against SQLite and, when PostgresURLEnv is set,
// against Postgres.
func Each(t *testing.T, fn func(t *testing.T, db *sqldb.DB)) {
	t.Helper()
	t.Run("sqlite", func(t *testing.T) { fn(t, Open(t)) })
	t.Run("postgres", func(t *testing.T) { fn(t, OpenPostgres(t)) })
}

// Count returns the number of rows in table.
func Count(t testing.TB, db *sqldb.DB, table string) int {
	t.Helper()
	rows, err := db.QueryContext(context.Background(), "SELECT COUNT(*) FROM "+table)
	require.NoError(t, err)
	defer rows.Close()
	require.True(t, rows.Next())
	var n int
	require.NoError(t, rows.Scan(&n))
	return n
}
