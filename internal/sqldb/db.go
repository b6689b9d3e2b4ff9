package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	_ "github.com/lib/pq"              // registers "postgres"
	_ "modernc.org/sqlite"             // registers "sqlite"
)

const (
	UserKey     = "${user}"
	PasswordKey = "${password}"
	HostKey     = "${host}"
)

// DataSource describes the warehouse connection.
type DataSource struct {
	Driver   string `env:"DRIVER" envDefault:"pgx"`
	URL      string `env:"URL"`
	User     string `env:"USER"`
	Password string `env:"PASSWORD"`
	Host     string `env:"HOST"`
	LogSQL   bool   `env:"LOG_SQL" envDefault:"false"`
}

// DSN substitutes ${user}, ${password} and ${host} in URL and fails when a
// referenced placeholder has no value.
func (ds DataSource) DSN() (string, error) {
	if strings.TrimSpace(ds.URL) == "" {
		return "", fmt.Errorf("dsn requires url")
	}
	if strings.Contains(ds.URL, UserKey) && ds.User == "" {
		return "", fmt.Errorf("dsn requires user")
	}
	if strings.Contains(ds.URL, PasswordKey) && ds.Password == "" {
		return "", fmt.Errorf("dsn requires password")
	}
	if strings.Contains(ds.URL, HostKey) && ds.Host == "" {
		return "", fmt.Errorf("dsn requires host")
	}
	dsn := strings.ReplaceAll(ds.URL, UserKey, ds.User)
	dsn = strings.ReplaceAll(dsn, PasswordKey, ds.Password)
	return strings.ReplaceAll(dsn, HostKey, ds.Host), nil
}

// Conn is the statement surface shared by *sql.DB and *sql.Tx.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// DB is a warehouse handle: a pool plus the dialect its statements are bound for.
type DB struct {
	sql     *sql.DB
	dialect Dialect
	logger  *log.Logger
}

// Open connects, pings and returns the handle. SQLite is limited to one
// connection so transactions never see "database is locked".
func Open(ctx context.Context, ds DataSource) (*DB, error) {
	dialect, err := DialectFor(ds.Driver)
	if err != nil {
		return nil, err
	}
	dsn, err := ds.DSN()
	if err != nil {
		return nil, fmt.Errorf("invalid dsn: %w", err)
	}
	raw, err := sql.Open(ds.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", ds.Driver, err)
	}
	if dialect == SQLite {
		raw.SetMaxOpenConns(1)
	}
	if err := raw.PingContext(ctx); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("ping %s: %w", ds.Driver, err)
	}
	db := &DB{sql: raw, dialect: dialect}
	if ds.LogSQL {
		db.logger = log.Default()
	}
	return db, nil
}

// New wraps an already opened pool.
func New(raw *sql.DB, dialect Dialect) *DB {
	return &DB{sql: raw, dialect: dialect}
}

func (db *DB) Dialect() Dialect { return db.dialect }

func (db *DB) Close() error { return db.sql.Close() }

func (db *DB) PingContext(ctx context.Context) error { return db.sql.PingContext(ctx) }

func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return execRebound(ctx, db.sql, db.dialect, db.logger, query, args...)
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return queryRebound(ctx, db.sql, db.dialect, db.logger, query, args...)
}

// Tx is a transaction bound to the handle's dialect.
type Tx struct {
	tx      *sql.Tx
	dialect Dialect
	logger  *log.Logger
}

func (tx *Tx) Dialect() Dialect { return tx.dialect }

func (tx *Tx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return execRebound(ctx, tx.tx, tx.dialect, tx.logger, query, args...)
}

func (tx *Tx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return queryRebound(ctx, tx.tx, tx.dialect, tx.logger, query, args...)
}

// InTx runs fn in one transaction, committing on nil and rolling back on
// error or panic.
func (db *DB) InTx(ctx context.Context, fn func(tx *Tx) error) error {
	raw, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = raw.Rollback()
		}
	}()
	if err := fn(&Tx{tx: raw, dialect: db.dialect, logger: db.logger}); err != nil {
		return err
	}
	if err := raw.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

func execRebound(ctx context.Context, c Conn, d Dialect, logger *log.Logger, q string, args ...any) (sql.Result, error) {
	q = d.Rebind(q)
	start := time.Now()
	res, err := c.ExecContext(ctx, q, args...)
	if logger != nil {
		logger.Printf("sql exec dur=%s err=%v sql=%q", time.Since(start), err, compact(q))
	}
	return res, err
}

func queryRebound(ctx context.Context, c Conn, d Dialect, logger *log.Logger, q string, args ...any) (*sql.Rows, error) {
	q = d.Rebind(q)
	start := time.Now()
	rows, err := c.QueryContext(ctx, q, args...)
	if logger != nil {
		logger.Printf("sql query dur=%s err=%v sql=%q", time.Since(start), err, compact(q))
	}
	return rows, err
}

func compact(q string) string { return strings.Join(strings.Fields(q), " ") }
