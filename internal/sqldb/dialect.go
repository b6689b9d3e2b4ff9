package sqldb

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect captures the few places where Postgres and SQLite disagree. All
// statements in this module are written with '?' placeholders and ANSI
// upsert syntax shared by both engines.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// DialectFor maps a database/sql driver name to its dialect.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "pgx", "postgres":
		return Postgres, nil
	case "sqlite":
		return SQLite, nil
	default:
		return "", fmt.Errorf("unsupported driver %q", driver)
	}
}

// Rebind rewrites '?' placeholders into the dialect's form. Quoted literals
// are left untouched.
func (d Dialect) Rebind(query string) string {
	if d != Postgres || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Type returns the column type used for a logical type in staging relations.
func (d Dialect) Type(logical string) string {
	if d == Postgres {
		switch logical {
		case "text":
			return "VARCHAR"
		case "money":
			return "NUMERIC(19, 5)"
		case "key":
			return "UUID"
		case "time":
			return "TIMESTAMPTZ"
		}
	}
	switch logical {
	case "money":
		return "NUMERIC"
	case "key", "text":
		return "TEXT"
	case "time":
		return "TIMESTAMP"
	}
	return strings.ToUpper(logical)
}

func (d Dialect) tempSuffix() string {
	if d == Postgres {
		return " ON COMMIT DROP"
	}
	return ""
}
