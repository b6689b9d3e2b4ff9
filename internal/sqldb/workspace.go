package sqldb

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// maxRowsPerInsert keeps multi-row VALUES statements under SQLite's bound
// parameter limit.
const maxRowsPerInsert = 200

// Column is one column of a workspace relation. Type is a logical type
// resolved through Dialect.Type.
type Column struct {
	Name string
	Type string
}

// Workspace owns the temporary relations of one loader invocation. Names
// carry an invocation-unique suffix so concurrent invocations never collide.
// Relations live only inside the transaction: Drop removes them before
// commit, and a rollback discards them together with everything else.
type Workspace struct {
	tx      *Tx
	suffix  string
	created []string
}

func NewWorkspace(tx *Tx) *Workspace {
	return &Workspace{tx: tx, suffix: strings.ReplaceAll(uuid.NewString(), "-", "")}
}

// Name returns the invocation-scoped name for base.
func (w *Workspace) Name(base string) string { return base + "_" + w.suffix }

// Create creates an empty temporary relation and returns its name.
func (w *Workspace) Create(ctx context.Context, base string, cols []Column) (string, error) {
	name := w.Name(base)
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = c.Name + " " + w.tx.dialect.Type(c.Type)
	}
	ddl := fmt.Sprintf("CREATE TEMP TABLE %s (%s)%s", name, strings.Join(defs, ", "), w.tx.dialect.tempSuffix())
	if _, err := w.tx.ExecContext(ctx, ddl); err != nil {
		return "", fmt.Errorf("create %s: %w", base, err)
	}
	w.created = append(w.created, name)
	return name, nil
}

// CreateAs creates a temporary relation from a query and returns its name.
func (w *Workspace) CreateAs(ctx context.Context, base string, query string, args ...any) (string, error) {
	name := w.Name(base)
	ddl := fmt.Sprintf("CREATE TEMP TABLE %s%s AS %s", name, w.tx.dialect.tempSuffix(), query)
	if _, err := w.tx.ExecContext(ctx, ddl, args...); err != nil {
		return "", fmt.Errorf("create %s: %w", base, err)
	}
	w.created = append(w.created, name)
	return name, nil
}

// Insert appends rows to a workspace relation. Every row must have one value
// per column.
func (w *Workspace) Insert(ctx context.Context, table string, cols []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"
	for start := 0; start < len(rows); start += maxRowsPerInsert {
		end := min(start+maxRowsPerInsert, len(rows))
		chunk := rows[start:end]
		tuples := make([]string, len(chunk))
		args := make([]any, 0, len(chunk)*len(cols))
		for i, row := range chunk {
			if len(row) != len(cols) {
				return fmt.Errorf("insert %s: row has %d values, want %d", table, len(row), len(cols))
			}
			tuples[i] = tuple
			args = append(args, row...)
		}
		q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", table, strings.Join(cols, ", "), strings.Join(tuples, ", "))
		if _, err := w.tx.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}
	return nil
}

// Drop removes every relation created so far, newest first.
func (w *Workspace) Drop(ctx context.Context) error {
	for i := len(w.created) - 1; i >= 0; i-- {
		if _, err := w.tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+w.created[i]); err != nil {
			return fmt.Errorf("drop %s: %w", w.created[i], err)
		}
	}
	w.created = nil
	return nil
}
