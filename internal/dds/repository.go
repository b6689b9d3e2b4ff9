// Package dds historizes canonical orders into hubs, links and satellites.
package dds

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"dwh/internal/model"
	"dwh/internal/sqldb"
)

// ErrInvalidOrder is returned for orders without a business id.
var ErrInvalidOrder = errors.New("invalid order")

// Options configures a Repository.
type Options struct {
	// Source is written to every load_src column.
	Source string
	// FinalStatus marks orders counted by UserStats.
	FinalStatus string
	// Now stamps load_dt; defaults to time.Now.
	Now func() time.Time
	// NewKey generates surrogate key candidates; defaults to random UUIDs.
	NewKey func() string
}

type Repository struct {
	db   *sqldb.DB
	opts Options
}

func NewRepository(db *sqldb.DB, opts Options) *Repository {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewKey == nil {
		opts.NewKey = uuid.NewString
	}
	if opts.Source == "" {
		opts.Source = "orders-system-kafka"
	}
	return &Repository{db: db, opts: opts}
}

func (r *Repository) FinalStatus() string { return r.opts.FinalStatus }

// Stage merges one order into the vault in a single transaction. Hubs are
// inserted first, staged rows are then resolved against them, and links and
// satellites are derived from the resolved rows. Replaying the same order
// leaves the vault unchanged.
func (r *Repository) Stage(ctx context.Context, order model.Order) error {
	if strings.TrimSpace(order.ID) == "" {
		return fmt.Errorf("stage: %w: empty order id", ErrInvalidOrder)
	}
	batch := r.newBatch(order, r.opts.Now().UTC())

	err := r.db.InTx(ctx, func(tx *sqldb.Tx) error {
		ws := sqldb.NewWorkspace(tx)
		staged, err := stageBatch(ctx, ws, batch)
		if err != nil {
			return err
		}
		if err := loadHubs(ctx, tx, staged); err != nil {
			return err
		}
		resolved, err := resolve(ctx, ws, staged)
		if err != nil {
			return err
		}
		if err := loadLinks(ctx, tx, resolved); err != nil {
			return err
		}
		if err := loadSatellites(ctx, tx, resolved); err != nil {
			return err
		}
		return ws.Drop(ctx)
	})
	if err != nil {
		return fmt.Errorf("stage order %s: %w", order.ID, err)
	}
	return nil
}
