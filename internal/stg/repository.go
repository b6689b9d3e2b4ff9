// Package stg keeps the raw inbound events.
package stg

import (
	"context"
	"fmt"
	"time"

	"dwh/internal/model"
	"dwh/internal/sqldb"
)

const upsertEventSQL = `INSERT INTO order_events (object_id, object_type, sent_dttm, payload)
VALUES (?, ?, ?, ?)
ON CONFLICT (object_id) DO UPDATE
SET object_type = EXCLUDED.object_type,
    sent_dttm = EXCLUDED.sent_dttm,
    payload = EXCLUDED.payload`

type Repository struct {
	db  *sqldb.DB
	now func() time.Time
}

func NewRepository(db *sqldb.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// SaveEvent stores the raw payload of env keyed by its object id. A
// redelivered event overwrites the stored copy. Events without a send time
// are stamped with the current time.
func (r *Repository) SaveEvent(ctx context.Context, env model.Envelope) error {
	sentAt := env.SentAt
	if sentAt.IsZero() {
		sentAt = r.now()
	}
	if _, err := r.db.ExecContext(ctx, upsertEventSQL, env.ObjectID, env.ObjectType, sentAt.UTC(), string(env.Payload)); err != nil {
		return fmt.Errorf("save event %s: %w", env.ObjectID, err)
	}
	return nil
}

// Payload returns the stored payload for objectID.
func (r *Repository) Payload(ctx context.Context, objectID string) (string, bool, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT payload FROM order_events WHERE object_id = ?", objectID)
	if err != nil {
		return "", false, fmt.Errorf("load event %s: %w", objectID, err)
	}
	defer rows.Close()
	if !rows.Next() {
		return "", false, rows.Err()
	}
	var payload string
	if err := rows.Scan(&payload); err != nil {
		return "", false, err
	}
	return payload, true, nil
}
