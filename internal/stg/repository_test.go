package stg

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dwh/internal/model"
	"dwh/internal/sqldb/sqldbtest"
)

func TestSaveEvent_UpsertsByObjectID(t *testing.T) {
	db := sqldbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()
	env := model.Envelope{ObjectID: "1", ObjectType: "order", SentAt: time.Now(), Payload: []byte(`{"cost":1}`)}

	require.NoError(t, repo.SaveEvent(ctx, env))
	env.Payload = []byte(`{"cost":2}`)
	require.NoError(t, repo.SaveEvent(ctx, env))

	require.Equal(t, 1, sqldbtest.Count(t, db, "order_events"))
	payload, ok, err := repo.Payload(ctx, "1")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"cost":2}`, payload)

	_, ok, err = repo.Payload(ctx, "2")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSaveEvent_StampsMissingSendTime(t *testing.T) {
	db := sqldbtest.Open(t)
	repo := NewRepository(db)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	require.NoError(t, repo.SaveEvent(context.Background(), model.Envelope{ObjectID: "1", ObjectType: "order", Payload: []byte(`{}`)}))
	rows, err := db.QueryContext(context.Background(), "SELECT sent_dttm FROM order_events")
	require.NoError(t, err)
	defer rows.Close()
	require.True(t, rows.Next())
	var got time.Time
	require.NoError(t, rows.Scan(&got))
	require.True(t, fixed.Equal(got))
}
