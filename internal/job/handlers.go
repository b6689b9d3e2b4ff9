package job

import (
	"context"
	"encoding/json"
	"fmt"

	"dwh/internal/metrics"
	"dwh/internal/model"
	"dwh/internal/normalize"
	"dwh/internal/queue"
)

// EventSaver persists raw inbound events.
type EventSaver interface {
	SaveEvent(ctx context.Context, env model.Envelope) error
}

// Stager historizes orders and aggregates the user's final orders.
type Stager interface {
	Stage(ctx context.Context, order model.Order) error
	UserStats(ctx context.Context, userID string) ([]model.StatsRow, error)
}

// CounterMerger folds stats rows into the marts.
type CounterMerger interface {
	MergeCounters(ctx context.Context, rows []model.StatsRow) (int, error)
}

// StgHandler keeps the raw event and forwards its enriched form.
type StgHandler struct {
	normalizer *normalize.Normalizer
	events     EventSaver
	out        queue.Publisher
	metrics    *metrics.Registry
}

func NewStgHandler(n *normalize.Normalizer, events EventSaver, out queue.Publisher, m *metrics.Registry) *StgHandler {
	return &StgHandler{normalizer: n, events: events, out: out, metrics: m}
}

func (h *StgHandler) Handle(ctx context.Context, m queue.Message) error {
	env, err := h.normalizer.Parse(m.Value)
	if err != nil {
		return classify(err)
	}
	if err := h.events.SaveEvent(ctx, env); err != nil {
		return err
	}
	ev, err := h.normalizer.Canonical(ctx, env)
	if err != nil {
		return classify(err)
	}
	if err := h.out.Publish(ctx, ev.ObjectID, ev); err != nil {
		return fmt.Errorf("publish %s: %w", ev.ObjectID, err)
	}
	h.metrics.Published.Inc()
	return nil
}

// DdsHandler historizes one order and, once the order reaches the final
// status, publishes the owner's recomputed stats.
type DdsHandler struct {
	normalizer  *normalize.Normalizer
	vault       Stager
	out         queue.Publisher
	finalStatus string
	metrics     *metrics.Registry
}

func NewDdsHandler(n *normalize.Normalizer, vault Stager, out queue.Publisher, finalStatus string, m *metrics.Registry) *DdsHandler {
	return &DdsHandler{normalizer: n, vault: vault, out: out, finalStatus: finalStatus, metrics: m}
}

func (h *DdsHandler) Handle(ctx context.Context, m queue.Message) error {
	ev, err := h.normalizer.Normalize(ctx, m.Value)
	if err != nil {
		return classify(err)
	}
	order := ev.Payload
	if err := h.vault.Stage(ctx, order); err != nil {
		return classify(err)
	}
	h.metrics.Staged.Inc()

	if order.Status != h.finalStatus || order.User == nil || order.User.ID == "" {
		return nil
	}
	rows, err := h.vault.UserStats(ctx, order.User.ID)
	if err != nil {
		return err
	}
	if rows == nil {
		rows = []model.StatsRow{}
	}
	if err := h.out.Publish(ctx, order.User.ID, rows); err != nil {
		return fmt.Errorf("publish stats %s: %w", order.User.ID, err)
	}
	h.metrics.Published.Inc()
	return nil
}

// CdmHandler merges one stats message into the marts.
type CdmHandler struct {
	marts   CounterMerger
	metrics *metrics.Registry
}

func NewCdmHandler(marts CounterMerger, m *metrics.Registry) *CdmHandler {
	return &CdmHandler{marts: marts, metrics: m}
}

func (h *CdmHandler) Handle(ctx context.Context, m queue.Message) error {
	var rows []model.StatsRow
	if err := json.Unmarshal(m.Value, &rows); err != nil {
		return Skip(fmt.Errorf("decode stats: %w", err))
	}
	n, err := h.marts.MergeCounters(ctx, rows)
	if err != nil {
		return err
	}
	h.metrics.Merged.Add(float64(n))
	return nil
}
