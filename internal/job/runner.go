// Package job runs the per-stage batch loop: pull a bounded batch of
// messages, hand each to the stage handler and acknowledge what succeeded.
package job

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"dwh/internal/metrics"
	"dwh/internal/queue"
)

// Handler processes one message.
type Handler interface {
	Handle(ctx context.Context, m queue.Message) error
}

type HandlerFunc func(ctx context.Context, m queue.Message) error

func (f HandlerFunc) Handle(ctx context.Context, m queue.Message) error { return f(ctx, m) }

// BatchResult counts the outcomes of one batch.
type BatchResult struct {
	Consumed int
	Acked    int
	Skipped  int
	Failed   int
}

type Runner struct {
	stage   string
	source  queue.Source
	handler Handler
	metrics *metrics.Registry
	after   func(ctx context.Context)
}

func NewRunner(stage string, source queue.Source, handler Handler, m *metrics.Registry) *Runner {
	return &Runner{stage: stage, source: source, handler: handler, metrics: m}
}

// AfterBatch registers fn to run after every scheduled batch.
func (r *Runner) AfterBatch(fn func(ctx context.Context)) { r.after = fn }

// RunBatch processes up to maxMessages, stopping early when the source has
// nothing to deliver. Skipped messages are acked, failed ones are nacked and
// redelivered by a later batch. A connectivity failure ends the batch and is
// returned.
func (r *Runner) RunBatch(ctx context.Context, maxMessages int) (BatchResult, error) {
	start := time.Now()
	log.Printf("batch start stage=%s max=%d", r.stage, maxMessages)

	var res BatchResult
	err := r.drain(ctx, maxMessages, &res)
	if rerr := r.source.Rewind(ctx); rerr != nil && err == nil {
		err = fmt.Errorf("rewind: %w", rerr)
	}

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.metrics.Batches.WithLabelValues(outcome).Inc()
	r.metrics.BatchDurationSec.Observe(time.Since(start).Seconds())
	r.metrics.LastBatchUnix.SetToCurrentTime()
	log.Printf("batch finish stage=%s consumed=%d acked=%d skipped=%d failed=%d dur=%s err=%v",
		r.stage, res.Consumed, res.Acked, res.Skipped, res.Failed, time.Since(start).Round(time.Millisecond), err)
	return res, err
}

func (r *Runner) drain(ctx context.Context, maxMessages int, res *BatchResult) error {
	for res.Consumed < maxMessages {
		m, err := r.source.Next(ctx)
		if errors.Is(err, queue.ErrNoMessage) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("next: %w", err)
		}
		res.Consumed++
		r.metrics.Consumed.Inc()

		herr := classify(r.handler.Handle(ctx, m))
		switch {
		case herr == nil:
			if err := r.source.Ack(ctx, m); err != nil {
				r.source.Nack(m)
				return fmt.Errorf("ack: %w", err)
			}
			res.Acked++
			r.metrics.Acked.Inc()
		case IsSkip(herr):
			log.Printf("message skipped stage=%s partition=%d offset=%d err=%v", r.stage, m.Partition, m.Offset, herr)
			if err := r.source.Ack(ctx, m); err != nil {
				r.source.Nack(m)
				return fmt.Errorf("ack: %w", err)
			}
			res.Skipped++
			r.metrics.Skipped.Inc()
		default:
			r.source.Nack(m)
			res.Failed++
			r.metrics.Failed.Inc()
			log.Printf("message failed stage=%s partition=%d offset=%d err=%v", r.stage, m.Partition, m.Offset, herr)
			if IsConnectivity(herr) {
				return herr
			}
		}
	}
	return nil
}
