package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the pipeline metrics of one stage. Every series carries a
// constant stage label.
type Registry struct {
	reg *prometheus.Registry

	Consumed  prometheus.Counter
	Acked     prometheus.Counter
	Skipped   prometheus.Counter
	Failed    prometheus.Counter
	Staged    prometheus.Counter
	Published prometheus.Counter
	Merged    prometheus.Counter
	Batches   *prometheus.CounterVec

	BatchDurationSec prometheus.Histogram
	LastBatchUnix    prometheus.Gauge
	SourceLag        *prometheus.GaugeVec
}

func NewRegistry(stage string) *Registry {
	r := prometheus.NewRegistry()
	labels := prometheus.Labels{"stage": stage}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help, ConstLabels: labels})
	}

	consumed := counter("dwh_messages_consumed_total", "Messages pulled from the source.")
	acked := counter("dwh_messages_acked_total", "Messages acknowledged after processing.")
	skipped := counter("dwh_messages_skipped_total", "Malformed or foreign messages acknowledged without processing.")
	failed := counter("dwh_messages_failed_total", "Messages left for redelivery.")
	staged := counter("dwh_orders_staged_total", "Orders merged into the vault.")
	published := counter("dwh_messages_published_total", "Messages published downstream.")
	merged := counter("dwh_mart_rows_merged_total", "Stats rows merged into the marts.")
	batches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "dwh_batches_total",
		Help:        "Finished batches by outcome.",
		ConstLabels: labels,
	}, []string{"outcome"})
	batchDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "dwh_batch_duration_seconds",
		Help:        "Wall time of one batch.",
		ConstLabels: labels,
		Buckets:     prometheus.DefBuckets,
	})
	lastBatch := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "dwh_last_batch_unixtime",
		Help:        "Finish time of the last batch.",
		ConstLabels: labels,
	})
	lag := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:        "dwh_source_lag",
		Help:        "Messages between the consumed position and the partition head.",
		ConstLabels: labels,
	}, []string{"partition"})

	r.MustRegister(consumed, acked, skipped, failed, staged, published, merged, batches, batchDuration, lastBatch, lag)
	return &Registry{
		reg:              r,
		Consumed:         consumed,
		Acked:            acked,
		Skipped:          skipped,
		Failed:           failed,
		Staged:           staged,
		Published:        published,
		Merged:           merged,
		Batches:          batches,
		BatchDurationSec: batchDuration,
		LastBatchUnix:    lastBatch,
		SourceLag:        lag,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

// Gatherer exposes the underlying registry for tests.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }
