package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(batchItemsTotal, batchRunsTotal, batchRunDuration) }

var (
	batchItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batch_items_total",
			Help: "Work items settled by batch runs, labeled by outcome.",
		},
		[]string{"status"}, // 'complete', 'error', 'skipped'
	)

	batchRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batch_runs_total",
			Help: "Batch and regeneration runs, labeled by kind.",
		},
		[]string{"kind"}, // 'batch', 'regenerate'
	)

	batchRunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "batch_run_duration_seconds",
			Help:    "Wall time of full batch runs.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)
)

func IncBatchItem(status string) {
	batchItemsTotal.WithLabelValues(norm(status)).Inc()
}

func IncRun(kind string) {
	batchRunsTotal.WithLabelValues(norm(kind)).Inc()
}

func ObserveRunDuration(d time.Duration) {
	batchRunDuration.Observe(d.Seconds())
}
