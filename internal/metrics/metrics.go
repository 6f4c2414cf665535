// Package metrics registers the process-level Prometheus instruments. The
// default registry is used so promhttp.Handler() exposes everything,
// including the Go runtime collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IngestRequests counts POST /public/traces requests by outcome.
	IngestRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "traceroot",
		Subsystem: "ingest",
		Name:      "requests_total",
		Help:      "OTLP ingestion requests by outcome.",
	}, []string{"outcome"})

	// IngestBytes counts raw (pre-inflation) request body bytes accepted.
	IngestBytes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "traceroot",
		Subsystem: "ingest",
		Name:      "bytes_total",
		Help:      "Raw OTLP request body bytes accepted.",
	})

	// WorkerTasks counts processed queue tasks by outcome: acked, requeued,
	// dead_letter, skipped.
	WorkerTasks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "traceroot",
		Subsystem: "worker",
		Name:      "tasks_total",
		Help:      "Ingest tasks by terminal outcome.",
	}, []string{"outcome"})

	// WorkerTaskDuration observes end-to-end task processing time.
	WorkerTaskDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "traceroot",
		Subsystem: "worker",
		Name:      "task_duration_seconds",
		Help:      "Ingest task processing duration.",
		Buckets:   prometheus.DefBuckets,
	})

	// RowsInserted counts columnar rows written, labelled by table.
	RowsInserted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "traceroot",
		Subsystem: "store",
		Name:      "rows_inserted_total",
		Help:      "Rows written to the columnar store by table.",
	}, []string{"table"})
)
