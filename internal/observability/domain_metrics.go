package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	sandboxQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drill_sandbox_queries_total",
			Help: "Total number of sandbox queries by final state.",
		},
		[]string{"state"},
	)
	sandboxQueryRows = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "drill_sandbox_query_rows",
			Help:    "Rows returned per completed sandbox query.",
			Buckets: []float64{0, 1, 10, 100, 1000, 10000, 100000},
		},
	)
	sandboxQueryDurationMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "drill_sandbox_query_duration_ms",
			Help:    "Sandbox query execution latency in milliseconds.",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		},
	)
	exportedRowsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "drill_export_rows_total",
			Help: "Total number of result rows written to Parquet exports.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		sandboxQueriesTotal,
		sandboxQueryRows,
		sandboxQueryDurationMs,
		exportedRowsTotal,
	)
}

func ObserveSandboxQuery(state string, rows int, elapsed time.Duration) {
	sandboxQueriesTotal.WithLabelValues(state).Inc()
	if rows >= 0 {
		sandboxQueryRows.Observe(float64(rows))
	}
	sandboxQueryDurationMs.Observe(float64(elapsed.Milliseconds()))
}

func AddExportedRows(rows int64) {
	if rows > 0 {
		exportedRowsTotal.Add(float64(rows))
	}
}
