package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, path and status",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	LotTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lot_transitions_total",
			Help: "Lot status transitions by source and target stage",
		},
		[]string{"from", "to"},
	)

	LotEntriesAppendedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lot_entries_appended_total",
			Help: "Entries appended to lots",
		},
	)

	DispatchRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_records_total",
			Help: "Dispatch ledger writes by operation",
		},
		[]string{"op"},
	)

	BackupRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapshot_backups_total",
			Help: "Snapshot backup runs by result",
		},
		[]string{"result"},
	)
)
