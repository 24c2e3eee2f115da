// Package metrics holds the Prometheus collectors for the sync engine and
// record store. They register on the default registry and are served by
// the promhttp handler on /-/metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SyncCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quotesync_sync_cycles_total",
			Help: "Completed sync cycles by outcome",
		},
		[]string{"outcome"},
	)

	SyncCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quotesync_sync_cycle_duration_seconds",
			Help:    "Wall time of a sync cycle from push to persist",
			Buckets: prometheus.DefBuckets,
		},
	)

	PushResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quotesync_push_total",
			Help: "Individual record pushes by result",
		},
		[]string{"result"}, // "ok", "failed"
	)

	ConflictsDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quotesync_conflicts_detected_total",
			Help: "Conflicts found while merging pulled records",
		},
	)

	ConflictsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quotesync_conflicts_resolved_total",
			Help: "Conflicts resolved by winning side and trigger",
		},
		[]string{"choice", "mode"}, // choice: remote|local, mode: auto|manual
	)

	PendingConflicts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "quotesync_pending_conflicts",
			Help: "Conflicts waiting for an explicit resolution",
		},
	)

	StoreRecords = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "quotesync_store_records",
			Help: "Records held in the store by dirty state",
		},
		[]string{"state"}, // "dirty", "clean"
	)

	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quotesync_store_errors_total",
			Help: "Failed durable store operations",
		},
		[]string{"op"},
	)

	RemoteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quotesync_remote_requests_total",
			Help: "Calls to the remote collection by outcome, after retries",
		},
		[]string{"remote", "method", "outcome"}, // outcome: 2xx..5xx, error, circuit_open
	)

	RemoteRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quotesync_remote_request_duration_seconds",
			Help:    "Wall time of a remote call including retries and pacing",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"remote", "method"},
	)

	LastSuccessfulSync = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "quotesync_last_successful_sync_timestamp_seconds",
			Help: "Unix time of the last sync cycle that completed its pull",
		},
	)
)

// RecordCycle records one finished sync cycle.
func RecordCycle(outcome string, elapsed time.Duration) {
	SyncCycles.WithLabelValues(outcome).Inc()
	SyncCycleDuration.Observe(elapsed.Seconds())
}

// RecordStoreSize sets the store gauges.
func RecordStoreSize(dirty, clean int) {
	StoreRecords.WithLabelValues("dirty").Set(float64(dirty))
	StoreRecords.WithLabelValues("clean").Set(float64(clean))
}

// RecordRemoteCall records one finished call to the remote collection.
func RecordRemoteCall(remote, method, outcome string, elapsed time.Duration) {
	RemoteRequests.WithLabelValues(remote, method, outcome).Inc()
	RemoteRequestDuration.WithLabelValues(remote, method).Observe(elapsed.Seconds())
}
