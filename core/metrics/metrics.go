// Package metrics exposes Prometheus collectors for sync passes and feed fetches.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cabin"

var (
	SyncPasses = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Subsystem: "sync", Name: "passes_total", Help: "Reconciliation passes by outcome."},
		[]string{"outcome"}, // outcome: committed|dry_run|failed
	)
	SyncAdmitted = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Subsystem: "sync", Name: "admitted_total", Help: "Feed bookings admitted."},
	)
	SyncRemoved = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Subsystem: "sync", Name: "removed_total", Help: "Stale synced reservations removed."},
	)
	SyncConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Subsystem: "sync", Name: "conflicts_total", Help: "Feed bookings refused for overlapping."},
	)
	SyncSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Subsystem: "sync", Name: "skipped_total", Help: "Feed bookings refused by policy."},
		[]string{"reason"},
	)
	FeedFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Subsystem: "feed", Name: "fetch_total", Help: "Feed fetches by cabin and status."},
		[]string{"cabin", "status"}, // status: ok|not_modified|error
	)
	FeedLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "feed", Name: "fetch_duration_seconds",
			Help:    "Feed fetch duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"cabin"},
	)
	CalendarPublishes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Subsystem: "calendar", Name: "publish_total", Help: "Calendar publish attempts by publisher and status."},
		[]string{"publisher", "status"}, // status: ok|error
	)
)

// NewRegistry returns a registry holding every collector of this package.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(SyncPasses, SyncAdmitted, SyncRemoved, SyncConflicts, SyncSkipped, FeedFetches, FeedLatency, CalendarPublishes)
	return reg
}

// Handler serves reg in the Prometheus text format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// ObserveFetch records one feed fetch.
func ObserveFetch(cabin, status string, dur time.Duration) {
	FeedFetches.WithLabelValues(cabin, status).Inc()
	FeedLatency.WithLabelValues(cabin).Observe(dur.Seconds())
}

// PassOutcome is what a sync pass contributes to the counters.
type PassOutcome struct {
	Outcome   string
	Admitted  int
	Removed   int
	Conflicts int
	Skipped   map[string]int
}

// ObservePass records one reconciliation pass.
func ObservePass(p PassOutcome) {
	SyncPasses.WithLabelValues(p.Outcome).Inc()
	if p.Outcome != "committed" {
		return
	}
	SyncAdmitted.Add(float64(p.Admitted))
	SyncRemoved.Add(float64(p.Removed))
	SyncConflicts.Add(float64(p.Conflicts))
	for reason, n := range p.Skipped {
		SyncSkipped.WithLabelValues(reason).Add(float64(n))
	}
}

// ObservePublish records one calendar publish attempt.
func ObservePublish(publisher string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	CalendarPublishes.WithLabelValues(publisher, status).Inc()
}
