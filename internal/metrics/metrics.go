// Package metrics holds the Prometheus collectors exposed by `bidtrack serve`.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Holiday lookups by outcome: cache_hit, remote, fallback.
	CalendarLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bidtrack_calendar_lookups_total",
			Help: "Holiday calendar lookups by outcome",
		},
		[]string{"result"},
	)

	CalendarRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bidtrack_calendar_request_duration_seconds",
			Help:    "Holiday API request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~5s
		},
		[]string{"status"},
	)

	// 1 while the last remote lookup succeeded, 0 after a fallback.
	CalendarUp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bidtrack_calendar_up",
			Help: "Whether the last holiday API call succeeded",
		},
	)

	ReconcileTaskOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bidtrack_reconcile_task_ops_total",
			Help: "Derived task mutations issued by the reconciler",
		},
		[]string{"op", "kind"}, // op: create, update, complete, reopen
	)

	TaskBuckets = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bidtrack_pending_tasks",
			Help: "Pending tasks per dashboard bucket at the last refresh",
		},
		[]string{"bucket"},
	)

	PriorityRefreshes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bidtrack_priority_refreshed_tasks_total",
			Help: "Tasks whose stored priority was corrected by a refresh",
		},
	)
)

// RecordCalendarLookup counts one holiday lookup.
func RecordCalendarLookup(result string) {
	CalendarLookups.WithLabelValues(result).Inc()
}

// RecordCalendarRequest records a remote holiday API call.
func RecordCalendarRequest(status string, duration time.Duration) {
	CalendarRequestDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// SetCalendarUp flips the calendar health gauge.
func SetCalendarUp(up bool) {
	if up {
		CalendarUp.Set(1)
		return
	}
	CalendarUp.Set(0)
}

// IncrementTaskOp counts a reconciler mutation.
func IncrementTaskOp(op, kind string) {
	ReconcileTaskOps.WithLabelValues(op, kind).Inc()
}

// SetTaskBucket publishes a dashboard bucket size.
func SetTaskBucket(bucket string, n int) {
	TaskBuckets.WithLabelValues(bucket).Set(float64(n))
}

// AddPriorityRefreshes counts corrected priorities.
func AddPriorityRefreshes(n int) {
	PriorityRefreshes.Add(float64(n))
}
