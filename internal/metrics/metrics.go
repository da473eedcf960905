// Package metrics registers the Prometheus instrumentation for the
// reconciliation pipeline.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds the Prometheus collectors for the pipeline.
type Metrics struct {
	// Email routing outcomes
	EmailsProcessed *prometheus.CounterVec

	// Case lifecycle
	CasesCreated     prometheus.Counter
	DuplicatesMerged prometheus.Counter
	StatusChanges    *prometheus.CounterVec

	// Match quality
	MatchConfidence prometheus.Histogram

	// Import runs
	ImportDuration prometheus.Histogram
	ImportErrors   prometheus.Counter
}

// Get returns the process-wide metrics, registering them on first use.
//
// sync.Once guards against "duplicate metrics collector registration"
// panics when multiple components ask for the same collectors.
//
// All metrics are prefixed with "caselink_".
func Get() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			EmailsProcessed: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "caselink_emails_processed_total",
					Help: "Total number of emails processed, by routing outcome",
				},
				[]string{"outcome"}, // "assigned", "suggested", "unmatched", "failed"
			),

			CasesCreated: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "caselink_cases_created_total",
					Help: "Total number of cases created from unmatched emails",
				},
			),

			DuplicatesMerged: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "caselink_duplicates_merged_total",
					Help: "Total number of duplicate cases merged away",
				},
			),

			StatusChanges: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "caselink_status_changes_total",
					Help: "Total number of automatic case status changes",
				},
				[]string{"to"},
			),

			MatchConfidence: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "caselink_match_confidence",
					Help:    "Confidence of the best match found per email",
					Buckets: prometheus.LinearBuckets(0.1, 0.1, 9), // 0.1 to 0.9
				},
			),

			ImportDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "caselink_import_duration_seconds",
					Help:    "Duration of full import runs in seconds",
					Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
				},
			),

			ImportErrors: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "caselink_import_errors_total",
					Help: "Total number of import runs that failed",
				},
			),
		}
	})

	return globalMetrics
}

// RecordMerge records one duplicate case merged into a primary.
func (m *Metrics) RecordMerge() {
	m.DuplicatesMerged.Inc()
}

// RecordStatusChange records an automatic status transition.
func (m *Metrics) RecordStatusChange(to string) {
	m.StatusChanges.WithLabelValues(to).Inc()
}
