// Package metrics registers the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EditsTotal counts edits by result: applied, failed, retried or
	// rejected when the queue is full.
	EditsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "protoreview_edits_total",
		Help: "Field updates by result",
	}, []string{"result"})

	// EditDuration tracks field-update round trips to the document store.
	EditDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "protoreview_edit_duration_seconds",
		Help:    "Field update latency in seconds",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
	})

	EditQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "protoreview_edit_queue_depth",
		Help: "Edits waiting for a worker",
	})

	// TabMounts counts fragment mounts by tab ID.
	TabMounts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "protoreview_tab_mounts_total",
		Help: "Layout fragment mounts by tab",
	}, []string{"tab"})

	// CoveragePercentage samples session coverage each time it is queried.
	CoveragePercentage = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "protoreview_coverage_percentage",
		Help:    "Reported review coverage percentage",
		Buckets: prometheus.LinearBuckets(0, 10, 11),
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "protoreview_active_sessions",
		Help: "Review sessions with a bound coverage registry",
	})

	CitationLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "protoreview_citation_lookups_total",
		Help: "Citation page lookups by result",
	}, []string{"result"})
)
