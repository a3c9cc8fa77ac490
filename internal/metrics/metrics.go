// Package metrics provides Prometheus metrics for category tree queries.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Query shapes used as the "shape" label.
const (
	ShapeSubtree   = "subtree"
	ShapeMultiRoot = "multi_root"
)

var (
	// QueriesTotal counts finalized queries by shape and outcome.
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cattree",
			Name:      "queries_total",
			Help:      "Total number of category tree queries by shape and status",
		},
		[]string{"shape", "status"},
	)

	// BuildDuration tracks the time spent planning and finalizing a query,
	// excluding execution.
	BuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cattree",
			Name:      "query_build_duration_seconds",
			Help:      "Duration of category tree query construction in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1},
		},
		[]string{"shape"},
	)

	// RowsReturned counts rows yielded to consumers.
	RowsReturned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cattree",
			Name:      "rows_returned_total",
			Help:      "Total number of category rows yielded",
		},
		[]string{"shape"},
	)

	// SelectionDepth records the computed depth of incoming selections.
	SelectionDepth = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "cattree",
			Name:      "selection_depth",
			Help:      "Depth of nested children selections",
			Buckets:   prometheus.LinearBuckets(1, 1, 8),
		},
	)
)

// ObserveBuild records a finished build for shape.
func ObserveBuild(shape string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	QueriesTotal.WithLabelValues(shape, status).Inc()
	BuildDuration.WithLabelValues(shape).Observe(time.Since(start).Seconds())
}
