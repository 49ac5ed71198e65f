package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Define global variables for metrics.
// We use 'promauto' which automatically registers metrics without complex initialization.
// A host service only has to mount the standard promhttp handler to expose them.

var (
	// 1. Alignment Solves (Counter)
	// Counts completed alignment solves, labeled by solver method
	// ("procrustes" or "least_squares").
	AlignmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walign_alignments_total",
			Help: "Total number of alignment solves completed",
		},
		[]string{"method"}, // Labels
	)

	// 2. Alignment Duration (Histogram)
	// Measures solve wall time.
	// Buckets cover small same-dimension Procrustes fits up to full
	// 8192-dim least-squares solves.
	AlignmentDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "walign_alignment_duration_seconds",
			Help:    "Duration of alignment solves in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method"},
	)

	// 3. Alignment Error (Gauge)
	// Tracks the mean squared alignment error of the most recent solve,
	// labeled by stage ("base" or "final").
	AlignmentEpsilon = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "walign_alignment_epsilon",
			Help: "Mean squared alignment error of the last solve",
		},
		[]string{"stage"},
	)

	// 4. Transformed Vectors (Counter)
	// Counts vectors projected through a computed transform.
	TransformsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "walign_transformed_vectors_total",
			Help: "Total number of vectors projected through a transform",
		},
	)
)
