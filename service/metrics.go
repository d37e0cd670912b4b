package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("scigolab.service")

// Run outcomes used as the status label.
const (
	outcomeDone     = "done"
	outcomeFailed   = "failed"
	outcomeRejected = "rejected"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scigolab",
		Subsystem: "experiment",
		Name:      "runs_total",
		Help:      "Experiment runs by algorithm and outcome",
	}, []string{"algorithm", "status"})

	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "scigolab",
		Subsystem: "experiment",
		Name:      "run_duration_seconds",
		Help:      "Wall time of successful runs including artifact rendering",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
	}, []string{"algorithm"})

	runsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "scigolab",
		Subsystem: "experiment",
		Name:      "runs_in_flight",
		Help:      "Runs currently holding a concurrency slot",
	})

	artifactsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scigolab",
		Subsystem: "artifacts",
		Name:      "skipped_total",
		Help:      "Plots not produced, by label",
	}, []string{"label"})

	datasetsUploaded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scigolab",
		Subsystem: "datasets",
		Name:      "uploaded_total",
		Help:      "Accepted dataset uploads by format",
	}, []string{"format"})
)
