package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ClassificationRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "otoscan_classification_runs_total",
		Help: "Total number of classification runs, by outcome",
	}, []string{"outcome"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "otoscan_classification_stage_duration_seconds",
		Help:    "Duration of each classification pipeline stage",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"stage"})

	FramesClassifiedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "otoscan_frames_classified_total",
		Help: "Total number of frames sent through the classifier",
	})

	FramePredictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "otoscan_frame_predictions_total",
		Help: "Per-frame predictions, by label",
	}, []string{"label"})

	ActiveRuns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "otoscan_active_runs",
		Help: "Number of classification runs currently in progress",
	})

	DirectoryOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "otoscan_directory_operations_total",
		Help: "Doctor directory operations, by operation and result",
	}, []string{"operation", "result"})
)
