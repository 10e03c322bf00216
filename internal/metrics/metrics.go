// Package metrics defines Prometheus instrumentation for the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ExamplesGenerated counts examples that survived recovery and validation.
	ExamplesGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "softia_examples_generated_total",
		Help: "Examples recovered from completion responses.",
	})

	// PlaceholderFallbacks counts generation calls that degraded to the
	// built-in placeholder dataset.
	PlaceholderFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "softia_generation_placeholder_total",
		Help: "Generation calls that returned the placeholder dataset.",
	})

	// ScoringFailures counts reward-scoring calls that degraded to zero metrics.
	ScoringFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "softia_scoring_failures_total",
		Help: "Reward scoring calls that failed and returned neutral metrics.",
	})

	// TrainingTasks counts task status transitions by status label.
	TrainingTasks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "softia_training_tasks_total",
		Help: "Training task status transitions.",
	}, []string{"status"})

	// CompletionDuration observes text-completion round trips.
	CompletionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "softia_completion_duration_seconds",
		Help:    "Latency of text-completion requests.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	// PredictDuration observes serving-path generation round trips.
	PredictDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "softia_predict_duration_seconds",
		Help:    "Latency of predict requests against served models.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	})
)
