package metrics

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// System metrics
	SystemMemoryUsage = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pii_system_memory_bytes",
		Help: "Current system memory usage",
	})

	SystemGoroutines = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pii_system_goroutines",
		Help: "Number of goroutines",
	})

	// Pipeline metrics
	PipelineProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "pii_pipeline_processing_duration_seconds",
			Help: "Time spent running detection and validation for a document",
		},
		[]string{"status"},
	)

	PipelineQueueLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pii_pipeline_queue_length",
		Help: "Number of documents waiting to be processed",
	})

	// Detection metrics
	DocumentsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pii_documents_processed_total",
			Help: "Total number of documents run through detection",
		},
		[]string{"status"},
	)

	SpanProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "pii_span_processing_duration_seconds",
			Help: "Time spent running all recognizers over one span",
		},
		[]string{"status"},
	)

	EntitiesDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pii_entities_detected_total",
			Help: "Number of entities materialized by the merger",
		},
		[]string{"type", "method"},
	)

	RecognizerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pii_recognizer_failures_total",
			Help: "Recognizer invocations that returned an error or panicked",
		},
		[]string{"recognizer", "kind"},
	)

	UnmappedLabels = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pii_unmapped_labels_total",
			Help: "Candidates dropped because their label has no canonical type",
		},
		[]string{"label"},
	)

	// Validation metrics
	ValidationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pii_validation_duration_seconds",
			Help:    "Time spent validating one entity",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"outcome"},
	)

	ValidationOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pii_validation_outcomes_total",
			Help: "Contextual validation outcomes per entity",
		},
		[]string{"outcome"},
	)

	ValidationPromptTokens = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pii_validation_prompt_tokens_total",
		Help: "Prompt tokens sent to the judgment service",
	})

	ValidationsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pii_validations_in_flight",
		Help: "Number of judgment requests currently outstanding",
	})
)

// UpdateSystemMetrics updates system-level metrics
func UpdateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	SystemMemoryUsage.Set(float64(m.Alloc))
	SystemGoroutines.Set(float64(runtime.NumGoroutine()))
}
