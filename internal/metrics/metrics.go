// Package metrics provides Prometheus metrics collection for the recording
// classification pipeline. It covers feature extraction, the feature cache,
// leave-one-out training and prediction serving.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the pipeline.
type Metrics struct {
	// Extraction metrics
	RecordingsProcessed prometheus.Counter   // Recordings turned into feature vectors
	RecordingsExcluded  prometheus.Counter   // Recordings dropped by parse or extraction errors
	ExtractionDuration  prometheus.Histogram // Parse+extract time per recording
	CacheHits           prometheus.Counter   // Feature vectors served from the cache
	CacheMisses         prometheus.Counter   // Feature vectors computed from scratch

	// Training metrics
	FoldDuration prometheus.Histogram // Duration of a single leave-one-out fold
	LOOAccuracy  prometheus.Gauge     // Accuracy of the last leave-one-out run
	ModelAge     prometheus.Gauge     // Age of the served model in seconds

	// Prediction metrics
	Predictions       prometheus.Counter   // Total number of recordings classified
	PredictionLatency prometheus.Histogram // Per-row prediction latency
	SchemaErrors      prometheus.Counter   // Batches rejected for missing schema columns
	HTTPRequests      *prometheus.CounterVec

	// System metrics
	ErrorsTotal prometheus.Counter

	gatherer prometheus.Gatherer
}

// New creates and registers all metrics with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	m := &Metrics{
		RecordingsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "recordings_processed_total",
			Help: "Total number of recordings turned into feature vectors",
		}),
		RecordingsExcluded: factory.NewCounter(prometheus.CounterOpts{
			Name: "recordings_excluded_total",
			Help: "Total number of recordings excluded by parse or extraction errors",
		}),
		ExtractionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "extraction_duration_seconds",
			Help:    "Parse and feature extraction time per recording in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "feature_cache_hits_total",
			Help: "Total number of feature vectors served from the cache",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "feature_cache_misses_total",
			Help: "Total number of feature vectors computed because the cache had no entry",
		}),
		FoldDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "loo_fold_duration_seconds",
			Help:    "Duration of a single leave-one-out fold in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
		}),
		LOOAccuracy: factory.NewGauge(prometheus.GaugeOpts{
			Name: "loo_accuracy",
			Help: "Accuracy of the most recent leave-one-out evaluation",
		}),
		ModelAge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "model_age_seconds",
			Help: "Age of the currently served model in seconds",
		}),
		Predictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of recordings classified",
		}),
		PredictionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_latency_seconds",
			Help:    "Per-recording prediction latency in seconds",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		SchemaErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "prediction_schema_errors_total",
			Help: "Total number of prediction batches rejected for missing schema columns",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests served, by handler and status code",
		}, []string{"handler", "code"}),
		ErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors encountered",
		}),
	}
	if g, ok := registerer.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// GetExclusionRate returns excluded / (processed + excluded) recordings, or
// 0 before any recording was seen or when the registry cannot be gathered.
func (m *Metrics) GetExclusionRate() float64 {
	if m.gatherer == nil {
		return 0
	}
	metricFamilies, err := m.gatherer.Gather()
	if err != nil {
		return 0
	}

	var processed, excluded float64
	for _, mf := range metricFamilies {
		switch mf.GetName() {
		case "recordings_processed_total":
			for _, metric := range mf.Metric {
				processed = metric.GetCounter().GetValue()
			}
		case "recordings_excluded_total":
			for _, metric := range mf.Metric {
				excluded = metric.GetCounter().GetValue()
			}
		}
	}

	if processed+excluded == 0 {
		return 0
	}
	return excluded / (processed + excluded)
}
