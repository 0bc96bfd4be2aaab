package metrics

import "github.com/prometheus/client_golang/prometheus"

// Interfaces for metrics to avoid circular imports
type MetricsCounter interface {
	Inc()
}

type MetricsGauge interface {
	Set(float64)
	Add(float64)
}

// MetricsWrapper adapts Metrics to the hook interfaces consumed by the
// ml and pipeline packages.
type MetricsWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{m: m}
}

// Metrics returns the wrapped collection.
func (w *MetricsWrapper) Metrics() *Metrics {
	return w.m
}

func (w *MetricsWrapper) FoldDurationObserve(v float64) {
	w.m.FoldDuration.Observe(v)
}

func (w *MetricsWrapper) AccuracySet(v float64) {
	w.m.LOOAccuracy.Set(v)
}

func (w *MetricsWrapper) PredictionsInc() {
	w.m.Predictions.Inc()
}

func (w *MetricsWrapper) PredictionLatencyObserve(v float64) {
	w.m.PredictionLatency.Observe(v)
}

func (w *MetricsWrapper) SchemaErrorsInc() {
	w.m.SchemaErrors.Inc()
	w.m.ErrorsTotal.Inc()
}

func (w *MetricsWrapper) RecordingProcessedInc() {
	w.m.RecordingsProcessed.Inc()
}

func (w *MetricsWrapper) RecordingExcludedInc() {
	w.m.RecordingsExcluded.Inc()
	w.m.ErrorsTotal.Inc()
}

func (w *MetricsWrapper) ExtractionDurationObserve(v float64) {
	w.m.ExtractionDuration.Observe(v)
}

func (w *MetricsWrapper) CacheHitInc() {
	w.m.CacheHits.Inc()
}

func (w *MetricsWrapper) CacheMissInc() {
	w.m.CacheMisses.Inc()
}

func (w *MetricsWrapper) ModelAge() MetricsGauge {
	return &GaugeWrapper{w.m.ModelAge}
}

func (w *MetricsWrapper) HTTPRequest(handler, code string) MetricsCounter {
	return &CounterWrapper{w.m.HTTPRequests.WithLabelValues(handler, code)}
}

type CounterWrapper struct {
	c prometheus.Counter
}

func (cw *CounterWrapper) Inc() {
	cw.c.Inc()
}

type GaugeWrapper struct {
	g prometheus.Gauge
}

func (gw *GaugeWrapper) Set(v float64) {
	gw.g.Set(v)
}

func (gw *GaugeWrapper) Add(v float64) {
	gw.g.Add(v)
}
