// Package server exposes a trained model over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"imu-svm/internal/features"
	"imu-svm/internal/metrics"
	"imu-svm/internal/ml"
	"imu-svm/internal/pipeline"
	"imu-svm/internal/report"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// maxRequestBytes bounds the size of a prediction request body.
const maxRequestBytes = 32 << 20

// RecordingPayload carries one raw recording in a request.
type RecordingPayload struct {
	File    string `json:"file"`
	Content string `json:"content"`
}

// PredictionRequest represents the incoming prediction request
type PredictionRequest struct {
	Recordings []RecordingPayload `json:"recordings"`
	RequestID  string             `json:"request_id,omitempty"`
}

// PredictionResponse represents the prediction result
type PredictionResponse struct {
	Predictions  []ml.Prediction    `json:"predictions"`
	Excluded     []report.Exclusion `json:"excluded"`
	Drift        []ml.DriftAlert    `json:"drift,omitempty"`
	RequestID    string             `json:"request_id,omitempty"`
	ModelVersion string             `json:"model_version,omitempty"`
	Latency      float64            `json:"latency_ms"`
	Timestamp    time.Time          `json:"timestamp"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error     string             `json:"error"`
	Missing   []string           `json:"missing,omitempty"`
	Excluded  []report.Exclusion `json:"excluded,omitempty"`
	RequestID string             `json:"request_id,omitempty"`
}

// ModelInfo describes the served model.
type ModelInfo struct {
	Version         string                `json:"version,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	Kernel          string                `json:"kernel"`
	Classes         []string              `json:"classes"`
	Schema          []string              `json:"schema"`
	Extraction      ml.ExtractionParams   `json:"extraction"`
	TrainingSamples int                   `json:"training_samples"`
	Evaluation      *ml.EvaluationSummary `json:"evaluation,omitempty"`
}

// HealthStatus is the body of /health.
type HealthStatus struct {
	Healthy     bool      `json:"healthy"`
	ModelLoaded bool      `json:"model_loaded"`
	StartedAt   time.Time `json:"started_at"`
	Uptime      string    `json:"uptime"`
}

// Options configures a ModelServer.
type Options struct {
	Port           int
	ModelVersion   string
	RequestTimeout time.Duration
	Metrics        *metrics.MetricsWrapper
	Gatherer       prometheus.Gatherer
}

// ModelServer provides HTTP API for model predictions
type ModelServer struct {
	inferencer *pipeline.Inferencer
	opts       Options
	startedAt  time.Time
	server     *http.Server
}

// NewModelServer creates a new HTTP server for model serving
func NewModelServer(inferencer *pipeline.Inferencer, opts Options) *ModelServer {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	ms := &ModelServer{
		inferencer: inferencer,
		opts:       opts,
		startedAt:  time.Now(),
	}

	ms.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", opts.Port),
		Handler:      ms.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: opts.RequestTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return ms
}

// Handler returns the routes of the server.
func (ms *ModelServer) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/predict", ms.handlePredict).Methods(http.MethodPost)
	r.HandleFunc("/health", ms.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/model/info", ms.handleModelInfo).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(ms.opts.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ms.writeJSON(w, "method_not_allowed", http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed"})
	})
	return r
}

// Start begins serving HTTP requests
func (ms *ModelServer) Start() error {
	log.Info().Str("addr", ms.server.Addr).Str("model_version", ms.opts.ModelVersion).Msg("starting model server")
	if err := ms.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (ms *ModelServer) Shutdown(ctx context.Context) error {
	return ms.server.Shutdown(ctx)
}

func (ms *ModelServer) handlePredict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req PredictionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		ms.writeJSON(w, "predict", http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}
	if req.RequestID == "" {
		req.RequestID = uuid.New().String()
	}

	if len(req.Recordings) == 0 {
		ms.writeJSON(w, "predict", http.StatusBadRequest, ErrorResponse{Error: "recordings cannot be empty", RequestID: req.RequestID})
		return
	}
	recs := make([]pipeline.Recording, len(req.Recordings))
	seen := make(map[string]struct{}, len(req.Recordings))
	for i, rec := range req.Recordings {
		if rec.File == "" {
			ms.writeJSON(w, "predict", http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("recording %d has no file name", i), RequestID: req.RequestID})
			return
		}
		if _, dup := seen[rec.File]; dup {
			ms.writeJSON(w, "predict", http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("duplicate recording %q", rec.File), RequestID: req.RequestID})
			return
		}
		seen[rec.File] = struct{}{}
		recs[i] = pipeline.Recording{Name: rec.File, Content: []byte(rec.Content)}
	}

	ctx, cancel := context.WithTimeout(r.Context(), ms.opts.RequestTimeout)
	defer cancel()

	res, err := ms.inferencer.PredictRecordings(ctx, recs)
	if err != nil {
		var schemaErr *features.PredictionSchemaError
		resp := ErrorResponse{Error: err.Error(), RequestID: req.RequestID}
		if res != nil {
			resp.Excluded = res.Excluded
		}
		status := http.StatusInternalServerError
		switch {
		case errors.As(err, &schemaErr):
			status = http.StatusUnprocessableEntity
			resp.Missing = schemaErr.Missing
		case errors.Is(err, pipeline.ErrNoUsableRecordings):
			status = http.StatusUnprocessableEntity
		case errors.Is(err, context.DeadlineExceeded):
			status = http.StatusGatewayTimeout
		}
		log.Error().Err(err).Str("request_id", req.RequestID).Msg("prediction failed")
		ms.writeJSON(w, "predict", status, resp)
		return
	}

	excluded := res.Excluded
	if excluded == nil {
		excluded = []report.Exclusion{}
	}
	ms.writeJSON(w, "predict", http.StatusOK, PredictionResponse{
		Predictions:  res.Predictions,
		Excluded:     excluded,
		Drift:        res.Drift,
		RequestID:    req.RequestID,
		ModelVersion: ms.opts.ModelVersion,
		Latency:      float64(time.Since(start).Microseconds()) / 1000,
		Timestamp:    time.Now(),
	})
}

func (ms *ModelServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	loaded := ms.inferencer != nil && ms.inferencer.Predictor() != nil
	health := HealthStatus{
		Healthy:     loaded,
		ModelLoaded: loaded,
		StartedAt:   ms.startedAt,
		Uptime:      time.Since(ms.startedAt).Round(time.Second).String(),
	}

	status := http.StatusOK
	if !health.Healthy {
		status = http.StatusServiceUnavailable
	}
	ms.writeJSON(w, "health", status, health)
}

func (ms *ModelServer) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	a := ms.inferencer.Predictor().Artifact()
	if ms.opts.Metrics != nil {
		ms.opts.Metrics.ModelAge().Set(time.Since(a.CreatedAt).Seconds())
	}
	ms.writeJSON(w, "model_info", http.StatusOK, ModelInfo{
		Version:         ms.opts.ModelVersion,
		CreatedAt:       a.CreatedAt,
		Kernel:          a.Kernel,
		Classes:         a.Classes,
		Schema:          a.Schema,
		Extraction:      a.Extraction,
		TrainingSamples: a.TrainingSamples,
		Evaluation:      a.Evaluation,
	})
}

func (ms *ModelServer) writeJSON(w http.ResponseWriter, handler string, status int, body interface{}) {
	if ms.opts.Metrics != nil {
		ms.opts.Metrics.HTTPRequest(handler, strconv.Itoa(status)).Inc()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn().Err(err).Str("handler", handler).Msg("failed to write response")
	}
}
