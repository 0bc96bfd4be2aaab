package pipeline

import (
	"context"
	"fmt"

	"imu-svm/internal/features"
	"imu-svm/internal/ml"
	"imu-svm/internal/report"

	"github.com/rs/zerolog/log"
)

// InferResult is the outcome of classifying a batch of recordings.
type InferResult struct {
	Predictions []ml.Prediction
	Excluded    []report.Exclusion
	Drift       []ml.DriftAlert
	Batch       BatchReport
}

// Inferencer classifies recordings with a persisted model, extracting
// features exactly as the model's training run did.
type Inferencer struct {
	predictor  ml.PredictorInterface
	extraction *Extraction
	drift      *ml.DriftDetector
}

// NewInferencer creates an inferencer. drift may be nil.
func NewInferencer(predictor ml.PredictorInterface, extraction *Extraction, drift *ml.DriftDetector) *Inferencer {
	return &Inferencer{predictor: predictor, extraction: extraction, drift: drift}
}

// Predictor returns the underlying predictor.
func (in *Inferencer) Predictor() ml.PredictorInterface {
	return in.predictor
}

// PredictDir classifies every recording in dir.
func (in *Inferencer) PredictDir(ctx context.Context, dir, ext string) (*InferResult, error) {
	table, batch, err := in.extraction.ExtractDir(ctx, dir, ext)
	if err != nil {
		return &InferResult{Excluded: batch.Excluded, Batch: batch}, err
	}
	return in.predict(table, batch)
}

// PredictRecordings classifies in-memory recordings.
func (in *Inferencer) PredictRecordings(ctx context.Context, recs []Recording) (*InferResult, error) {
	table, batch, err := in.extraction.ExtractRecordings(ctx, recs)
	if err != nil {
		return &InferResult{Excluded: batch.Excluded, Batch: batch}, err
	}
	return in.predict(table, batch)
}

func (in *Inferencer) predict(table features.Table, batch BatchReport) (*InferResult, error) {
	res := &InferResult{Excluded: batch.Excluded, Batch: batch}

	preds, err := in.predictor.Predict(table)
	if err != nil {
		return res, fmt.Errorf("predict: %w", err)
	}
	res.Predictions = preds

	if in.drift != nil && in.drift.IsEnabled() {
		alerts, err := in.drift.Check(in.predictor.Artifact(), table)
		if err != nil {
			log.Warn().Err(err).Msg("Drift check failed")
		}
		res.Drift = alerts
	}

	for _, p := range preds {
		log.Info().Str("file", p.File).Str("label", p.Label).Msg("Prediction")
	}
	return res, nil
}
