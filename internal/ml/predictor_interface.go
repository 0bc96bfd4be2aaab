package ml

import "imu-svm/internal/features"

// PredictorInterface is what serving code needs from a predictor.
type PredictorInterface interface {
	Predict(t features.Table) ([]Prediction, error)
	Schema() features.Schema
	Artifact() *Artifact
}

var _ PredictorInterface = (*Predictor)(nil)
