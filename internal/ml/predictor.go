package ml

import (
	"errors"
	"fmt"
	"time"

	"imu-svm/internal/features"

	"github.com/rs/zerolog/log"
)

// Prediction pairs a recording with its predicted label.
type Prediction struct {
	File  string `json:"file"`
	Label string `json:"label"`
}

// Predictor applies a loaded artifact to new feature tables. Every row is
// scaled with the persisted scaler and classified independently, so a
// recording gets the same label alone or inside any batch.
type Predictor struct {
	artifact *Artifact
	metrics  MetricsInterface
}

// NewPredictor wraps a validated artifact.
func NewPredictor(a *Artifact, metrics MetricsInterface) (*Predictor, error) {
	if a == nil {
		return nil, fmt.Errorf("predictor needs an artifact")
	}
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("invalid artifact: %w", err)
	}
	return &Predictor{artifact: a, metrics: metrics}, nil
}

// Artifact returns the model the predictor was built from.
func (p *Predictor) Artifact() *Artifact {
	return p.artifact
}

// Schema returns the feature columns the model consumes, in order.
func (p *Predictor) Schema() features.Schema {
	return p.artifact.Schema
}

// Predict labels every row of t in input order. The table must carry every
// column of the artifact schema; otherwise a *features.PredictionSchemaError
// aborts the whole batch.
func (p *Predictor) Predict(t features.Table) ([]Prediction, error) {
	selected, err := features.SelectStrict(t, p.artifact.Schema)
	if err != nil {
		var schemaErr *features.PredictionSchemaError
		if p.metrics != nil && errors.As(err, &schemaErr) {
			p.metrics.SchemaErrorsInc()
		}
		log.Error().Err(err).Strs("schema", p.artifact.Schema).Msg("Inference table does not match model schema")
		return nil, err
	}

	out := make([]Prediction, selected.Len())
	for i, row := range selected.Rows {
		label, err := p.PredictRow(selected.Row(i))
		if err != nil {
			return nil, fmt.Errorf("predict %s: %w", row.File, err)
		}
		out[i] = Prediction{File: row.File, Label: label}
	}
	return out, nil
}

// PredictRow classifies one raw (unscaled) feature row given in schema order.
func (p *Predictor) PredictRow(x []float64) (string, error) {
	start := time.Now()

	scaled, err := p.artifact.Scaler.TransformRow(x)
	if err != nil {
		return "", err
	}
	label, err := p.artifact.Classifier.Predict(scaled)
	if err != nil {
		return "", err
	}

	if p.metrics != nil {
		p.metrics.PredictionsInc()
		p.metrics.PredictionLatencyObserve(time.Since(start).Seconds())
	}
	return label, nil
}
