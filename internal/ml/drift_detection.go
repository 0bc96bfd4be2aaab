package ml

import (
	"fmt"
	"math"
	"sort"

	"imu-svm/internal/features"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/stat"
)

// DriftAlert flags a schema column whose inference values sit far from the
// training distribution captured by the scaler.
type DriftAlert struct {
	FeatureName string  `json:"feature_name"`
	BatchMean   float64 `json:"batch_mean"`
	TrainMean   float64 `json:"train_mean"`
	// DriftScore is |batch mean - train mean| in training standard deviations.
	DriftScore float64 `json:"drift_score"`
	// OutOfRange is the share of rows more than Threshold deviations away.
	OutOfRange float64 `json:"out_of_range"`
	Threshold  float64 `json:"threshold"`
	Severity   string  `json:"severity"`
}

// DriftDetectionConfig configures drift detection
type DriftDetectionConfig struct {
	Enabled        bool    `yaml:"enabled" json:"enabled"`
	AlertThreshold float64 `yaml:"alert_threshold" json:"alert_threshold"`
}

// DriftDetector compares inference tables against the statistics a model
// was trained on.
type DriftDetector struct {
	enabled   bool
	threshold float64
}

// NewDriftDetector creates a new drift detector
func NewDriftDetector(config DriftDetectionConfig) *DriftDetector {
	dd := &DriftDetector{enabled: config.Enabled, threshold: config.AlertThreshold}
	if dd.threshold <= 0 {
		dd.threshold = 3
	}
	return dd
}

// IsEnabled returns whether drift detection is enabled
func (dd *DriftDetector) IsEnabled() bool {
	return dd.enabled
}

// Check returns one alert per schema column whose batch mean deviates from
// the training mean by more than the threshold, sorted by score.
func (dd *DriftDetector) Check(a *Artifact, t features.Table) ([]DriftAlert, error) {
	if !dd.enabled || t.Len() == 0 {
		return nil, nil
	}
	selected, err := features.SelectStrict(t, a.Schema)
	if err != nil {
		return nil, err
	}
	if a.Scaler.Dim() != len(a.Schema) {
		return nil, fmt.Errorf("scaler has %d columns but schema has %d", a.Scaler.Dim(), len(a.Schema))
	}

	X := selected.Matrix()
	col := make([]float64, len(X))
	var alerts []DriftAlert

	for j, name := range a.Schema {
		var outside int
		for i := range X {
			col[i] = X[i][j]
			if math.Abs(col[i]-a.Scaler.Mean[j])/a.Scaler.Scale[j] > dd.threshold {
				outside++
			}
		}
		mean := stat.Mean(col, nil)
		score := math.Abs(mean-a.Scaler.Mean[j]) / a.Scaler.Scale[j]
		if score <= dd.threshold {
			continue
		}
		alerts = append(alerts, DriftAlert{
			FeatureName: name,
			BatchMean:   mean,
			TrainMean:   a.Scaler.Mean[j],
			DriftScore:  score,
			OutOfRange:  float64(outside) / float64(len(X)),
			Threshold:   dd.threshold,
			Severity:    severity(score, dd.threshold),
		})
	}

	sort.Slice(alerts, func(i, k int) bool { return alerts[i].DriftScore > alerts[k].DriftScore })

	for _, alert := range alerts {
		log.Warn().
			Str("feature", alert.FeatureName).
			Float64("drift_score", alert.DriftScore).
			Str("severity", alert.Severity).
			Msg("Feature drift detected")
	}
	return alerts, nil
}

func severity(score, threshold float64) string {
	switch {
	case score > 3*threshold:
		return "high"
	case score > 2*threshold:
		return "medium"
	default:
		return "low"
	}
}
