package ml

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"imu-svm/internal/features"

	"github.com/rs/zerolog/log"
)

// FeatureStats contains the importance measures for a single schema column
type FeatureStats struct {
	Name string `json:"name"`
	// WeightNorm is the mean absolute weight over all pairwise models, in
	// scaled feature space.
	WeightNorm float64 `json:"weight_norm"`
	// PermutationScore is the accuracy lost when the column is shuffled.
	PermutationScore float64 `json:"permutation_score"`
	ImportanceScore  float64 `json:"importance_score"`
}

// FeatureImportanceConfig configures permutation importance
type FeatureImportanceConfig struct {
	Repeats int   `yaml:"repeats" json:"repeats"`
	Seed    int64 `yaml:"seed" json:"seed"`
}

// FeatureImportance ranks the columns of a trained model
type FeatureImportance struct {
	config FeatureImportanceConfig
}

// NewFeatureImportance creates a new feature importance calculator
func NewFeatureImportance(config FeatureImportanceConfig) *FeatureImportance {
	if config.Repeats <= 0 {
		config.Repeats = 5
	}
	if config.Seed == 0 {
		config.Seed = 1
	}
	return &FeatureImportance{config: config}
}

// WeightImportance reports the mean |w| per column of a linear classifier.
func WeightImportance(a *Artifact) []FeatureStats {
	out := make([]FeatureStats, len(a.Schema))
	for j, name := range a.Schema {
		out[j].Name = name
		if len(a.Classifier.Pairs) == 0 {
			continue
		}
		var sum float64
		for _, p := range a.Classifier.Pairs {
			sum += math.Abs(p.Weights[j])
		}
		out[j].WeightNorm = sum / float64(len(a.Classifier.Pairs))
	}
	return out
}

// Calculate measures, for every schema column, how much accuracy on the
// labeled table t drops when that column is shuffled across rows. Results
// are sorted by importance, highest first.
func (fi *FeatureImportance) Calculate(p *Predictor, t features.Table) ([]FeatureStats, error) {
	selected, err := features.SelectStrict(t, p.Schema())
	if err != nil {
		return nil, err
	}
	if selected.Len() == 0 {
		return nil, fmt.Errorf("no rows to measure importance on")
	}

	X := selected.Matrix()
	y := selected.Labels()

	baseline, err := fi.score(p, X, y)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(fi.config.Seed))
	stats := WeightImportance(p.Artifact())

	for j := range stats {
		var drop float64
		for r := 0; r < fi.config.Repeats; r++ {
			permuted := make([][]float64, len(X))
			for i := range X {
				permuted[i] = append([]float64(nil), X[i]...)
			}
			perm := rng.Perm(len(X))
			for i := range permuted {
				permuted[i][j] = X[perm[i]][j]
			}
			score, err := fi.score(p, permuted, y)
			if err != nil {
				return nil, err
			}
			drop += baseline - score
		}
		stats[j].PermutationScore = drop / float64(fi.config.Repeats)
		stats[j].ImportanceScore = math.Max(0, stats[j].PermutationScore)
	}

	sort.SliceStable(stats, func(a, b int) bool {
		if stats[a].ImportanceScore != stats[b].ImportanceScore {
			return stats[a].ImportanceScore > stats[b].ImportanceScore
		}
		return stats[a].WeightNorm > stats[b].WeightNorm
	})

	log.Debug().Float64("baseline_accuracy", baseline).Int("columns", len(stats)).Msg("Feature importance calculated")
	return stats, nil
}

func (fi *FeatureImportance) score(p *Predictor, X [][]float64, y []string) (float64, error) {
	var correct int
	for i, row := range X {
		label, err := p.PredictRow(row)
		if err != nil {
			return 0, err
		}
		if label == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(X)), nil
}

// TopFeatures returns the names of the n most important columns.
func TopFeatures(stats []FeatureStats, n int) []string {
	if n > len(stats) {
		n = len(stats)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = stats[i].Name
	}
	return out
}
