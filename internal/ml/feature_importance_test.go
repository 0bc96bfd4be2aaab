package ml

import (
	"errors"
	"testing"

	"imu-svm/internal/features"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureImportance_Calculate(t *testing.T) {
	a, _ := trainedArtifact(t)
	p, err := NewPredictor(a, nil)
	require.NoError(t, err)

	fi := NewFeatureImportance(FeatureImportanceConfig{Repeats: 3, Seed: 7})
	stats, err := fi.Calculate(p, clusterTable(t, 3, "jump", "walk", "run"))
	require.NoError(t, err)

	require.Len(t, stats, len(a.Schema))
	assert.ElementsMatch(t, []string(a.Schema), TopFeatures(stats, 10))
	for i := 1; i < len(stats); i++ {
		assert.GreaterOrEqual(t, stats[i-1].ImportanceScore, stats[i].ImportanceScore)
	}
	for _, s := range stats {
		// baseline accuracy is perfect, so shuffling can only hurt
		assert.GreaterOrEqual(t, s.PermutationScore, 0.0)
		assert.GreaterOrEqual(t, s.WeightNorm, 0.0)
	}

	again, err := fi.Calculate(p, clusterTable(t, 3, "jump", "walk", "run"))
	require.NoError(t, err)
	assert.Equal(t, stats, again)
}

func TestFeatureImportance_NeedsSchema(t *testing.T) {
	a, _ := trainedArtifact(t)
	p, err := NewPredictor(a, nil)
	require.NoError(t, err)

	table, err := features.NewTable([]string{"Accel_Z_Mean"}, []features.Vector{
		{File: "jump_1.txt", Class: "jump", Values: map[string]float64{"Accel_Z_Mean": 1}},
	})
	require.NoError(t, err)

	_, err = NewFeatureImportance(FeatureImportanceConfig{}).Calculate(p, table)
	var schemaErr *features.PredictionSchemaError
	assert.True(t, errors.As(err, &schemaErr))
}

func TestWeightImportance(t *testing.T) {
	a, _ := trainedArtifact(t)
	stats := WeightImportance(a)

	require.Len(t, stats, 2)
	assert.Equal(t, a.Schema[0], stats[0].Name)
	assert.Greater(t, stats[0].WeightNorm+stats[1].WeightNorm, 0.0)
}

func TestTopFeatures(t *testing.T) {
	stats := []FeatureStats{{Name: "a"}, {Name: "b"}}
	assert.Equal(t, []string{"a"}, TopFeatures(stats, 1))
	assert.Equal(t, []string{"a", "b"}, TopFeatures(stats, 5))
}
