package ml

import (
	"testing"

	"imu-svm/internal/features"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrossValidator_SeparableClasses(t *testing.T) {
	table := clusterTable(t, 4, "jump", "walk", "run")
	metrics := &MockMetrics{}

	res, err := NewCrossValidator(DefaultSVCConfig(), 4, metrics).Run(table)
	require.NoError(t, err)

	require.Len(t, res.Evaluation.Pairs, table.Len())
	for i, p := range res.Evaluation.Pairs {
		assert.Equal(t, table.Rows[i].File, p.File)
		assert.Equal(t, table.Rows[i].Class, p.True)
	}
	assert.Equal(t, 1.0, res.Evaluation.Accuracy)
	assert.Equal(t, []string{"jump", "run", "walk"}, res.Classifier.Classes)
	assert.Equal(t, features.Schema(table.Columns), res.Schema)

	assert.Equal(t, table.Len(), metrics.folds)
	assert.Equal(t, 1.0, metrics.accuracy)
}

func TestCrossValidator_AccuracyIsFractionCorrect(t *testing.T) {
	table := clusterTable(t, 3, "jump", "walk")
	// one mislabeled row cannot be recovered by its own fold
	table.Rows[0].Class = "walk"

	res, err := NewCrossValidator(DefaultSVCConfig(), 2, nil).Run(table)
	require.NoError(t, err)

	e := res.Evaluation
	assert.InDelta(t, float64(e.Correct())/float64(table.Len()), e.Accuracy, 1e-12)
	assert.Less(t, e.Accuracy, 1.0)
}

func TestCrossValidator_FoldsUseTrainingRowsOnly(t *testing.T) {
	table := clusterTable(t, 3, "jump", "walk", "sit")
	cfg := DefaultSVCConfig()

	res, err := NewCrossValidator(cfg, 3, nil).Run(table)
	require.NoError(t, err)

	X := table.Matrix()
	y := table.Labels()
	for held := range X {
		var trainX [][]float64
		var trainY []string
		for i := range X {
			if i != held {
				trainX = append(trainX, X[i])
				trainY = append(trainY, y[i])
			}
		}
		scaler, err := FitScaler(trainX)
		require.NoError(t, err)
		scaled, err := scaler.Transform(trainX)
		require.NoError(t, err)
		svc, err := FitSVC(scaled, trainY, cfg)
		require.NoError(t, err)
		x, err := scaler.TransformRow(X[held])
		require.NoError(t, err)
		want, err := svc.Predict(x)
		require.NoError(t, err)

		assert.Equal(t, want, res.Evaluation.Pairs[held].Predicted, "fold %d", held)
	}

	full, err := FitScaler(X)
	require.NoError(t, err)
	assert.Equal(t, full, res.Scaler)
}

func TestCrossValidator_TwoRecordings(t *testing.T) {
	table, err := features.NewTable([]string{"Accel_Z_Mean"}, []features.Vector{
		{File: "jump_1.txt", Class: "jump", Values: map[string]float64{"Accel_Z_Mean": 1}},
		{File: "walk_1.txt", Class: "walk", Values: map[string]float64{"Accel_Z_Mean": 5}},
	})
	require.NoError(t, err)

	res, err := NewCrossValidator(DefaultSVCConfig(), 0, nil).Run(table)
	require.NoError(t, err)

	assert.Equal(t, []Pair{
		{File: "jump_1.txt", True: "jump", Predicted: "walk"},
		{File: "walk_1.txt", True: "walk", Predicted: "jump"},
	}, res.Evaluation.Pairs)
	assert.Equal(t, 0.0, res.Evaluation.Accuracy)
	assert.Equal(t, []string{"jump", "walk"}, res.Classifier.Classes)
}

func TestCrossValidator_WorkerCountDoesNotChangeResult(t *testing.T) {
	table := clusterTable(t, 4, "jump", "walk", "run", "sit")

	serial, err := NewCrossValidator(DefaultSVCConfig(), 1, nil).Run(table)
	require.NoError(t, err)
	parallel, err := NewCrossValidator(DefaultSVCConfig(), 8, nil).Run(table)
	require.NoError(t, err)

	assert.Equal(t, serial.Evaluation, parallel.Evaluation)
	assert.Equal(t, serial.Classifier, parallel.Classifier)
}

func TestCrossValidator_TooFewRows(t *testing.T) {
	table, err := features.NewTable([]string{"Accel_Z_Mean"}, []features.Vector{
		{File: "jump_1.txt", Class: "jump", Values: map[string]float64{"Accel_Z_Mean": 1}},
	})
	require.NoError(t, err)

	_, err = NewCrossValidator(DefaultSVCConfig(), 1, nil).Run(table)
	assert.Error(t, err)

	_, err = NewCrossValidator(DefaultSVCConfig(), 1, nil).Run(features.Table{})
	assert.Error(t, err)
}
