package ml

import (
	"errors"
	"testing"

	"imu-svm/internal/features"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredictor_PredictsInInputOrder(t *testing.T) {
	a, _ := trainedArtifact(t)
	metrics := &MockMetrics{}
	p, err := NewPredictor(a, metrics)
	require.NoError(t, err)

	table := clusterTable(t, 3, "walk", "run", "jump")
	preds, err := p.Predict(table)
	require.NoError(t, err)

	require.Len(t, preds, table.Len())
	for i, pred := range preds {
		assert.Equal(t, table.Rows[i].File, pred.File)
		assert.Equal(t, table.Rows[i].Class, pred.Label)
	}
	assert.Equal(t, table.Len(), metrics.predictions)
	assert.Equal(t, table.Len(), metrics.latencyCount)
}

func TestPredictor_BatchInvariant(t *testing.T) {
	a, _ := trainedArtifact(t)
	p, err := NewPredictor(a, nil)
	require.NoError(t, err)

	table := clusterTable(t, 3, "jump", "walk", "run")
	batch, err := p.Predict(table)
	require.NoError(t, err)

	for i, row := range table.Rows {
		single, err := features.NewTable(table.Columns, []features.Vector{row})
		require.NoError(t, err)
		alone, err := p.Predict(single)
		require.NoError(t, err)
		require.Len(t, alone, 1)
		assert.Equal(t, batch[i], alone[0])
	}
}

func TestPredictor_IgnoresColumnOrderAndExtras(t *testing.T) {
	a, _ := trainedArtifact(t)
	p, err := NewPredictor(a, nil)
	require.NoError(t, err)

	base := clusterTable(t, 2, "jump", "run")
	var rows []features.Vector
	for _, r := range base.Rows {
		values := map[string]float64{"Gyro_X_Slope": 42}
		for k, v := range r.Values {
			values[k] = v
		}
		rows = append(rows, features.Vector{File: r.File, Class: r.Class, Values: values})
	}
	wide, err := features.NewTable([]string{"Gyro_X_Slope", "Accel_Z_Mean", "Gyro_Z_Area under the curve"}, rows)
	require.NoError(t, err)

	want, err := p.Predict(base)
	require.NoError(t, err)
	got, err := p.Predict(wide)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestPredictor_MissingColumnFailsBatch(t *testing.T) {
	a, _ := trainedArtifact(t)
	metrics := &MockMetrics{}
	p, err := NewPredictor(a, metrics)
	require.NoError(t, err)

	table, err := features.NewTable([]string{"Accel_Z_Mean"}, []features.Vector{
		{File: "jump_9.txt", Values: map[string]float64{"Accel_Z_Mean": 0.5}},
	})
	require.NoError(t, err)

	preds, err := p.Predict(table)
	assert.Nil(t, preds)

	var schemaErr *features.PredictionSchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, []string{"Gyro_Z_Area under the curve"}, schemaErr.Missing)
	assert.Equal(t, 1, metrics.schemaErrors)
	assert.Zero(t, metrics.predictions)
}

func TestNewPredictor_Rejects(t *testing.T) {
	_, err := NewPredictor(nil, nil)
	assert.Error(t, err)

	a, _ := trainedArtifact(t)
	broken := *a
	broken.Kernel = "rbf"
	_, err = NewPredictor(&broken, nil)
	assert.Error(t, err)
}
