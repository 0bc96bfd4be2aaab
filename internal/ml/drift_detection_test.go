package ml

import (
	"testing"

	"imu-svm/internal/features"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriftDetector_TrainingDataHasNoDrift(t *testing.T) {
	a, _ := trainedArtifact(t)
	dd := NewDriftDetector(DriftDetectionConfig{Enabled: true})

	alerts, err := dd.Check(a, clusterTable(t, 3, "jump", "walk", "run"))
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestDriftDetector_ShiftedColumn(t *testing.T) {
	a, _ := trainedArtifact(t)
	dd := NewDriftDetector(DriftDetectionConfig{Enabled: true, AlertThreshold: 2})

	base := clusterTable(t, 3, "jump", "walk", "run")
	rows := make([]features.Vector, len(base.Rows))
	for i, r := range base.Rows {
		rows[i] = features.Vector{File: r.File, Values: map[string]float64{
			"Gyro_Z_Area under the curve": r.Values["Gyro_Z_Area under the curve"] + 1e5,
			"Accel_Z_Mean":                r.Values["Accel_Z_Mean"],
		}}
	}
	shifted, err := features.NewTable(base.Columns, rows)
	require.NoError(t, err)

	alerts, err := dd.Check(a, shifted)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "Gyro_Z_Area under the curve", alerts[0].FeatureName)
	assert.Equal(t, "high", alerts[0].Severity)
	assert.Equal(t, 1.0, alerts[0].OutOfRange)
	assert.Equal(t, 2.0, alerts[0].Threshold)
}

func TestDriftDetector_Disabled(t *testing.T) {
	a, _ := trainedArtifact(t)
	dd := NewDriftDetector(DriftDetectionConfig{})
	assert.False(t, dd.IsEnabled())

	alerts, err := dd.Check(a, clusterTable(t, 1, "jump"))
	require.NoError(t, err)
	assert.Nil(t, alerts)
}
