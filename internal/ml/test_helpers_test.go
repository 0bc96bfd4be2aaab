package ml

import (
	"fmt"
	"sync"
	"testing"

	"imu-svm/internal/features"

	"github.com/stretchr/testify/require"
)

// MockMetrics implements MetricsInterface for testing
type MockMetrics struct {
	mu            sync.Mutex
	folds         int
	accuracy      float64
	predictions   int
	latencyCount  int
	schemaErrors  int
	foldDurations []float64
}

func (m *MockMetrics) FoldDurationObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.folds++
	m.foldDurations = append(m.foldDurations, v)
}

func (m *MockMetrics) AccuracySet(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accuracy = v
}

func (m *MockMetrics) PredictionsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions++
}

func (m *MockMetrics) PredictionLatencyObserve(float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencyCount++
}

func (m *MockMetrics) SchemaErrorsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schemaErrors++
}

// clusterTable builds a table with well-separated classes over two
// features of very different magnitude.
func clusterTable(t *testing.T, perClass int, classes ...string) features.Table {
	t.Helper()
	centers := map[string][2]float64{
		"jump": {1000, 0.5},
		"walk": {200, 2.5},
		"run":  {600, -1.5},
		"sit":  {50, 4.0},
	}

	var rows []features.Vector
	for _, class := range classes {
		c, ok := centers[class]
		require.True(t, ok, "no center for %s", class)
		for i := 0; i < perClass; i++ {
			jitter := float64(i%3) - 1
			rows = append(rows, features.Vector{
				File:  fmt.Sprintf("%s_%02d.txt", class, i),
				Class: class,
				Values: map[string]float64{
					"Gyro_Z_Area under the curve": c[0] + 15*jitter + float64(i),
					"Accel_Z_Mean":                c[1] + 0.1*jitter,
				},
			})
		}
	}

	table, err := features.NewTable([]string{"Gyro_Z_Area under the curve", "Accel_Z_Mean"}, rows)
	require.NoError(t, err)
	return table
}
