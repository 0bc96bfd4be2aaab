package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func featureByName(t *testing.T, name string) featureFunc {
	t.Helper()
	for _, f := range battery {
		if f.name == name {
			return f.fn
		}
	}
	t.Fatalf("feature %q not in battery", name)
	return nil
}

func TestBattery_Ramp(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	const fs = 10.0

	want := map[string]float64{
		"Absolute energy":           30,
		"Area under the curve":      0.75,
		"Centroid":                  7.0 / 30.0,
		"Interquartile range":       1.5,
		"Kurtosis":                  -1.36,
		"Max":                       4,
		"Mean":                      2.5,
		"Mean absolute deviation":   1,
		"Mean absolute diff":        1,
		"Mean diff":                 1,
		"Median":                    2.5,
		"Median absolute deviation": 1,
		"Median absolute diff":      1,
		"Median diff":               1,
		"Min":                       1,
		"Negative turning points":   0,
		"Peak to peak distance":     3,
		"Positive turning points":   0,
		"Root mean square":          math.Sqrt(7.5),
		"Signal distance":           3 * math.Sqrt2,
		"Skewness":                  0,
		"Slope":                     1,
		"Standard deviation":        math.Sqrt(1.25),
		"Sum absolute diff":         3,
		"Total energy":              100,
		"Variance":                  1.25,
		"Zero crossing rate":        0,
	}
	require.Len(t, battery, len(want))

	for name, expected := range want {
		t.Run(name, func(t *testing.T) {
			got := featureByName(t, name)(x, fs)
			assert.InDelta(t, expected, got, 1e-9)
		})
	}
}

func TestBattery_Oscillation(t *testing.T) {
	x := []float64{1, -1, 2, -2, 0}

	assert.Equal(t, 4.0, zeroCrossingRate(x, 10))
	assert.Equal(t, 2.0, negativeTurningPoints(x, 10))
	assert.Equal(t, 1.0, positiveTurningPoints(x, 10))
	assert.Equal(t, 11.0, sumAbsoluteDiff(x, 10))
	assert.InDelta(t, 0.15, areaUnderCurve(x, 10), 1e-12)
	assert.InDelta(t, 0.0, percentile(x, 50), 1e-12)
}

func TestAreaUnderCurve_MixedSign(t *testing.T) {
	tests := []struct {
		name string
		x    []float64
		want float64
	}{
		{"alternating", []float64{2, -3, 2, -3, 2}, 0.2},
		{"all negative", []float64{-1, -2, -3, -4}, 0.75},
		{"symmetric swing", []float64{1, -1, 1, -1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, areaUnderCurve(tt.x, 10), 1e-12)
		})
	}
}

func TestBattery_ConstantChannelIsFinite(t *testing.T) {
	x := []float64{5, 5, 5}

	for _, f := range battery {
		v := f.fn(x, 10)
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "%s produced %v", f.name, v)
	}
	assert.Equal(t, 0.0, kurtosis(x, 10))
	assert.Equal(t, 0.0, skewness(x, 10))
	assert.InDelta(t, 0.1, centroid(x, 10), 1e-12)
	assert.Equal(t, 0.0, centroid([]float64{0, 0}, 10))
}

func TestBattery_NamesSorted(t *testing.T) {
	names := BatteryNames()
	for i := 1; i < len(names); i++ {
		assert.Less(t, names[i-1], names[i])
	}
	assert.NotContains(t, names, "Spectral centroid")
}

func TestPercentile_LinearInterpolation(t *testing.T) {
	x := []float64{4, 1, 3, 2}

	assert.InDelta(t, 1.75, percentile(x, 25), 1e-12)
	assert.InDelta(t, 3.25, percentile(x, 75), 1e-12)
	assert.Equal(t, 1.0, percentile(x, 0))
	assert.Equal(t, 4.0, percentile(x, 100))
	// input must stay untouched
	assert.Equal(t, []float64{4, 1, 3, 2}, x)
}
