package features

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"imu-svm/internal/signal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingText renders n well-formed log lines carrying all three fields.
func recordingText(n int, phase float64) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		x := float64(i)/4 + phase
		fmt.Fprintf(&b, "t: %d Acc: %.4f, %.4f, %.4f Gyro: %.4f, %.4f, %.4f\n",
			i*100, math.Sin(x), math.Cos(x), 9.8+0.1*math.Sin(2*x),
			phase*math.Cos(x), 0.5*math.Sin(3*x), -phase+0.01*float64(i))
	}
	return b.String()
}

func parseText(t *testing.T, name, text string) *signal.Signal {
	t.Helper()
	sig, err := signal.NewParser(signal.DefaultTimeOffset).Parse(name, strings.NewReader(text))
	require.NoError(t, err)
	return sig
}

func TestExtractor_EveryFeaturePresentAndFinite(t *testing.T) {
	e := NewExtractor(0)
	assert.Equal(t, DefaultSamplingRate, e.SamplingRate())

	sig := parseText(t, "jump_01.txt", recordingText(20, 1))
	v, err := e.Extract(sig)
	require.NoError(t, err)

	names := e.FeatureNames()
	assert.Len(t, names, len(BatteryNames())*6)
	assert.Len(t, v.Values, len(names))
	assert.Equal(t, "jump_01.txt", v.File)
	assert.Empty(t, v.Class)

	for _, name := range names {
		value, ok := v.Values[name]
		require.True(t, ok, "missing %s", name)
		assert.False(t, math.IsNaN(value) || math.IsInf(value, 0), "%s = %v", name, value)
	}
	for _, c := range DefaultSchema {
		assert.Contains(t, names, c)
	}
}

func TestExtractor_Deterministic(t *testing.T) {
	e := NewExtractor(10)
	text := recordingText(15, 2)

	a, err := e.Extract(parseText(t, "walk_01.txt", text))
	require.NoError(t, err)
	b, err := e.Extract(parseText(t, "walk_01.txt", text))
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestExtractor_DegenerateSignal(t *testing.T) {
	sig := parseText(t, "short_01.txt", recordingText(1, 0))

	_, err := NewExtractor(10).Extract(sig)
	require.Error(t, err)

	var degenerate *DegenerateSignalError
	require.True(t, errors.As(err, &degenerate))
	assert.Equal(t, "short_01.txt", degenerate.Recording)
	assert.Equal(t, "Accel_X", degenerate.Channel)
	assert.Equal(t, 1, degenerate.Samples)
}

func TestExtractor_Fingerprint(t *testing.T) {
	assert.Equal(t, NewExtractor(10).Fingerprint(), NewExtractor(0).Fingerprint())
	assert.NotEqual(t, NewExtractor(10).Fingerprint(), NewExtractor(20).Fingerprint())
	assert.Contains(t, NewExtractor(10).Fingerprint(), fmt.Sprintf("rev=%d", batteryRevision))
}

func TestAssignClass(t *testing.T) {
	tests := []struct {
		file, delimiter, want string
	}{
		{"jump_01.txt", "", "jump"},
		{"walk_01.txt", "_", "walk"},
		{"run_jump_1.txt", "_", "run"},
		{"/data/session/run_jump_1.txt", "_", "run"},
		{"sit-03.txt", "-", "sit"},
		{"noprefix.txt", "_", "noprefix.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			assert.Equal(t, tt.want, AssignClass(tt.file, tt.delimiter))
		})
	}
}

func TestUnknownLabels(t *testing.T) {
	table := Table{Rows: []Vector{{Class: "jump"}, {Class: "run"}, {Class: "walk"}, {Class: "run"}}}

	assert.Equal(t, []string{"run"}, UnknownLabels(table, []string{"jump", "walk"}))
	assert.Nil(t, UnknownLabels(table, nil))
}
