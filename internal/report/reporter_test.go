package report

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"imu-svm/internal/common"
	"imu-svm/internal/features"
	"imu-svm/internal/ml"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResults() *TrainingResults {
	eval := ml.Evaluate([]ml.Pair{
		{File: "jump_01.txt", True: "jump", Predicted: "jump"},
		{File: "jump_02.txt", True: "jump", Predicted: "walk"},
		{File: "walk_01.txt", True: "walk", Predicted: "walk"},
	})
	return &TrainingResults{
		Evaluation:   eval,
		ModelVersion: "20240501-120000",
		ModelPath:    "models/model.json",
		Selection: features.Selection{
			Status:   features.SchemaDegraded,
			Realized: features.Schema{"Accel_Z_Mean"},
			Missing:  []string{"Gyro_X_Slope"},
		},
		Excluded:   []Exclusion{{File: "sit_01.txt", Reason: "insufficient data"}},
		Importance: []ml.FeatureStats{{Name: "Accel_Z_Mean", ImportanceScore: 0.5, PermutationScore: 0.5, WeightNorm: 1.2}},
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	r := csv.NewReader(f)
	r.Comma = features.Delimiter
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	require.NoError(t, err)
	return rows
}

func TestReporter_GenerateReport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	results := sampleResults()

	require.NoError(t, NewReporter(results, dir).GenerateReport())

	summary, err := os.ReadFile(filepath.Join(dir, common.SummaryFile))
	require.NoError(t, err)
	text := string(summary)
	assert.Contains(t, text, "Recordings: 3")
	assert.Contains(t, text, "Accuracy: 0.6667")
	assert.Contains(t, text, "Gyro_X_Slope")
	assert.Contains(t, text, "sit_01.txt: insufficient data")
	assert.Contains(t, text, "macro avg")

	confusion := readCSV(t, filepath.Join(dir, common.ConfusionFile))
	assert.Equal(t, [][]string{
		{"true\\predicted", "jump", "walk"},
		{"jump", "1", "1"},
		{"walk", "0", "1"},
	}, confusion)

	loo := readCSV(t, filepath.Join(dir, common.LOOPredictionFile))
	require.Len(t, loo, 4)
	assert.Equal(t, []string{"jump_02.txt", "jump", "walk", "false"}, loo[2])

	importance := readCSV(t, filepath.Join(dir, common.ImportanceFile))
	assert.Equal(t, []string{"Accel_Z_Mean", "0.5", "0.5", "1.2"}, importance[1])

	data, err := os.ReadFile(filepath.Join(dir, common.EvaluationFile))
	require.NoError(t, err)
	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "evaluation")
	assert.Contains(t, decoded, "missing_columns")

	var eval ml.Evaluation
	require.NoError(t, json.Unmarshal(decoded["evaluation"], &eval))
	assert.Equal(t, results.Evaluation.Confusion, eval.Confusion)
}

func TestReporter_SkipsImportanceWhenAbsent(t *testing.T) {
	dir := t.TempDir()
	results := sampleResults()
	results.Importance = nil
	results.Selection = features.Selection{Status: features.SchemaFull}

	require.NoError(t, NewReporter(results, dir).GenerateReport())

	_, err := os.Stat(filepath.Join(dir, common.ImportanceFile))
	assert.True(t, os.IsNotExist(err))

	summary, err := os.ReadFile(filepath.Join(dir, common.SummaryFile))
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(summary), "WARNING"))
}

func TestWritePredictions(t *testing.T) {
	dir := t.TempDir()
	path, err := WritePredictions(dir,
		[]ml.Prediction{{File: "a.txt", Label: "jump"}, {File: "b.txt", Label: "walk"}},
		[]Exclusion{{File: "c.txt", Reason: "no gyroscope samples"}},
	)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, common.PredictionsFile), path)

	assert.Equal(t, [][]string{
		{"File", "Predicted", "Error"},
		{"a.txt", "jump", ""},
		{"b.txt", "walk", ""},
		{"c.txt", "", "no gyroscope samples"},
	}, readCSV(t, path))
}
