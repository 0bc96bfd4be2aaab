package ml

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testParams = ExtractionParams{SamplingRate: 10, TimeOffset: 50, LabelDelimiter: "_"}

func trainedArtifact(t *testing.T) (*Artifact, *TrainResult) {
	t.Helper()
	res, err := NewCrossValidator(DefaultSVCConfig(), 2, nil).Run(clusterTable(t, 3, "jump", "walk", "run"))
	require.NoError(t, err)
	a, err := NewArtifact(res, testParams)
	require.NoError(t, err)
	return a, res
}

func TestNewArtifact(t *testing.T) {
	a, res := trainedArtifact(t)

	assert.Equal(t, ArtifactVersion, a.Version)
	assert.Equal(t, KernelLinear, a.Kernel)
	assert.Equal(t, []string{"jump", "run", "walk"}, a.Classes)
	assert.Equal(t, res.Schema, a.Schema)
	assert.Equal(t, 9, a.TrainingSamples)
	require.NotNil(t, a.Evaluation)
	assert.Equal(t, res.Evaluation.Accuracy, a.Evaluation.Accuracy)
	assert.Equal(t, testParams, a.Extraction)
}

func TestModelStore_RoundTrip(t *testing.T) {
	a, res := trainedArtifact(t)
	store := NewModelStore(filepath.Join(t.TempDir(), "models", "model.json"))

	require.NoError(t, store.Save(a))
	loaded, err := store.Load()
	require.NoError(t, err)

	assert.Equal(t, a.Schema, loaded.Schema)
	assert.Equal(t, a.Classes, loaded.Classes)
	assert.Equal(t, a.Extraction, loaded.Extraction)
	assert.True(t, a.CreatedAt.Equal(loaded.CreatedAt))

	// the reloaded model reproduces the in-memory final model
	table := clusterTable(t, 3, "jump", "walk", "run")
	for i := range table.Rows {
		x := table.Row(i)
		scaled, err := res.Scaler.TransformRow(x)
		require.NoError(t, err)
		want, err := res.Classifier.Predict(scaled)
		require.NoError(t, err)

		scaled, err = loaded.Scaler.TransformRow(x)
		require.NoError(t, err)
		got, err := loaded.Classifier.Predict(scaled)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestModelStore_SaveOverwrites(t *testing.T) {
	a, _ := trainedArtifact(t)
	dir := t.TempDir()
	store := NewModelStore(filepath.Join(dir, "model.json"))

	require.NoError(t, store.Save(a))
	require.NoError(t, store.Save(a))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "model.json", entries[0].Name())

	_, err = store.Load()
	assert.NoError(t, err)
}

func TestModelStore_RefusesInvalidArtifact(t *testing.T) {
	a, _ := trainedArtifact(t)
	a.Schema = a.Schema[:1]

	store := NewModelStore(filepath.Join(t.TempDir(), "model.json"))
	assert.Error(t, store.Save(a))
	_, err := os.Stat(store.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestModelStore_LoadErrors(t *testing.T) {
	a, _ := trainedArtifact(t)

	tests := []struct {
		name  string
		write func(t *testing.T, path string)
	}{
		{
			name:  "missing",
			write: func(t *testing.T, path string) {},
		},
		{
			name: "corrupt",
			write: func(t *testing.T, path string) {
				require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
			},
		},
		{
			name: "schema shorter than scaler",
			write: func(t *testing.T, path string) {
				broken := *a
				broken.Schema = a.Schema[:1]
				data, err := json.Marshal(broken)
				require.NoError(t, err)
				require.NoError(t, os.WriteFile(path, data, 0o600))
			},
		},
		{
			name: "unknown version",
			write: func(t *testing.T, path string) {
				broken := *a
				broken.Version = ArtifactVersion + 1
				data, err := json.Marshal(broken)
				require.NoError(t, err)
				require.NoError(t, os.WriteFile(path, data, 0o600))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "model.json")
			tt.write(t, path)

			loaded, err := NewModelStore(path).Load()
			assert.Nil(t, loaded)

			var loadErr *ModelLoadError
			require.True(t, errors.As(err, &loadErr), "got %v", err)
			assert.Equal(t, path, loadErr.Path)
		})
	}
}
