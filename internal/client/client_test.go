package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imu-svm/internal/ml"
	"imu-svm/internal/report"
	"imu-svm/internal/server"
)

func stub(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return New(ts.URL, time.Second)
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestPredictFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jump_01.txt")
	require.NoError(t, os.WriteFile(path, []byte("t: 0 Acc: 1.0, 2.0, 3.0"), 0o600))

	var got server.PredictionRequest
	c := stub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predict", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		respond(w, http.StatusOK, server.PredictionResponse{
			Predictions:  []ml.Prediction{{File: "jump_01.txt", Label: "jump"}},
			Excluded:     []report.Exclusion{},
			RequestID:    got.RequestID,
			ModelVersion: "v1",
		})
	})

	resp, err := c.PredictFiles(context.Background(), []string{path}, "req-7")
	require.NoError(t, err)

	require.Len(t, got.Recordings, 1)
	assert.Equal(t, "jump_01.txt", got.Recordings[0].File)
	assert.Equal(t, "t: 0 Acc: 1.0, 2.0, 3.0", got.Recordings[0].Content)
	assert.Equal(t, "req-7", resp.RequestID)
	assert.Equal(t, []ml.Prediction{{File: "jump_01.txt", Label: "jump"}}, resp.Predictions)
}

func TestPredictFiles_MissingFile(t *testing.T) {
	c := New("http://127.0.0.1:0", time.Second)
	_, err := c.PredictFiles(context.Background(), []string{filepath.Join(t.TempDir(), "nope.txt")}, "")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPredict_APIError(t *testing.T) {
	c := stub(t, func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusUnprocessableEntity, server.ErrorResponse{
			Error:   "missing columns",
			Missing: []string{"Accel_Z_Mean"},
		})
	})

	_, err := c.Predict(context.Background(), []server.RecordingPayload{{File: "a", Content: "x"}}, "")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, []string{"Accel_Z_Mean"}, apiErr.Body.Missing)
	assert.Contains(t, apiErr.Error(), "Accel_Z_Mean")
}

func TestModelInfoAndHealth(t *testing.T) {
	c := stub(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/model/info":
			respond(w, http.StatusOK, server.ModelInfo{Version: "v2", Kernel: "linear", Classes: []string{"jump", "walk"}})
		case "/health":
			respond(w, http.StatusServiceUnavailable, server.ErrorResponse{Error: "no model"})
		default:
			http.NotFound(w, r)
		}
	})

	info, err := c.ModelInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v2", info.Version)
	assert.Equal(t, []string{"jump", "walk"}, info.Classes)

	_, err = c.Health(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
	assert.Equal(t, "no model", apiErr.Body.Error)
}
