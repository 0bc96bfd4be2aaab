package client

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"

	"imu-svm/internal/server"
)

// Client talks to a running imuserve instance.
type Client struct {
	base string
	rest *resty.Client
}

// APIError is returned for any non-2xx response.
type APIError struct {
	Status int
	Body   server.ErrorResponse
}

func (e *APIError) Error() string {
	if len(e.Body.Missing) > 0 {
		return fmt.Sprintf("imuserve: %d %s (missing %v)", e.Status, e.Body.Error, e.Body.Missing)
	}
	return fmt.Sprintf("imuserve: %d %s", e.Status, e.Body.Error)
}

// New creates a client for the server at base. A non-positive timeout uses 30s.
func New(base string, timeout time.Duration) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(30 * time.Second)
	}
	r.SetHeader("Content-Type", "application/json")
	return &Client{base: base, rest: r}
}

// Predict sends raw recordings for classification.
func (c *Client) Predict(ctx context.Context, recs []server.RecordingPayload, requestID string) (*server.PredictionResponse, error) {
	resp := &server.PredictionResponse{}
	apiErr := &server.ErrorResponse{}
	res, err := c.rest.R().
		SetContext(ctx).
		SetBody(server.PredictionRequest{Recordings: recs, RequestID: requestID}).
		SetResult(resp).
		SetError(apiErr).
		Post(c.base + "/predict")
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, &APIError{Status: res.StatusCode(), Body: *apiErr}
	}
	return resp, nil
}

// PredictFiles reads each path and sends it under its base name.
func (c *Client) PredictFiles(ctx context.Context, paths []string, requestID string) (*server.PredictionResponse, error) {
	recs := make([]server.RecordingPayload, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		recs = append(recs, server.RecordingPayload{File: filepath.Base(p), Content: string(data)})
	}
	return c.Predict(ctx, recs, requestID)
}

// ModelInfo fetches the served model's metadata.
func (c *Client) ModelInfo(ctx context.Context) (*server.ModelInfo, error) {
	info := &server.ModelInfo{}
	if err := c.get(ctx, "/model/info", info); err != nil {
		return nil, err
	}
	return info, nil
}

// Health reports whether the server has a model loaded.
func (c *Client) Health(ctx context.Context) (*server.HealthStatus, error) {
	h := &server.HealthStatus{}
	if err := c.get(ctx, "/health", h); err != nil {
		return nil, err
	}
	return h, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	apiErr := &server.ErrorResponse{}
	res, err := c.rest.R().
		SetContext(ctx).
		SetResult(out).
		SetError(apiErr).
		Get(c.base + path)
	if err != nil {
		return err
	}
	if res.IsError() {
		return &APIError{Status: res.StatusCode(), Body: *apiErr}
	}
	return nil
}
