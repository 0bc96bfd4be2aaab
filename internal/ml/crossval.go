package ml

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"imu-svm/internal/features"

	"github.com/rs/zerolog/log"
)

// MetricsInterface defines the metrics hooks used by training and inference.
type MetricsInterface interface {
	FoldDurationObserve(float64)
	AccuracySet(float64)
	PredictionsInc()
	PredictionLatencyObserve(float64)
	SchemaErrorsInc()
}

// TrainResult is the outcome of a leave-one-out run: the evaluation plus
// the scaler and classifier refit on every row.
type TrainResult struct {
	Evaluation Evaluation
	Scaler     *StandardScaler
	Classifier *SVC
	Schema     features.Schema
}

// CrossValidator runs leave-one-out evaluation over a selected table.
type CrossValidator struct {
	cfg     SVCConfig
	workers int
	metrics MetricsInterface
}

// NewCrossValidator creates a validator; workers <= 0 uses GOMAXPROCS.
func NewCrossValidator(cfg SVCConfig, workers int, metrics MetricsInterface) *CrossValidator {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &CrossValidator{cfg: cfg.withDefaults(), workers: workers, metrics: metrics}
}

// Run holds out each row in turn. Every fold fits its own scaler on the
// remaining rows only, scales both sides with it, and trains a fresh
// classifier. Pairs come back in row order whatever order folds finish.
// The returned scaler and classifier are fit on all rows.
func (cv *CrossValidator) Run(t features.Table) (*TrainResult, error) {
	n := t.Len()
	if n < 2 {
		return nil, fmt.Errorf("leave-one-out needs at least 2 rows, got %d", n)
	}
	if len(t.Columns) == 0 {
		return nil, fmt.Errorf("table has no feature columns")
	}

	X := t.Matrix()
	y := t.Labels()
	files := t.Files()

	pairs := make([]Pair, n)
	errs := make([]error, n)
	sem := make(chan struct{}, cv.workers)
	var wg sync.WaitGroup

	for held := 0; held < n; held++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(held int) {
			defer wg.Done()
			defer func() { <-sem }()

			start := time.Now()
			predicted, err := cv.fold(X, y, held)
			if err != nil {
				errs[held] = fmt.Errorf("fold %d (%s): %w", held, files[held], err)
				return
			}
			pairs[held] = Pair{File: files[held], True: y[held], Predicted: predicted}

			if cv.metrics != nil {
				cv.metrics.FoldDurationObserve(time.Since(start).Seconds())
			}
		}(held)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	scaler, err := FitScaler(X)
	if err != nil {
		return nil, fmt.Errorf("fit final scaler: %w", err)
	}
	scaled, err := scaler.Transform(X)
	if err != nil {
		return nil, fmt.Errorf("scale training rows: %w", err)
	}
	svc, err := FitSVC(scaled, y, cv.cfg)
	if err != nil {
		return nil, fmt.Errorf("fit final classifier: %w", err)
	}

	eval := Evaluate(pairs)
	if cv.metrics != nil {
		cv.metrics.AccuracySet(eval.Accuracy)
	}

	log.Info().
		Int("rows", n).
		Int("features", len(t.Columns)).
		Strs("classes", svc.Classes).
		Float64("accuracy", eval.Accuracy).
		Msg("Leave-one-out evaluation complete")

	return &TrainResult{
		Evaluation: eval,
		Scaler:     scaler,
		Classifier: svc,
		Schema:     append(features.Schema(nil), t.Columns...),
	}, nil
}

func (cv *CrossValidator) fold(X [][]float64, y []string, held int) (string, error) {
	trainX := make([][]float64, 0, len(X)-1)
	trainY := make([]string, 0, len(y)-1)
	for i := range X {
		if i == held {
			continue
		}
		trainX = append(trainX, X[i])
		trainY = append(trainY, y[i])
	}

	scaler, err := FitScaler(trainX)
	if err != nil {
		return "", err
	}
	scaledTrain, err := scaler.Transform(trainX)
	if err != nil {
		return "", err
	}
	scaledHeld, err := scaler.TransformRow(X[held])
	if err != nil {
		return "", err
	}

	svc, err := FitSVC(scaledTrain, trainY, cv.cfg)
	if err != nil {
		return "", err
	}
	return svc.Predict(scaledHeld)
}
