package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"imu-svm/internal/cfg"
	"imu-svm/internal/client"
	"imu-svm/internal/features"
	"imu-svm/internal/metrics"
	"imu-svm/internal/ml"
	"imu-svm/internal/pipeline"
	"imu-svm/internal/report"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	var (
		inputDir  = flag.String("input", "", "Directory of recordings to classify (overrides config)")
		outputDir = flag.String("output", "", "Directory for predictions.csv (overrides config)")
		modelPath = flag.String("model", "", "Model artifact to load (overrides config)")
		remote    = flag.Bool("remote", false, "Send recordings to the prediction server instead of predicting locally")
		serverURL = flag.String("server", "", "Prediction server URL (overrides config)")
		logLevel  = flag.String("log-level", "", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	setupLogging(*logLevel, c.LogLevel)

	if *inputDir != "" {
		c.InputDir = *inputDir
	}
	if *outputDir != "" {
		c.OutputDir = *outputDir
	}
	if *modelPath != "" {
		c.ModelPath = *modelPath
	}
	if *serverURL != "" {
		c.ServerURL = *serverURL
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var (
		preds    []ml.Prediction
		excluded []report.Exclusion
	)
	if *remote {
		preds, excluded, err = predictRemote(ctx, c)
	} else {
		preds, excluded, err = predictLocal(ctx, c)
	}
	if err != nil {
		var schemaErr *features.PredictionSchemaError
		if errors.As(err, &schemaErr) {
			log.Error().Strs("missing", schemaErr.Missing).Msg("recordings do not provide the model's features")
		}
		if len(excluded) > 0 {
			if _, werr := report.WritePredictions(c.OutputDir, nil, excluded); werr != nil {
				log.Warn().Err(werr).Msg("failed to write exclusions")
			}
		}
		log.Fatal().Err(err).Msg("prediction failed")
	}

	path, err := report.WritePredictions(c.OutputDir, preds, excluded)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to write predictions")
	}
	for _, p := range preds {
		fmt.Printf("%s\t%s\n", p.File, p.Label)
	}
	fmt.Printf("%d predicted, %d excluded; written to %s\n", len(preds), len(excluded), path)
}

func predictLocal(ctx context.Context, c cfg.Settings) ([]ml.Prediction, []report.Exclusion, error) {
	artifact, err := ml.NewModelStore(c.ModelPath).Load()
	if err != nil {
		return nil, nil, err
	}
	if artifact.Extraction != c.ExtractionParams() {
		log.Warn().
			Interface("model", artifact.Extraction).
			Interface("config", c.ExtractionParams()).
			Msg("Configured extraction differs from the model's; using the model's")
	}

	mw := metrics.NewWrapper(metrics.New())
	predictor, err := ml.NewPredictor(artifact, mw)
	if err != nil {
		return nil, nil, err
	}
	inferencer := pipeline.NewInferencer(
		predictor,
		pipeline.NewExtractionForArtifact(artifact, c.Workers, nil, mw),
		ml.NewDriftDetector(c.DriftDetection),
	)

	res, err := inferencer.PredictDir(ctx, c.InputDir, c.FileExtension)
	if err != nil {
		return nil, res.Excluded, err
	}
	logDrift(res.Drift)
	return res.Predictions, res.Excluded, nil
}

func predictRemote(ctx context.Context, c cfg.Settings) ([]ml.Prediction, []report.Exclusion, error) {
	paths, err := pipeline.ListRecordings(c.InputDir, c.FileExtension)
	if err != nil {
		return nil, nil, err
	}
	cl := client.New(c.ServerURL, c.RESTTimeout)
	if info, err := cl.ModelInfo(ctx); err == nil {
		log.Info().Str("version", info.Version).Strs("classes", info.Classes).Msg("Remote model")
	}

	resp, err := cl.PredictFiles(ctx, paths, "")
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			return nil, apiErr.Body.Excluded, err
		}
		return nil, nil, err
	}
	logDrift(resp.Drift)
	return resp.Predictions, resp.Excluded, nil
}

func logDrift(alerts []ml.DriftAlert) {
	for _, a := range alerts {
		log.Warn().
			Str("feature", a.FeatureName).
			Float64("score", a.DriftScore).
			Float64("out_of_range", a.OutOfRange).
			Str("severity", a.Severity).
			Msg("Feature drift detected")
	}
}

func setupLogging(flagLevel, configLevel string) {
	lvl := flagLevel
	if lvl == "" {
		lvl = configLevel
	}
	level, err := zerolog.ParseLevel(lvl)
	if err != nil || lvl == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}
