package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"imu-svm/internal/cfg"
	"imu-svm/internal/metrics"
	"imu-svm/internal/ml"
	"imu-svm/internal/pipeline"
	"imu-svm/internal/storage"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	var (
		inputDir  = flag.String("input", "", "Directory of labeled recordings (overrides config)")
		outputDir = flag.String("output", "", "Output directory for tables and reports (overrides config)")
		modelPath = flag.String("model", "", "Path of the model artifact to write (overrides config)")
		logLevel  = flag.String("log-level", "", "Log level: debug, info, warn, error")
		noCache   = flag.Bool("no-cache", false, "Disable the feature cache")
		rollback  = flag.Bool("rollback", false, "Reactivate the previous model version and exit")
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
	if *noCache {
		c.DataPath = ""
	}

	var manager *ml.ModelManager
	if c.ModelsDir != "" {
		manager, err = ml.NewModelManager(c.ModelsDir)
		if err != nil {
			log.Fatal().Err(err).Msg("model registry unavailable")
		}
	}

	if *rollback {
		if err := rollbackModel(manager, c.ModelPath); err != nil {
			log.Fatal().Err(err).Msg("rollback failed")
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store := initializeStorage(c)
	var history pipeline.History
	var cache pipeline.Cache
	if store != nil {
		defer store.Close()
		history = store
		cache = store
	}

	m := metrics.New()
	mw := metrics.NewWrapper(m)

	extraction := pipeline.NewExtraction(pipeline.ExtractionOptions{
		SamplingRate:   c.SamplingRate,
		TimeOffset:     c.TimeOffset,
		LabelDelimiter: c.LabelDelimiter,
		Workers:        c.Workers,
		Cache:          cache,
		Metrics:        mw,
	})

	trainer := pipeline.NewTrainer(pipeline.TrainConfig{
		InputDir:        c.InputDir,
		FileExtension:   c.FileExtension,
		OutputDir:       c.OutputDir,
		ModelPath:       c.ModelPath,
		Schema:          c.Schema,
		ExpectedClasses: c.ExpectedClasses,
		SVC:             c.SVC,
		Workers:         c.Workers,
	}, extraction, mw, manager, history)

	out, err := trainer.Train(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("training failed")
	}

	if store != nil {
		if pruned, err := store.PruneFeatures(extraction.Fingerprint()); err != nil {
			log.Warn().Err(err).Msg("feature cache prune failed")
		} else if pruned > 0 {
			log.Info().Int("pruned", pruned).Msg("Stale cache entries removed")
		}
	}

	fmt.Printf("LOO accuracy: %.4f over %d recordings (%d excluded)\n",
		out.Result.Evaluation.Accuracy, len(out.Result.Evaluation.Pairs), len(out.Batch.Excluded))
	fmt.Printf("Model written to %s\n", c.ModelPath)
	if out.ModelVersion != "" {
		fmt.Printf("Registered version %s\n", out.ModelVersion)
	}
	log.Info().Float64("exclusion_rate", m.GetExclusionRate()).Msg("Run finished")
}

// initializeStorage opens the feature cache if DATA_PATH is configured
func initializeStorage(c cfg.Settings) *storage.Store {
	if c.DataPath == "" {
		return nil
	}
	store, err := storage.New(c.DataPath)
	if err != nil {
		log.Warn().Err(err).Msg("storage initialization failed, continuing without cache")
		return nil
	}
	return store
}

// rollbackModel reactivates the previous registered version and copies it to
// the serving path.
func rollbackModel(manager *ml.ModelManager, modelPath string) error {
	if manager == nil {
		return fmt.Errorf("no models directory configured")
	}
	if err := manager.Rollback(); err != nil {
		return err
	}
	current := manager.GetCurrentVersion()
	if current == nil {
		return fmt.Errorf("no active model version after rollback")
	}
	a, err := ml.NewModelStore(current.Path).Load()
	if err != nil {
		return err
	}
	if err := ml.NewModelStore(modelPath).Save(a); err != nil {
		return err
	}
	log.Info().Str("version", current.Version).Str("model_path", modelPath).Msg("Rolled back")
	return nil
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
