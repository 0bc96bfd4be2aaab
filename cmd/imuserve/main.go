package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"imu-svm/internal/cfg"
	"imu-svm/internal/metrics"
	"imu-svm/internal/ml"
	"imu-svm/internal/pipeline"
	"imu-svm/internal/server"
	"imu-svm/internal/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	var (
		modelPath = flag.String("model", "", "Model artifact to serve (overrides config)")
		port      = flag.Int("port", 0, "Listen port (overrides config)")
		logLevel  = flag.String("log-level", "", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	setupLogging(*logLevel, c.LogLevel)

	if *modelPath != "" {
		c.ModelPath = *modelPath
	}
	if *port != 0 {
		c.ServerPort = *port
	}

	artifact, err := ml.NewModelStore(c.ModelPath).Load()
	if err != nil {
		log.Fatal().Err(err).Msg("model load failed")
	}

	version := ""
	if c.ModelsDir != "" {
		if manager, err := ml.NewModelManager(c.ModelsDir); err == nil {
			if cur := manager.GetCurrentVersion(); cur != nil {
				version = cur.Version
			}
		} else {
			log.Warn().Err(err).Msg("model registry unavailable")
		}
	}

	var cache pipeline.Cache
	if c.DataPath != "" {
		store, err := storage.New(c.DataPath)
		if err != nil {
			log.Warn().Err(err).Msg("storage initialization failed, continuing without cache")
		} else {
			defer store.Close()
			cache = store
		}
	}

	m := metrics.New()
	mw := metrics.NewWrapper(m)
	mw.ModelAge().Set(time.Since(artifact.CreatedAt).Seconds())

	predictor, err := ml.NewPredictor(artifact, mw)
	if err != nil {
		log.Fatal().Err(err).Msg("model rejected")
	}
	inferencer := pipeline.NewInferencer(
		predictor,
		pipeline.NewExtractionForArtifact(artifact, c.Workers, cache, mw),
		ml.NewDriftDetector(c.DriftDetection),
	)

	srv := server.NewModelServer(inferencer, server.Options{
		Port:         c.ServerPort,
		ModelVersion: version,
		Metrics:      mw,
		Gatherer:     prometheus.DefaultGatherer,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errs := make(chan error, 1)
	go func() {
		errs <- srv.Start()
	}()

	select {
	case err := <-errs:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to shutdown server")
		}
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
