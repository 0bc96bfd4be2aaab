package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"imu-svm/internal/common"
	"imu-svm/internal/features"
	"imu-svm/internal/ml"
	"imu-svm/internal/report"
	"imu-svm/internal/storage"

	"github.com/rs/zerolog/log"
)

// History records evaluation summaries. *storage.Store implements it.
type History interface {
	StoreEvaluation(record storage.EvaluationRecord) error
}

// TrainConfig configures a training run.
type TrainConfig struct {
	InputDir        string
	FileExtension   string
	OutputDir       string
	ModelPath       string
	Schema          features.Schema
	ExpectedClasses []string
	SVC             ml.SVCConfig
	Workers         int
	Importance      ml.FeatureImportanceConfig
}

// Trainer runs extraction, selection, leave-one-out evaluation and
// persistence end to end.
type Trainer struct {
	cfg        TrainConfig
	extraction *Extraction
	metrics    MetricsInterface
	manager    *ml.ModelManager
	history    History
}

// NewTrainer creates a trainer. manager and history are optional.
func NewTrainer(cfg TrainConfig, extraction *Extraction, metrics MetricsInterface, manager *ml.ModelManager, history History) *Trainer {
	if cfg.FileExtension == "" {
		cfg.FileExtension = common.DefaultFileExtension
	}
	if len(cfg.Schema) == 0 {
		cfg.Schema = features.DefaultSchema
	}
	return &Trainer{cfg: cfg, extraction: extraction, metrics: metrics, manager: manager, history: history}
}

// TrainOutcome is the result of a training run.
type TrainOutcome struct {
	Result       *ml.TrainResult
	Artifact     *ml.Artifact
	Selection    features.Selection
	Batch        BatchReport
	ModelVersion string
	FullTable    features.Table
}

// Train runs the whole training pipeline and writes tables, model and
// reports.
func (tr *Trainer) Train(ctx context.Context) (*TrainOutcome, error) {
	start := time.Now()

	full, batch, err := tr.extraction.ExtractDir(ctx, tr.cfg.InputDir, tr.cfg.FileExtension)
	if err != nil {
		return nil, err
	}
	if unknown := features.UnknownLabels(full, tr.cfg.ExpectedClasses); len(unknown) > 0 {
		log.Warn().Strs("unknown", unknown).Strs("expected", tr.cfg.ExpectedClasses).Msg("Recordings carry labels outside the expected class set")
	}

	if err := os.MkdirAll(tr.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	if err := writeTable(filepath.Join(tr.cfg.OutputDir, common.FullTableFile), full, features.FeaturesFirst); err != nil {
		return nil, err
	}

	selected, selection := features.Select(full, tr.cfg.Schema)
	if len(selection.Realized) == 0 {
		return nil, fmt.Errorf("no selected feature is available: %w", selection.Err())
	}
	if err := writeTable(filepath.Join(tr.cfg.OutputDir, common.SelectedTableFile), selected, features.FileFirst); err != nil {
		return nil, err
	}

	res, err := ml.NewCrossValidator(tr.cfg.SVC, tr.cfg.Workers, tr.metrics).Run(selected)
	if err != nil {
		return nil, fmt.Errorf("cross-validation: %w", err)
	}

	artifact, err := ml.NewArtifact(res, tr.extraction.Params())
	if err != nil {
		return nil, fmt.Errorf("package model: %w", err)
	}

	out := &TrainOutcome{Result: res, Artifact: artifact, Selection: selection, Batch: batch, FullTable: full}

	if err := ml.NewModelStore(tr.cfg.ModelPath).Save(artifact); err != nil {
		return nil, err
	}
	if tr.manager != nil {
		version, err := tr.registerVersion(artifact, res)
		if err != nil {
			return nil, err
		}
		out.ModelVersion = version
	}

	var importance []ml.FeatureStats
	if predictor, err := ml.NewPredictor(artifact, nil); err == nil {
		importance, err = ml.NewFeatureImportance(tr.cfg.Importance).Calculate(predictor, selected)
		if err != nil {
			log.Warn().Err(err).Msg("Feature importance failed")
		}
	}

	if tr.history != nil {
		err := tr.history.StoreEvaluation(storage.EvaluationRecord{
			ModelVersion: out.ModelVersion,
			ModelPath:    tr.cfg.ModelPath,
			Samples:      selected.Len(),
			Classes:      artifact.Classes,
			Schema:       artifact.Schema,
			Accuracy:     res.Evaluation.Accuracy,
			MacroF1:      res.Evaluation.MacroAvg.F1,
			Excluded:     excludedFiles(batch.Excluded),
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to record evaluation history")
		}
	}

	reporter := report.NewReporter(&report.TrainingResults{
		Evaluation:   res.Evaluation,
		Artifact:     artifact,
		ModelPath:    tr.cfg.ModelPath,
		ModelVersion: out.ModelVersion,
		Selection:    selection,
		Excluded:     batch.Excluded,
		Importance:   importance,
		Duration:     time.Since(start),
	}, tr.cfg.OutputDir)
	if err := reporter.GenerateReport(); err != nil {
		return nil, fmt.Errorf("generate report: %w", err)
	}

	log.Info().
		Float64("accuracy", res.Evaluation.Accuracy).
		Int("recordings", selected.Len()).
		Int("excluded", len(batch.Excluded)).
		Str("model_path", tr.cfg.ModelPath).
		Str("version", out.ModelVersion).
		Dur("duration", time.Since(start)).
		Msg("Training complete")
	return out, nil
}

// registerVersion keeps a versioned copy of the artifact and makes it the
// active one.
func (tr *Trainer) registerVersion(a *ml.Artifact, res *ml.TrainResult) (string, error) {
	version := tr.manager.NextVersion()
	path := tr.manager.VersionPath(version)
	if err := ml.NewModelStore(path).Save(a); err != nil {
		return "", fmt.Errorf("save model version: %w", err)
	}
	metrics := ml.MetricsFromEvaluation(res.Evaluation, a.Classes, a.Schema)
	if err := tr.manager.AddVersion(version, path, metrics); err != nil {
		return "", fmt.Errorf("register model version: %w", err)
	}
	if err := tr.manager.ActivateVersion(version); err != nil {
		return "", fmt.Errorf("activate model version: %w", err)
	}
	return version, nil
}

func writeTable(path string, t features.Table, layout features.Layout) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := features.WriteCSVLayout(f, t, layout); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	log.Info().Str("file", path).Int("rows", t.Len()).Int("columns", len(t.Columns)).Msg("Feature table written")
	return nil
}

func excludedFiles(ex []report.Exclusion) []string {
	out := make([]string, len(ex))
	for i, e := range ex {
		out[i] = e.File
	}
	return out
}
