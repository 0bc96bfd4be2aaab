package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"imu-svm/internal/features"

	"github.com/rs/zerolog/log"
)

// ArtifactVersion is bumped whenever the artifact layout changes.
const ArtifactVersion = 1

// ExtractionParams records how the training features were computed so
// inference can reproduce them.
type ExtractionParams struct {
	SamplingRate   float64 `json:"sampling_rate"`
	TimeOffset     int64   `json:"time_offset"`
	LabelDelimiter string  `json:"label_delimiter"`
}

// EvaluationSummary is the part of the leave-one-out result kept with a model.
type EvaluationSummary struct {
	Accuracy float64 `json:"accuracy"`
	MacroF1  float64 `json:"macro_f1"`
	Folds    int     `json:"folds"`
}

// Artifact bundles everything needed to classify new recordings. The
// classifier, the scaler it was trained behind and the realized schema
// are only ever saved and loaded together.
type Artifact struct {
	Version         int                `json:"version"`
	CreatedAt       time.Time          `json:"created_at"`
	Kernel          string             `json:"kernel"`
	Classes         []string           `json:"classes"`
	Schema          features.Schema    `json:"schema"`
	Scaler          StandardScaler     `json:"scaler"`
	Classifier      SVC                `json:"classifier"`
	Extraction      ExtractionParams   `json:"extraction"`
	TrainingSamples int                `json:"training_samples"`
	Evaluation      *EvaluationSummary `json:"evaluation,omitempty"`
}

// NewArtifact packages a training result.
func NewArtifact(res *TrainResult, params ExtractionParams) (*Artifact, error) {
	a := &Artifact{
		Version:         ArtifactVersion,
		CreatedAt:       time.Now().UTC(),
		Kernel:          KernelLinear,
		Classes:         append([]string(nil), res.Classifier.Classes...),
		Schema:          append(features.Schema(nil), res.Schema...),
		Scaler:          *res.Scaler,
		Classifier:      *res.Classifier,
		Extraction:      params,
		TrainingSamples: len(res.Evaluation.Pairs),
		Evaluation: &EvaluationSummary{
			Accuracy: res.Evaluation.Accuracy,
			MacroF1:  res.Evaluation.MacroAvg.F1,
			Folds:    len(res.Evaluation.Pairs),
		},
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Validate checks that schema, scaler and classifier agree with each other.
func (a *Artifact) Validate() error {
	if a.Version != ArtifactVersion {
		return fmt.Errorf("unsupported artifact version %d", a.Version)
	}
	if a.Kernel != KernelLinear {
		return fmt.Errorf("unsupported kernel %q", a.Kernel)
	}
	if err := a.Schema.Validate(); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	if err := a.Scaler.Validate(); err != nil {
		return fmt.Errorf("scaler: %w", err)
	}
	if err := a.Classifier.Validate(); err != nil {
		return fmt.Errorf("classifier: %w", err)
	}
	if a.Scaler.Dim() != len(a.Schema) {
		return fmt.Errorf("scaler has %d columns but schema has %d", a.Scaler.Dim(), len(a.Schema))
	}
	if a.Classifier.Features != len(a.Schema) {
		return fmt.Errorf("classifier has %d features but schema has %d", a.Classifier.Features, len(a.Schema))
	}
	if len(a.Classes) != len(a.Classifier.Classes) {
		return fmt.Errorf("artifact lists %d classes, classifier has %d", len(a.Classes), len(a.Classifier.Classes))
	}
	for i := range a.Classes {
		if a.Classes[i] != a.Classifier.Classes[i] {
			return fmt.Errorf("artifact class %d is %q, classifier has %q", i, a.Classes[i], a.Classifier.Classes[i])
		}
	}
	return nil
}

// ModelLoadError reports a missing, unreadable or inconsistent artifact.
type ModelLoadError struct {
	Path string
	Err  error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("load model %s: %v", e.Path, e.Err)
}

func (e *ModelLoadError) Unwrap() error {
	return e.Err
}

// ModelStore persists artifacts as single JSON files.
type ModelStore struct {
	path string
}

// NewModelStore creates a store for the artifact at path.
func NewModelStore(path string) *ModelStore {
	return &ModelStore{path: path}
}

// Path returns the artifact location.
func (s *ModelStore) Path() string {
	return s.path
}

// Save writes a to a temporary file next to the target and renames it
// into place, so readers never observe a partial artifact. Saving the
// same artifact twice is harmless.
func (s *ModelStore) Save(a *Artifact) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid artifact: %w", err)
	}

	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create model directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".artifact-*.json")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("install artifact: %w", err)
	}

	log.Info().
		Str("model_path", s.path).
		Strs("classes", a.Classes).
		Strs("schema", a.Schema).
		Msg("Model artifact saved")
	return nil
}

// Load reads and validates the artifact. Any failure is a *ModelLoadError.
func (s *ModelStore) Load() (*Artifact, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &ModelLoadError{Path: s.path, Err: fmt.Errorf("artifact not found")}
		}
		return nil, &ModelLoadError{Path: s.path, Err: err}
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, &ModelLoadError{Path: s.path, Err: fmt.Errorf("corrupt artifact: %w", err)}
	}
	if err := a.Validate(); err != nil {
		return nil, &ModelLoadError{Path: s.path, Err: err}
	}
	return &a, nil
}
