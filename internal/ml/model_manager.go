package ml

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
)

// ModelVersion represents a versioned model artifact
type ModelVersion struct {
	Version   string       `json:"version"`
	Path      string       `json:"path"`
	CreatedAt time.Time    `json:"created_at"`
	Metrics   ModelMetrics `json:"metrics"`
	IsActive  bool         `json:"is_active"`
}

// ModelMetrics contains the leave-one-out scores recorded for a model
type ModelMetrics struct {
	Accuracy        float64  `json:"accuracy"`
	MacroF1         float64  `json:"macro_f1"`
	Precision       float64  `json:"precision"`
	Recall          float64  `json:"recall"`
	TrainingSamples int      `json:"training_samples"`
	Classes         []string `json:"classes"`
	Schema          []string `json:"schema"`
}

// MetricsFromEvaluation summarizes an evaluation for the version registry.
func MetricsFromEvaluation(e Evaluation, classes, schema []string) ModelMetrics {
	return ModelMetrics{
		Accuracy:        e.Accuracy,
		MacroF1:         e.MacroAvg.F1,
		Precision:       e.MacroAvg.Precision,
		Recall:          e.MacroAvg.Recall,
		TrainingSamples: len(e.Pairs),
		Classes:         append([]string(nil), classes...),
		Schema:          append([]string(nil), schema...),
	}
}

// ModelManager handles model versioning and rollback
type ModelManager struct {
	modelsDir    string
	versionsFile string
	versions     []ModelVersion
	currentModel *ModelVersion
	now          func() time.Time
}

// NewModelManager creates a new model manager
func NewModelManager(modelsDir string) (*ModelManager, error) {
	if err := os.MkdirAll(modelsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create models directory: %w", err)
	}

	mm := &ModelManager{
		modelsDir:    modelsDir,
		versionsFile: filepath.Join(modelsDir, "model_versions.json"),
		versions:     make([]ModelVersion, 0),
		now:          time.Now,
	}

	// Load existing versions if available
	if err := mm.loadVersions(); err != nil {
		log.Warn().Err(err).Msg("Failed to load model versions, starting fresh")
	}

	return mm, nil
}

// VersionPath returns where the artifact for a version should be stored.
func (mm *ModelManager) VersionPath(version string) string {
	return filepath.Join(mm.modelsDir, "model-"+version+".json")
}

// NextVersion returns an unused version identifier based on the current time.
func (mm *ModelManager) NextVersion() string {
	base := mm.now().Format("20060102-150405")
	version := base
	for n := 2; mm.find(version) >= 0; n++ {
		version = fmt.Sprintf("%s.%d", base, n)
	}
	return version
}

// AddVersion records an artifact already saved at modelPath
func (mm *ModelManager) AddVersion(version, modelPath string, metrics ModelMetrics) error {
	if mm.find(version) >= 0 {
		return fmt.Errorf("version %s already exists", version)
	}

	mm.versions = append(mm.versions, ModelVersion{
		Version:   version,
		Path:      modelPath,
		CreatedAt: mm.now(),
		Metrics:   metrics,
		IsActive:  false,
	})

	// Newest first
	sort.SliceStable(mm.versions, func(i, j int) bool {
		return mm.versions[i].CreatedAt.After(mm.versions[j].CreatedAt)
	})
	mm.relinkCurrent()

	return mm.saveVersions()
}

// ActivateVersion activates a specific model version
func (mm *ModelManager) ActivateVersion(version string) error {
	idx := mm.find(version)
	if idx < 0 {
		return fmt.Errorf("version %s not found", version)
	}

	for i := range mm.versions {
		mm.versions[i].IsActive = i == idx
	}
	mm.currentModel = &mm.versions[idx]

	return mm.saveVersions()
}

// Rollback activates the version trained before the active one
func (mm *ModelManager) Rollback() error {
	if len(mm.versions) < 2 {
		return fmt.Errorf("no previous version available for rollback")
	}

	currentIdx := -1
	for i, v := range mm.versions {
		if v.IsActive {
			currentIdx = i
			break
		}
	}
	if currentIdx == -1 {
		return fmt.Errorf("no active version found")
	}

	if currentIdx+1 < len(mm.versions) {
		return mm.ActivateVersion(mm.versions[currentIdx+1].Version)
	}
	return fmt.Errorf("no previous version available")
}

// GetCurrentVersion returns the currently active version
func (mm *ModelManager) GetCurrentVersion() *ModelVersion {
	return mm.currentModel
}

// ListVersions returns all model versions, newest first
func (mm *ModelManager) ListVersions() []ModelVersion {
	return append([]ModelVersion(nil), mm.versions...)
}

func (mm *ModelManager) find(version string) int {
	for i := range mm.versions {
		if mm.versions[i].Version == version {
			return i
		}
	}
	return -1
}

func (mm *ModelManager) relinkCurrent() {
	mm.currentModel = nil
	for i := range mm.versions {
		if mm.versions[i].IsActive {
			mm.currentModel = &mm.versions[i]
			return
		}
	}
}

// loadVersions loads model versions from file
func (mm *ModelManager) loadVersions() error {
	data, err := os.ReadFile(mm.versionsFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := json.Unmarshal(data, &mm.versions); err != nil {
		return err
	}
	mm.relinkCurrent()
	return nil
}

// saveVersions saves model versions to file
func (mm *ModelManager) saveVersions() error {
	data, err := json.MarshalIndent(mm.versions, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(mm.versionsFile, data, 0o600)
}
