package cfg

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"imu-svm/internal/common"
	"imu-svm/internal/features"
	"imu-svm/internal/ml"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Settings struct {
	InputDir        string
	FileExtension   string
	OutputDir       string
	DataPath        string // feature cache directory; empty disables the cache
	ModelPath       string
	ModelsDir       string
	SamplingRate    float64
	TimeOffset      int64
	LabelDelimiter  string
	Schema          features.Schema
	ExpectedClasses []string
	SVC             ml.SVCConfig
	Workers         int
	ServerPort      int
	ServerURL       string
	RESTTimeout     time.Duration
	DriftDetection  ml.DriftDetectionConfig
	LogLevel        string
}

type ConfigFile struct {
	Input struct {
		Dir             string   `yaml:"dir"`
		Extension       string   `yaml:"extension"`
		LabelDelimiter  string   `yaml:"labelDelimiter"`
		ExpectedClasses []string `yaml:"expectedClasses"`
	} `yaml:"input"`

	Features struct {
		SamplingRate float64  `yaml:"samplingRate"`
		TimeOffset   int64    `yaml:"timeOffset"`
		Schema       []string `yaml:"schema"`
	} `yaml:"features"`

	Model struct {
		Path        string  `yaml:"path"`
		VersionsDir string  `yaml:"versionsDir"`
		C           float64 `yaml:"c"`
		Tolerance   float64 `yaml:"tolerance"`
		MaxIter     int     `yaml:"maxIter"`
	} `yaml:"model"`

	Drift struct {
		Enabled   *bool   `yaml:"enabled"`
		Threshold float64 `yaml:"threshold"`
	} `yaml:"drift"`

	Server struct {
		Port        int    `yaml:"port"`
		URL         string `yaml:"url"`
		RESTTimeout string `yaml:"restTimeout"`
	} `yaml:"server"`

	System struct {
		OutputDir string `yaml:"outputDir"`
		DataPath  string `yaml:"dataPath"`
		Workers   int    `yaml:"workers"`
		LogLevel  string `yaml:"logLevel"`
	} `yaml:"system"`
}

// Load reads settings from the YAML file named by CONFIG_FILE, or from the
// environment alone. A .env file (ENV_FILE, default ".env") is loaded first
// when present; variables already set in the process win over it.
func Load() (Settings, error) {
	if err := loadEnvFile(); err != nil {
		return Settings{}, err
	}

	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}
	return loadFromEnv()
}

func loadEnvFile() error {
	path := getEnvOrDefault(common.EnvEnvFile, common.DefaultEnvFile)
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	restTimeout, err := time.ParseDuration(config.Server.RESTTimeout)
	if err != nil {
		restTimeout = 10 * time.Second
	}

	driftEnabled := true
	if config.Drift.Enabled != nil {
		driftEnabled = *config.Drift.Enabled
	}

	settings := Settings{
		InputDir:        getEnvOrDefault(common.EnvInputDir, orDefault(config.Input.Dir, common.DefaultInputDir)),
		FileExtension:   getEnvOrDefault(common.EnvFileExtension, orDefault(config.Input.Extension, common.DefaultFileExtension)),
		OutputDir:       getEnvOrDefault(common.EnvOutputDir, orDefault(config.System.OutputDir, common.DefaultOutputDir)),
		DataPath:        getEnvOrDefault(common.EnvDataPath, config.System.DataPath),
		ModelPath:       getEnvOrDefault(common.EnvModelPath, orDefault(config.Model.Path, common.DefaultModelPath)),
		ModelsDir:       getEnvOrDefault(common.EnvModelsDir, orDefault(config.Model.VersionsDir, common.DefaultModelsDir)),
		SamplingRate:    getFloatFromEnvOrConfig(common.EnvSamplingRate, config.Features.SamplingRate, common.DefaultSamplingRate),
		TimeOffset:      int64(getIntFromEnvOrConfig(common.EnvTimeOffset, int(config.Features.TimeOffset), common.DefaultTimeOffset)),
		LabelDelimiter:  getEnvOrDefault(common.EnvLabelDelimiter, orDefault(config.Input.LabelDelimiter, common.DefaultLabelDelimiter)),
		Schema:          getListFromEnvOrConfig(common.EnvSchema, config.Features.Schema, features.DefaultSchema),
		ExpectedClasses: getListFromEnvOrConfig(common.EnvExpectedClasses, config.Input.ExpectedClasses, nil),
		SVC: ml.SVCConfig{
			C:         getFloatFromEnvOrConfig(common.EnvSVMC, config.Model.C, common.DefaultSVMC),
			Tolerance: getFloatFromEnvOrConfig(common.EnvSVMTolerance, config.Model.Tolerance, common.DefaultSVMTolerance),
			MaxIter:   getIntFromEnvOrConfig(common.EnvSVMMaxIter, config.Model.MaxIter, common.DefaultSVMMaxIter),
		},
		Workers:     getIntFromEnvOrConfig(common.EnvWorkers, config.System.Workers, 0),
		ServerPort:  getIntFromEnvOrConfig(common.EnvServerPort, config.Server.Port, common.DefaultServerPort),
		ServerURL:   getEnvOrDefault(common.EnvServerURL, orDefault(config.Server.URL, common.DefaultServerURL)),
		RESTTimeout: getDurationOrDefault(common.EnvRESTTimeout, restTimeout),
		DriftDetection: ml.DriftDetectionConfig{
			Enabled:        getBoolOrDefault(common.EnvDriftEnabled, driftEnabled),
			AlertThreshold: getFloatFromEnvOrConfig(common.EnvDriftThreshold, config.Drift.Threshold, common.DefaultDriftThreshold),
		},
		LogLevel: getEnvOrDefault(common.EnvLogLevel, orDefault(config.System.LogLevel, common.DefaultLogLevel)),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		InputDir:        getEnvOrDefault(common.EnvInputDir, common.DefaultInputDir),
		FileExtension:   getEnvOrDefault(common.EnvFileExtension, common.DefaultFileExtension),
		OutputDir:       getEnvOrDefault(common.EnvOutputDir, common.DefaultOutputDir),
		DataPath:        os.Getenv(common.EnvDataPath), // optional
		ModelPath:       getEnvOrDefault(common.EnvModelPath, common.DefaultModelPath),
		ModelsDir:       getEnvOrDefault(common.EnvModelsDir, common.DefaultModelsDir),
		SamplingRate:    getFloatOrDefault(common.EnvSamplingRate, common.DefaultSamplingRate),
		TimeOffset:      int64(getIntOrDefault(common.EnvTimeOffset, common.DefaultTimeOffset)),
		LabelDelimiter:  getEnvOrDefault(common.EnvLabelDelimiter, common.DefaultLabelDelimiter),
		Schema:          getListFromEnvOrConfig(common.EnvSchema, nil, features.DefaultSchema),
		ExpectedClasses: getListFromEnvOrConfig(common.EnvExpectedClasses, nil, nil),
		SVC: ml.SVCConfig{
			C:         getFloatOrDefault(common.EnvSVMC, common.DefaultSVMC),
			Tolerance: getFloatOrDefault(common.EnvSVMTolerance, common.DefaultSVMTolerance),
			MaxIter:   getIntOrDefault(common.EnvSVMMaxIter, common.DefaultSVMMaxIter),
		},
		Workers:     getIntOrDefault(common.EnvWorkers, 0),
		ServerPort:  getIntOrDefault(common.EnvServerPort, common.DefaultServerPort),
		ServerURL:   getEnvOrDefault(common.EnvServerURL, common.DefaultServerURL),
		RESTTimeout: getDurationOrDefault(common.EnvRESTTimeout, 10*time.Second),
		DriftDetection: ml.DriftDetectionConfig{
			Enabled:        getBoolOrDefault(common.EnvDriftEnabled, true),
			AlertThreshold: getFloatOrDefault(common.EnvDriftThreshold, common.DefaultDriftThreshold),
		},
		LogLevel: getEnvOrDefault(common.EnvLogLevel, common.DefaultLogLevel),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

// ExtractionParams returns the parameters recorded in trained artifacts.
func (s *Settings) ExtractionParams() ml.ExtractionParams {
	return ml.ExtractionParams{
		SamplingRate:   s.SamplingRate,
		TimeOffset:     s.TimeOffset,
		LabelDelimiter: s.LabelDelimiter,
	}
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if configValue != 0 {
		defaultValue = configValue
	}
	return getIntOrDefault(key, defaultValue)
}

func getFloatFromEnvOrConfig(key string, configValue, defaultValue float64) float64 {
	if configValue != 0 {
		defaultValue = configValue
	}
	return getFloatOrDefault(key, defaultValue)
}

// getListFromEnvOrConfig reads a list from a variable separated by "|"
// (feature names contain spaces and commas are plausible in labels).
func getListFromEnvOrConfig(key string, configValue, defaultValue []string) []string {
	if env := os.Getenv(key); env != "" {
		var out []string
		for _, item := range strings.Split(env, "|") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		return out
	}
	if len(configValue) > 0 {
		return append([]string(nil), configValue...)
	}
	return append([]string(nil), defaultValue...)
}

// validateSettings performs range checks on configuration values
func validateSettings(settings *Settings) error {
	if settings.InputDir == "" {
		return fmt.Errorf("input directory cannot be empty")
	}
	if !strings.HasPrefix(settings.FileExtension, ".") {
		return fmt.Errorf("file extension must start with '.', got %q", settings.FileExtension)
	}
	if settings.ModelPath == "" {
		return fmt.Errorf("model path cannot be empty")
	}
	if settings.LabelDelimiter == "" {
		return fmt.Errorf("label delimiter cannot be empty")
	}

	if settings.SamplingRate < common.MinSamplingRate || settings.SamplingRate > common.MaxSamplingRate {
		return fmt.Errorf("sampling rate must be between %g and %g Hz, got %g",
			common.MinSamplingRate, common.MaxSamplingRate, settings.SamplingRate)
	}
	if settings.TimeOffset <= 0 || settings.TimeOffset > common.MaxTimeOffset {
		return fmt.Errorf("time offset must be between 1 and %d, got %d", common.MaxTimeOffset, settings.TimeOffset)
	}

	if err := settings.Schema.Validate(); err != nil {
		return fmt.Errorf("feature schema: %w", err)
	}

	if settings.SVC.C <= 0 {
		return fmt.Errorf("SVM C must be positive, got %g", settings.SVC.C)
	}
	if settings.SVC.Tolerance <= 0 || settings.SVC.Tolerance > 1 {
		return fmt.Errorf("SVM tolerance must be in (0, 1], got %g", settings.SVC.Tolerance)
	}
	if settings.SVC.MaxIter <= 0 {
		return fmt.Errorf("SVM max iterations must be positive, got %d", settings.SVC.MaxIter)
	}

	if settings.Workers < 0 || settings.Workers > common.MaxWorkers {
		return fmt.Errorf("workers must be between 0 and %d, got %d", common.MaxWorkers, settings.Workers)
	}
	if settings.ServerPort < common.MinServerPort || settings.ServerPort > common.MaxServerPort {
		return fmt.Errorf("server port must be between %d and %d, got %d",
			common.MinServerPort, common.MaxServerPort, settings.ServerPort)
	}
	if settings.RESTTimeout < time.Second || settings.RESTTimeout > 5*time.Minute {
		return fmt.Errorf("REST timeout must be between 1s and 5m, got %v", settings.RESTTimeout)
	}
	if settings.DriftDetection.AlertThreshold <= 0 {
		return fmt.Errorf("drift threshold must be positive, got %g", settings.DriftDetection.AlertThreshold)
	}

	return nil
}
