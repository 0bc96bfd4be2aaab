package common

// Environment variable keys
const (
	EnvConfigFile      = "CONFIG_FILE"
	EnvEnvFile         = "ENV_FILE"
	EnvInputDir        = "INPUT_DIR"
	EnvFileExtension   = "FILE_EXTENSION"
	EnvOutputDir       = "OUTPUT_DIR"
	EnvDataPath        = "DATA_PATH"
	EnvModelPath       = "MODEL_PATH"
	EnvModelsDir       = "MODELS_DIR"
	EnvSamplingRate    = "SAMPLING_RATE"
	EnvTimeOffset      = "TIME_OFFSET"
	EnvLabelDelimiter  = "LABEL_DELIMITER"
	EnvSchema          = "FEATURE_SCHEMA"
	EnvExpectedClasses = "EXPECTED_CLASSES"
	EnvSVMC            = "SVM_C"
	EnvSVMTolerance    = "SVM_TOLERANCE"
	EnvSVMMaxIter      = "SVM_MAX_ITER"
	EnvWorkers         = "WORKERS"
	EnvServerPort      = "SERVER_PORT"
	EnvServerURL       = "SERVER_URL"
	EnvRESTTimeout     = "REST_TIMEOUT"
	EnvDriftEnabled    = "DRIFT_DETECTION"
	EnvDriftThreshold  = "DRIFT_THRESHOLD"
	EnvLogLevel        = "LOG_LEVEL"
)

// Configuration defaults
const (
	DefaultEnvFile        = ".env"
	DefaultInputDir       = "recordings"
	DefaultFileExtension  = ".txt"
	DefaultOutputDir      = "output"
	DefaultModelPath      = "models/model.json"
	DefaultModelsDir      = "models"
	DefaultSamplingRate   = 10.0
	DefaultTimeOffset     = 50
	DefaultLabelDelimiter = "_"
	DefaultSVMC           = 1.0
	DefaultSVMTolerance   = 1e-3
	DefaultSVMMaxIter     = 100000
	DefaultServerPort     = 8080
	DefaultServerURL      = "http://localhost:8080"
	DefaultDriftThreshold = 3.0
	DefaultLogLevel       = "info"
)

// Validation constants
const (
	MinSamplingRate = 0.1
	MaxSamplingRate = 10000.0
	MaxTimeOffset   = 1_000_000
	MaxWorkers      = 256
	MinServerPort   = 1024
	MaxServerPort   = 65535
)

// Output file names
const (
	FullTableFile     = "features_full.csv"
	SelectedTableFile = "features_selected.csv"
	SummaryFile       = "evaluation_summary.txt"
	ConfusionFile     = "confusion_matrix.csv"
	EvaluationFile    = "evaluation.json"
	LOOPredictionFile = "loo_predictions.csv"
	ImportanceFile    = "feature_importance.csv"
	PredictionsFile   = "predictions.csv"
)
