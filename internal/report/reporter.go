// Package report writes the human- and machine-readable outputs of a
// training run and of batch inference.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"imu-svm/internal/common"
	"imu-svm/internal/features"
	"imu-svm/internal/ml"

	"github.com/rs/zerolog/log"
)

// Exclusion records a recording left out of a batch and why.
type Exclusion struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

// TrainingResults is everything a training report is generated from.
type TrainingResults struct {
	Evaluation   ml.Evaluation
	Artifact     *ml.Artifact
	ModelPath    string
	ModelVersion string
	Selection    features.Selection
	Excluded     []Exclusion
	Importance   []ml.FeatureStats
	Duration     time.Duration
}

// Reporter generates training reports
type Reporter struct {
	results    *TrainingResults
	outputPath string
}

// NewReporter creates a new reporter
func NewReporter(results *TrainingResults, outputPath string) *Reporter {
	return &Reporter{
		results:    results,
		outputPath: outputPath,
	}
}

// GenerateReport generates all report formats
func (r *Reporter) GenerateReport() error {
	if err := os.MkdirAll(r.outputPath, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := r.generateSummary(); err != nil {
		return err
	}
	if err := r.generateConfusionMatrix(); err != nil {
		return err
	}
	if err := r.generateLOOPredictions(); err != nil {
		return err
	}
	if err := r.generateJSONReport(); err != nil {
		return err
	}
	if len(r.results.Importance) > 0 {
		if err := r.generateImportance(); err != nil {
			return err
		}
	}
	return nil
}

// generateSummary generates a human-readable summary
func (r *Reporter) generateSummary() error {
	summaryPath := filepath.Join(r.outputPath, common.SummaryFile)
	file, err := os.Create(summaryPath)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	e := r.results.Evaluation

	fmt.Fprintf(file, "LEAVE-ONE-OUT EVALUATION SUMMARY\n")
	fmt.Fprintf(file, "================================\n\n")

	fmt.Fprintf(file, "Recordings: %d\n", len(e.Pairs))
	fmt.Fprintf(file, "Correct: %d\n", e.Correct())
	fmt.Fprintf(file, "Accuracy: %.4f\n", e.Accuracy)
	if r.results.Duration > 0 {
		fmt.Fprintf(file, "Duration: %s\n", r.results.Duration.Round(time.Millisecond))
	}

	if a := r.results.Artifact; a != nil {
		fmt.Fprintf(file, "\nMODEL\n")
		fmt.Fprintf(file, "-----\n")
		if r.results.ModelVersion != "" {
			fmt.Fprintf(file, "Version: %s\n", r.results.ModelVersion)
		}
		if r.results.ModelPath != "" {
			fmt.Fprintf(file, "Path: %s\n", r.results.ModelPath)
		}
		fmt.Fprintf(file, "Kernel: %s\n", a.Kernel)
		fmt.Fprintf(file, "Classes: %v\n", a.Classes)
		fmt.Fprintf(file, "Schema:\n")
		for _, c := range a.Schema {
			fmt.Fprintf(file, "  %s\n", c)
		}
	}

	if sel := r.results.Selection; sel.Status == features.SchemaDegraded {
		fmt.Fprintf(file, "\nWARNING: schema degraded, missing columns:\n")
		for _, c := range sel.Missing {
			fmt.Fprintf(file, "  %s\n", c)
		}
	}

	fmt.Fprintf(file, "\nCLASSIFICATION REPORT\n")
	fmt.Fprintf(file, "---------------------\n")
	fmt.Fprintf(file, "%-14s %9s %9s %9s %9s\n", "", "precision", "recall", "f1-score", "support")
	for _, m := range e.PerClass {
		writeMetricsRow(file, m)
	}
	fmt.Fprintf(file, "\n%-14s %9s %9s %9.2f %9d\n", "accuracy", "", "", e.Accuracy, len(e.Pairs))
	writeMetricsRow(file, e.MacroAvg)
	writeMetricsRow(file, e.WeightedAvg)

	fmt.Fprintf(file, "\nCONFUSION MATRIX (rows true, columns predicted)\n")
	fmt.Fprintf(file, "-----------------------------------------------\n")
	fmt.Fprintf(file, "%-14s", "")
	for _, l := range e.Labels {
		fmt.Fprintf(file, " %8s", l)
	}
	fmt.Fprintln(file)
	for i, l := range e.Labels {
		fmt.Fprintf(file, "%-14s", l)
		for _, n := range e.Confusion[i] {
			fmt.Fprintf(file, " %8d", n)
		}
		fmt.Fprintln(file)
	}

	if len(r.results.Excluded) > 0 {
		fmt.Fprintf(file, "\nEXCLUDED RECORDINGS\n")
		fmt.Fprintf(file, "-------------------\n")
		for _, ex := range r.results.Excluded {
			fmt.Fprintf(file, "%s: %s\n", ex.File, ex.Reason)
		}
	}

	log.Info().Str("file", summaryPath).Msg("Summary report generated")
	return nil
}

func writeMetricsRow(file *os.File, m ml.ClassMetrics) {
	fmt.Fprintf(file, "%-14s %9.2f %9.2f %9.2f %9d\n", m.Label, m.Precision, m.Recall, m.F1, m.Support)
}

func newCSVWriter(file *os.File) *csv.Writer {
	w := csv.NewWriter(file)
	w.Comma = features.Delimiter
	return w
}

// generateConfusionMatrix writes the matrix with labels on both axes
func (r *Reporter) generateConfusionMatrix() error {
	e := r.results.Evaluation
	rows := [][]string{append([]string{"true\\predicted"}, e.Labels...)}
	for i, l := range e.Labels {
		row := []string{l}
		for _, n := range e.Confusion[i] {
			row = append(row, strconv.Itoa(n))
		}
		rows = append(rows, row)
	}
	return r.writeCSV(common.ConfusionFile, "Confusion matrix generated", rows)
}

// generateLOOPredictions writes one line per held-out recording
func (r *Reporter) generateLOOPredictions() error {
	rows := [][]string{{features.FileColumn, "True", "Predicted", "Correct"}}
	for _, p := range r.results.Evaluation.Pairs {
		rows = append(rows, []string{p.File, p.True, p.Predicted, strconv.FormatBool(p.True == p.Predicted)})
	}
	return r.writeCSV(common.LOOPredictionFile, "Leave-one-out predictions generated", rows)
}

func (r *Reporter) generateImportance() error {
	rows := [][]string{{"Feature", "Importance", "Permutation", "WeightNorm"}}
	for _, s := range r.results.Importance {
		rows = append(rows, []string{
			s.Name,
			strconv.FormatFloat(s.ImportanceScore, 'g', -1, 64),
			strconv.FormatFloat(s.PermutationScore, 'g', -1, 64),
			strconv.FormatFloat(s.WeightNorm, 'g', -1, 64),
		})
	}
	return r.writeCSV(common.ImportanceFile, "Feature importance generated", rows)
}

func (r *Reporter) writeCSV(name, msg string, rows [][]string) error {
	path := filepath.Join(r.outputPath, name)
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	defer file.Close()

	writer := newCSVWriter(file)
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	log.Info().Str("file", path).Msg(msg)
	return nil
}

// generateJSONReport generates a JSON report with all data
func (r *Reporter) generateJSONReport() error {
	jsonPath := filepath.Join(r.outputPath, common.EvaluationFile)

	report := map[string]interface{}{
		"evaluation":    r.results.Evaluation,
		"model_version": r.results.ModelVersion,
		"model_path":    r.results.ModelPath,
		"excluded":      r.results.Excluded,
		"generated_at":  time.Now(),
	}
	if r.results.Artifact != nil {
		report["schema"] = r.results.Artifact.Schema
		report["classes"] = r.results.Artifact.Classes
	}
	if r.results.Selection.Status == features.SchemaDegraded {
		report["missing_columns"] = r.results.Selection.Missing
	}
	if len(r.results.Importance) > 0 {
		report["feature_importance"] = r.results.Importance
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write JSON report: %w", err)
	}

	log.Info().Str("file", jsonPath).Msg("JSON report generated")
	return nil
}

// WritePredictions writes predictions.csv into outputPath. Excluded
// recordings are listed with an empty label and their reason.
func WritePredictions(outputPath string, preds []ml.Prediction, excluded []Exclusion) (string, error) {
	if err := os.MkdirAll(outputPath, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	r := &Reporter{outputPath: outputPath}

	rows := [][]string{{features.FileColumn, "Predicted", "Error"}}
	for _, p := range preds {
		rows = append(rows, []string{p.File, p.Label, ""})
	}
	for _, ex := range excluded {
		rows = append(rows, []string{ex.File, "", ex.Reason})
	}
	if err := r.writeCSV(common.PredictionsFile, "Predictions written", rows); err != nil {
		return "", err
	}
	return filepath.Join(outputPath, common.PredictionsFile), nil
}
