package ml

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// minScale guards constant columns against division by zero; such columns
// keep unit scale and only get centered.
const minScale = 10 * 2.220446049250313e-16

// StandardScaler centers each column on its mean and divides by its
// population standard deviation.
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// FitScaler learns per-column statistics from X. Only the rows passed in
// influence the result.
func FitScaler(X [][]float64) (*StandardScaler, error) {
	if len(X) == 0 {
		return nil, fmt.Errorf("cannot fit scaler on no rows")
	}
	dim := len(X[0])
	s := &StandardScaler{Mean: make([]float64, dim), Scale: make([]float64, dim)}

	col := make([]float64, len(X))
	for j := 0; j < dim; j++ {
		for i, row := range X {
			if len(row) != dim {
				return nil, fmt.Errorf("row %d has %d columns, expected %d", i, len(row), dim)
			}
			col[i] = row[j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		if std < minScale || math.IsNaN(std) {
			std = 1
		}
		s.Mean[j], s.Scale[j] = mean, std
	}
	return s, nil
}

// Dim returns the number of columns the scaler was fit on.
func (s *StandardScaler) Dim() int {
	return len(s.Mean)
}

// TransformRow returns a scaled copy of x.
func (s *StandardScaler) TransformRow(x []float64) ([]float64, error) {
	if len(x) != len(s.Mean) {
		return nil, fmt.Errorf("scaler expects %d columns, got %d", len(s.Mean), len(x))
	}
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.Mean[j]) / s.Scale[j]
	}
	return out, nil
}

// Transform scales every row of X into a new matrix.
func (s *StandardScaler) Transform(X [][]float64) ([][]float64, error) {
	out := make([][]float64, len(X))
	for i, row := range X {
		scaled, err := s.TransformRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = scaled
	}
	return out, nil
}

// Validate checks a decoded scaler for usable parameters.
func (s *StandardScaler) Validate() error {
	if len(s.Mean) == 0 {
		return fmt.Errorf("scaler has no columns")
	}
	if len(s.Mean) != len(s.Scale) {
		return fmt.Errorf("scaler has %d means but %d scales", len(s.Mean), len(s.Scale))
	}
	for j := range s.Mean {
		if math.IsNaN(s.Mean[j]) || math.IsInf(s.Mean[j], 0) {
			return fmt.Errorf("scaler mean %d is not finite", j)
		}
		if s.Scale[j] <= 0 || math.IsInf(s.Scale[j], 0) || math.IsNaN(s.Scale[j]) {
			return fmt.Errorf("scaler scale %d must be positive and finite", j)
		}
	}
	return nil
}
