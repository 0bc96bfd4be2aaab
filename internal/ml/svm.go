package ml

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// KernelLinear is the only kernel the classifier supports.
const KernelLinear = "linear"

const tau = 1e-12

// SVCConfig holds the C-SVC hyperparameters.
type SVCConfig struct {
	C         float64 `yaml:"c" json:"c"`
	Tolerance float64 `yaml:"tolerance" json:"tolerance"`
	MaxIter   int     `yaml:"maxIter" json:"max_iter"`
}

// DefaultSVCConfig mirrors the usual libsvm defaults.
func DefaultSVCConfig() SVCConfig {
	return SVCConfig{C: 1.0, Tolerance: 1e-3, MaxIter: 100000}
}

func (c SVCConfig) withDefaults() SVCConfig {
	d := DefaultSVCConfig()
	if c.C <= 0 {
		c.C = d.C
	}
	if c.Tolerance <= 0 {
		c.Tolerance = d.Tolerance
	}
	if c.MaxIter <= 0 {
		c.MaxIter = d.MaxIter
	}
	return c
}

// BinaryModel separates Positive (decision > 0) from Negative.
type BinaryModel struct {
	Positive       string      `json:"positive"`
	Negative       string      `json:"negative"`
	SupportVectors [][]float64 `json:"support_vectors"`
	DualCoef       []float64   `json:"dual_coef"`
	Weights        []float64   `json:"weights"`
	Bias           float64     `json:"bias"`
	Iterations     int         `json:"iterations"`
}

// Decision returns the signed distance-like score of x.
func (b *BinaryModel) Decision(x []float64) float64 {
	return floats.Dot(b.Weights, x) + b.Bias
}

// SVC is a linear support-vector classifier. Multiclass problems are
// decomposed one-vs-one over the sorted class labels; a single-class
// training set produces a constant classifier.
type SVC struct {
	Classes  []string      `json:"classes"`
	Features int           `json:"features"`
	Pairs    []BinaryModel `json:"pairs"`
}

// FitSVC trains a classifier on rows X with labels y.
func FitSVC(X [][]float64, y []string, cfg SVCConfig) (*SVC, error) {
	if len(X) == 0 {
		return nil, fmt.Errorf("cannot fit classifier on an empty training set")
	}
	if len(X) != len(y) {
		return nil, fmt.Errorf("have %d rows but %d labels", len(X), len(y))
	}
	dim := len(X[0])
	if dim == 0 {
		return nil, fmt.Errorf("cannot fit classifier without features")
	}
	for i, row := range X {
		if len(row) != dim {
			return nil, fmt.Errorf("row %d has %d features, expected %d", i, len(row), dim)
		}
	}
	cfg = cfg.withDefaults()

	classes := uniqueSorted(y)
	svc := &SVC{Classes: classes, Features: dim}

	for i := 0; i < len(classes); i++ {
		for j := i + 1; j < len(classes); j++ {
			var xs [][]float64
			var ys []float64
			for k, label := range y {
				switch label {
				case classes[i]:
					xs = append(xs, X[k])
					ys = append(ys, 1)
				case classes[j]:
					xs = append(xs, X[k])
					ys = append(ys, -1)
				}
			}
			m := fitBinary(xs, ys, cfg)
			m.Positive, m.Negative = classes[i], classes[j]
			svc.Pairs = append(svc.Pairs, m)
		}
	}
	return svc, nil
}

// Predict returns the label with the most one-vs-one votes. Ties go to
// the label that sorts first.
func (s *SVC) Predict(x []float64) (string, error) {
	if len(x) != s.Features {
		return "", fmt.Errorf("classifier expects %d features, got %d", s.Features, len(x))
	}
	if len(s.Classes) == 1 {
		return s.Classes[0], nil
	}

	index := make(map[string]int, len(s.Classes))
	for i, c := range s.Classes {
		index[c] = i
	}
	votes := make([]int, len(s.Classes))
	for i := range s.Pairs {
		p := &s.Pairs[i]
		if p.Decision(x) > 0 {
			votes[index[p.Positive]]++
		} else {
			votes[index[p.Negative]]++
		}
	}

	best := 0
	for i := 1; i < len(votes); i++ {
		if votes[i] > votes[best] {
			best = i
		}
	}
	return s.Classes[best], nil
}

// Validate checks the internal consistency of a classifier, typically one
// decoded from disk.
func (s *SVC) Validate() error {
	if len(s.Classes) == 0 {
		return fmt.Errorf("classifier has no classes")
	}
	if s.Features <= 0 {
		return fmt.Errorf("classifier has no features")
	}
	if want := len(s.Classes) * (len(s.Classes) - 1) / 2; len(s.Pairs) != want {
		return fmt.Errorf("classifier has %d pairwise models, expected %d", len(s.Pairs), want)
	}
	known := make(map[string]struct{}, len(s.Classes))
	for _, c := range s.Classes {
		known[c] = struct{}{}
	}
	for i, p := range s.Pairs {
		if len(p.Weights) != s.Features {
			return fmt.Errorf("pair %d has %d weights, expected %d", i, len(p.Weights), s.Features)
		}
		if _, ok := known[p.Positive]; !ok {
			return fmt.Errorf("pair %d references unknown class %q", i, p.Positive)
		}
		if _, ok := known[p.Negative]; !ok {
			return fmt.Errorf("pair %d references unknown class %q", i, p.Negative)
		}
		if math.IsNaN(p.Bias) || math.IsInf(p.Bias, 0) {
			return fmt.Errorf("pair %d has a non-finite bias", i)
		}
	}
	return nil
}

// fitBinary solves the C-SVC dual with SMO, choosing the working pair by
// maximal violation with second-order information, as libsvm does.
func fitBinary(X [][]float64, y []float64, cfg SVCConfig) BinaryModel {
	n := len(X)
	K := make([][]float64, n)
	for i := range K {
		K[i] = make([]float64, n)
		for j := 0; j <= i; j++ {
			K[i][j] = floats.Dot(X[i], X[j])
			K[j][i] = K[i][j]
		}
	}
	q := func(i, j int) float64 { return y[i] * y[j] * K[i][j] }

	C := cfg.C
	alpha := make([]float64, n)
	grad := make([]float64, n)
	for i := range grad {
		grad[i] = -1
	}
	upper := func(i int) bool { return alpha[i] >= C }
	lower := func(i int) bool { return alpha[i] <= 0 }

	iter := 0
	for ; iter < cfg.MaxIter; iter++ {
		gmax, gmax2 := math.Inf(-1), math.Inf(-1)
		i, j := -1, -1
		for t := 0; t < n; t++ {
			if y[t] == 1 {
				if !upper(t) && -grad[t] >= gmax {
					gmax, i = -grad[t], t
				}
			} else if !lower(t) && grad[t] >= gmax {
				gmax, i = grad[t], t
			}
		}
		if i < 0 {
			break
		}

		objMin := math.Inf(1)
		for t := 0; t < n; t++ {
			var gradDiff, quad float64
			if y[t] == 1 {
				if lower(t) {
					continue
				}
				gradDiff = gmax + grad[t]
				if grad[t] >= gmax2 {
					gmax2 = grad[t]
				}
				quad = K[i][i] + K[t][t] - 2*y[i]*q(i, t)
			} else {
				if upper(t) {
					continue
				}
				gradDiff = gmax - grad[t]
				if -grad[t] >= gmax2 {
					gmax2 = -grad[t]
				}
				quad = K[i][i] + K[t][t] + 2*y[i]*q(i, t)
			}
			if gradDiff <= 0 {
				continue
			}
			if quad <= 0 {
				quad = tau
			}
			if obj := -(gradDiff * gradDiff) / quad; obj <= objMin {
				objMin, j = obj, t
			}
		}
		if gmax+gmax2 < cfg.Tolerance || j < 0 {
			break
		}

		oldI, oldJ := alpha[i], alpha[j]
		if y[i] != y[j] {
			quad := K[i][i] + K[j][j] + 2*q(i, j)
			if quad <= 0 {
				quad = tau
			}
			delta := (-grad[i] - grad[j]) / quad
			d := alpha[i] - alpha[j]
			alpha[i] += delta
			alpha[j] += delta
			if d > 0 {
				if alpha[j] < 0 {
					alpha[j], alpha[i] = 0, d
				}
			} else if alpha[i] < 0 {
				alpha[i], alpha[j] = 0, -d
			}
			if d > 0 {
				if alpha[i] > C {
					alpha[i], alpha[j] = C, C-d
				}
			} else if alpha[j] > C {
				alpha[j], alpha[i] = C, C+d
			}
		} else {
			quad := K[i][i] + K[j][j] - 2*q(i, j)
			if quad <= 0 {
				quad = tau
			}
			delta := (grad[i] - grad[j]) / quad
			sum := alpha[i] + alpha[j]
			alpha[i] -= delta
			alpha[j] += delta
			if sum > C {
				if alpha[i] > C {
					alpha[i], alpha[j] = C, sum-C
				}
			} else if alpha[j] < 0 {
				alpha[j], alpha[i] = 0, sum
			}
			if sum > C {
				if alpha[j] > C {
					alpha[j], alpha[i] = C, sum-C
				}
			} else if alpha[i] < 0 {
				alpha[i], alpha[j] = 0, sum
			}
		}

		di, dj := alpha[i]-oldI, alpha[j]-oldJ
		for t := 0; t < n; t++ {
			grad[t] += q(i, t)*di + q(j, t)*dj
		}
	}

	m := BinaryModel{Bias: -computeRho(alpha, grad, y, C), Iterations: iter, Weights: make([]float64, len(X[0]))}
	for i := range alpha {
		if alpha[i] <= 0 {
			continue
		}
		coef := y[i] * alpha[i]
		m.SupportVectors = append(m.SupportVectors, append([]float64(nil), X[i]...))
		m.DualCoef = append(m.DualCoef, coef)
		floats.AddScaled(m.Weights, coef, X[i])
	}
	return m
}

func computeRho(alpha, grad, y []float64, C float64) float64 {
	ub, lb := math.Inf(1), math.Inf(-1)
	var free int
	var sumFree float64
	for i := range alpha {
		yG := y[i] * grad[i]
		switch {
		case alpha[i] >= C:
			if y[i] == -1 {
				ub = math.Min(ub, yG)
			} else {
				lb = math.Max(lb, yG)
			}
		case alpha[i] <= 0:
			if y[i] == 1 {
				ub = math.Min(ub, yG)
			} else {
				lb = math.Max(lb, yG)
			}
		default:
			free++
			sumFree += yG
		}
	}
	switch {
	case free > 0:
		return sumFree / float64(free)
	case math.IsInf(ub, 0) && math.IsInf(lb, 0):
		return 0
	case math.IsInf(ub, 0):
		return lb
	case math.IsInf(lb, 0):
		return ub
	default:
		return (ub + lb) / 2
	}
}

func uniqueSorted(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	var out []string
	for _, l := range labels {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}
