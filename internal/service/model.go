package service

import (
	"fmt"
	"math"
)

// Feature vector layout shared by training and inference: hour, minute,
// day of week (Monday=0), weekend flag, vehicle count, average speed,
// congestion level, weather factor, event factor.
const featureCount = 9

// TimingEstimate is the raw model output before any clamping.
type TimingEstimate struct {
	Green               float64
	Red                 float64
	PredictedCongestion float64
}

// TimingModel is the trainable regression behind the predictor. Targets
// are rows of (optimal green, optimal red, future congestion). Infer may
// only be called after a successful Fit.
type TimingModel interface {
	Fit(features [][]float64, targets [][]float64) error
	Infer(features []float64) (TimingEstimate, error)
	Trained() bool
}

const ridgeDamping = 1e-3

// linearModel fits one damped least-squares regression per target over a
// bias-extended feature vector. Inference is read-only once fitted.
type linearModel struct {
	// weights[i][t] multiplies feature i-1 for target t; row 0 is the bias.
	weights [][]float64
}

func newLinearModel() *linearModel { return &linearModel{} }

func (m *linearModel) Trained() bool { return m.weights != nil }

// Fit solves the normal equations for all targets at once.
func (m *linearModel) Fit(features [][]float64, targets [][]float64) error {
	if len(features) == 0 {
		return fmt.Errorf("model: no training rows")
	}
	if len(features) != len(targets) {
		return fmt.Errorf("model: %d feature rows but %d target rows", len(features), len(targets))
	}

	dim := len(features[0]) + 1
	numTargets := len(targets[0])

	xtx := make([][]float64, dim)
	xty := make([][]float64, dim)
	for i := 0; i < dim; i++ {
		xtx[i] = make([]float64, dim)
		xty[i] = make([]float64, numTargets)
	}

	row := make([]float64, dim)
	for r, f := range features {
		if len(f) != dim-1 {
			return fmt.Errorf("model: feature row %d has %d values, want %d", r, len(f), dim-1)
		}
		if len(targets[r]) != numTargets {
			return fmt.Errorf("model: target row %d has %d values, want %d", r, len(targets[r]), numTargets)
		}
		row[0] = 1
		copy(row[1:], f)
		for i := 0; i < dim; i++ {
			for j := 0; j < dim; j++ {
				xtx[i][j] += row[i] * row[j]
			}
			for t := 0; t < numTargets; t++ {
				xty[i][t] += row[i] * targets[r][t]
			}
		}
	}

	// Small ridge term keeps the system solvable on degenerate features.
	for i := 1; i < dim; i++ {
		xtx[i][i] += ridgeDamping
	}

	weights, err := solveLinearSystem(xtx, xty)
	if err != nil {
		return err
	}
	m.weights = weights
	return nil
}

// Infer evaluates the fitted regression for one feature vector.
func (m *linearModel) Infer(features []float64) (TimingEstimate, error) {
	if m.weights == nil {
		return TimingEstimate{}, fmt.Errorf("model: infer called before fit")
	}
	if len(features)+1 != len(m.weights) {
		return TimingEstimate{}, fmt.Errorf("model: got %d features, want %d", len(features), len(m.weights)-1)
	}

	numTargets := len(m.weights[0])
	if numTargets != 3 {
		return TimingEstimate{}, fmt.Errorf("model: fitted with %d targets, want 3", numTargets)
	}

	out := make([]float64, numTargets)
	for t := 0; t < numTargets; t++ {
		out[t] = m.weights[0][t]
		for i, f := range features {
			out[t] += m.weights[i+1][t] * f
		}
	}

	return TimingEstimate{
		Green:               out[0],
		Red:                 out[1],
		PredictedCongestion: out[2],
	}, nil
}

// solveLinearSystem runs Gauss-Jordan elimination with partial pivoting
// on A·W = B. A and B are consumed.
func solveLinearSystem(a [][]float64, b [][]float64) ([][]float64, error) {
	n := len(a)
	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return nil, fmt.Errorf("model: singular feature matrix")
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		inv := 1 / a[col][col]
		for r := 0; r < n; r++ {
			if r == col {
				continue
			}
			factor := a[r][col] * inv
			if factor == 0 {
				continue
			}
			for c := col; c < n; c++ {
				a[r][c] -= factor * a[col][c]
			}
			for t := range b[r] {
				b[r][t] -= factor * b[col][t]
			}
		}
	}

	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		out[i] = make([]float64, len(b[i]))
		for t := range b[i] {
			out[i][t] = b[i][t] / a[i][i]
		}
	}
	return out, nil
}
