package ml

import (
	"gonum.org/v1/gonum/stat"
)

// Scaler standardizes features to zero mean and unit variance using the
// training-set statistics.
type Scaler struct {
	Means []float64 `json:"means"`
	Stds  []float64 `json:"stds"`
}

// Fit computes per-column mean and standard deviation. Constant columns get
// a unit deviation so transforming them is a no-op shift.
func (s *Scaler) Fit(X [][]float64) {
	if len(X) == 0 {
		return
	}

	cols := len(X[0])
	s.Means = make([]float64, cols)
	s.Stds = make([]float64, cols)

	column := make([]float64, len(X))
	for j := 0; j < cols; j++ {
		for i := range X {
			column[i] = X[i][j]
		}
		mean, std := stat.MeanStdDev(column, nil)
		if std == 0 || len(X) < 2 {
			std = 1
		}
		s.Means[j] = mean
		s.Stds[j] = std
	}
}

// Transform standardizes x with the fitted statistics.
func (s *Scaler) Transform(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range x {
		if j < len(s.Means) {
			out[j] = (v - s.Means[j]) / s.Stds[j]
		} else {
			out[j] = v
		}
	}
	return out
}
