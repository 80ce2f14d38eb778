package ml

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Imputer fills missing (NaN) feature values with the per-column mean of the
// training set. The fitted means are serialized with the artifact and reused
// verbatim at inference time, never recomputed.
type Imputer struct {
	Means []float64 `json:"means"`
}

// Fit computes the column means over the non-missing values. A column with
// no observed values imputes to zero.
func (im *Imputer) Fit(X [][]float64) {
	if len(X) == 0 {
		return
	}

	cols := len(X[0])
	im.Means = make([]float64, cols)

	for j := 0; j < cols; j++ {
		var observed []float64
		for i := range X {
			if !math.IsNaN(X[i][j]) {
				observed = append(observed, X[i][j])
			}
		}
		if len(observed) > 0 {
			im.Means[j] = stat.Mean(observed, nil)
		}
	}
}

// Transform returns a copy of x with NaN entries replaced by the fitted means.
func (im *Imputer) Transform(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range x {
		if math.IsNaN(v) && j < len(im.Means) {
			out[j] = im.Means[j]
		} else {
			out[j] = v
		}
	}
	return out
}
