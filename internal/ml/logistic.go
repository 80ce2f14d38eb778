package ml

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// HyperParams configures one classifier fit. The training orchestrator
// searches a small grid over these.
type HyperParams struct {
	LearningRate float64 `json:"learning_rate"`
	Epochs       int     `json:"epochs"`
	L2           float64 `json:"l2"`
}

// Classifier is a softmax (multinomial logistic) regression model trained by
// batch gradient descent. Weights are laid out per class with the bias as the
// trailing term. Fitting is deterministic: zero initialization, fixed epoch
// count, no sampling.
type Classifier struct {
	Params     HyperParams `json:"params"`
	NumClasses int         `json:"num_classes"`
	Weights    [][]float64 `json:"weights"`
}

// Fit trains the classifier on preprocessed feature vectors.
func (c *Classifier) Fit(X [][]float64, y []int, numClasses int) {
	if len(X) == 0 {
		return
	}

	features := len(X[0])
	c.NumClasses = numClasses
	c.Weights = make([][]float64, numClasses)
	for k := range c.Weights {
		c.Weights[k] = make([]float64, features+1)
	}

	grad := make([][]float64, numClasses)
	for k := range grad {
		grad[k] = make([]float64, features+1)
	}

	n := float64(len(X))
	for epoch := 0; epoch < c.Params.Epochs; epoch++ {
		for k := range grad {
			for j := range grad[k] {
				grad[k][j] = 0
			}
		}

		for i, x := range X {
			probs := c.PredictProba(x)
			for k := 0; k < numClasses; k++ {
				delta := probs[k]
				if y[i] == k {
					delta -= 1
				}
				for j, v := range x {
					grad[k][j] += delta * v
				}
				grad[k][features] += delta // bias
			}
		}

		for k := range c.Weights {
			for j := range c.Weights[k] {
				g := grad[k][j] / n
				if j < features { // bias is not regularized
					g += c.Params.L2 * c.Weights[k][j]
				}
				c.Weights[k][j] -= c.Params.LearningRate * g
			}
		}
	}
}

// PredictProba returns the class probability distribution for x.
func (c *Classifier) PredictProba(x []float64) []float64 {
	scores := make([]float64, c.NumClasses)
	for k, w := range c.Weights {
		score := w[len(w)-1] // bias
		for j, v := range x {
			score += w[j] * v
		}
		scores[k] = score
	}

	// Numerically stable softmax.
	max := floats.Max(scores)
	var sum float64
	for k, s := range scores {
		scores[k] = math.Exp(s - max)
		sum += scores[k]
	}
	floats.Scale(1/sum, scores)

	return scores
}

// Predict returns the arg-max class for x.
func (c *Classifier) Predict(x []float64) int {
	probs := c.PredictProba(x)
	best := 0
	for k, p := range probs {
		if p > probs[best] {
			best = k
		}
	}
	return best
}
