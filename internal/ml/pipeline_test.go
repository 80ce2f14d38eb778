package ml

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImputerUsesFittedMeans(t *testing.T) {
	var im Imputer
	im.Fit([][]float64{
		{1, 10},
		{3, math.NaN()},
		{math.NaN(), 20},
	})

	require.Len(t, im.Means, 2)
	assert.InDelta(t, 2.0, im.Means[0], 1e-9)
	assert.InDelta(t, 15.0, im.Means[1], 1e-9)

	// A missing value at inference gets the exact training-time mean, not a
	// freshly recomputed one.
	out := im.Transform([]float64{math.NaN(), 100})
	assert.Equal(t, 2.0, out[0])
	assert.Equal(t, 100.0, out[1])
}

func TestImputerAllMissingColumn(t *testing.T) {
	var im Imputer
	im.Fit([][]float64{{math.NaN()}, {math.NaN()}})

	out := im.Transform([]float64{math.NaN()})
	assert.Equal(t, 0.0, out[0])
}

func TestScalerStandardizes(t *testing.T) {
	var s Scaler
	s.Fit([][]float64{{2}, {4}, {6}})

	assert.InDelta(t, 4.0, s.Means[0], 1e-9)
	out := s.Transform([]float64{4})
	assert.InDelta(t, 0.0, out[0], 1e-9)
}

func TestScalerConstantColumn(t *testing.T) {
	var s Scaler
	s.Fit([][]float64{{5, 1}, {5, 2}, {5, 3}})

	out := s.Transform([]float64{5, 2})
	assert.InDelta(t, 0.0, out[0], 1e-9)
	assert.InDelta(t, 0.0, out[1], 1e-9)
}

func TestClassifierLearnsSeparableData(t *testing.T) {
	// Class 1 iff the single feature is positive.
	X := [][]float64{{-2}, {-1.5}, {-1}, {-0.5}, {0.5}, {1}, {1.5}, {2}}
	y := []int{0, 0, 0, 0, 1, 1, 1, 1}

	c := Classifier{Params: HyperParams{LearningRate: 0.5, Epochs: 200}}
	c.Fit(X, y, 2)

	for i, x := range X {
		assert.Equal(t, y[i], c.Predict(x), "x=%v", x)
	}

	probs := c.PredictProba([]float64{3})
	assert.Greater(t, probs[1], 0.9)
}

func TestPredictProbaSumsToOne(t *testing.T) {
	c := Classifier{Params: HyperParams{LearningRate: 0.1, Epochs: 50}}
	c.Fit([][]float64{{0, 1}, {1, 0}, {1, 1}}, []int{0, 1, 2}, 3)

	probs := c.PredictProba([]float64{0.5, 0.5})
	require.Len(t, probs, 3)

	var sum float64
	for _, p := range probs {
		assert.GreaterOrEqual(t, p, 0.0)
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestPipelineFitHandlesMissingValues(t *testing.T) {
	X := [][]float64{
		{math.NaN(), -2},
		{1, -1},
		{2, 1},
		{3, math.NaN()},
	}
	y := []int{0, 0, 1, 1}

	p := NewPipeline(HyperParams{LearningRate: 0.5, Epochs: 200})
	p.Fit(X, y, 2)

	// Missing values at inference flow through the same imputation.
	pred := p.Predict([]float64{math.NaN(), 2})
	assert.Equal(t, 1, pred)
}

func TestPipelineDeterministic(t *testing.T) {
	X := [][]float64{{-1, 2}, {0, 1}, {1, -1}, {2, -2}}
	y := []int{0, 0, 1, 1}

	a := NewPipeline(HyperParams{LearningRate: 0.3, Epochs: 100})
	a.Fit(X, y, 2)
	b := NewPipeline(HyperParams{LearningRate: 0.3, Epochs: 100})
	b.Fit(X, y, 2)

	assert.Equal(t, a.Classifier.Weights, b.Classifier.Weights)
}
