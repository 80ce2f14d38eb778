package train

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/stat"

	"github.com/oddsflow/predictor/internal/features"
	"github.com/oddsflow/predictor/internal/ml"
)

// ErrInsufficientTrainingData is returned when the dataset cannot support a
// training run. No partial artifact is ever produced.
var ErrInsufficientTrainingData = errors.New("insufficient training data")

// minRows is the smallest dataset a split plus cross-validation can use.
const minRows = 10

// Options configures one training run. Zero values fall back to the defaults
// the evaluation figures are reported against.
type Options struct {
	TestFraction float64
	CVFolds      int
	Seed         int64
	Grid         []ml.HyperParams
}

// DefaultGrid is the hyperparameter grid searched when none is configured.
func DefaultGrid() []ml.HyperParams {
	var grid []ml.HyperParams
	for _, lr := range []float64{0.05, 0.1} {
		for _, epochs := range []int{150, 300} {
			for _, l2 := range []float64{0, 0.01} {
				grid = append(grid, ml.HyperParams{LearningRate: lr, Epochs: epochs, L2: l2})
			}
		}
	}
	return grid
}

func (o Options) withDefaults() Options {
	if o.TestFraction == 0 {
		o.TestFraction = 0.2
	}
	if o.CVFolds == 0 {
		o.CVFolds = 5
	}
	if o.Seed == 0 {
		o.Seed = 42
	}
	if len(o.Grid) == 0 {
		o.Grid = DefaultGrid()
	}
	return o
}

// Run executes the training workflow on a derived training set: seeded
// train/test split, grid search by k-fold cross-validation on the training
// partition, refit, held-out evaluation, and artifact assembly. Every stage
// is sequential with no retry; the first failure aborts the run.
func Run(set *features.TrainingSet, opts Options) (*ml.Artifact, error) {
	opts = opts.withDefaults()
	logger := log.With().Str("component", "trainer").Logger()

	n := len(set.Rows)
	numClasses := len(set.Tables.Labels)
	if n < minRows {
		return nil, fmt.Errorf("%w: %d rows, need at least %d", ErrInsufficientTrainingData, n, minRows)
	}
	if numClasses < 2 {
		return nil, fmt.Errorf("%w: %d outcome classes, need at least 2", ErrInsufficientTrainingData, numClasses)
	}

	X := make([][]float64, n)
	y := make([]int, n)
	for i, row := range set.Rows {
		X[i] = row.Vector()
		y[i] = row.Label
	}

	// Stage 1: seeded shuffle split.
	trainIdx, testIdx := split(n, opts.TestFraction, opts.Seed)
	logger.Info().Int("train", len(trainIdx)).Int("test", len(testIdx)).Msg("Split dataset")

	// Stage 2: grid search via cross-validation on the training partition.
	best, bestScore, err := gridSearch(X, y, trainIdx, numClasses, opts)
	if err != nil {
		return nil, err
	}
	logger.Info().
		Float64("cv_accuracy", bestScore).
		Float64("learning_rate", best.LearningRate).
		Int("epochs", best.Epochs).
		Float64("l2", best.L2).
		Msg("Selected hyperparameters")

	// Stage 3: refit the best configuration on the full training partition.
	pipeline := ml.NewPipeline(best)
	pipeline.Fit(gather(X, trainIdx), gatherLabels(y, trainIdx), numClasses)

	// Stage 4: held-out evaluation plus full-dataset CV for stability.
	yTest := gatherLabels(y, testIdx)
	yPred := make([]int, len(testIdx))
	for i, idx := range testIdx {
		yPred[i] = pipeline.Predict(X[idx])
	}

	confusion := ml.ConfusionMatrix(yTest, yPred, numClasses)
	allIdx := make([]int, n)
	for i := range allIdx {
		allIdx[i] = i
	}
	cvScores, err := crossValidate(X, y, allIdx, numClasses, best, opts.CVFolds)
	if err != nil {
		return nil, err
	}

	evaluation := ml.Evaluation{
		Accuracy:   ml.Accuracy(yTest, yPred),
		Report:     ml.ClassificationReport(confusion, set.Tables.Labels),
		Confusion:  confusion,
		CVScores:   cvScores,
		CVMean:     stat.Mean(cvScores, nil),
		BestParams: best,
		TrainSize:  len(trainIdx),
		TestSize:   len(testIdx),
	}
	logger.Info().
		Float64("accuracy", evaluation.Accuracy).
		Float64("cv_mean", evaluation.CVMean).
		Msg("Evaluated model")

	// Stage 5: assemble the immutable artifact.
	now := time.Now()
	return &ml.Artifact{
		Version:    ml.NewVersion(now),
		CreatedAt:  now.UTC(),
		Tables:     set.Tables,
		Pipeline:   pipeline,
		Evaluation: evaluation,
	}, nil
}

// split shuffles indices with the fixed seed and carves off the test
// partition. Both partitions are always non-empty.
func split(n int, testFraction float64, seed int64) (trainIdx, testIdx []int) {
	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(n)

	testSize := int(math.Round(float64(n) * testFraction))
	if testSize < 1 {
		testSize = 1
	}
	if testSize > n-1 {
		testSize = n - 1
	}

	return perm[testSize:], perm[:testSize]
}

func gridSearch(X [][]float64, y []int, trainIdx []int, numClasses int, opts Options) (ml.HyperParams, float64, error) {
	var best ml.HyperParams
	bestScore := math.Inf(-1)

	for _, params := range opts.Grid {
		scores, err := crossValidate(X, y, trainIdx, numClasses, params, opts.CVFolds)
		if err != nil {
			return ml.HyperParams{}, 0, err
		}
		score := stat.Mean(scores, nil)
		if score > bestScore {
			bestScore = score
			best = params
		}
	}

	return best, bestScore, nil
}

// crossValidate scores params with k-fold CV over the given indices,
// returning the per-fold accuracies.
func crossValidate(X [][]float64, y []int, indices []int, numClasses int, params ml.HyperParams, folds int) ([]float64, error) {
	if folds > len(indices) {
		folds = len(indices)
	}
	if folds < 2 {
		return nil, fmt.Errorf("%w: %d rows cannot support cross-validation", ErrInsufficientTrainingData, len(indices))
	}

	scores := make([]float64, 0, folds)
	for f := 0; f < folds; f++ {
		var trainIdx, valIdx []int
		for i, idx := range indices {
			if i%folds == f {
				valIdx = append(valIdx, idx)
			} else {
				trainIdx = append(trainIdx, idx)
			}
		}

		pipeline := ml.NewPipeline(params)
		pipeline.Fit(gather(X, trainIdx), gatherLabels(y, trainIdx), numClasses)

		yVal := gatherLabels(y, valIdx)
		yPred := make([]int, len(valIdx))
		for i, idx := range valIdx {
			yPred[i] = pipeline.Predict(X[idx])
		}
		scores = append(scores, ml.Accuracy(yVal, yPred))
	}

	return scores, nil
}

func gather(X [][]float64, indices []int) [][]float64 {
	out := make([][]float64, len(indices))
	for i, idx := range indices {
		out[i] = X[idx]
	}
	return out
}

func gatherLabels(y []int, indices []int) []int {
	out := make([]int, len(indices))
	for i, idx := range indices {
		out[i] = y[idx]
	}
	return out
}
