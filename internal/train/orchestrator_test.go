package train

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oddsflow/predictor/internal/features"
	"github.com/oddsflow/predictor/internal/ml"
	"github.com/oddsflow/predictor/models"
)

// syntheticMatches builds a finished-match history where the lower-ranked
// (stronger) team always wins, alternating which side is listed first so the
// labels stay balanced.
func syntheticMatches(n int) []models.Match {
	matches := make([]models.Match, 0, n)
	for i := 0; i < n; i++ {
		strongRank := 1 + i%10
		weakRank := 11 + i%10
		strong := fmt.Sprintf("Strong %d", strongRank)
		weak := fmt.Sprintf("Weak %d", weakRank)

		m := models.Match{
			ID:        fmt.Sprintf("m%d", i),
			Sport:     "Football",
			StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
			Status:    models.StatusFinished,
		}
		if i%2 == 0 {
			m.Team1, m.Team2 = strong, weak
			m.Team1Rank, m.Team2Rank = &strongRank, &weakRank
			m.Result = models.OutcomeTeam1Win
		} else {
			m.Team1, m.Team2 = weak, strong
			m.Team1Rank, m.Team2Rank = &weakRank, &strongRank
			m.Result = models.OutcomeTeam2Win
		}
		m.HomeTeam = m.Team1
		matches = append(matches, m)
	}
	return matches
}

func fastOptions() Options {
	return Options{
		Grid: []ml.HyperParams{
			{LearningRate: 0.1, Epochs: 200},
			{LearningRate: 0.3, Epochs: 200},
		},
	}
}

func TestRunProducesArtifact(t *testing.T) {
	set, err := features.Derive(syntheticMatches(60), nil)
	require.NoError(t, err)

	artifact, err := Run(set, fastOptions())
	require.NoError(t, err)

	assert.NotEmpty(t, artifact.Version)
	assert.NotNil(t, artifact.Pipeline)
	assert.Equal(t, set.Tables.Labels, artifact.Tables.Labels)

	// The rank rule is fully deterministic, the model should learn most of it.
	assert.Greater(t, artifact.Evaluation.Accuracy, 0.7)
	assert.Len(t, artifact.Evaluation.CVScores, 5)
	assert.Greater(t, artifact.Evaluation.CVMean, 0.7)
}

func TestRunConfusionMatrixSums(t *testing.T) {
	set, err := features.Derive(syntheticMatches(60), nil)
	require.NoError(t, err)

	artifact, err := Run(set, fastOptions())
	require.NoError(t, err)

	confusion := artifact.Evaluation.Confusion
	total := 0
	for i := range confusion {
		rowSum := 0
		for j := range confusion[i] {
			rowSum += confusion[i][j]
			total += confusion[i][j]
		}
		assert.Equal(t, artifact.Evaluation.Report[i].Support, rowSum,
			"confusion row sum must equal the class count in the test partition")
	}
	assert.Equal(t, artifact.Evaluation.TestSize, total)
}

func TestRunInsufficientData(t *testing.T) {
	set, err := features.Derive(syntheticMatches(4), nil)
	require.NoError(t, err)

	_, err = Run(set, fastOptions())
	require.ErrorIs(t, err, ErrInsufficientTrainingData)
}

func TestRunSingleClassInsufficient(t *testing.T) {
	matches := syntheticMatches(30)
	for i := range matches {
		matches[i].Result = models.OutcomeTeam1Win
	}
	set, err := features.Derive(matches, nil)
	require.NoError(t, err)

	_, err = Run(set, fastOptions())
	require.ErrorIs(t, err, ErrInsufficientTrainingData)
}

func TestSplitDeterministic(t *testing.T) {
	trainA, testA := split(100, 0.2, 42)
	trainB, testB := split(100, 0.2, 42)

	assert.Equal(t, trainA, trainB)
	assert.Equal(t, testA, testB)
	assert.Len(t, testA, 20)
	assert.Len(t, trainA, 80)

	_, testOther := split(100, 0.2, 7)
	assert.NotEqual(t, testA, testOther, "different seeds give different splits")
}

func TestSplitAlwaysBothPartitions(t *testing.T) {
	train, test := split(2, 0.9, 1)
	assert.NotEmpty(t, train)
	assert.NotEmpty(t, test)
}

func TestCrossValidateFoldCount(t *testing.T) {
	set, err := features.Derive(syntheticMatches(40), nil)
	require.NoError(t, err)

	X := make([][]float64, len(set.Rows))
	y := make([]int, len(set.Rows))
	indices := make([]int, len(set.Rows))
	for i, row := range set.Rows {
		X[i] = row.Vector()
		y[i] = row.Label
		indices[i] = i
	}

	scores, err := crossValidate(X, y, indices, 2, ml.HyperParams{LearningRate: 0.1, Epochs: 50}, 5)
	require.NoError(t, err)
	assert.Len(t, scores, 5)
}
