package ml

// ClassMetrics holds per-class evaluation figures.
type ClassMetrics struct {
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	Support   int     `json:"support"`
}

// Evaluation is the metrics snapshot of one training run, kept inside the
// artifact so every model version carries the evidence it shipped with.
type Evaluation struct {
	Accuracy   float64        `json:"accuracy"`
	Report     []ClassMetrics `json:"report"`
	Confusion  [][]int        `json:"confusion"`
	CVScores   []float64      `json:"cv_scores"`
	CVMean     float64        `json:"cv_mean"`
	BestParams HyperParams    `json:"best_params"`
	TrainSize  int            `json:"train_size"`
	TestSize   int            `json:"test_size"`
}

// Accuracy is the fraction of predictions matching the true labels.
func Accuracy(yTrue, yPred []int) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(yTrue))
}

// ConfusionMatrix builds the k×k matrix with true classes as rows and
// predicted classes as columns. Row sums equal the per-class support.
func ConfusionMatrix(yTrue, yPred []int, numClasses int) [][]int {
	matrix := make([][]int, numClasses)
	for i := range matrix {
		matrix[i] = make([]int, numClasses)
	}
	for i := range yTrue {
		matrix[yTrue[i]][yPred[i]]++
	}
	return matrix
}

// ClassificationReport computes per-class precision, recall and support from
// a confusion matrix. Labels index into the matrix by class.
func ClassificationReport(confusion [][]int, labels []string) []ClassMetrics {
	report := make([]ClassMetrics, len(confusion))

	for k := range confusion {
		var truePos, predicted, support int
		for j := range confusion {
			support += confusion[k][j]
			predicted += confusion[j][k]
		}
		truePos = confusion[k][k]

		m := ClassMetrics{Support: support}
		if k < len(labels) {
			m.Label = labels[k]
		}
		if predicted > 0 {
			m.Precision = float64(truePos) / float64(predicted)
		}
		if support > 0 {
			m.Recall = float64(truePos) / float64(support)
		}
		report[k] = m
	}

	return report
}
