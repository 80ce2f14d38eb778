package ml

// Pipeline chains the preprocessing steps and the classifier the way they
// were fit together: impute, scale, classify. A pipeline is fit once and is
// immutable afterwards.
type Pipeline struct {
	Imputer    Imputer    `json:"imputer"`
	Scaler     Scaler     `json:"scaler"`
	Classifier Classifier `json:"classifier"`
}

// NewPipeline creates an unfitted pipeline with the given hyperparameters.
func NewPipeline(params HyperParams) *Pipeline {
	return &Pipeline{Classifier: Classifier{Params: params}}
}

// Fit fits the imputer and scaler on X, then trains the classifier on the
// transformed data.
func (p *Pipeline) Fit(X [][]float64, y []int, numClasses int) {
	p.Imputer.Fit(X)

	imputed := make([][]float64, len(X))
	for i, x := range X {
		imputed[i] = p.Imputer.Transform(x)
	}

	p.Scaler.Fit(imputed)

	scaled := make([][]float64, len(imputed))
	for i, x := range imputed {
		scaled[i] = p.Scaler.Transform(x)
	}

	p.Classifier.Fit(scaled, y, numClasses)
}

// transform applies the fitted preprocessing to one raw feature vector.
func (p *Pipeline) transform(x []float64) []float64 {
	return p.Scaler.Transform(p.Imputer.Transform(x))
}

// PredictProba returns class probabilities for one raw feature vector.
func (p *Pipeline) PredictProba(x []float64) []float64 {
	return p.Classifier.PredictProba(p.transform(x))
}

// Predict returns the arg-max class for one raw feature vector.
func (p *Pipeline) Predict(x []float64) int {
	return p.Classifier.Predict(p.transform(x))
}
