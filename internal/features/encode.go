package features

import "sort"

// UnknownCode is the reserved code for categories not seen at training time.
// Known categories always encode to codes >= 1.
const UnknownCode = 0

// Encoder maps categorical string values to a stable numeric encoding. It is
// fit once on the training snapshot, persisted inside the model artifact and
// reused verbatim at inference time.
type Encoder struct {
	Codes map[string]int `json:"codes"`
}

// FitEncoder builds an encoder over the distinct values, assigning codes in
// sorted order so the encoding does not depend on input order.
func FitEncoder(values []string) *Encoder {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}

	distinct := make([]string, 0, len(seen))
	for v := range seen {
		distinct = append(distinct, v)
	}
	sort.Strings(distinct)

	codes := make(map[string]int, len(distinct))
	for i, v := range distinct {
		codes[v] = i + 1
	}
	return &Encoder{Codes: codes}
}

// Encode returns the value's code, or UnknownCode for values absent from the
// training snapshot. Encoding never fails.
func (e *Encoder) Encode(value string) int {
	if code, ok := e.Codes[value]; ok {
		return code
	}
	return UnknownCode
}

// Tables bundles every lookup the single-record derivation path needs. They
// travel inside the model artifact so that training and serving always agree.
type Tables struct {
	Sport    *Encoder           `json:"sport"`
	Team     *Encoder           `json:"team"`
	Labels   []string           `json:"labels"`
	WinRates map[string]float64 `json:"win_rates"`
}

// LabelIndex returns the class index of an outcome label.
func (t Tables) LabelIndex(outcome string) (int, bool) {
	for i, l := range t.Labels {
		if l == outcome {
			return i, true
		}
	}
	return 0, false
}

// LabelFor returns the outcome label of a class index.
func (t Tables) LabelFor(class int) string {
	if class < 0 || class >= len(t.Labels) {
		return ""
	}
	return t.Labels[class]
}
