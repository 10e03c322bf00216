// Package models defines data structures shared across the fine-tuning service.
package models

import "strings"

// QualityMetrics holds the five reward-model scores for a QA pair.
// Values are raw log-probabilities, not normalized; a metric the reward
// trace never mentioned stays at 0.
type QualityMetrics struct {
	Helpfulness float64 `json:"helpfulness"`
	Correctness float64 `json:"correctness"`
	Coherence   float64 `json:"coherence"`
	Complexity  float64 `json:"complexity"`
	Verbosity   float64 `json:"verbosity"`
}

// Example is a single instruction/response pair.
// The JSON keys (entrada/salida/métricas) are the wire format the training
// backend expects, kept from the original dataset schema.
type Example struct {
	Input   string          `json:"entrada"`
	Output  string          `json:"salida"`
	Metrics *QualityMetrics `json:"métricas,omitempty"`
}

// Valid reports whether the example has both a non-empty input and output.
func (e Example) Valid() bool {
	return strings.TrimSpace(e.Input) != "" && strings.TrimSpace(e.Output) != ""
}

// Dataset is an ordered collection of examples. Order is generation/recovery
// order and is preserved through scoring and filtering.
type Dataset []Example

// ModelDirName derives the output directory name for a use case.
// Whitespace runs collapse to single underscores so the name is a stable
// key: the same use case always maps to the same directory.
func ModelDirName(useCase string) string {
	return "finetuned_" + strings.Join(strings.Fields(useCase), "_")
}
