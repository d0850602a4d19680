// Package scorer turns a term and a configured weight vector into a single
// scalar relevance score, normalizing each derived corpus feature against
// corpus-wide ranges.
package scorer

import (
	"strings"
	"unicode"
)

// capitalizedFeature is the one feature that bypasses range normalization:
// 1.0 when the surface form of the term contains an uppercase rune.
const capitalizedFeature = "is_capitalized"

// FeatureSource supplies derived per-term features and maps feature values
// into [0, 1]. The corpus store implements it.
type FeatureSource interface {
	Derive(term string) map[string]float64
	Normalize(feature string, value float64) float64
}

// Weights is the immutable weight configuration: a feature weight vector,
// plus an optional field weight map that switches the output formatter into
// multi-field mode.
type Weights struct {
	Features map[string]float64
	Fields   map[string]float64
}

// Engine scores terms against a FeatureSource with a fixed weight vector.
// It is read-only after construction and safe for concurrent use.
type Engine struct {
	source  FeatureSource
	weights Weights
}

// New creates a scoring engine.
func New(source FeatureSource, weights Weights) *Engine {
	return &Engine{source: source, weights: weights}
}

// Weights returns the engine's weight configuration.
func (e *Engine) Weights() Weights {
	return e.weights
}

// Score computes the weighted score for a term. The term is case-folded for
// the corpus lookup; capitalization of the original surface form is kept as
// the unnormalized is_capitalized feature. Terms the corpus has never seen
// score via the neutral-default counters rather than being rejected.
//
// The returned string is the folded term used as the deduplication key.
func (e *Engine) Score(term string) (string, float64) {
	folded := strings.ToLower(term)
	features := e.source.Derive(folded)

	var score float64
	for name, weight := range e.weights.Features {
		var value float64
		switch name {
		case capitalizedFeature:
			value = boolFeature(hasUpper(term))
		default:
			value = e.source.Normalize(name, features[name])
		}
		score += weight * value
	}
	return folded, score
}

func hasUpper(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

func boolFeature(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}
