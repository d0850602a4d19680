package scorer

import (
	"math"
	"testing"
)

// stubSource serves fixed per-term features and normalizes by halving, which
// makes the expected weighted sums easy to state exactly.
type stubSource struct {
	features map[string]map[string]float64
}

func (s *stubSource) Derive(term string) map[string]float64 {
	if f, ok := s.features[term]; ok {
		return f
	}
	return map[string]float64{}
}

func (s *stubSource) Normalize(_ string, value float64) float64 {
	return value / 2
}

func TestScoreWeightedSum(t *testing.T) {
	src := &stubSource{features: map[string]map[string]float64{
		"aap": {"text_idf": 4.0, "anchor_idf": 2.0},
	}}
	e := New(src, Weights{Features: map[string]float64{
		"text_idf":   1.0,
		"anchor_idf": 3.0,
	}})

	folded, score := e.Score("aap")
	if folded != "aap" {
		t.Errorf("folded = %q, want %q", folded, "aap")
	}
	// text_idf: 1.0 * (4.0/2) + anchor_idf: 3.0 * (2.0/2)
	if want := 5.0; math.Abs(score-want) > 1e-9 {
		t.Errorf("score = %v, want %v", score, want)
	}
}

func TestScoreFoldsForLookup(t *testing.T) {
	src := &stubSource{features: map[string]map[string]float64{
		"mies": {"text_idf": 6.0},
	}}
	e := New(src, Weights{Features: map[string]float64{"text_idf": 1.0}})

	folded, score := e.Score("Mies")
	if folded != "mies" {
		t.Errorf("folded = %q, want %q", folded, "mies")
	}
	if want := 3.0; math.Abs(score-want) > 1e-9 {
		t.Errorf("score = %v, want %v: lookup must use the folded term", score, want)
	}
}

func TestScoreCapitalizedBypassesNormalization(t *testing.T) {
	src := &stubSource{features: map[string]map[string]float64{}}
	e := New(src, Weights{Features: map[string]float64{"is_capitalized": 2.0}})

	if _, score := e.Score("Amsterdam"); score != 2.0 {
		t.Errorf("capitalized term: score = %v, want 2.0", score)
	}
	if _, score := e.Score("amsterdam"); score != 0.0 {
		t.Errorf("lowercase term: score = %v, want 0", score)
	}
	// Uppercase anywhere in the surface form counts, not just the first rune.
	if _, score := e.Score("iPhone"); score != 2.0 {
		t.Errorf("inner capital: score = %v, want 2.0", score)
	}
}

func TestScoreUnseenTermUsesMissingFeatures(t *testing.T) {
	src := &stubSource{features: map[string]map[string]float64{}}
	e := New(src, Weights{Features: map[string]float64{"text_idf": 1.0}})

	if _, score := e.Score("onbekend"); score != 0.0 {
		t.Errorf("unseen term: score = %v, want 0", score)
	}
}

func TestScoreNegativeWeight(t *testing.T) {
	src := &stubSource{features: map[string]map[string]float64{
		"de": {"text_df": 8.0},
	}}
	e := New(src, Weights{Features: map[string]float64{"text_df": -0.5}})

	if _, score := e.Score("de"); math.Abs(score-(-2.0)) > 1e-9 {
		t.Errorf("score = %v, want -2.0", score)
	}
}

func TestWeightsAccessor(t *testing.T) {
	w := Weights{
		Features: map[string]float64{"text_idf": 1.0},
		Fields:   map[string]float64{"title": 2.0},
	}
	e := New(&stubSource{}, w)
	got := e.Weights()
	if got.Features["text_idf"] != 1.0 || got.Fields["title"] != 2.0 {
		t.Errorf("Weights() = %+v, want %+v", got, w)
	}
}
