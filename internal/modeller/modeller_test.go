package modeller_test

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/qmodel/query-modelling-service/internal/formatter"
	"github.com/qmodel/query-modelling-service/internal/modeller"
	"github.com/qmodel/query-modelling-service/internal/scorer"
	apperrors "github.com/qmodel/query-modelling-service/pkg/errors"
)

// mapScorer scores each folded term from a fixed table; unknown terms score 0.
type mapScorer struct {
	scores map[string]float64
}

func (s *mapScorer) Score(term string) (string, float64) {
	folded := strings.ToLower(term)
	return folded, s.scores[folded]
}

func newModeller(scores map[string]float64, topN int) *modeller.Modeller {
	return modeller.New(&mapScorer{scores: scores}, topN, 0.81, 1.0/3600)
}

func ts(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parsing %q: %v", value, err)
	}
	return parsed
}

func TestReformulateRanksByScoreDescending(t *testing.T) {
	m := newModeller(map[string]float64{"aap": 3.0, "noot": 7.0, "mies": 5.0}, 25)

	got := m.Reformulate("aap noot mies")
	want := []string{"noot", "mies", "aap"}
	if len(got) != len(want) {
		t.Fatalf("got %d terms, want %d", len(got), len(want))
	}
	for i, term := range want {
		if got[i].Term != term {
			t.Errorf("position %d: got %q, want %q", i, got[i].Term, term)
		}
	}
}

func TestReformulateTiesKeepFirstSeenOrder(t *testing.T) {
	m := newModeller(map[string]float64{"aap": 2.0, "noot": 2.0, "mies": 2.0}, 25)

	got := m.Reformulate("noot mies aap")
	want := []string{"noot", "mies", "aap"}
	for i, term := range want {
		if got[i].Term != term {
			t.Errorf("position %d: got %q, want %q", i, got[i].Term, term)
		}
	}
}

func TestReformulateDedupKeepsMaxAndFirstSurface(t *testing.T) {
	m := newModeller(map[string]float64{"aap": 4.0}, 25)

	got := m.Reformulate("Aap aap AAP")
	if len(got) != 1 {
		t.Fatalf("got %d terms, want 1", len(got))
	}
	if got[0].Term != "Aap" {
		t.Errorf("surface form = %q, want first occurrence %q", got[0].Term, "Aap")
	}
	if got[0].Score != 4.0 {
		t.Errorf("score = %v, want max 4.0", got[0].Score)
	}
}

func TestReformulateTruncatesToTopN(t *testing.T) {
	m := newModeller(map[string]float64{"a": 5, "b": 4, "c": 3, "d": 2, "e": 1}, 3)

	got := m.Reformulate("a b c d e")
	if len(got) != 3 {
		t.Fatalf("got %d terms, want 3", len(got))
	}
	if got[0].Term != "a" || got[2].Term != "c" {
		t.Errorf("got %v, want [a b c]", got)
	}
}

func TestReformulateEmptyQuery(t *testing.T) {
	m := newModeller(nil, 25)
	if got := m.Reformulate(""); len(got) != 0 {
		t.Errorf("got %v, want no terms", got)
	}
}

func TestModelEmptySession(t *testing.T) {
	m := newModeller(nil, 25)
	_, err := m.Model(nil)
	if !errors.Is(err, apperrors.ErrEmptySession) {
		t.Errorf("got %v, want ErrEmptySession", err)
	}
}

func TestDecayAtZeroGapIsOne(t *testing.T) {
	m := newModeller(nil, 25)
	now := time.Now()
	if got := m.Decay(now, now); got != 1.0 {
		t.Errorf("Decay(t, t) = %v, want exactly 1", got)
	}
}

func TestDecayStrictlyDecreasing(t *testing.T) {
	m := newModeller(nil, 25)
	anchor := time.Now()
	prev := 1.0
	for _, gap := range []time.Duration{time.Minute, time.Hour, 3 * time.Hour, 24 * time.Hour} {
		d := m.Decay(anchor.Add(-gap), anchor)
		if d >= prev {
			t.Errorf("Decay at gap %v = %v, want < %v", gap, d, prev)
		}
		if d <= 0 {
			t.Errorf("Decay at gap %v = %v, want positive", gap, d)
		}
		prev = d
	}
	// One hour of gap decays by exactly the base.
	if got := m.Decay(anchor.Add(-time.Hour), anchor); math.Abs(got-0.81) > 1e-12 {
		t.Errorf("Decay at one hour = %v, want 0.81", got)
	}
}

func TestModelSingleQueryMatchesReformulate(t *testing.T) {
	scores := map[string]float64{"aap": 3.0, "noot": 7.0, "mies": 5.0}
	m := newModeller(scores, 25)

	// Holds for queries without repeated terms: max-merge and sum-merge
	// agree when every folded term occurs once.
	query := "aap noot mies"
	session, err := m.Model([]modeller.SessionEntry{{Query: query, Timestamp: time.Now()}})
	if err != nil {
		t.Fatalf("Model: %v", err)
	}
	single := m.Reformulate(query)
	if len(session) != len(single) {
		t.Fatalf("lengths differ: %d vs %d", len(session), len(single))
	}
	for i := range single {
		if session[i] != single[i] {
			t.Errorf("position %d: %+v vs %+v", i, session[i], single[i])
		}
	}
}

func TestModelRecencyDominates(t *testing.T) {
	m := newModeller(map[string]float64{"oud": 5.0, "nieuw": 5.0}, 25)
	anchor := ts(t, "2016-01-15T12:00:00Z")

	got, err := m.Model([]modeller.SessionEntry{
		{Query: "oud", Timestamp: anchor.Add(-2 * time.Hour)},
		{Query: "nieuw", Timestamp: anchor},
	})
	if err != nil {
		t.Fatalf("Model: %v", err)
	}
	if got[0].Term != "nieuw" {
		t.Fatalf("got %v, want the recent query's term first", got)
	}
	if want := 5.0 * 0.81 * 0.81; math.Abs(got[1].Score-want) > 1e-9 {
		t.Errorf("decayed score = %v, want %v", got[1].Score, want)
	}
}

func TestModelSumsRepeatedTermAcrossQueries(t *testing.T) {
	m := newModeller(map[string]float64{"aap": 2.0}, 25)
	anchor := ts(t, "2016-01-15T12:00:00Z")

	got, err := m.Model([]modeller.SessionEntry{
		{Query: "aap", Timestamp: anchor.Add(-time.Hour)},
		{Query: "aap", Timestamp: anchor},
	})
	if err != nil {
		t.Fatalf("Model: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d terms, want 1", len(got))
	}
	if want := 2.0*0.81 + 2.0; math.Abs(got[0].Score-want) > 1e-9 {
		t.Errorf("accumulated score = %v, want %v", got[0].Score, want)
	}
}

func TestModelSortsEntriesByTimestamp(t *testing.T) {
	m := newModeller(map[string]float64{"eerst": 1.0, "laatst": 1.0}, 25)
	anchor := ts(t, "2016-01-15T12:00:00Z")

	// Entries arrive out of order; decay must anchor on the latest timestamp
	// regardless of slice order.
	got, err := m.Model([]modeller.SessionEntry{
		{Query: "laatst", Timestamp: anchor},
		{Query: "eerst", Timestamp: anchor.Add(-time.Hour)},
	})
	if err != nil {
		t.Fatalf("Model: %v", err)
	}
	if got[0].Term != "laatst" {
		t.Errorf("got %v, want the latest entry undecayed and first", got)
	}
	if math.Abs(got[1].Score-0.81) > 1e-9 {
		t.Errorf("earlier entry score = %v, want 0.81", got[1].Score)
	}
}

// identitySource feeds fixed text_idf values straight through normalization,
// exercising the full tokenize-score-rank-format pipeline on a realistic
// Dutch query.
type identitySource struct {
	idf map[string]float64
}

func (s *identitySource) Derive(term string) map[string]float64 {
	return map[string]float64{"text_idf": s.idf[term]}
}

func (s *identitySource) Normalize(_ string, value float64) float64 { return value }

func TestReformulatePipelineDutchQuery(t *testing.T) {
	src := &identitySource{idf: map[string]float64{
		"de":     5.768321,
		"aap":    25.452746,
		"krijgt": 8.871926,
		"een":    4.812184,
		"noot":   25.452746,
		"van":    4.406719,
		"mies":   25.452746,
	}}
	weights := scorer.Weights{Features: map[string]float64{"text_idf": 1.0}}
	m := modeller.New(scorer.New(src, weights), 25, 0.81, 1.0/3600)

	got := formatter.Format(m.Reformulate("De aap krijgt een noot van Mies."), weights)
	want := "aap^25.452746 noot^25.452746 Mies^25.452746 krijgt^8.871926 De^5.768321 een^4.812184 van^4.406719"
	if got != want {
		t.Errorf("formatted output:\n got %q\nwant %q", got, want)
	}
}
