// Package modeller reweights free-text queries. A single query is tokenized
// and scored term by term; a session of queries is additionally merged with
// exponential time decay so recent queries dominate older ones.
package modeller

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/qmodel/query-modelling-service/internal/tokenizer"
	apperrors "github.com/qmodel/query-modelling-service/pkg/errors"
	"github.com/qmodel/query-modelling-service/pkg/logger"
)

// WeightedTerm is one ranked output term. Term is the surface form as first
// seen in the input; deduplication happens on the case-folded form.
type WeightedTerm struct {
	Term  string  `json:"term"`
	Score float64 `json:"score"`
}

// SessionEntry is one query of a user session with its submission time.
type SessionEntry struct {
	Query     string
	Timestamp time.Time
}

// TermScorer scores a single token; the returned string is the case-folded
// deduplication key.
type TermScorer interface {
	Score(term string) (string, float64)
}

// Modeller ranks scored query terms, applying time decay when aggregating a
// session. It is read-only after construction and safe for concurrent use.
type Modeller struct {
	scorer     TermScorer
	topN       int
	decayBase  float64
	decayScale float64
	logger     *slog.Logger
}

// New creates a Modeller. decayBase must lie in (0, 1]; decayScale converts
// seconds of inter-query gap into decay exponent units.
func New(sc TermScorer, topN int, decayBase, decayScale float64) *Modeller {
	return &Modeller{
		scorer:     sc,
		topN:       topN,
		decayBase:  decayBase,
		decayScale: decayScale,
		logger:     logger.WithComponent("modeller"),
	}
}

// Reformulate reweights the terms of a single query. Repeated terms keep
// their maximum observed score. The result is sorted by score descending,
// ties broken by first appearance in the input, and truncated to top-N.
func (m *Modeller) Reformulate(query string) []WeightedTerm {
	acc := newAccumulator()
	for _, tok := range tokenizer.Tokenize(query) {
		folded, score := m.scorer.Score(tok)
		acc.mergeMax(folded, tok, score)
	}
	return m.rank(acc)
}

// Model aggregates a session of queries into one ranked term set. Entries
// are ordered by timestamp; each query's term scores are scaled by
// decayBase^(decayScale * seconds before the most recent entry) and summed
// per term across the whole session, so a term repeated in several queries
// accumulates weight.
//
// An empty session is an input error: no most-recent timestamp exists to
// anchor the decay.
func (m *Modeller) Model(session []SessionEntry) ([]WeightedTerm, error) {
	if len(session) == 0 {
		return nil, fmt.Errorf("%w: no entries to model", apperrors.ErrEmptySession)
	}

	ordered := make([]SessionEntry, len(session))
	copy(ordered, session)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})
	mostRecent := ordered[len(ordered)-1].Timestamp

	acc := newAccumulator()
	for _, entry := range ordered {
		decay := m.Decay(entry.Timestamp, mostRecent)
		for _, tok := range tokenizer.Tokenize(entry.Query) {
			folded, score := m.scorer.Score(tok)
			acc.mergeSum(folded, tok, score*decay)
		}
	}
	return m.rank(acc), nil
}

// Decay returns the weight multiplier for a query issued at old relative to
// the session's most recent timestamp. Decay(t, t) is exactly 1; it shrinks
// strictly as the gap grows for bases below 1.
func (m *Modeller) Decay(old, mostRecent time.Time) float64 {
	delta := mostRecent.Sub(old).Seconds()
	return math.Pow(m.decayBase, m.decayScale*delta)
}

// rank sorts the accumulated terms by score descending, preserving
// first-seen order among equal scores, and truncates to top-N.
func (m *Modeller) rank(acc *accumulator) []WeightedTerm {
	ranked := acc.ordered()
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if m.topN > 0 && len(ranked) > m.topN {
		ranked = ranked[:m.topN]
	}
	return ranked
}

// accumulator collects per-term scores while remembering the surface form
// and input position of each folded term's first occurrence.
type accumulator struct {
	order   []string
	surface map[string]string
	scores  map[string]float64
}

func newAccumulator() *accumulator {
	return &accumulator{
		surface: make(map[string]string),
		scores:  make(map[string]float64),
	}
}

func (a *accumulator) mergeMax(folded, surface string, score float64) {
	prev, seen := a.scores[folded]
	if !seen {
		a.order = append(a.order, folded)
		a.surface[folded] = surface
		a.scores[folded] = score
		return
	}
	if score > prev {
		a.scores[folded] = score
	}
}

func (a *accumulator) mergeSum(folded, surface string, score float64) {
	if _, seen := a.scores[folded]; !seen {
		a.order = append(a.order, folded)
		a.surface[folded] = surface
	}
	a.scores[folded] += score
}

func (a *accumulator) ordered() []WeightedTerm {
	terms := make([]WeightedTerm, 0, len(a.order))
	for _, folded := range a.order {
		terms = append(terms, WeightedTerm{
			Term:  a.surface[folded],
			Score: a.scores[folded],
		})
	}
	return terms
}
