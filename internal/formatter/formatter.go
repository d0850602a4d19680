// Package formatter renders ranked (term, weight) pairs into the Lucene
// weighted-query text syntax, optionally qualified per search field.
package formatter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/qmodel/query-modelling-service/internal/modeller"
	"github.com/qmodel/query-modelling-service/internal/scorer"
)

// Format renders ranked terms as a weighted query string.
//
// Without configured field weights the output is `term^weight` tokens,
// space-joined, six fractional digits, with non-positive weights dropped
// silently. With field weights each term is repeated once per field as
// `field:term^(weight*fieldWeight)` for positive products; fields are
// emitted by descending field weight, name-ordered among equals, so output
// is deterministic.
func Format(terms []modeller.WeightedTerm, weights scorer.Weights) string {
	if len(weights.Fields) == 0 {
		return formatSingle(terms)
	}
	return formatFields(terms, weights.Fields)
}

func formatSingle(terms []modeller.WeightedTerm) string {
	parts := make([]string, 0, len(terms))
	for _, wt := range terms {
		if wt.Score <= 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s^%f", wt.Term, wt.Score))
	}
	return strings.Join(parts, " ")
}

func formatFields(terms []modeller.WeightedTerm, fields map[string]float64) string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if fields[names[i]] != fields[names[j]] {
			return fields[names[i]] > fields[names[j]]
		}
		return names[i] < names[j]
	})

	var parts []string
	for _, field := range names {
		fieldWeight := fields[field]
		for _, wt := range terms {
			weighted := wt.Score * fieldWeight
			if weighted <= 0 {
				continue
			}
			parts = append(parts, fmt.Sprintf("%s:%s^%f", field, wt.Term, weighted))
		}
	}
	return strings.Join(parts, " ")
}
