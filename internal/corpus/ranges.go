package corpus

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
)

// Range is the observed (min, max) of one feature across the vocabulary.
type Range struct {
	Min float64
	Max float64
}

// ComputeRanges derives features for every term in the vocabulary and records
// the running (min, max) per feature name. The scan is sharded across
// GOMAXPROCS workers; each worker folds its slice of the vocabulary into a
// partial range map and the partials are merged at the end.
//
// The result is cached for the process lifetime. Calling ComputeRanges again
// (an explicit reload) replaces the cache. It must complete before Normalize
// is used.
func (s *Store) ComputeRanges(ctx context.Context) error {
	if s.articleCount <= 0 {
		return fmt.Errorf("article count not loaded")
	}
	start := time.Now()

	terms := make([]string, 0, len(s.terms))
	for term := range s.terms {
		terms = append(terms, term)
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > len(terms) {
		workers = 1
	}
	partials := make([]map[string]Range, workers)

	g, ctx := errgroup.WithContext(ctx)
	chunk := (len(terms) + workers - 1) / workers
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > len(terms) {
			hi = len(terms)
		}
		w := w
		slice := terms[lo:hi]
		g.Go(func() error {
			partial := make(map[string]Range)
			for i, term := range slice {
				if i%4096 == 0 && ctx.Err() != nil {
					return ctx.Err()
				}
				for name, value := range deriveFeatures(s.terms[term], s.articleCount) {
					r, ok := partial[name]
					if !ok {
						partial[name] = Range{Min: value, Max: value}
						continue
					}
					if value < r.Min {
						r.Min = value
					}
					if value > r.Max {
						r.Max = value
					}
					partial[name] = r
				}
			}
			partials[w] = partial
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("computing feature ranges: %w", err)
	}

	merged := make(map[string]Range)
	for _, partial := range partials {
		for name, r := range partial {
			m, ok := merged[name]
			if !ok {
				merged[name] = r
				continue
			}
			if r.Min < m.Min {
				m.Min = r.Min
			}
			if r.Max > m.Max {
				m.Max = r.Max
			}
			merged[name] = m
		}
	}
	s.ranges = merged

	s.logger.Info("feature ranges computed",
		"vocabulary", len(terms),
		"features", len(merged),
		"workers", workers,
		"duration", time.Since(start).Round(time.Millisecond).String(),
	)
	return nil
}

// FeatureRanges returns the cached ranges, or nil if ComputeRanges has not
// run yet.
func (s *Store) FeatureRanges() map[string]Range {
	return s.ranges
}

// Normalize maps value into [0, 1] using the cached range for the feature.
// A degenerate range (min == max) and an unknown feature both normalize to
// 0.0 rather than dividing by zero.
func (s *Store) Normalize(feature string, value float64) float64 {
	r, ok := s.ranges[feature]
	if !ok || r.Max == r.Min {
		return 0.0
	}
	return (value - r.Min) / (r.Max - r.Min)
}
