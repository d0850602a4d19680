package corpus

import (
	"context"
	"testing"
)

func TestComputeRangesCoversAllFeatures(t *testing.T) {
	s := newTestStore(t)
	if err := s.ComputeRanges(context.Background()); err != nil {
		t.Fatalf("ComputeRanges: %v", err)
	}

	ranges := s.FeatureRanges()
	if len(ranges) != len(baseFeatureNames)*2 {
		t.Fatalf("got %d feature ranges, want %d", len(ranges), len(baseFeatureNames)*2)
	}
	for name, r := range ranges {
		if r.Min > r.Max {
			t.Errorf("%s: min %v > max %v", name, r.Min, r.Max)
		}
	}
}

func TestComputeRangesMatchesBruteForce(t *testing.T) {
	s := newTestStore(t)
	if err := s.ComputeRanges(context.Background()); err != nil {
		t.Fatalf("ComputeRanges: %v", err)
	}

	// Recompute the ranges sequentially and compare with the sharded scan.
	want := make(map[string]Range)
	for _, term := range []string{"appel", "taart", "banaan"} {
		for name, value := range s.Derive(term) {
			r, ok := want[name]
			if !ok {
				want[name] = Range{Min: value, Max: value}
				continue
			}
			if value < r.Min {
				r.Min = value
			}
			if value > r.Max {
				r.Max = value
			}
			want[name] = r
		}
	}
	for name, w := range want {
		got, ok := s.FeatureRanges()[name]
		if !ok {
			t.Errorf("missing range for %s", name)
			continue
		}
		if !approxEqual(got.Min, w.Min) || !approxEqual(got.Max, w.Max) {
			t.Errorf("%s: got %+v, want %+v", name, got, w)
		}
	}
}

func TestComputeRangesRequiresArticleCount(t *testing.T) {
	s := NewStore()
	if err := s.Load(writeFile(t, "label.csv", "'appel,3,2,10,5,v{s{1,0,0,F,T}}")); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := s.ComputeRanges(context.Background()); err == nil {
		t.Fatal("expected error when article count is not loaded")
	}
}

func TestNormalizeEndpoints(t *testing.T) {
	s := newTestStore(t)
	if err := s.ComputeRanges(context.Background()); err != nil {
		t.Fatalf("ComputeRanges: %v", err)
	}

	r := s.FeatureRanges()["text_tf"]
	if r.Min == r.Max {
		t.Fatalf("fixture produced a degenerate text_tf range: %+v", r)
	}
	if got := s.Normalize("text_tf", r.Min); got != 0.0 {
		t.Errorf("Normalize(min) = %v, want 0", got)
	}
	if got := s.Normalize("text_tf", r.Max); got != 1.0 {
		t.Errorf("Normalize(max) = %v, want 1", got)
	}
	mid := (r.Min + r.Max) / 2
	if got := s.Normalize("text_tf", mid); !approxEqual(got, 0.5) {
		t.Errorf("Normalize(mid) = %v, want 0.5", got)
	}
}

func TestNormalizeDegenerateAndUnknown(t *testing.T) {
	s := NewStore()
	s.ranges = map[string]Range{"flat": {Min: 3, Max: 3}}

	if got := s.Normalize("flat", 3); got != 0.0 {
		t.Errorf("degenerate range: got %v, want 0", got)
	}
	if got := s.Normalize("missing", 42); got != 0.0 {
		t.Errorf("unknown feature: got %v, want 0", got)
	}
}

func TestNormalizeBeforeComputeRanges(t *testing.T) {
	s := NewStore()
	if got := s.Normalize("text_idf", 1.5); got != 0.0 {
		t.Errorf("got %v, want 0 before ranges are computed", got)
	}
}

func TestComputeRangesCancelled(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// With a tiny vocabulary the workers may finish before observing the
	// cancellation, so only assert that a returned error is the context's.
	if err := s.ComputeRanges(ctx); err != nil && ctx.Err() == nil {
		t.Errorf("unexpected error: %v", err)
	}
}
