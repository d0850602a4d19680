package corpus

import "math"

// TermStats holds the four raw occurrence counters for a single lowercase
// term, summed across every label record whose text contains the term.
type TermStats struct {
	AnchorTF int64
	AnchorDF int64
	TextTF   int64
	TextDF   int64
}

// neutralStats is used for terms absent from the corpus. The text counters
// are 1 rather than 0 so an unseen term behaves as if it occurred in exactly
// one pseudo-document, keeping every idf formula finite.
var neutralStats = TermStats{AnchorTF: 0, AnchorDF: 0, TextTF: 1, TextDF: 1}

// baseFeatureNames fixes the derivation order so the log-doubling pass runs
// exactly once over the base set and never over its own output.
var baseFeatureNames = []string{
	"anchor_tf", "anchor_df", "text_tf", "text_df",
	"anchor_idf", "anchor_ridf", "text_idf", "text_ridf",
}

// deriveFeatures computes the per-term feature map from raw counters and the
// corpus article count: the raw counters themselves, idf and residual idf for
// anchor and text occurrences, and a log_<name> companion for each.
func deriveFeatures(st TermStats, articleCount int64) map[string]float64 {
	n := float64(articleCount)

	f := make(map[string]float64, 2*len(baseFeatureNames))
	f["anchor_tf"] = float64(st.AnchorTF)
	f["anchor_df"] = float64(st.AnchorDF)
	f["text_tf"] = float64(st.TextTF)
	f["text_df"] = float64(st.TextDF)
	f["anchor_idf"] = idf(n, st.AnchorDF)
	f["anchor_ridf"] = ridf(f["anchor_idf"], n, st.AnchorTF)
	f["text_idf"] = idf(n, st.TextDF)
	f["text_ridf"] = ridf(f["text_idf"], n, st.TextTF)

	for _, name := range baseFeatureNames {
		f["log_"+name] = safeLog(f[name])
	}
	return f
}

// idf is ln(articleCount/df), or 0 when the term appears in no documents.
func idf(articleCount float64, df int64) float64 {
	if df <= 0 {
		return 0.0
	}
	return math.Log(articleCount / float64(df))
}

// ridf is the observed idf minus the idf a Poisson model of random term
// occurrence would predict from the term frequency. Zero term frequency
// yields 0 rather than a domain error.
func ridf(observedIDF, articleCount float64, tf int64) float64 {
	if tf <= 0 {
		return 0.0
	}
	predicted := math.Log(1 / (math.Exp(float64(tf)/articleCount) - 1))
	return observedIDF - predicted
}

func safeLog(v float64) float64 {
	if v <= 0 {
		return 0.0
	}
	return math.Log(v)
}
