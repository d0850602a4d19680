// Command termstats loads a corpus and prints the raw counters, derived
// features, and normalized feature values for the terms given on the command
// line. Useful for sanity-checking a corpus dump and tuning weight vectors.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/qmodel/query-modelling-service/internal/corpus"
	"github.com/qmodel/query-modelling-service/pkg/logger"
)

func main() {
	labelPath := flag.String("labels", "nlwiki-latest/label.csv", "path to the corpus label file")
	statsPath := flag.String("stats", "nlwiki-latest/stats.csv", "path to the corpus stats file")
	logLevel := flag.String("log-level", "warn", "log level during loading")
	flag.Parse()

	terms := flag.Args()
	if len(terms) == 0 {
		fmt.Fprintln(os.Stderr, "usage: termstats [-labels file] [-stats file] term [term ...]")
		os.Exit(2)
	}

	logger.Setup(*logLevel, "text")

	store := corpus.NewStore()
	if err := store.Load(*labelPath); err != nil {
		fmt.Fprintf(os.Stderr, "loading labels: %v\n", err)
		os.Exit(1)
	}
	if err := store.LoadArticleCount(*statsPath); err != nil {
		fmt.Fprintf(os.Stderr, "loading stats: %v\n", err)
		os.Exit(1)
	}
	if err := store.ComputeRanges(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "computing ranges: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("corpus: %d terms, %d articles\n\n", store.VocabularySize(), store.ArticleCount())

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, term := range terms {
		raw := store.Raw(term)
		fmt.Fprintf(w, "%s\tanchor_tf=%d\tanchor_df=%d\ttext_tf=%d\ttext_df=%d\n",
			term, raw.AnchorTF, raw.AnchorDF, raw.TextTF, raw.TextDF)

		features := store.Derive(term)
		names := make([]string, 0, len(features))
		for name := range features {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "\t%s\t%.6f\tnorm=%.6f\n",
				name, features[name], store.Normalize(name, features[name]))
		}
		fmt.Fprintln(w)
	}
	w.Flush()
}
