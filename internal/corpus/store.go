// Package corpus implements the background-corpus statistics store. It loads
// per-term occurrence counters from a Wikipedia label dump, derives
// statistical features per term, and precomputes corpus-wide feature ranges
// used to normalize scores.
//
// Loading and range computation are one-time blocking startup operations;
// after they complete the store is read-only and safe for concurrent use
// without locking.
package corpus

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/qmodel/query-modelling-service/internal/tokenizer"
	apperrors "github.com/qmodel/query-modelling-service/pkg/errors"
	"github.com/qmodel/query-modelling-service/pkg/logger"
)

// articleCountOffset is the byte position of the numeric value on the first
// line of the stats file ("article_count,<N>").
const articleCountOffset = 14

// Store holds raw term counters, the corpus article count, and the cached
// feature ranges.
type Store struct {
	terms        map[string]TermStats
	articleCount int64
	ranges       map[string]Range
	logger       *slog.Logger
}

// NewStore returns an empty store. Call Load and LoadArticleCount, then
// ComputeRanges, before serving lookups.
func NewStore() *Store {
	return &Store{
		terms:  make(map[string]TermStats),
		logger: logger.WithComponent("corpus-store"),
	}
}

// Load reads the label file and accumulates the four counters for every
// token of every record's text. A malformed record aborts the load with the
// offending line number and content; a corrupted corpus is a fatal startup
// condition with no partial-failure recovery.
func (s *Store) Load(labelPath string) error {
	f, err := os.Open(labelPath)
	if err != nil {
		return fmt.Errorf("%w: opening %s: %v", apperrors.ErrCorpusLoad, labelPath, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	lineNr := 0
	for scanner.Scan() {
		lineNr++
		line := scanner.Text()
		if line == "" {
			continue
		}
		if err := s.loadRecord(line); err != nil {
			s.logger.Error("malformed corpus record",
				"line", lineNr,
				"content", line,
				"error", err,
			)
			return fmt.Errorf("%w: line %d: %q: %v", apperrors.ErrCorpusLoad, lineNr, line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: reading %s: %v", apperrors.ErrCorpusLoad, labelPath, err)
	}

	s.logger.Info("corpus labels loaded",
		"path", labelPath,
		"records", lineNr,
		"vocabulary", len(s.terms),
	)
	return nil
}

// loadRecord parses one `text,linkTF,linkDF,textTF,textDF,v{senses...}` line
// and attributes its counters to every token of the text. The text itself may
// contain commas, so counters are taken from the four fields preceding the
// sense list.
func (s *Store) loadRecord(line string) error {
	stats := line
	if i := strings.Index(line, ",v{"); i >= 0 {
		stats = line[:i]
	}
	stats = strings.TrimPrefix(stats, "'")

	fields := strings.Split(stats, ",")
	if len(fields) < 5 {
		return fmt.Errorf("expected text plus 4 counters, got %d fields", len(fields))
	}

	counters := make([]int64, 4)
	for i, raw := range fields[len(fields)-4:] {
		v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return fmt.Errorf("counter %d: %v", i+1, err)
		}
		if v < 0 {
			return fmt.Errorf("counter %d: negative count %d", i+1, v)
		}
		counters[i] = v
	}

	text := strings.Join(fields[:len(fields)-4], ",")
	for _, tok := range tokenizer.Tokenize(text) {
		term := strings.ToLower(strings.TrimSpace(tok))
		if term == "" {
			continue
		}
		st := s.terms[term]
		st.AnchorTF += counters[0]
		st.AnchorDF += counters[1]
		// Text counters are an underestimate: only terms appearing in link
		// anchors are present in the label dump.
		st.TextTF += counters[2]
		st.TextDF += counters[3]
		s.terms[term] = st
	}
	return nil
}

// LoadArticleCount reads the total corpus document count from the first line
// of the stats file at a fixed byte offset.
func (s *Store) LoadArticleCount(statsPath string) error {
	f, err := os.Open(statsPath)
	if err != nil {
		return fmt.Errorf("%w: opening %s: %v", apperrors.ErrCorpusLoad, statsPath, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return fmt.Errorf("%w: %s is empty", apperrors.ErrCorpusLoad, statsPath)
	}
	line := scanner.Text()
	if len(line) <= articleCountOffset {
		return fmt.Errorf("%w: stats line too short: %q", apperrors.ErrCorpusLoad, line)
	}

	count, err := strconv.ParseInt(strings.TrimSpace(line[articleCountOffset:]), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: parsing article count from %q: %v", apperrors.ErrCorpusLoad, line, err)
	}
	if count <= 0 {
		return fmt.Errorf("%w: article count must be positive, got %d", apperrors.ErrCorpusLoad, count)
	}

	s.articleCount = count
	s.logger.Info("article count loaded", "path", statsPath, "article_count", count)
	return nil
}

// ArticleCount returns the total number of documents in the corpus.
func (s *Store) ArticleCount() int64 {
	return s.articleCount
}

// VocabularySize returns the number of distinct terms loaded.
func (s *Store) VocabularySize() int {
	return len(s.terms)
}

// Raw returns the stored counters for the case-folded term, or the neutral
// default for terms the corpus has never seen.
func (s *Store) Raw(term string) TermStats {
	st, ok := s.terms[strings.ToLower(term)]
	if !ok {
		return neutralStats
	}
	return st
}

// Derive computes the full feature map for the case-folded term. Features
// are recomputed per lookup; the computation is O(1) against the loaded
// counters.
func (s *Store) Derive(term string) map[string]float64 {
	return deriveFeatures(s.Raw(term), s.articleCount)
}
