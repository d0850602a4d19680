// Package tokenizer splits free text into word tokens using Unicode
// (UAX #29) word-boundary rules. Tokens consisting purely of punctuation
// from a fixed skip-set are discarded; original casing is preserved so that
// capitalization remains observable downstream.
package tokenizer

import (
	"strings"
	"unicode"

	"github.com/clipperhouse/uax29/v2/words"
)

// skipRunes is the punctuation the tokenizer never emits on its own. A token
// is dropped only when every rune in it belongs to this set.
var skipRunes = map[rune]struct{}{
	',': {}, '.': {}, '…': {},
	'\'': {}, '"': {}, '‘': {}, '’': {}, '“': {}, '”': {},
	'-': {}, '!': {}, ':': {}, '(': {}, ')': {}, '?': {},
	'*': {}, '%': {}, '\\': {},
}

// Tokenize segments text into word tokens. Whitespace and pure-punctuation
// segments are filtered out; everything else is returned verbatim, in input
// order, with casing intact.
func Tokenize(text string) []string {
	var tokens []string
	iter := words.FromString(text)
	for iter.Next() {
		tok := iter.Value()
		if strings.TrimSpace(tok) == "" {
			continue
		}
		if isSkippable(tok) {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// isSkippable reports whether the token consists entirely of skip-set
// punctuation or other non-word symbols.
func isSkippable(tok string) bool {
	for _, r := range tok {
		if _, ok := skipRunes[r]; ok {
			continue
		}
		if unicode.IsSpace(r) {
			continue
		}
		return false
	}
	return true
}
