package index

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Tokenize splits text into lowercase terms.
//
// Text is NFKC-normalized and case-folded, then split at every rune that
// is not a letter, digit or combining mark. Empty tokens are dropped.
// Tokenize is idempotent: tokenizing the space-joined output of Tokenize
// returns the same terms.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	// A Caser keeps state and must not be shared between goroutines.
	folded := cases.Fold().String(norm.NFKC.String(text))
	// Folding can produce decomposed sequences again.
	folded = norm.NFKC.String(folded)
	return strings.FieldsFunc(folded, isSeparator)
}

// Terms returns the distinct terms of text in order of first occurrence.
func Terms(text string) []string {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(tokens))
	terms := tokens[:0]
	for _, t := range tokens {
		if seen[t] {
			continue
		}
		seen[t] = true
		terms = append(terms, t)
	}
	return terms
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsMark(r)
}
