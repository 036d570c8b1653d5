package findings

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// DefaultKeyLength is how many normalized issue characters take part in the
// dedup key.
const DefaultKeyLength = 40

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "is": {}, "are": {}, "will": {}, "shall": {},
	"should": {}, "may": {}, "might": {}, "can": {}, "could": {},
}

// NormalizeIssue case-folds issue text, strips asterisks and punctuation,
// drops whole-word stop words and collapses whitespace.
func NormalizeIssue(issue string) string {
	folded := cases.Fold().String(issue)
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r == '*':
			return -1
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			return ' '
		}
		return r
	}, folded)

	fields := strings.Fields(cleaned)
	kept := fields[:0]
	for _, w := range fields {
		if _, stop := stopWords[w]; !stop {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

// Key is the dedup key of a finding: the regulation label, a colon, and the
// first keyLength characters of the normalized issue.
func Key(regulation, issue string, keyLength int) string {
	if keyLength <= 0 {
		keyLength = DefaultKeyLength
	}
	norm := []rune(NormalizeIssue(issue))
	if len(norm) > keyLength {
		norm = norm[:keyLength]
	}
	return strings.TrimSpace(regulation) + ":" + strings.TrimSpace(string(norm))
}
