package scoring

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// sentences splits lowered text on . ! and ? and drops fragments shorter
// than minSentenceLength after trimming.
func sentences(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	out := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if utf8.RuneCountInString(p) >= minSentenceLength {
			out = append(out, p)
		}
	}
	return out
}

// words tokenizes a sentence on whitespace and trims surrounding
// punctuation, keeping apostrophes inside contractions.
func words(sentence string) []string {
	fields := strings.Fields(strings.ReplaceAll(sentence, "’", "'"))
	out := fields[:0]
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// wordCount is the number of whitespace separated words in a term.
func wordCount(term string) int {
	return len(strings.Fields(term))
}

// containsAny reports whether text contains at least one of terms.
func containsAny(text string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}

// negationHits counts negations in a sentence that have a compliance-risk
// word within negationWindow words on either side.
func negationHits(sentence string) int {
	toks := words(sentence)
	hits := 0
	for i, tok := range toks {
		if _, ok := negationWords[tok]; !ok {
			continue
		}
		lo := max(0, i-negationWindow)
		hi := min(len(toks)-1, i+negationWindow)
		for j := lo; j <= hi; j++ {
			if j != i && isRiskWord(toks[j]) {
				hits++
				break
			}
		}
	}
	return hits
}

func isRiskWord(tok string) bool {
	for _, stem := range riskStems {
		if strings.HasPrefix(tok, stem) {
			return true
		}
	}
	return false
}

// lowerTerms lowercases and trims terms, dropping blanks.
func lowerTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
