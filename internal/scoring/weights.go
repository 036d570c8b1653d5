// Package scoring computes progressive risk scores for document chunks and
// partitions chunks into those worth sending to the judge and those skipped.
package scoring

const (
	// negationWindow is how many words on each side of a negation are
	// searched for a compliance-risk word.
	negationWindow = 3
	// phraseExponent makes longer phrases worth disproportionately more.
	phraseExponent = 1.5

	// Sentence-level co-occurrence bonuses before the context weight.
	coOccurrenceBonus = 3.0
	singleSignalBonus = 1.0

	// minSentenceLength discards fragments produced by abbreviations and
	// list markers.
	minSentenceLength = 10

	// DefaultMinLength is the character count below which a chunk is not
	// scored.
	DefaultMinLength = 150
)

// Weights are the per-component multipliers of a risk score.
// NegationPenalty is expected to be negative.
type Weights struct {
	Data             float64
	Regulatory       float64
	HighRiskPatterns float64
	Priority         float64
	PhraseBonus      float64
	ContextBonus     float64
	NegationPenalty  float64
}

// DefaultWeights returns the stock multipliers.
func DefaultWeights() Weights {
	return Weights{
		Data:             1.0,
		Regulatory:       1.5,
		HighRiskPatterns: 5.0,
		Priority:         2.0,
		PhraseBonus:      2.0,
		ContextBonus:     1.5,
		NegationPenalty:  -2.0,
	}
}

// negationWords are single-token negations. "will not" is caught by "not".
var negationWords = map[string]struct{}{
	"not":    {},
	"never":  {},
	"no":     {},
	"won't":  {},
	"don't":  {},
	"can't":  {},
	"cannot": {},
}

// riskStems match compliance-risk words by prefix so inflections such as
// "sharing", "sells" and "violated" count.
var riskStems = []string{
	"violat",
	"breach",
	"unauthori",
	"illegal",
	"improper",
	"shar",
	"sell",
}
