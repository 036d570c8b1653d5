package scoring

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/sells-group/compliance-cli/internal/framework"
	"github.com/sells-group/compliance-cli/internal/model"
)

type contextPattern struct {
	data   []string
	risk   []string
	weight float64
}

// Scorer holds a lowered copy of a framework's vocabulary. It is immutable
// and safe for concurrent use.
type Scorer struct {
	data       []string
	regulatory []string
	highRisk   []string
	priority   []string
	phrases    []string
	patterns   []contextPattern
	weights    Weights
	minLength  int
}

// NewScorer prepares a scorer for terms. A negative minLength is treated as 0.
func NewScorer(terms framework.Terms, weights Weights, minLength int) *Scorer {
	s := &Scorer{
		data:       lowerTerms(terms.DataTerms),
		regulatory: lowerTerms(terms.RegulatoryKeywords),
		highRisk:   lowerTerms(terms.HighRiskPatterns),
		priority:   lowerTerms(terms.PriorityKeywords),
		phrases:    lowerTerms(terms.Phrases),
		weights:    weights,
		minLength:  max(0, minLength),
	}
	for _, p := range terms.ContextPatterns {
		s.patterns = append(s.patterns, contextPattern{
			data:   lowerTerms(p.DataIndicators),
			risk:   lowerTerms(p.RiskIndicators),
			weight: p.Weight,
		})
	}
	return s
}

// Score is a convenience wrapper around NewScorer(...).Score(text).
func Score(text string, terms framework.Terms, weights Weights, minLength int) model.ScoreBreakdown {
	return NewScorer(terms, weights, minLength).Score(text)
}

// Score computes the weighted risk breakdown of text. Text shorter than the
// minimum length short-circuits with Reason "too_short" and a zero total.
func (s *Scorer) Score(text string) model.ScoreBreakdown {
	if utf8.RuneCountInString(text) < s.minLength {
		return model.ScoreBreakdown{Reason: model.ScoreReasonTooShort}
	}

	lower := strings.ToLower(text)
	sents := sentences(lower)

	b := model.ScoreBreakdown{
		DataScore:        termScore(lower, s.data) * s.weights.Data,
		RegulatoryScore:  termScore(lower, s.regulatory) * s.weights.Regulatory,
		RiskPatternScore: termScore(lower, s.highRisk) * s.weights.HighRiskPatterns,
		PriorityScore:    termScore(lower, s.priority) * s.weights.Priority,
		PhraseBonus:      s.phraseScore(lower) * s.weights.PhraseBonus,
		ContextBonus:     s.contextScore(sents) * s.weights.ContextBonus,
		NegationPenalty:  negationScore(sents) * s.weights.NegationPenalty,
	}
	b.TotalScore = b.Sum()
	return b
}

// termScore adds occurrences × word count for every term found.
func termScore(lower string, terms []string) float64 {
	var raw float64
	for _, t := range terms {
		if n := strings.Count(lower, t); n > 0 {
			raw += float64(n * wordCount(t))
		}
	}
	return raw
}

func (s *Scorer) phraseScore(lower string) float64 {
	var raw float64
	for _, p := range s.phrases {
		if strings.Contains(lower, p) {
			raw += math.Pow(float64(wordCount(p)), phraseExponent)
		}
	}
	return raw
}

func (s *Scorer) contextScore(sents []string) float64 {
	var raw float64
	for _, sent := range sents {
		hasData := containsAny(sent, s.data)
		hasRisk := containsAny(sent, s.highRisk)
		switch {
		case hasData && hasRisk:
			raw += coOccurrenceBonus
		case hasData || hasRisk:
			raw += singleSignalBonus
		}
		for _, p := range s.patterns {
			if containsAny(sent, p.data) && containsAny(sent, p.risk) {
				raw += p.weight
			}
		}
	}
	return raw
}

func negationScore(sents []string) float64 {
	var raw float64
	for _, sent := range sents {
		raw += float64(negationHits(sent))
	}
	return raw
}
