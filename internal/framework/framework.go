// Package framework defines the regulatory frameworks a document can be
// analyzed against: their scoring vocabularies, judge guidance, regulation
// label conventions and article knowledge base.
package framework

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/compliance-cli/internal/model"
)

// ContextPattern pairs data indicators with risk indicators. A sentence that
// mentions one of each earns the pattern's weight.
type ContextPattern struct {
	Name           string   `yaml:"name" json:"name"`
	DataIndicators []string `yaml:"data_indicators" json:"data_indicators"`
	RiskIndicators []string `yaml:"risk_indicators" json:"risk_indicators"`
	Weight         float64  `yaml:"weight" json:"weight"`
}

// Terms is the scoring vocabulary of a framework. The four term lists are
// required; phrases and context patterns are optional.
type Terms struct {
	DataTerms          []string         `yaml:"data_terms" json:"data_terms"`
	RegulatoryKeywords []string         `yaml:"regulatory_keywords" json:"regulatory_keywords"`
	HighRiskPatterns   []string         `yaml:"high_risk_patterns" json:"high_risk_patterns"`
	PriorityKeywords   []string         `yaml:"priority_keywords" json:"priority_keywords"`
	Phrases            []string         `yaml:"phrases" json:"phrases"`
	ContextPatterns    []ContextPattern `yaml:"context_patterns" json:"context_patterns"`
}

// TermsError reports a missing required term category.
type TermsError struct {
	Framework string
	Category  string
}

func (e *TermsError) Error() string {
	return fmt.Sprintf("framework %s: required term list %q is empty", e.Framework, e.Category)
}

// Validate checks that every required category has at least one non-blank term.
func (t Terms) Validate(frameworkID string) error {
	required := []struct {
		name  string
		terms []string
	}{
		{"data_terms", t.DataTerms},
		{"regulatory_keywords", t.RegulatoryKeywords},
		{"high_risk_patterns", t.HighRiskPatterns},
		{"priority_keywords", t.PriorityKeywords},
	}
	for _, r := range required {
		if !hasTerm(r.terms) {
			return &TermsError{Framework: frameworkID, Category: r.name}
		}
	}
	for i, p := range t.ContextPatterns {
		if p.Weight < 0 {
			return eris.Errorf("framework %s: context pattern %d has negative weight", frameworkID, i)
		}
	}
	return nil
}

// withDefaults fills optional categories. Missing phrases fall back to the
// generic phrase set; context patterns stay empty.
func (t Terms) withDefaults() Terms {
	if !hasTerm(t.Phrases) {
		t.Phrases = append([]string(nil), genericPhrases...)
	}
	return t
}

// Counts returns the size of each term category, used by the frameworks
// listing.
func (t Terms) Counts() map[string]int {
	return map[string]int{
		"data_terms":          len(t.DataTerms),
		"regulatory_keywords": len(t.RegulatoryKeywords),
		"high_risk_patterns":  len(t.HighRiskPatterns),
		"priority_keywords":   len(t.PriorityKeywords),
		"phrases":             len(t.Phrases),
		"context_patterns":    len(t.ContextPatterns),
	}
}

func hasTerm(terms []string) bool {
	for _, t := range terms {
		if strings.TrimSpace(t) != "" {
			return true
		}
	}
	return false
}

// Framework is a regulatory standard the analyzer can check a document against.
type Framework interface {
	ID() string
	Name() string
	Description() string
	Terms() Terms
	// Articles returns the raw article text backing the knowledge base.
	Articles() string
	// SystemPrompt is the judge guidance shared by every chunk prompt.
	SystemPrompt() string
	BuildAnalysisPrompt(section, text string, regulations []model.Regulation) string
	BuildReconcilePrompt(digest string) string
	StandardizeRegulation(label string) string
}

// definition is the data-driven Framework implementation shared by the
// built-in and custom frameworks.
type definition struct {
	id          string
	name        string
	description string
	terms       Terms
	articles    string
	guidance    string
	reconcile   string
	standardize func(string) string
}

func (d *definition) ID() string          { return d.id }
func (d *definition) Name() string        { return d.name }
func (d *definition) Description() string { return d.description }
func (d *definition) Terms() Terms        { return d.terms }
func (d *definition) Articles() string    { return d.articles }

func (d *definition) StandardizeRegulation(label string) string {
	label = strings.Join(strings.Fields(label), " ")
	if label == "" {
		return "Unspecified"
	}
	if d.standardize != nil {
		return d.standardize(label)
	}
	return label
}

// genericPhrases is the fallback phrase set for frameworks that define none.
var genericPhrases = []string{
	"without consent",
	"without authorization",
	"no opt-out",
	"retained indefinitely",
	"shared with third parties",
	"for any purpose",
	"not encrypted",
	"cannot be deleted",
}
