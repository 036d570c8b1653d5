package reconcile

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/sells-group/compliance-cli/internal/findings"
	"github.com/sells-group/compliance-cli/internal/model"
)

// Response formats recognized by Parse.
const (
	FormatJSON      = "json"
	FormatEmbedded  = "embedded_json"
	FormatTextBlock = "text_blocks"
)

// ParseResult is the outcome of parsing a reconciliation response. OK is
// false when no recognizable structure was found.
type ParseResult struct {
	Contradictions []model.ContradictionFinding
	Format         string
	OK             bool
}

var (
	arrayStartRe = regexp.MustCompile(`\[\s*\{`)
	blockRe      = regexp.MustCompile(`(?s)(?:Finding|Contradiction|Issue)\s*\d*:\s*(.*?)(?:\n|$).*?Sections?:\s*(.*?)(?:\n|$).*?(?:Confidence|Severity):\s*(.*?)(?:\n|$).*?(?:Explanation|Description):\s*(.*?)(?:\n\s*\n|$)`)
	sectionSepRe = regexp.MustCompile(`(?i)\s+vs\.?\s+|\s+versus\s+|\s*[,;]\s*`)
)

// Parse extracts contradiction findings from a judge response. It tries the
// whole response as a JSON array, then an array embedded in prose (retrying
// with single quotes normalized), then labelled text blocks.
func Parse(response string) ParseResult {
	text := findings.StripCodeFence(response)

	if items, ok := decodeArray(text); ok {
		return ParseResult{Contradictions: convert(items), Format: FormatJSON, OK: true}
	}

	if loc := arrayStartRe.FindStringIndex(text); loc != nil {
		if span, ok := findings.ExtractJSONArray(text[loc[0]:]); ok {
			items, ok := decodeArray(span)
			if !ok {
				items, ok = decodeArray(strings.ReplaceAll(span, "'", `"`))
			}
			if ok {
				return ParseResult{Contradictions: convert(items), Format: FormatEmbedded, OK: true}
			}
		}
	}

	var out []model.ContradictionFinding
	for _, m := range blockRe.FindAllStringSubmatch(text, -1) {
		c, ok := build(m[1], m[2], m[3], m[4], "", "")
		if !ok {
			continue
		}
		out = append(out, c)
	}
	if len(out) > 0 {
		return ParseResult{Contradictions: out, Format: FormatTextBlock, OK: true}
	}
	return ParseResult{Contradictions: []model.ContradictionFinding{}}
}

func decodeArray(text string) ([]json.RawMessage, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &items); err != nil {
		return nil, false
	}
	return items, true
}

func convert(items []json.RawMessage) []model.ContradictionFinding {
	out := make([]model.ContradictionFinding, 0, len(items))
	for _, raw := range items {
		var obj map[string]any
		if err := json.Unmarshal(raw, &obj); err != nil {
			continue
		}
		c, ok := build(
			stringField(obj, "issue", "contradiction", "finding", "title"),
			sectionField(obj),
			stringField(obj, "confidence", "severity"),
			stringField(obj, "explanation", "description", "reason"),
			stringField(obj, "regulation", "article"),
			stringField(obj, "finding_type", "type"),
		)
		if ok {
			out = append(out, c)
		}
	}
	return out
}

// build always tags the result as a contradiction. A label the judge put in
// its own type field is kept as the category.
func build(issue, sections, confidence, explanation, regulation, category string) (model.ContradictionFinding, bool) {
	issue = strings.TrimSpace(issue)
	if issue == "" {
		return model.ContradictionFinding{}, false
	}
	if regulation = strings.TrimSpace(regulation); regulation == "" {
		regulation = model.RegulationCrossSection
	}
	if category = strings.TrimSpace(category); strings.EqualFold(category, model.FindingTypeContradiction) {
		category = ""
	}
	return model.ContradictionFinding{
		Issue:       issue,
		Section:     SplitSections(sections),
		Confidence:  model.ParseConfidence(confidence),
		Explanation: strings.TrimSpace(explanation),
		Regulation:  regulation,
		FindingType: model.FindingTypeContradiction,
		Category:    category,
	}, true
}

// SplitSections turns "Section 2.1 vs Section 6.3" or "A, B" into a list.
func SplitSections(s string) []string {
	var out []string
	for _, part := range sectionSepRe.Split(strings.TrimSpace(s), -1) {
		if part = strings.Trim(strings.TrimSpace(part), `"'`); part != "" {
			out = append(out, part)
		}
	}
	if out == nil {
		return []string{}
	}
	return out
}

func sectionField(obj map[string]any) string {
	for _, k := range []string{"section", "sections"} {
		switch v := obj[k].(type) {
		case string:
			return v
		case []any:
			parts := make([]string, 0, len(v))
			for _, e := range v {
				if s, ok := e.(string); ok {
					parts = append(parts, s)
				}
			}
			return strings.Join(parts, ", ")
		}
	}
	return ""
}

func stringField(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := obj[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64, bool:
			return fmt.Sprint(v)
		}
	}
	return ""
}
