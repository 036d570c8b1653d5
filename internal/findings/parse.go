package findings

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/compliance-cli/internal/model"
)

// ErrUnparseable is set on a ParseResult when a response holds no
// recognizable issue list.
var ErrUnparseable = eris.New("findings: no issue list found in response")

// Response shapes recognized by ParseIssues.
const (
	FormatJSONObject   = "json_object"
	FormatJSONArray    = "json_array"
	FormatEmbeddedJSON = "embedded_json"
	FormatTextTriples  = "text_triples"
)

// NoQuote stands in for a missing citation.
const NoQuote = "No specific quote provided."

// minDescriptionLength is the shortest issue description kept.
const minDescriptionLength = 6

// Standardizer rewrites regulation labels into a framework's canonical form.
type Standardizer interface {
	StandardizeRegulation(label string) string
}

// ParseResult is the outcome of parsing one judge response. Issues is never
// nil. Use OK to tell "no issues" apart from "could not parse".
type ParseResult struct {
	Issues []model.RawFinding
	Format string
	Err    error
}

// OK reports whether the response had a recognizable shape.
func (r ParseResult) OK() bool {
	return r.Err == nil
}

const (
	quoted    = `(?:"((?:[^"\\]|\\.)*)"|'((?:[^'\\]|\\.)*)')`
	quoteTrim = "\"'“”‘’ "
)

var (
	tripleRe   = regexp.MustCompile(`(?s)\[\s*` + quoted + `\s*,\s*` + quoted + `\s*,\s*` + quoted + `\s*\]`)
	issueKeys  = []string{"issue", "description", "finding", "title"}
	citeKeys   = []string{"citation", "quote", "evidence"}
	regKeys    = []string{"regulation", "article", "provision", "section_reference"}
	listKeys   = []string{"issues", "violations", "findings"}
	singleKeys = []string{"issue", "description"}
)

// ParseIssues extracts the issue list from a judge response for one chunk.
// Accepted shapes, tried in order: a JSON object holding an "issues" or
// "violations" list, a JSON array of objects or of [description,
// regulation, quote] triples, either of those embedded in prose, and a
// regex scan for quoted triples. Descriptions of five characters or fewer
// are dropped. std may be nil.
func ParseIssues(response, section string, chunkIndex int, std Standardizer) ParseResult {
	p := issueParser{section: section, chunkIndex: chunkIndex, std: std}

	text := StripCodeFence(response)
	if issues, ok := p.decode(text); ok {
		return ParseResult{Issues: issues, Format: formatOf(text)}
	}

	// A span that decodes to an empty list only wins if the regex scan
	// finds nothing either.
	emptyOK := false
	for _, span := range balancedSpans(text) {
		issues, ok := p.decode(span)
		if ok && len(issues) > 0 {
			return ParseResult{Issues: issues, Format: FormatEmbeddedJSON}
		}
		emptyOK = emptyOK || ok
	}

	if issues := p.scanTriples(text); len(issues) > 0 {
		return ParseResult{Issues: issues, Format: FormatTextTriples}
	}
	if emptyOK {
		return ParseResult{Issues: []model.RawFinding{}, Format: FormatEmbeddedJSON}
	}
	return ParseResult{Issues: []model.RawFinding{}, Err: ErrUnparseable}
}

// balancedSpans returns every balanced [...] or {...} span of text in order
// of its opening position.
func balancedSpans(text string) []string {
	var spans []string
	for i := 0; i < len(text); i++ {
		var want byte
		switch text[i] {
		case '[':
			want = ']'
		case '{':
			want = '}'
		default:
			continue
		}
		if end := matchClose(text, i, text[i], want); end > 0 {
			spans = append(spans, text[i:end+1])
		}
	}
	return spans
}

func formatOf(text string) string {
	if strings.HasPrefix(text, "[") {
		return FormatJSONArray
	}
	return FormatJSONObject
}

type issueParser struct {
	section    string
	chunkIndex int
	std        Standardizer
}

// decode tries the JSON shapes against text. ok is false when text is not
// JSON of a recognized shape.
func (p issueParser) decode(text string) ([]model.RawFinding, bool) {
	text = strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(text, "{"):
		var obj map[string]json.RawMessage
		if err := json.Unmarshal([]byte(text), &obj); err != nil {
			return nil, false
		}
		for _, key := range listKeys {
			if raw, ok := obj[key]; ok {
				return p.decodeList(raw)
			}
		}
		for _, key := range singleKeys {
			if _, ok := obj[key]; ok {
				return p.decodeList(json.RawMessage("[" + text + "]"))
			}
		}
		return nil, false
	case strings.HasPrefix(text, "["):
		return p.decodeList(json.RawMessage(text))
	default:
		return nil, false
	}
}

// decodeList accepts an empty list or a list holding at least one
// issue-shaped element, so prose like "see note [1]" is not read as an
// empty answer.
func (p issueParser) decodeList(raw json.RawMessage) ([]model.RawFinding, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	out := make([]model.RawFinding, 0, len(items))
	shaped := false
	for _, item := range items {
		shaped = shaped || issueShaped(item)
		if f, ok := p.decodeItem(item); ok {
			out = append(out, f)
		}
	}
	if len(items) > 0 && !shaped {
		return nil, false
	}
	return out, true
}

// issueShaped reports whether raw is an object or an array of at least three
// elements.
func issueShaped(raw json.RawMessage) bool {
	var obj map[string]json.RawMessage
	if json.Unmarshal(raw, &obj) == nil {
		return true
	}
	var arr []json.RawMessage
	return json.Unmarshal(raw, &arr) == nil && len(arr) >= 3
}

// decodeItem accepts an issue object or a [description, regulation, quote]
// array. Malformed items are skipped.
func (p issueParser) decodeItem(raw json.RawMessage) (model.RawFinding, bool) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil {
		return p.build(
			field(obj, issueKeys...),
			field(obj, regKeys...),
			field(obj, "confidence", "severity"),
			field(obj, "explanation", "reason", "rationale"),
			field(obj, citeKeys...),
		)
	}

	var arr []any
	if err := json.Unmarshal(raw, &arr); err != nil || len(arr) < 3 {
		return model.RawFinding{}, false
	}
	return p.build(stringify(arr[0]), stringify(arr[1]), "", "", stringify(arr[2]))
}

// scanTriples finds ["desc", "reg", "quote"] triples with any mix of single
// and double quotes in text that is not valid JSON.
func (p issueParser) scanTriples(text string) []model.RawFinding {
	var out []model.RawFinding
	for _, m := range tripleRe.FindAllStringSubmatch(text, -1) {
		// Each quoted group has a double-quote and a single-quote alternative.
		desc, reg, quote := m[1]+m[2], m[3]+m[4], m[5]+m[6]
		if f, ok := p.build(desc, reg, "", "", quote); ok {
			out = append(out, f)
		}
	}
	return out
}

func (p issueParser) build(issue, regulation, confidence, explanation, citation string) (model.RawFinding, bool) {
	issue = strings.TrimSpace(issue)
	if len([]rune(issue)) < minDescriptionLength {
		return model.RawFinding{}, false
	}
	regulation = strings.TrimSpace(regulation)
	if p.std != nil {
		regulation = p.std.StandardizeRegulation(regulation)
	}
	return model.RawFinding{
		Issue:       issue,
		Regulation:  regulation,
		Confidence:  model.ParseConfidence(confidence),
		Explanation: strings.TrimSpace(explanation),
		Citation:    WrapQuote(citation),
		Section:     p.section,
		ChunkIndex:  p.chunkIndex,
	}, true
}

// WrapQuote returns quote wrapped in double quotes, or NoQuote when empty.
func WrapQuote(quote string) string {
	quote = strings.Trim(strings.TrimSpace(quote), quoteTrim)
	if quote == "" {
		return NoQuote
	}
	return `"` + quote + `"`
}

// field returns the first non-empty value among keys, rendered as a string.
func field(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			if s := stringify(v); s != "" {
				return s
			}
		}
	}
	return ""
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64, bool:
		return fmt.Sprint(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			if s := stringify(e); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}
