package model

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// Confidence is the judge's certainty that a finding is a real violation.
type Confidence string

const (
	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceLow    Confidence = "Low"
)

// Rank orders confidences High=3 > Medium=2 > Low=1. Unrecognized values rank 0.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	default:
		return 0
	}
}

// ParseConfidence maps free-form judge output onto a Confidence. Empty input
// defaults to Medium; anything unrecognized is kept verbatim so it ranks 0.
func ParseConfidence(s string) Confidence {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return ConfidenceMedium
	case "high":
		return ConfidenceHigh
	case "medium", "moderate":
		return ConfidenceMedium
	case "low":
		return ConfidenceLow
	default:
		return Confidence(strings.TrimSpace(s))
	}
}

// RegulationCrossSection is the default regulation label of reconciler output.
const RegulationCrossSection = "Cross-section issue"

// FindingTypeContradiction tags findings produced by reconciliation.
const FindingTypeContradiction = "contradiction"

// RawFinding is one issue the judge reported for a single chunk.
type RawFinding struct {
	Issue       string     `json:"issue"`
	Regulation  string     `json:"regulation"`
	Confidence  Confidence `json:"confidence"`
	Explanation string     `json:"explanation,omitempty"`
	Citation    string     `json:"citation,omitempty"`
	Section     string     `json:"section"`
	ChunkIndex  int        `json:"chunk_index"`
}

// Sections is the merged list of section labels of an aggregated finding. It
// encodes as a plain string while it holds a single label and as an array
// once a second distinct section has been merged in.
type Sections []string

// Add appends label unless it is empty or already present.
func (s Sections) Add(label string) Sections {
	if label == "" || s.Contains(label) {
		return s
	}
	return append(s, label)
}

// Contains reports whether label is present.
func (s Sections) Contains(label string) bool {
	for _, l := range s {
		if l == label {
			return true
		}
	}
	return false
}

// String joins the labels for display.
func (s Sections) String() string {
	return strings.Join(s, ", ")
}

// MarshalJSON implements json.Marshaler.
func (s Sections) MarshalJSON() ([]byte, error) {
	switch len(s) {
	case 0:
		return []byte(`""`), nil
	case 1:
		return json.Marshal(s[0])
	default:
		return json.Marshal([]string(s))
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Sections) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single == "" {
			*s = nil
		} else {
			*s = Sections{single}
		}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return eris.Wrap(err, "model: unmarshal sections")
	}
	*s = Sections(list)
	return nil
}

// AggregatedFinding is a canonical finding after deduplication.
type AggregatedFinding struct {
	Issue       string     `json:"issue"`
	Regulation  string     `json:"regulation"`
	Confidence  Confidence `json:"confidence"`
	Explanation string     `json:"explanation,omitempty"`
	Section     Sections   `json:"section"`
	Citation    string     `json:"citation,omitempty"`
}

// ContradictionFinding is a cross-section problem found by reconciliation.
type ContradictionFinding struct {
	Issue       string     `json:"issue"`
	Section     []string   `json:"section"`
	Confidence  Confidence `json:"confidence"`
	Explanation string     `json:"explanation,omitempty"`
	Regulation  string     `json:"regulation"`
	FindingType string     `json:"finding_type"`
	Category    string     `json:"category,omitempty"`
}

// Regulation is a regulation passage returned by the retriever.
type Regulation struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Text     string  `json:"text"`
	Distance float64 `json:"distance"`
}
