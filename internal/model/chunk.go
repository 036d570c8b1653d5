package model

import "fmt"

// ChunkKind describes how the chunker produced a chunk.
type ChunkKind string

const (
	ChunkKindSection        ChunkKind = "section"
	ChunkKindParagraphGroup ChunkKind = "paragraph_group"
	ChunkKindSentenceGroup  ChunkKind = "sentence_group"
	ChunkKindSimple         ChunkKind = "simple"
	ChunkKindSectionPart    ChunkKind = "section_part"
)

// Chunk is a contiguous segment of document text. Index is the chunk's
// position in the original document and survives every later stage.
type Chunk struct {
	Index    int       `json:"chunk_index"`
	Position string    `json:"position"`
	Text     string    `json:"text"`
	Size     int       `json:"size"`
	Kind     ChunkKind `json:"kind"`
}

// ScoreReasonTooShort marks a chunk that was not scored because it is shorter
// than the configured minimum length.
const ScoreReasonTooShort = "too_short"

// ScoreBreakdown holds the weighted components of a chunk's risk score.
// NegationPenalty is stored as a negative contribution.
type ScoreBreakdown struct {
	DataScore        float64 `json:"data_score"`
	RegulatoryScore  float64 `json:"regulatory_score"`
	RiskPatternScore float64 `json:"risk_pattern_score"`
	PriorityScore    float64 `json:"priority_score"`
	PhraseBonus      float64 `json:"phrase_bonus"`
	ContextBonus     float64 `json:"context_bonus"`
	NegationPenalty  float64 `json:"negation_penalty"`
	TotalScore       float64 `json:"total_score"`
	Reason           string  `json:"reason,omitempty"`
}

// TooShort reports whether scoring was short-circuited for length.
func (s ScoreBreakdown) TooShort() bool {
	return s.Reason == ScoreReasonTooShort
}

// Sum returns the arithmetic sum of the additive components.
func (s ScoreBreakdown) Sum() float64 {
	return s.DataScore + s.RegulatoryScore + s.RiskPatternScore + s.PriorityScore +
		s.PhraseBonus + s.ContextBonus + s.NegationPenalty
}

// ClassificationDecision records whether a chunk goes to the judge.
type ClassificationDecision struct {
	ChunkIndex    int            `json:"chunk_index"`
	ShouldAnalyze bool           `json:"should_analyze"`
	Score         ScoreBreakdown `json:"score"`
	Threshold     float64        `json:"threshold"`
	// AnalyzeAll is set when progressive analysis is off and the threshold
	// did not take part in the decision.
	AnalyzeAll bool `json:"analyze_all,omitempty"`
}

// Explain renders the audit reason shown in reports.
func (d ClassificationDecision) Explain() string {
	switch {
	case d.Score.TooShort():
		return "too short"
	case d.AnalyzeAll:
		return fmt.Sprintf("score %.2f, progressive analysis off", d.Score.TotalScore)
	case d.ShouldAnalyze:
		return fmt.Sprintf("score %.2f >= threshold %.2f", d.Score.TotalScore, d.Threshold)
	default:
		return fmt.Sprintf("score %.2f < threshold %.2f", d.Score.TotalScore, d.Threshold)
	}
}
