package model

import "time"

// ChunkResult is the per-chunk outcome of an analysis.
type ChunkResult struct {
	Chunk    Chunk                  `json:"chunk"`
	Decision ClassificationDecision `json:"decision"`
	Analyzed bool                   `json:"analyzed"`
	Issues   []RawFinding           `json:"issues"`
	Error    string                 `json:"error,omitempty"`
}

// DocumentMetadata describes the analyzed document.
type DocumentMetadata struct {
	Filename             string `json:"filename"`
	DocumentType         string `json:"document_type"`
	Framework            string `json:"framework"`
	Characters           int    `json:"characters"`
	Words                int    `json:"words"`
	DataMentions         int    `json:"data_mentions"`
	ComplianceIndicators int    `json:"compliance_indicators"`
}

// ScoringStats summarizes progressive classification for a document.
type ScoringStats struct {
	TotalChunks    int     `json:"total_chunks"`
	Analyzed       int     `json:"analyzed"`
	Skipped        int     `json:"skipped"`
	TooShort       int     `json:"too_short"`
	Failed         int     `json:"failed"`
	AverageScore   float64 `json:"average_score"`
	MaxScore       float64 `json:"max_score"`
	Threshold      float64 `json:"threshold"`
	EfficiencyGain float64 `json:"efficiency_gain"`
}

// DocumentAnalysisResult is the complete outcome of analyzing one document.
type DocumentAnalysisResult struct {
	Metadata       DocumentMetadata       `json:"metadata"`
	Chunks         []ChunkResult          `json:"chunks"`
	Findings       []AggregatedFinding    `json:"findings"`
	Contradictions []ContradictionFinding `json:"contradictions"`
	ReconcileNote  string                 `json:"reconcile_note,omitempty"`
	Stats          ScoringStats           `json:"stats"`
	Usage          TokenUsage             `json:"usage"`
	Duration       time.Duration          `json:"duration_ns"`
}

// TokenUsage tracks judge token consumption and its estimated cost.
type TokenUsage struct {
	InputTokens      int     `json:"input_tokens"`
	OutputTokens     int     `json:"output_tokens"`
	CacheWriteTokens int     `json:"cache_write_tokens"`
	CacheReadTokens  int     `json:"cache_read_tokens"`
	Cost             float64 `json:"cost"`
}

// Add accumulates other into t.
func (t *TokenUsage) Add(other TokenUsage) {
	t.InputTokens += other.InputTokens
	t.OutputTokens += other.OutputTokens
	t.CacheWriteTokens += other.CacheWriteTokens
	t.CacheReadTokens += other.CacheReadTokens
	t.Cost += other.Cost
}
