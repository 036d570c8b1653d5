package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/compliance-cli/internal/model"
)

func sampleResult() *model.DocumentAnalysisResult {
	return &model.DocumentAnalysisResult{
		Metadata: model.DocumentMetadata{
			Filename:     "policy.txt",
			DocumentType: "privacy_policy",
			Framework:    "gdpr",
			Characters:   420,
			Words:        70,
		},
		Chunks: []model.ChunkResult{
			{
				Chunk:    model.Chunk{Index: 0, Position: "1. Retention", Text: "We keep data forever.", Size: 21, Kind: model.ChunkKindSection},
				Decision: model.ClassificationDecision{ChunkIndex: 0, ShouldAnalyze: true, Score: model.ScoreBreakdown{TotalScore: 9.5}, Threshold: 8},
				Analyzed: true,
				Issues: []model.RawFinding{{
					Issue: "Data kept **indefinitely**", Regulation: "Article 5(1)(e)", Citation: `"We keep data forever."`,
				}},
			},
			{
				Chunk:    model.Chunk{Index: 1, Position: "2. Contact", Text: "Email us.", Size: 9, Kind: model.ChunkKindSection},
				Decision: model.ClassificationDecision{ChunkIndex: 1, Score: model.ScoreBreakdown{TotalScore: 2}, Threshold: 8},
				Issues:   []model.RawFinding{},
			},
			{
				Chunk:    model.Chunk{Index: 2, Position: "3. Sharing", Text: "We share data.", Size: 14, Kind: model.ChunkKindSection},
				Decision: model.ClassificationDecision{ChunkIndex: 2, ShouldAnalyze: true, Score: model.ScoreBreakdown{TotalScore: 8}, Threshold: 8},
				Analyzed: true,
				Issues:   []model.RawFinding{},
				Error:    "judge: circuit open",
			},
		},
		Findings: []model.AggregatedFinding{
			{Issue: "Data kept indefinitely", Regulation: "Article 5(1)(e)", Confidence: model.ConfidenceHigh,
				Explanation: "No retention limit", Citation: `"We keep data forever."`,
				Section: model.Sections{"1. Retention", "4. Backups", "5. Logs", "6. Archive"}},
			{Issue: "Vague purposes", Regulation: "Article 5(1)(b)", Confidence: model.ConfidenceLow,
				Section: model.Sections{"1. Retention"}},
		},
		Contradictions: []model.ContradictionFinding{{
			Issue: "Retention periods conflict", Section: []string{"1. Retention", "4. Backups"},
			Confidence: model.ConfidenceMedium, Regulation: "Cross-section issue", FindingType: model.FindingTypeContradiction,
			Explanation: "30 days vs forever",
		}},
		Stats: model.ScoringStats{
			TotalChunks: 3, Analyzed: 2, Skipped: 1, Failed: 1,
			AverageScore: 6.5, MaxScore: 9.5, Threshold: 8, EfficiencyGain: 100.0 / 3,
		},
		Usage:    model.TokenUsage{InputTokens: 1000, OutputTokens: 200, Cost: 0.006},
		Duration: 1500 * time.Millisecond,
	}
}

func TestFormatText(t *testing.T) {
	out := FormatText(sampleResult())

	assert.True(t, strings.HasPrefix(out, strings.Repeat("=", 80)+"\nGDPR COMPLIANCE ANALYSIS REPORT\n"))
	assert.Contains(t, out, "Document: policy.txt")
	assert.Contains(t, out, "Document Type: privacy_policy")
	assert.Contains(t, out, "Duration: 1.5s")
	assert.Contains(t, out, "- Chunks: 3 total, 2 analyzed, 1 skipped\n")
	assert.Contains(t, out, "- Failed chunks: 1")
	assert.Contains(t, out, "- Efficiency gain: 33.3% of chunks skipped")
	assert.Contains(t, out, "TOTAL ISSUES FOUND: 2 (High 1, Medium 0, Low 1)")
	assert.Contains(t, out, "  - Data kept indefinitely [Article 5(1)(e)] (in 1. Retention, 4. Backups and 2 more)")
	assert.Contains(t, out, "CROSS-SECTION ISSUES: 1")
	assert.Contains(t, out, "   Sections: 1. Retention, 4. Backups")
	assert.Contains(t, out, "- Estimated cost: $0.0060")
	assert.Contains(t, out, "DETAILED ANALYSIS BY SECTION:")
	assert.Contains(t, out, "SECTION #1 - 1. Retention\n")
	assert.Contains(t, out, "Decision: score 9.50 >= threshold 8.00")
	assert.Contains(t, out, "Issue 1: Data kept indefinitely\n")
	assert.Contains(t, out, "SECTION #2 - 2. Contact [SKIPPED]")
	assert.Contains(t, out, "Decision: score 2.00 < threshold 8.00")
	assert.Contains(t, out, "NO COMPLIANCE ISSUES DETECTED IN THIS SKIPPED SECTION")
	assert.Contains(t, out, "ANALYSIS FAILED: judge: circuit open")
	assert.NotContains(t, out, "RECONCILIATION NOTE")

	assert.Less(t, strings.Index(out, "High:"), strings.Index(out, "Low:"))
}

func TestFormatText_ReconcileNoteAndEmpty(t *testing.T) {
	res := &model.DocumentAnalysisResult{ReconcileNote: "Reconciliation could not be completed."}
	out := FormatText(res)

	assert.Contains(t, out, "REGULATORY COMPLIANCE ANALYSIS REPORT")
	assert.Contains(t, out, "Document: (inline text)")
	assert.Contains(t, out, "TOTAL ISSUES FOUND: 0 (High 0, Medium 0, Low 0)")
	assert.NotContains(t, out, "FINDINGS BY CONFIDENCE")
	assert.Contains(t, out, "RECONCILIATION NOTE:\nReconciliation could not be completed.")
}

func TestSectionList(t *testing.T) {
	assert.Equal(t, "Unknown section", sectionList(nil))
	assert.Equal(t, "A", sectionList([]string{"A"}))
	assert.Equal(t, "A, B", sectionList([]string{"A", "B"}))
	assert.Equal(t, "A, B and 1 more", sectionList([]string{"A", "B", "C"}))
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleResult()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Contains(t, decoded, "findings")
	assert.Contains(t, decoded, "contradictions")
	assert.Contains(t, decoded, "stats")

	findings := decoded["findings"].([]any)
	require.Len(t, findings, 2)
	// A single section marshals as a plain string.
	assert.Equal(t, "1. Retention", findings[1].(map[string]any)["section"])
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleResult()))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)

	require.Len(t, f.Sheets, 3)
	assert.Equal(t, SheetFindings, f.Sheets[0].Name)
	assert.Equal(t, SheetContradictions, f.Sheets[1].Name)
	assert.Equal(t, SheetChunks, f.Sheets[2].Name)

	findings := f.Sheet[SheetFindings]
	require.Len(t, findings.Rows, 3)
	assert.Equal(t, "Confidence", findings.Rows[0].Cells[0].String())
	assert.Equal(t, "High", findings.Rows[1].Cells[0].String())
	assert.Equal(t, "Data kept indefinitely", findings.Rows[1].Cells[2].String())
	assert.Equal(t, "1. Retention, 4. Backups, 5. Logs, 6. Archive", findings.Rows[1].Cells[3].String())

	contradictions := f.Sheet[SheetContradictions]
	require.Len(t, contradictions.Rows, 2)
	assert.Equal(t, "contradiction", contradictions.Rows[1].Cells[0].String())

	chunks := f.Sheet[SheetChunks]
	require.Len(t, chunks.Rows, 4)
	assert.Equal(t, "2. Contact", chunks.Rows[2].Cells[1].String())
	assert.Equal(t, "score 2.00 < threshold 8.00", chunks.Rows[2].Cells[6].String())
	assert.Equal(t, "judge: circuit open", chunks.Rows[3].Cells[8].String())
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatPlainText, false},
		{"text", FormatPlainText, false},
		{"JSON", FormatJSON, false},
		{" xlsx ", FormatXLSX, false},
		{"pdf", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormat_Metadata(t *testing.T) {
	assert.Equal(t, ".txt", FormatPlainText.Extension())
	assert.Equal(t, ".json", FormatJSON.Extension())
	assert.Equal(t, ".xlsx", FormatXLSX.Extension())
	assert.Equal(t, "application/json", FormatJSON.ContentType())
	assert.Contains(t, FormatXLSX.ContentType(), "spreadsheetml")
}

func TestWrite_Dispatch(t *testing.T) {
	var text, js bytes.Buffer
	require.NoError(t, Write(&text, sampleResult(), FormatPlainText))
	require.NoError(t, Write(&js, sampleResult(), FormatJSON))
	assert.Contains(t, text.String(), "DETAILED ANALYSIS BY SECTION")
	assert.True(t, json.Valid(js.Bytes()))
}
