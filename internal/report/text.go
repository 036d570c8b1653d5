package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/sells-group/compliance-cli/internal/model"
)

const width = 80

var (
	heavyRule = strings.Repeat("=", width)
	lightRule = strings.Repeat("-", width)
	shortRule = strings.Repeat("-", 40)
)

// FormatText renders the human-readable report: header, scoring summary,
// findings grouped by confidence, cross-section issues, then every chunk
// with its decision reason.
func FormatText(res *model.DocumentAnalysisResult) string {
	var b strings.Builder
	md := res.Metadata

	framework := strings.ToUpper(md.Framework)
	if framework == "" {
		framework = "REGULATORY"
	}
	b.WriteString(heavyRule + "\n")
	fmt.Fprintf(&b, "%s COMPLIANCE ANALYSIS REPORT\n", framework)
	b.WriteString(heavyRule + "\n\n")

	fmt.Fprintf(&b, "Document: %s\n", orDefault(md.Filename, "(inline text)"))
	fmt.Fprintf(&b, "Document Type: %s\n", orDefault(md.DocumentType, "other"))
	fmt.Fprintf(&b, "Framework: %s\n", orDefault(md.Framework, "unknown"))
	fmt.Fprintf(&b, "Size: %d characters, %d words\n", md.Characters, md.Words)
	fmt.Fprintf(&b, "Data mentions: %d, compliance indicators: %d\n", md.DataMentions, md.ComplianceIndicators)
	if res.Duration > 0 {
		fmt.Fprintf(&b, "Duration: %s\n", res.Duration.Round(time.Millisecond))
	}
	b.WriteString("\n")

	writeStats(&b, res.Stats)
	writeFindings(&b, res.Findings)
	writeContradictions(&b, res.Contradictions, res.ReconcileNote)

	u := res.Usage
	b.WriteString("TOKEN USAGE:\n")
	fmt.Fprintf(&b, "- %d input, %d output (%d cache write, %d cache read)\n",
		u.InputTokens, u.OutputTokens, u.CacheWriteTokens, u.CacheReadTokens)
	fmt.Fprintf(&b, "- Estimated cost: $%.4f\n\n", u.Cost)

	writeSections(&b, res.Chunks)
	return b.String()
}

func writeStats(b *strings.Builder, st model.ScoringStats) {
	b.WriteString("SCORING SUMMARY:\n")
	fmt.Fprintf(b, "- Chunks: %d total, %d analyzed, %d skipped", st.TotalChunks, st.Analyzed, st.Skipped)
	if st.TooShort > 0 {
		fmt.Fprintf(b, " (%d too short)", st.TooShort)
	}
	b.WriteString("\n")
	if st.Failed > 0 {
		fmt.Fprintf(b, "- Failed chunks: %d\n", st.Failed)
	}
	fmt.Fprintf(b, "- Threshold: %.2f, average score: %.2f, max score: %.2f\n", st.Threshold, st.AverageScore, st.MaxScore)
	fmt.Fprintf(b, "- Efficiency gain: %.1f%% of chunks skipped\n\n", st.EfficiencyGain)
}

func writeFindings(b *strings.Builder, findings []model.AggregatedFinding) {
	counts := map[model.Confidence]int{}
	for _, f := range findings {
		counts[f.Confidence]++
	}
	fmt.Fprintf(b, "TOTAL ISSUES FOUND: %d (High %d, Medium %d, Low %d)\n\n",
		len(findings), counts[model.ConfidenceHigh], counts[model.ConfidenceMedium], counts[model.ConfidenceLow])
	if len(findings) == 0 {
		return
	}

	b.WriteString("FINDINGS BY CONFIDENCE:\n")
	b.WriteString(lightRule + "\n")
	var current model.Confidence
	for i, f := range findings {
		if i == 0 || f.Confidence != current {
			current = f.Confidence
			fmt.Fprintf(b, "\n%s:\n", orDefault(string(current), "Unrated"))
		}
		fmt.Fprintf(b, "  - %s [%s] (in %s)\n", f.Issue, f.Regulation, sectionList(f.Section))
		if f.Explanation != "" {
			fmt.Fprintf(b, "    Explanation: %s\n", f.Explanation)
		}
		if f.Citation != "" {
			fmt.Fprintf(b, "    Citation: %s\n", f.Citation)
		}
	}
	b.WriteString(lightRule + "\n\n")
}

func writeContradictions(b *strings.Builder, cs []model.ContradictionFinding, note string) {
	if len(cs) > 0 {
		fmt.Fprintf(b, "CROSS-SECTION ISSUES: %d\n", len(cs))
		b.WriteString(lightRule + "\n")
		for i, c := range cs {
			fmt.Fprintf(b, "%d. %s [%s, %s]\n", i+1, c.Issue, c.FindingType, c.Confidence)
			fmt.Fprintf(b, "   Sections: %s\n", sectionList(c.Section))
			fmt.Fprintf(b, "   Regulation: %s\n", c.Regulation)
			if c.Explanation != "" {
				fmt.Fprintf(b, "   Explanation: %s\n", c.Explanation)
			}
		}
		b.WriteString(lightRule + "\n\n")
	}
	if note != "" {
		fmt.Fprintf(b, "RECONCILIATION NOTE:\n%s\n\n", note)
	}
}

func writeSections(b *strings.Builder, chunks []model.ChunkResult) {
	b.WriteString("DETAILED ANALYSIS BY SECTION:\n")
	b.WriteString(heavyRule + "\n\n")

	for i, c := range chunks {
		marker := ""
		if !c.Analyzed {
			marker = " [SKIPPED]"
		}
		fmt.Fprintf(b, "SECTION #%d - %s%s\n", i+1, c.Chunk.Position, marker)
		b.WriteString(lightRule + "\n")
		fmt.Fprintf(b, "Decision: %s\n\n", c.Decision.Explain())
		fmt.Fprintf(b, "DOCUMENT TEXT:\n%s\n\n", c.Chunk.Text)

		switch {
		case c.Error != "":
			fmt.Fprintf(b, "ANALYSIS FAILED: %s\n", c.Error)
		case len(c.Issues) > 0:
			b.WriteString("COMPLIANCE ISSUES:\n\n")
			for j, f := range c.Issues {
				fmt.Fprintf(b, "Issue %d: %s\n", j+1, strings.ReplaceAll(f.Issue, "*", ""))
				fmt.Fprintf(b, "Regulation: %s\n", f.Regulation)
				if f.Citation != "" {
					fmt.Fprintf(b, "Citation: %s\n", f.Citation)
				}
				if j < len(c.Issues)-1 {
					b.WriteString(shortRule + "\n")
				}
			}
		case !c.Analyzed:
			b.WriteString("NO COMPLIANCE ISSUES DETECTED IN THIS SKIPPED SECTION\n")
		default:
			b.WriteString("NO COMPLIANCE ISSUES DETECTED IN THIS SECTION\n")
		}
		b.WriteString("\n" + heavyRule + "\n\n")
	}
}

// sectionList shows at most two sections and counts the rest.
func sectionList(sections []string) string {
	switch len(sections) {
	case 0:
		return "Unknown section"
	case 1, 2:
		return strings.Join(sections, ", ")
	default:
		return fmt.Sprintf("%s, %s and %d more", sections[0], sections[1], len(sections)-2)
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
