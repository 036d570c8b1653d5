package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/compliance-cli/internal/analysis"
	"github.com/sells-group/compliance-cli/internal/chunker"
	"github.com/sells-group/compliance-cli/internal/document"
	"github.com/sells-group/compliance-cli/internal/model"
	"github.com/sells-group/compliance-cli/internal/scoring"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <file>",
	Short: "Score a document's chunks without calling the judge",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("classify"); err != nil {
			return err
		}

		frameworkID, _ := cmd.Flags().GetString("framework")
		preset, _ := cmd.Flags().GetString("preset")

		reg, err := newRegistry(*cfg)
		if err != nil {
			return err
		}
		c, err := withOverrides(*cfg, frameworkID, preset)
		if err != nil {
			return err
		}
		fw, err := reg.Get(c.Analysis.Framework)
		if err != nil {
			return err
		}
		classifier, err := analysis.NewClassifier(c.Analysis, fw)
		if err != nil {
			return err
		}

		text, err := document.NewReader(c.Document.PdfToTextPath).Read(ctx, args[0])
		if err != nil {
			return err
		}
		chunks := chunker.Split(text, chunkOptions(c.Chunking))

		part, err := classifier.Classify(ctx, chunks)
		if err != nil {
			return err
		}

		formatDecisions(os.Stdout, chunks, part)
		return nil
	},
}

// formatDecisions writes one row per chunk followed by a summary line.
func formatDecisions(out io.Writer, chunks []model.Chunk, part scoring.Partition) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CHUNK\tPOSITION\tSCORE\tDECISION\tREASON")

	for _, d := range part.Decisions() {
		position := ""
		if d.ChunkIndex < len(chunks) {
			position = truncate(chunks[d.ChunkIndex].Position, 40)
		}
		decision := "skip"
		if d.ShouldAnalyze {
			decision = "analyze"
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%.2f\t%s\t%s\n",
			d.ChunkIndex, position, d.Score.TotalScore, decision, d.Explain())
	}
	_ = w.Flush()

	total := part.Total()
	gain := 0.0
	if total > 0 {
		gain = float64(len(part.Skip)) / float64(total) * 100
	}
	_, _ = fmt.Fprintf(out, "\n%d of %d chunks would be analyzed (threshold %.2f, %.1f%% skipped)\n",
		len(part.Analyze), total, part.Threshold, gain)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func init() {
	classifyCmd.Flags().String("framework", "", "framework id (default from config)")
	classifyCmd.Flags().String("preset", "", "analysis preset: accuracy, balanced, comprehensive or speed")
	rootCmd.AddCommand(classifyCmd)
}
