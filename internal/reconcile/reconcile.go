// Package reconcile runs the second, document-wide judge pass that looks for
// contradictions and gaps between the findings of different sections.
package reconcile

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/sells-group/compliance-cli/internal/framework"
	"github.com/sells-group/compliance-cli/internal/judge"
	"github.com/sells-group/compliance-cli/internal/model"
)

// FallbackNote explains a report whose reconciliation pass failed.
const FallbackNote = "Cross-section reconciliation could not be completed, so the findings " +
	"below are the unreconciled first-pass results. Contradictions between sections " +
	"were not checked and duplicate issues may describe the same underlying problem."

const (
	maxExplanation = 200
	systemPrompt   = "You are a senior %s compliance auditor reviewing the findings from every section of one document. Respond only with the JSON array requested."
)

// Outcome is the result of one reconciliation pass. FellBack is set when the
// judge call failed or its answer could not be parsed; Note then explains
// that the first-pass findings stand alone.
type Outcome struct {
	Contradictions []model.ContradictionFinding
	FellBack       bool
	Note           string
	Usage          model.TokenUsage
}

// Options tunes the reconciler.
type Options struct {
	MaxTokens int
}

// Reconciler makes one judge call per document regardless of its size.
type Reconciler struct {
	judge judge.Judge
	fw    framework.Framework
	opts  Options
}

// New returns a Reconciler for fw.
func New(j judge.Judge, fw framework.Framework, opts Options) *Reconciler {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 2048
	}
	return &Reconciler{judge: j, fw: fw, opts: opts}
}

// Reconcile asks the judge for cross-section problems in findings. It never
// returns an error: failures fall back to an empty contradiction list.
func (r *Reconciler) Reconcile(ctx context.Context, findings []model.AggregatedFinding) Outcome {
	if len(findings) == 0 {
		return Outcome{Contradictions: []model.ContradictionFinding{}}
	}

	resp, err := r.judge.Complete(ctx, judge.Request{
		System:    fmt.Sprintf(systemPrompt, r.fw.Name()),
		Prompt:    r.fw.BuildReconcilePrompt(Digest(findings)),
		MaxTokens: r.opts.MaxTokens,
	})
	if err != nil {
		zap.L().Warn("reconcile: judge call failed, keeping first-pass findings",
			zap.String("framework", r.fw.ID()),
			zap.Error(err),
		)
		return fallback(model.TokenUsage{})
	}

	parsed := Parse(resp.Text)
	if !parsed.OK {
		zap.L().Warn("reconcile: unparseable response, keeping first-pass findings",
			zap.String("framework", r.fw.ID()),
			zap.Int("response_length", len(resp.Text)),
		)
		return fallback(resp.Usage)
	}

	zap.L().Debug("reconcile: complete",
		zap.String("framework", r.fw.ID()),
		zap.String("format", parsed.Format),
		zap.Int("contradictions", len(parsed.Contradictions)),
	)
	return Outcome{Contradictions: parsed.Contradictions, Usage: resp.Usage}
}

func fallback(usage model.TokenUsage) Outcome {
	return Outcome{
		Contradictions: []model.ContradictionFinding{},
		FellBack:       true,
		Note:           FallbackNote,
		Usage:          usage,
	}
}

// Digest renders findings grouped by their first section, sections in order
// of first appearance.
func Digest(findings []model.AggregatedFinding) string {
	var order []string
	groups := make(map[string][]model.AggregatedFinding)
	for _, f := range findings {
		section := "Unknown"
		if len(f.Section) > 0 && strings.TrimSpace(f.Section[0]) != "" {
			section = f.Section[0]
		}
		if _, ok := groups[section]; !ok {
			order = append(order, section)
		}
		groups[section] = append(groups[section], f)
	}

	var b strings.Builder
	b.WriteString("ISSUES FOUND IN FIRST-PASS ANALYSIS:\n\n")
	for _, section := range order {
		fmt.Fprintf(&b, "SECTION: %s\n", section)
		for i, f := range groups[section] {
			fmt.Fprintf(&b, "  Issue %d: %s\n", i+1, f.Issue)
			fmt.Fprintf(&b, "    Regulation: %s\n", f.Regulation)
			fmt.Fprintf(&b, "    Confidence: %s\n", f.Confidence)
			if len(f.Section) > 1 {
				fmt.Fprintf(&b, "    Also in: %s\n", strings.Join(f.Section[1:], ", "))
			}
			if f.Explanation != "" {
				fmt.Fprintf(&b, "    Explanation: %s\n", truncate(f.Explanation, maxExplanation))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit-3]) + "..."
}
