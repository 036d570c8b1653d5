package scoring

import (
	"context"
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/compliance-cli/internal/framework"
	"github.com/sells-group/compliance-cli/internal/model"
)

const defaultWorkers = 4

// Options configures a Classifier.
type Options struct {
	Threshold float64
	MinLength int
	// Progressive off sends every chunk that is long enough to the judge.
	Progressive bool
	// Workers bounds concurrent scoring. Zero uses a default.
	Workers int
	Weights Weights
}

// Scored is a chunk with its risk breakdown.
type Scored struct {
	Index int
	Chunk model.Chunk
	Score model.ScoreBreakdown
}

// Partition splits scored chunks into the ones to analyze and the ones to
// skip. Both slices keep document order.
type Partition struct {
	Analyze   []Scored
	Skip      []Scored
	Threshold float64
	// AnalyzeAll mirrors Options.Progressive being off.
	AnalyzeAll bool
}

// Total is the number of classified chunks.
func (p Partition) Total() int {
	return len(p.Analyze) + len(p.Skip)
}

// Decisions returns one decision per chunk ordered by chunk index.
func (p Partition) Decisions() []model.ClassificationDecision {
	out := make([]model.ClassificationDecision, 0, p.Total())
	for _, s := range p.Analyze {
		out = append(out, p.decision(s, true))
	}
	for _, s := range p.Skip {
		out = append(out, p.decision(s, false))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ChunkIndex < out[j].ChunkIndex })
	return out
}

func (p Partition) decision(s Scored, analyze bool) model.ClassificationDecision {
	return model.ClassificationDecision{
		ChunkIndex:    s.Index,
		ShouldAnalyze: analyze,
		Score:         s.Score,
		Threshold:     p.Threshold,
		AnalyzeAll:    p.AnalyzeAll && !s.Score.TooShort(),
	}
}

// Classifier scores chunks and applies the threshold decision.
type Classifier struct {
	scorer *Scorer
	opts   Options
}

// NewClassifier validates the framework vocabulary and threshold. Both are
// configuration errors and must be fixed before any chunk is processed.
func NewClassifier(fw framework.Framework, opts Options) (*Classifier, error) {
	if err := fw.Terms().Validate(fw.ID()); err != nil {
		return nil, eris.Wrap(err, "scoring: invalid framework terms")
	}
	if math.IsNaN(opts.Threshold) || math.IsInf(opts.Threshold, 0) || opts.Threshold < 0 {
		return nil, eris.Errorf("scoring: threshold must be a finite non-negative number, got %v", opts.Threshold)
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	return &Classifier{
		scorer: NewScorer(fw.Terms(), opts.Weights, opts.MinLength),
		opts:   opts,
	}, nil
}

// Scorer exposes the underlying scorer.
func (c *Classifier) Scorer() *Scorer {
	return c.scorer
}

// ShouldAnalyze applies the decision rule to a breakdown.
func (c *Classifier) ShouldAnalyze(b model.ScoreBreakdown) bool {
	if b.TooShort() {
		return false
	}
	if !c.opts.Progressive {
		return true
	}
	return b.TotalScore >= c.opts.Threshold
}

// Classify scores every chunk and partitions them. chunks must be in
// document order; Scored.Index is the slice position. Scoring fans out across
// workers and the result does not depend on completion order.
func (c *Classifier) Classify(ctx context.Context, chunks []model.Chunk) (Partition, error) {
	scores := make([]model.ScoreBreakdown, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Workers)
	for i := range chunks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			scores[i] = c.scorer.Score(chunks[i].Text)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Partition{}, err
	}

	p := Partition{Threshold: c.opts.Threshold, AnalyzeAll: !c.opts.Progressive}
	for i, ch := range chunks {
		s := Scored{Index: i, Chunk: ch, Score: scores[i]}
		if c.ShouldAnalyze(s.Score) {
			p.Analyze = append(p.Analyze, s)
		} else {
			p.Skip = append(p.Skip, s)
		}
	}
	return p, nil
}
