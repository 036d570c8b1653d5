// Package analysis runs the full compliance analysis of one document:
// chunking, progressive classification, per-chunk judging with retrieved
// provisions, deduplication and cross-section reconciliation.
package analysis

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/compliance-cli/internal/chunker"
	"github.com/sells-group/compliance-cli/internal/config"
	"github.com/sells-group/compliance-cli/internal/framework"
	"github.com/sells-group/compliance-cli/internal/judge"
	"github.com/sells-group/compliance-cli/internal/model"
	"github.com/sells-group/compliance-cli/internal/reconcile"
	"github.com/sells-group/compliance-cli/internal/scoring"
)

// Retriever returns the provisions most relevant to a chunk of text.
type Retriever interface {
	FindSimilar(ctx context.Context, text string, k int) ([]model.Regulation, error)
}

// Document is the input to Analyze. When Chunks is nil, Text is split with
// the analyzer's chunking options.
type Document struct {
	Filename string
	Text     string
	Chunks   []model.Chunk
}

// Progress reports one finished chunk.
type Progress struct {
	Completed  int
	Total      int
	ChunkIndex int
	Position   string
	Issues     int
	Failed     bool
}

// ProgressFunc is called after every judged chunk. Returning an error stops
// the run.
type ProgressFunc func(Progress) error

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithProgress sets the progress callback. Calls are serialized.
func WithProgress(fn ProgressFunc) Option {
	return func(a *Analyzer) { a.progress = fn }
}

// WithChunking sets how Document.Text is split.
func WithChunking(opts chunker.Options) Option {
	return func(a *Analyzer) { a.chunking = opts }
}

// WithMaxTokens caps the judge response length for chunk and reconcile calls.
func WithMaxTokens(n int) Option {
	return func(a *Analyzer) { a.maxTokens = n }
}

// WithClock overrides time.Now for duration measurement.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

// Analyzer analyzes documents against one framework. It holds no per-run
// state and is safe for concurrent use.
type Analyzer struct {
	settings   config.AnalysisConfig
	fw         framework.Framework
	retriever  Retriever
	judge      judge.Judge
	classifier *scoring.Classifier
	reconciler *reconcile.Reconciler
	chunking   chunker.Options
	progress   ProgressFunc
	maxTokens  int
	now        func() time.Time
}

// New validates settings and the framework vocabulary. Any error here is a
// configuration error. retriever may be nil, in which case prompts carry no
// retrieved provisions.
func New(settings config.AnalysisConfig, fw framework.Framework, retriever Retriever, j judge.Judge, opts ...Option) (*Analyzer, error) {
	if fw == nil {
		return nil, eris.New("analysis: framework is required")
	}
	if j == nil {
		return nil, eris.New("analysis: judge is required")
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	classifier, err := NewClassifier(settings, fw)
	if err != nil {
		return nil, err
	}

	a := &Analyzer{
		settings:   settings,
		fw:         fw,
		retriever:  retriever,
		judge:      j,
		classifier: classifier,
		chunking:   chunker.DefaultOptions(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.reconciler = reconcile.New(j, fw, reconcile.Options{MaxTokens: a.maxTokens})
	return a, nil
}

// NewClassifier builds the chunk classifier for settings. Unset weights fall
// back to the scoring defaults.
func NewClassifier(settings config.AnalysisConfig, fw framework.Framework) (*scoring.Classifier, error) {
	weights := scoring.Weights(settings.Weights)
	if weights == (scoring.Weights{}) {
		weights = scoring.DefaultWeights()
	}
	return scoring.NewClassifier(fw, scoring.Options{
		Threshold:   settings.HighRiskThreshold,
		MinLength:   settings.MinChunkLength,
		Progressive: settings.Progressive,
		Workers:     settings.ScoringWorkers,
		Weights:     weights,
	})
}

// Framework returns the framework the analyzer checks against.
func (a *Analyzer) Framework() framework.Framework {
	return a.fw
}
