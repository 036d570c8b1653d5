package analysis

import (
	"context"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/compliance-cli/internal/chunker"
	"github.com/sells-group/compliance-cli/internal/findings"
	"github.com/sells-group/compliance-cli/internal/judge"
	"github.com/sells-group/compliance-cli/internal/model"
	"github.com/sells-group/compliance-cli/internal/scoring"
)

// Analyze runs the document through every stage and returns the assembled
// result. Per-chunk judge and parse failures are recorded on the chunk and do
// not fail the run; cancellation and a progress callback error do.
func (a *Analyzer) Analyze(ctx context.Context, doc Document) (*model.DocumentAnalysisResult, error) {
	start := a.now()
	log := zap.L().With(zap.String("document", doc.Filename), zap.String("framework", a.fw.ID()))

	chunks := doc.Chunks
	if chunks == nil {
		chunks = chunker.Split(doc.Text, a.chunking)
	}
	if len(chunks) > a.settings.MaxChunks {
		log.Warn("analysis: chunk limit reached, remaining chunks dropped",
			zap.Int("chunks", len(chunks)),
			zap.Int("max_chunks", a.settings.MaxChunks),
		)
		chunks = chunks[:a.settings.MaxChunks]
	}

	part, err := a.classifier.Classify(ctx, chunks)
	if err != nil {
		return nil, eris.Wrap(err, "analysis: classify")
	}
	log.Info("analysis: chunks classified",
		zap.Int("total", part.Total()),
		zap.Int("analyze", len(part.Analyze)),
		zap.Int("skip", len(part.Skip)),
	)

	results := make([]model.ChunkResult, len(chunks))
	for i, d := range part.Decisions() {
		d.ChunkIndex = chunks[i].Index
		results[i] = model.ChunkResult{Chunk: chunks[i], Decision: d, Issues: []model.RawFinding{}}
	}

	usage, err := a.judgeChunks(ctx, part.Analyze, results)
	if err != nil {
		return nil, err
	}

	var raw []model.RawFinding
	for _, r := range results {
		raw = append(raw, r.Issues...)
	}
	aggregated := findings.Deduplicate(raw, findings.DedupOptions{KeyLength: a.settings.DedupKeyLength})

	res := &model.DocumentAnalysisResult{
		Metadata:       a.metadata(doc, chunks),
		Chunks:         results,
		Findings:       aggregated,
		Contradictions: []model.ContradictionFinding{},
	}

	if a.settings.Reconcile && len(aggregated) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "analysis: cancelled before reconciliation")
		}
		out := a.reconciler.Reconcile(ctx, aggregated)
		res.Contradictions = out.Contradictions
		usage.Add(out.Usage)
		if out.FellBack {
			res.ReconcileNote = out.Note
		}
	}

	res.Stats = computeStats(part, results)
	res.Usage = usage
	res.Duration = a.now().Sub(start)

	log.Info("analysis: complete",
		zap.Int("findings", len(res.Findings)),
		zap.Int("contradictions", len(res.Contradictions)),
		zap.Int("failed_chunks", res.Stats.Failed),
		zap.Float64("cost_usd", usage.Cost),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

// judgeChunks fans the analyze set out to the judge. Each worker writes only
// its own slot in results, so the output keeps document order no matter how
// calls interleave.
func (a *Analyzer) judgeChunks(ctx context.Context, selected []scoring.Scored, results []model.ChunkResult) (model.TokenUsage, error) {
	var (
		mu        sync.Mutex
		usage     model.TokenUsage
		completed int
		stopped   error
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(a.settings.Concurrency)

	for _, s := range selected {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			r, u, err := a.judgeChunk(gCtx, s.Chunk)
			if err != nil {
				return err
			}
			r.Decision = results[s.Index].Decision

			mu.Lock()
			defer mu.Unlock()
			results[s.Index] = r
			usage.Add(u)
			completed++
			if a.progress == nil {
				return nil
			}
			if perr := a.progress(Progress{
				Completed:  completed,
				Total:      len(selected),
				ChunkIndex: r.Chunk.Index,
				Position:   r.Chunk.Position,
				Issues:     len(r.Issues),
				Failed:     r.Error != "",
			}); perr != nil {
				stopped = perr
				return perr
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if stopped != nil {
			return usage, eris.Wrap(stopped, "analysis: stopped by progress callback")
		}
		return usage, eris.Wrap(err, "analysis: cancelled")
	}
	if err := ctx.Err(); err != nil {
		return usage, eris.Wrap(err, "analysis: cancelled")
	}
	return usage, nil
}

// judgeChunk analyzes one chunk. Only cancellation of ctx itself is returned
// as an error; everything else is recorded on the result.
func (a *Analyzer) judgeChunk(ctx context.Context, chunk model.Chunk) (model.ChunkResult, model.TokenUsage, error) {
	res := model.ChunkResult{Chunk: chunk, Analyzed: true, Issues: []model.RawFinding{}}
	log := zap.L().With(zap.Int("chunk_index", chunk.Index), zap.String("position", chunk.Position))

	callCtx := ctx
	if a.settings.ChunkTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, a.settings.ChunkTimeout)
		defer cancel()
	}

	regs := a.retrieve(callCtx, chunk, log)

	resp, err := a.judge.Complete(callCtx, judge.Request{
		System:    a.fw.SystemPrompt(),
		Prompt:    a.fw.BuildAnalysisPrompt(chunk.Position, chunk.Text, regs),
		MaxTokens: a.maxTokens,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, model.TokenUsage{}, ctxErr
		}
		log.Warn("analysis: judge call failed", zap.Error(err))
		res.Error = err.Error()
		return res, model.TokenUsage{}, nil
	}

	parsed := findings.ParseIssues(resp.Text, chunk.Position, chunk.Index, a.fw)
	if !parsed.OK() {
		log.Warn("analysis: could not parse judge response",
			zap.Error(parsed.Err),
			zap.String("response", truncate(resp.Text, 300)),
		)
		res.Error = parsed.Err.Error()
	}
	res.Issues = parsed.Issues
	return res, resp.Usage, nil
}

// retrieve looks up provisions for a chunk. A failed lookup is logged and the
// chunk is judged without provisions.
func (a *Analyzer) retrieve(ctx context.Context, chunk model.Chunk, log *zap.Logger) []model.Regulation {
	if a.retriever == nil || a.settings.RAGArticles == 0 {
		return nil
	}
	regs, err := a.retriever.FindSimilar(ctx, chunk.Text, a.settings.RAGArticles)
	if err != nil {
		log.Warn("analysis: provision retrieval failed", zap.Error(err))
		return nil
	}
	return regs
}

func (a *Analyzer) metadata(doc Document, chunks []model.Chunk) model.DocumentMetadata {
	text := doc.Text
	if text == "" {
		parts := make([]string, len(chunks))
		for i, c := range chunks {
			parts[i] = c.Text
		}
		text = strings.Join(parts, "\n\n")
	}
	md := chunker.ExtractMetadata(text)
	md.Filename = doc.Filename
	md.Framework = a.fw.ID()
	return md
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
