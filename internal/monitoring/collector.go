// Package monitoring watches stored analysis runs and raises webhook alerts
// when failure rates or judge spend cross configured thresholds.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/compliance-cli/internal/model"
	"github.com/sells-group/compliance-cli/internal/store"
)

const collectLimit = 10000

// MetricsSnapshot holds a point-in-time view of analysis health.
type MetricsSnapshot struct {
	// Run metrics (within lookback window).
	RunsTotal    int     `json:"runs_total"`
	RunsComplete int     `json:"runs_complete"`
	RunsFailed   int     `json:"runs_failed"`
	RunsPending  int     `json:"runs_pending"`
	RunFailRate  float64 `json:"run_fail_rate"`

	// Chunk metrics, summed over completed runs.
	ChunksTotal       int     `json:"chunks_total"`
	ChunksAnalyzed    int     `json:"chunks_analyzed"`
	ChunksFailed      int     `json:"chunks_failed"`
	ChunkFailRate     float64 `json:"chunk_fail_rate"`
	AvgEfficiencyGain float64 `json:"avg_efficiency_gain"`

	// Finding and cost metrics, summed over completed runs.
	Findings       int     `json:"findings"`
	HighFindings   int     `json:"high_findings"`
	Contradictions int     `json:"contradictions"`
	CostUSD        float64 `json:"cost_usd"`
	AvgTokens      int     `json:"avg_tokens"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// RunLister is the part of store.Store the collector reads.
type RunLister interface {
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error)
}

// Collector gathers metrics from the run store.
type Collector struct {
	runs RunLister
	now  func() time.Time
}

// NewCollector creates a new metrics collector.
func NewCollector(runs RunLister) *Collector {
	return &Collector{runs: runs, now: time.Now}
}

// Collect gathers a snapshot of run metrics over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	now := c.now().UTC()
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}

	runs, err := c.runs.ListRuns(ctx, store.RunFilter{
		CreatedAfter: now.Add(-time.Duration(lookbackHours) * time.Hour),
		Limit:        collectLimit,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	snap.RunsTotal = len(runs)
	var (
		totalTokens int
		totalGain   float64
		withResult  int
	)

	for _, r := range runs {
		switch r.Status {
		case model.RunStatusComplete:
			snap.RunsComplete++
		case model.RunStatusFailed:
			snap.RunsFailed++
		case model.RunStatusQueued, model.RunStatusAnalyzing:
			snap.RunsPending++
		}
		if r.Result == nil {
			continue
		}

		res := r.Result
		withResult++
		snap.ChunksTotal += res.Stats.TotalChunks
		snap.ChunksAnalyzed += res.Stats.Analyzed
		snap.ChunksFailed += res.Stats.Failed
		totalGain += res.Stats.EfficiencyGain

		snap.Findings += len(res.Findings)
		snap.Contradictions += len(res.Contradictions)
		for _, f := range res.Findings {
			if f.Confidence == model.ConfidenceHigh {
				snap.HighFindings++
			}
		}
		snap.CostUSD += res.Usage.Cost
		totalTokens += res.Usage.InputTokens + res.Usage.OutputTokens
	}

	if finished := snap.RunsComplete + snap.RunsFailed; finished > 0 {
		snap.RunFailRate = float64(snap.RunsFailed) / float64(finished)
	}
	if snap.ChunksAnalyzed > 0 {
		snap.ChunkFailRate = float64(snap.ChunksFailed) / float64(snap.ChunksAnalyzed)
	}
	if withResult > 0 {
		snap.AvgEfficiencyGain = totalGain / float64(withResult)
		snap.AvgTokens = totalTokens / withResult
	}

	return snap, nil
}
