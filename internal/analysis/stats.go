package analysis

import (
	"github.com/sells-group/compliance-cli/internal/model"
	"github.com/sells-group/compliance-cli/internal/scoring"
)

// computeStats summarizes classification and judging. The average covers
// every chunk, including the ones too short to score.
func computeStats(part scoring.Partition, results []model.ChunkResult) model.ScoringStats {
	st := model.ScoringStats{
		TotalChunks: part.Total(),
		Analyzed:    len(part.Analyze),
		Skipped:     len(part.Skip),
		Threshold:   part.Threshold,
	}
	if st.TotalChunks == 0 {
		return st
	}

	var sum float64
	for i, r := range results {
		score := r.Decision.Score
		if score.TooShort() {
			st.TooShort++
		}
		if r.Error != "" {
			st.Failed++
		}
		sum += score.TotalScore
		if i == 0 || score.TotalScore > st.MaxScore {
			st.MaxScore = score.TotalScore
		}
	}
	st.AverageScore = sum / float64(st.TotalChunks)
	st.EfficiencyGain = float64(st.Skipped) / float64(st.TotalChunks) * 100
	return st
}
