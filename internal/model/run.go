package model

import "time"

// RunStatus represents the current state of an analysis run.
type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusAnalyzing RunStatus = "analyzing"
	RunStatusComplete  RunStatus = "complete"
	RunStatusFailed    RunStatus = "failed"
)

// Run is a persisted analysis of one document.
type Run struct {
	ID        string                  `json:"id"`
	Document  string                  `json:"document"`
	Framework string                  `json:"framework"`
	Status    RunStatus               `json:"status"`
	Result    *DocumentAnalysisResult `json:"result,omitempty"`
	Error     string                  `json:"error,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
	UpdatedAt time.Time               `json:"updated_at"`
}
