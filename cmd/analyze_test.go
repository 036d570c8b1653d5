package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/compliance-cli/internal/analysis"
	"github.com/sells-group/compliance-cli/internal/framework"
	"github.com/sells-group/compliance-cli/internal/model"
	"github.com/sells-group/compliance-cli/internal/report"
	"github.com/sells-group/compliance-cli/internal/storage"
)

func sampleResult() *model.DocumentAnalysisResult {
	return &model.DocumentAnalysisResult{
		Metadata: model.DocumentMetadata{
			Filename:     "policy.txt",
			DocumentType: "privacy_policy",
			Framework:    "gdpr",
		},
		Chunks: []model.ChunkResult{},
		Findings: []model.AggregatedFinding{
			{
				Issue:      "Personal data is kept forever",
				Regulation: "Article 5(1)(e)",
				Confidence: model.ConfidenceHigh,
				Section:    model.Sections{"Data Retention"},
			},
		},
		Contradictions: []model.ContradictionFinding{},
		Stats:          model.ScoringStats{TotalChunks: 3, Analyzed: 1, Skipped: 2, Threshold: 8},
		Usage:          model.TokenUsage{InputTokens: 1200, OutputTokens: 150, Cost: 0.0123},
		Duration:       2 * time.Second,
	}
}

func newFakeAnalyzer(res *model.DocumentAnalysisResult, err error) *fakeAnalyzer {
	return &fakeAnalyzer{fw: framework.GDPR(), res: res, err: err}
}

func TestRunAnalysis_NoStore(t *testing.T) {
	res := sampleResult()
	an := newFakeAnalyzer(res, nil)

	run, err := runAnalysis(context.Background(), nil, an, analysis.Document{Filename: "policy.txt", Text: "text"})
	require.NoError(t, err)
	assert.Empty(t, run.ID)
	assert.Equal(t, "policy.txt", run.Document)
	assert.Equal(t, "gdpr", run.Framework)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	assert.Same(t, res, run.Result)
	require.Len(t, an.docs, 1)
}

func TestRunAnalysis_RecordsLifecycle(t *testing.T) {
	res := sampleResult()
	an := newFakeAnalyzer(res, nil)
	ms := new(mockStore)

	ms.On("CreateRun", mock.Anything, "policy.txt", "gdpr").
		Return(&model.Run{ID: "run-1", Document: "policy.txt", Framework: "gdpr", Status: model.RunStatusQueued}, nil)
	ms.On("UpdateRunStatus", mock.Anything, "run-1", model.RunStatusAnalyzing).Return(nil)
	ms.On("CompleteRun", mock.Anything, "run-1", res).Return(nil)

	run, err := runAnalysis(context.Background(), ms, an, analysis.Document{Filename: "policy.txt", Text: "text"})
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	assert.Same(t, res, run.Result)
	ms.AssertExpectations(t)
}

func TestRunAnalysis_AnalyzeFailureMarksRunFailed(t *testing.T) {
	boom := errors.New("judge exploded")
	an := newFakeAnalyzer(nil, boom)
	ms := new(mockStore)

	ms.On("CreateRun", mock.Anything, "policy.txt", "gdpr").Return(&model.Run{ID: "run-2"}, nil)
	ms.On("UpdateRunStatus", mock.Anything, "run-2", model.RunStatusAnalyzing).Return(nil)
	ms.On("FailRun", mock.Anything, "run-2", "judge exploded").Return(nil)

	_, err := runAnalysis(context.Background(), ms, an, analysis.Document{Filename: "policy.txt", Text: "text"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	ms.AssertExpectations(t)
	ms.AssertNotCalled(t, "CompleteRun", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunAnalysis_FailRunErrorKeepsAnalyzeError(t *testing.T) {
	boom := errors.New("judge exploded")
	an := newFakeAnalyzer(nil, boom)
	ms := new(mockStore)

	ms.On("CreateRun", mock.Anything, "policy.txt", "gdpr").Return(&model.Run{ID: "run-3"}, nil)
	ms.On("UpdateRunStatus", mock.Anything, "run-3", model.RunStatusAnalyzing).Return(nil)
	ms.On("FailRun", mock.Anything, "run-3", "judge exploded").Return(errors.New("db down"))

	_, err := runAnalysis(context.Background(), ms, an, analysis.Document{Filename: "policy.txt", Text: "text"})
	assert.ErrorIs(t, err, boom)
}

func TestRunAnalysis_FailRunAfterCancel(t *testing.T) {
	an := newFakeAnalyzer(nil, context.Canceled)
	ms := new(mockStore)
	ctx, cancel := context.WithCancel(context.Background())

	ms.On("CreateRun", mock.Anything, "policy.txt", "gdpr").Return(&model.Run{ID: "run-4"}, nil)
	ms.On("UpdateRunStatus", mock.Anything, "run-4", model.RunStatusAnalyzing).Run(func(mock.Arguments) {
		cancel()
	}).Return(nil)
	ms.On("FailRun", mock.MatchedBy(func(c context.Context) bool { return c.Err() == nil }), "run-4", mock.Anything).Return(nil)

	_, err := runAnalysis(ctx, ms, an, analysis.Document{Filename: "policy.txt", Text: "text"})
	assert.ErrorIs(t, err, context.Canceled)
	ms.AssertExpectations(t)
}

func TestRunAnalysis_CreateRunError(t *testing.T) {
	an := newFakeAnalyzer(sampleResult(), nil)
	ms := new(mockStore)
	ms.On("CreateRun", mock.Anything, "policy.txt", "gdpr").Return(nil, errors.New("db down"))

	_, err := runAnalysis(context.Background(), ms, an, analysis.Document{Filename: "policy.txt", Text: "text"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create run")
	assert.Empty(t, an.docs, "nothing is analyzed without a run")
}

func TestExportReport_Stdout(t *testing.T) {
	var out bytes.Buffer
	err := exportReport(context.Background(), &out, sampleResult(), exportOptions{
		Document: "policy.txt",
		Format:   report.FormatJSON,
	}, nil)
	require.NoError(t, err)
	assert.Contains(t, out.String(), `"framework": "gdpr"`)
	assert.Contains(t, out.String(), "Personal data is kept forever")
}

func TestExportReport_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.txt")
	var out bytes.Buffer

	err := exportReport(context.Background(), &out, sampleResult(), exportOptions{
		Document: "policy.txt",
		Format:   report.FormatPlainText,
		Out:      path,
	}, nil)
	require.NoError(t, err)
	assert.Empty(t, out.String())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "COMPLIANCE ANALYSIS REPORT")
}

func TestExportReport_Upload(t *testing.T) {
	dir := t.TempDir()
	local, err := storage.NewLocal(dir)
	require.NoError(t, err)

	var out bytes.Buffer
	err = exportReport(context.Background(), &out, sampleResult(), exportOptions{
		Document: "docs/policy.txt",
		Format:   report.FormatJSON,
	}, local)
	require.NoError(t, err)

	matches, err := filepath.Glob(filepath.Join(dir, "*", "*", "*", "*.json"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.True(t, strings.HasSuffix(matches[0], "-policy.json"))

	uploaded, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Equal(t, out.String(), string(uploaded), "stdout and upload carry the same bytes")
}

type failingStorage struct{}

func (failingStorage) Put(context.Context, string, io.Reader, string) (string, error) {
	return "", errors.New("bucket unavailable")
}

func TestExportReport_UploadError(t *testing.T) {
	var out bytes.Buffer
	err := exportReport(context.Background(), &out, sampleResult(), exportOptions{
		Document: "policy.txt",
		Format:   report.FormatPlainText,
	}, failingStorage{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket unavailable")
}

func TestAnalyzeCommand_Flags(t *testing.T) {
	for _, name := range []string{"framework", "preset", "format", "out", "upload", "no-store"} {
		assert.NotNil(t, analyzeCmd.Flags().Lookup(name), "analyze should have --%s", name)
	}
	assert.Equal(t, "text", analyzeCmd.Flags().Lookup("format").DefValue)
}

func TestLogProgress(t *testing.T) {
	assert.NoError(t, logProgress(analysis.Progress{Completed: 1, Total: 2}))
}
