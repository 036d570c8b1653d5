package main

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/compliance-cli/internal/analysis"
	"github.com/sells-group/compliance-cli/internal/framework"
	"github.com/sells-group/compliance-cli/internal/judge"
	"github.com/sells-group/compliance-cli/internal/model"
	"github.com/sells-group/compliance-cli/internal/store"
)

// mockStore is a testify mock for store.Store.
type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateRun(ctx context.Context, document, fw string) (*model.Run, error) {
	args := m.Called(ctx, document, fw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	args := m.Called(ctx, runID, status)
	return args.Error(0)
}

func (m *mockStore) CompleteRun(ctx context.Context, runID string, result *model.DocumentAnalysisResult) error {
	args := m.Called(ctx, runID, result)
	return args.Error(0)
}

func (m *mockStore) FailRun(ctx context.Context, runID, errMsg string) error {
	args := m.Called(ctx, runID, errMsg)
	return args.Error(0)
}

func (m *mockStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockStore) ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Run), args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// fakeAnalyzer returns a canned result and records the documents it saw.
type fakeAnalyzer struct {
	fw  framework.Framework
	res *model.DocumentAnalysisResult
	err error

	mu   sync.Mutex
	docs []analysis.Document
}

func (f *fakeAnalyzer) Analyze(_ context.Context, doc analysis.Document) (*model.DocumentAnalysisResult, error) {
	f.mu.Lock()
	f.docs = append(f.docs, doc)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.res, nil
}

func (f *fakeAnalyzer) Framework() framework.Framework {
	return f.fw
}

// staticJudge answers every prompt with the same text.
type staticJudge struct {
	text string
}

func (s staticJudge) Complete(context.Context, judge.Request) (*judge.Response, error) {
	return &judge.Response{Text: s.text}, nil
}
