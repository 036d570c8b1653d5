package analysis

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/compliance-cli/internal/judge"
	"github.com/sells-group/compliance-cli/internal/model"
)

// --- Judge Mock ---

type mockJudge struct {
	mock.Mock
}

func (m *mockJudge) Complete(ctx context.Context, req judge.Request) (*judge.Response, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*judge.Response), args.Error(1)
}

// judgeFunc adapts a function to judge.Judge for tests that need to control
// timing.
type judgeFunc func(ctx context.Context, req judge.Request) (*judge.Response, error)

func (f judgeFunc) Complete(ctx context.Context, req judge.Request) (*judge.Response, error) {
	return f(ctx, req)
}

// --- Retriever Mock ---

type mockRetriever struct {
	mock.Mock
}

func (m *mockRetriever) FindSimilar(ctx context.Context, text string, k int) ([]model.Regulation, error) {
	args := m.Called(ctx, text, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Regulation), args.Error(1)
}
