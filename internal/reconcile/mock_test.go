package reconcile

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/compliance-cli/internal/judge"
)

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
