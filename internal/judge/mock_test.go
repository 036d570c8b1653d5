package judge

import (
	"context"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/mock"

	"github.com/sells-group/compliance-cli/pkg/anthropic"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, system, prompt string, maxTokens int32, temperature float32) (*genai.GenerateContentResponse, error) {
	args := m.Called(ctx, system, prompt, maxTokens, temperature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*genai.GenerateContentResponse), args.Error(1)
}

// fastGuard shortens retry delays so tests do not sleep.
func fastGuard(g *guard) {
	g.backoff.Base = time.Millisecond
	g.backoff.Max = 2 * time.Millisecond
	g.backoff.Jitter = 0
}
