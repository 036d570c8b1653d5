package judge

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/compliance-cli/internal/model"
	"github.com/sells-group/compliance-cli/pkg/anthropic"
)

// Anthropic is a Judge backed by the Messages API. The system prompt is sent
// as a cached block so repeated chunk calls only pay for it once.
type Anthropic struct {
	client anthropic.Client
	opts   Options
	guard  *guard
}

// NewAnthropic wraps client.
func NewAnthropic(client anthropic.Client, opts Options) *Anthropic {
	opts = opts.withDefaults()
	if opts.Model == "" {
		opts.Model = "claude-sonnet-4-5-20250929"
	}
	return &Anthropic{client: client, opts: opts, guard: newGuard("anthropic", opts)}
}

// Complete sends req and returns the response text.
func (a *Anthropic) Complete(ctx context.Context, req Request) (*Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = a.opts.MaxTokens
	}
	temp := a.opts.Temperature
	msg := anthropic.MessageRequest{
		Model:       a.opts.Model,
		MaxTokens:   int64(maxTokens),
		System:      anthropic.BuildCachedSystemBlocks(req.System),
		Messages:    []anthropic.Message{{Role: "user", Content: req.Prompt}},
		Temperature: &temp,
	}

	resp, err := run(ctx, a.guard, anthropic.StatusCode, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return a.client.CreateMessage(ctx, msg)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, eris.Wrap(err, "judge: anthropic complete")
	}

	u := resp.Usage
	usage := model.TokenUsage{
		InputTokens:      int(u.InputTokens),
		OutputTokens:     int(u.OutputTokens),
		CacheWriteTokens: int(u.CacheCreationInputTokens),
		CacheReadTokens:  int(u.CacheReadInputTokens),
	}
	usage.Cost = a.opts.Calculator.Claude(a.opts.Model, usage.InputTokens, usage.OutputTokens, usage.CacheWriteTokens, usage.CacheReadTokens)

	return &Response{Text: resp.Text(), Usage: usage}, nil
}
