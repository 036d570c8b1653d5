package judge

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rotisserie/eris"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/sells-group/compliance-cli/internal/model"
)

// generator is the slice of the genai client the Gemini judge uses.
type generator interface {
	Generate(ctx context.Context, system, prompt string, maxTokens int32, temperature float32) (*genai.GenerateContentResponse, error)
}

type genaiGenerator struct {
	client *genai.Client
	model  string
}

func (g *genaiGenerator) Generate(ctx context.Context, system, prompt string, maxTokens int32, temperature float32) (*genai.GenerateContentResponse, error) {
	m := g.client.GenerativeModel(g.model)
	if system != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	m.SetMaxOutputTokens(maxTokens)
	m.SetTemperature(temperature)
	return m.GenerateContent(ctx, genai.Text(prompt))
}

// Gemini is a Judge backed by Google's Gemini API.
type Gemini struct {
	gen    generator
	client *genai.Client
	opts   Options
	guard  *guard
}

// NewGemini creates a Gemini judge authenticated with apiKey.
func NewGemini(ctx context.Context, apiKey string, opts Options) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, eris.Wrap(err, "judge: create gemini client")
	}
	opts = opts.withDefaults()
	if opts.Model == "" {
		opts.Model = "gemini-1.5-flash"
	}
	g := newGemini(&genaiGenerator{client: client, model: opts.Model}, opts)
	g.client = client
	return g, nil
}

func newGemini(gen generator, opts Options) *Gemini {
	opts = opts.withDefaults()
	return &Gemini{gen: gen, opts: opts, guard: newGuard("gemini", opts)}
}

// Close releases the underlying client.
func (g *Gemini) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

// Complete sends req and returns the first candidate's text.
func (g *Gemini) Complete(ctx context.Context, req Request) (*Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = g.opts.MaxTokens
	}

	resp, err := run(ctx, g.guard, geminiStatus, func(ctx context.Context) (*genai.GenerateContentResponse, error) {
		return g.gen.Generate(ctx, req.System, req.Prompt, int32(maxTokens), float32(g.opts.Temperature))
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, eris.Wrap(err, "judge: gemini complete")
	}

	var usage model.TokenUsage
	if md := resp.UsageMetadata; md != nil {
		usage.InputTokens = int(md.PromptTokenCount)
		usage.OutputTokens = int(md.CandidatesTokenCount)
		usage.CacheReadTokens = int(md.CachedContentTokenCount)
	}
	usage.Cost = g.opts.Calculator.Gemini(g.opts.Model, usage.InputTokens, usage.OutputTokens)

	return &Response{Text: geminiText(resp), Usage: usage}, nil
}

func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var parts []string
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			parts = append(parts, string(t))
		}
	}
	return strings.Join(parts, "")
}

// geminiStatus maps REST and gRPC style errors to an HTTP status.
func geminiStatus(err error) int {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return gErr.Code
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "ResourceExhausted"):
		return http.StatusTooManyRequests
	case strings.Contains(msg, "Unavailable"):
		return http.StatusServiceUnavailable
	case strings.Contains(msg, "Internal"):
		return http.StatusInternalServerError
	case strings.Contains(msg, "InvalidArgument"):
		return http.StatusBadRequest
	}
	return 0
}
