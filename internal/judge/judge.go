// Package judge sends compliance prompts to an LLM provider and returns the
// raw response text with its token usage.
package judge

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/compliance-cli/internal/config"
	"github.com/sells-group/compliance-cli/internal/cost"
	"github.com/sells-group/compliance-cli/internal/model"
	"github.com/sells-group/compliance-cli/internal/resilience"
	"github.com/sells-group/compliance-cli/pkg/anthropic"
)

// Judge completes one prompt.
type Judge interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Request is a single judge call. System carries the framework guidance and
// is identical for every chunk of a run; Prompt carries the chunk.
type Request struct {
	System    string
	Prompt    string
	MaxTokens int
}

// Response is the judge's text output and what it cost.
type Response struct {
	Text  string
	Usage model.TokenUsage
}

// Options tunes a provider judge.
type Options struct {
	Model             string
	MaxTokens         int
	Temperature       float64
	RequestsPerMinute int
	MaxAttempts       int
	BreakerThreshold  int
	BreakerCooldown   time.Duration
	Calculator        *cost.Calculator
}

func (o Options) withDefaults() Options {
	if o.MaxTokens <= 0 {
		o.MaxTokens = 2048
	}
	if o.Calculator == nil {
		o.Calculator = cost.NewCalculator(cost.DefaultRates())
	}
	return o
}

// guard bundles the throttling and failure handling shared by providers.
type guard struct {
	service string
	limiter *adaptiveLimiter
	backoff resilience.Backoff
	breaker *resilience.Breaker
}

func newGuard(service string, o Options) *guard {
	b := resilience.DefaultBackoff()
	if o.MaxAttempts > 0 {
		b.Attempts = o.MaxAttempts
	}
	b.OnRetry = resilience.LogRetry(service, "complete")

	return &guard{
		service: service,
		limiter: newAdaptiveLimiter(o.RequestsPerMinute),
		backoff: b,
		breaker: resilience.NewBreaker(resilience.BreakerConfig{
			Threshold: o.BreakerThreshold,
			Cooldown:  o.BreakerCooldown,
			Counts:    resilience.IsRetryable,
			OnChange: func(from, to resilience.State) {
				zap.L().Warn("judge: circuit state changed",
					zap.String("service", service),
					zap.Stringer("from", from),
					zap.Stringer("to", to),
				)
			},
		}),
	}
}

// run calls fn with rate limiting, retries and the circuit breaker. status
// maps a provider error to its HTTP status (0 when unknown).
func run[T any](ctx context.Context, g *guard, status func(error) int, fn func(context.Context) (T, error)) (T, error) {
	return resilience.Guard(ctx, g.breaker, func(ctx context.Context) (T, error) {
		return resilience.Retry(ctx, g.backoff, func(ctx context.Context) (T, error) {
			var zero T
			if err := g.limiter.Wait(ctx); err != nil {
				return zero, err
			}
			v, err := fn(ctx)
			if err != nil {
				code := status(err)
				if code == 429 {
					g.limiter.OnRateLimit()
				}
				if code != 0 {
					return zero, &resilience.StatusError{Status: code, Err: err}
				}
				return zero, err
			}
			g.limiter.OnSuccess()
			return v, nil
		})
	})
}

// New builds the judge selected by cfg.Judge.Provider.
func New(ctx context.Context, cfg config.Config) (Judge, error) {
	opts := Options{
		MaxTokens:         cfg.Judge.MaxTokens,
		Temperature:       cfg.Judge.Temperature,
		RequestsPerMinute: cfg.Judge.RequestsPerMinute,
		MaxAttempts:       cfg.Judge.MaxAttempts,
		BreakerThreshold:  cfg.Judge.BreakerThreshold,
		BreakerCooldown:   cfg.Judge.BreakerCooldown,
		Calculator:        cost.NewCalculator(cost.DefaultRates().Merge(pricingRates(cfg.Pricing))),
	}

	switch cfg.Judge.Provider {
	case "anthropic", "":
		if cfg.Anthropic.Key == "" {
			return nil, eris.New("judge: anthropic key is required")
		}
		opts.Model = cfg.Anthropic.Model
		return NewAnthropic(anthropic.NewClient(cfg.Anthropic.Key), opts), nil
	case "gemini":
		if cfg.Gemini.Key == "" {
			return nil, eris.New("judge: gemini key is required")
		}
		opts.Model = cfg.Gemini.Model
		return NewGemini(ctx, cfg.Gemini.Key, opts)
	default:
		return nil, eris.Errorf("judge: unknown provider %q", cfg.Judge.Provider)
	}
}

func pricingRates(p config.PricingConfig) cost.Rates {
	conv := func(in map[string]config.ModelPricing) map[string]cost.ModelRate {
		if len(in) == 0 {
			return nil
		}
		out := make(map[string]cost.ModelRate, len(in))
		for name, mp := range in {
			out[name] = cost.ModelRate(mp)
		}
		return out
	}
	return cost.Rates{Anthropic: conv(p.Anthropic), Gemini: conv(p.Gemini)}
}
