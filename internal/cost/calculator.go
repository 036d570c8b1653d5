// Package cost prices judge token usage.
package cost

// ModelRate is per-model pricing in USD per million tokens. The cache
// multipliers scale the input rate.
type ModelRate struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// Rates holds pricing per provider, keyed by model id.
type Rates struct {
	Anthropic map[string]ModelRate `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini    map[string]ModelRate `yaml:"gemini" mapstructure:"gemini"`
}

// Merge returns a copy of r with every model in overrides replacing or
// adding to the built-in entry.
func (r Rates) Merge(overrides Rates) Rates {
	return Rates{
		Anthropic: mergeRates(r.Anthropic, overrides.Anthropic),
		Gemini:    mergeRates(r.Gemini, overrides.Gemini),
	}
}

func mergeRates(base, over map[string]ModelRate) map[string]ModelRate {
	out := make(map[string]ModelRate, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

// Calculator computes costs for judge usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Claude computes the cost of an Anthropic call. Unknown models cost 0.
func (c *Calculator) Claude(model string, input, output, cacheWrite, cacheRead int) float64 {
	rate, ok := c.rates.Anthropic[model]
	if !ok {
		return 0
	}
	return perMTok(input, rate.Input) +
		perMTok(output, rate.Output) +
		perMTok(cacheWrite, rate.Input*rate.CacheWriteMul) +
		perMTok(cacheRead, rate.Input*rate.CacheReadMul)
}

// Gemini computes the cost of a Gemini call. Unknown models cost 0.
func (c *Calculator) Gemini(model string, input, output int) float64 {
	rate, ok := c.rates.Gemini[model]
	if !ok {
		return 0
	}
	return perMTok(input, rate.Input) + perMTok(output, rate.Output)
}

func perMTok(tokens int, rate float64) float64 {
	return float64(tokens) / 1e6 * rate
}

// DefaultRates returns the built-in pricing.
func DefaultRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"claude-haiku-4-5-20251001": {
				Input: 1.00, Output: 5.00, CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
			"claude-sonnet-4-5-20250929": {
				Input: 3.00, Output: 15.00, CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
			"claude-opus-4-6": {
				Input: 15.00, Output: 75.00, CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
		},
		Gemini: map[string]ModelRate{
			"gemini-1.5-flash": {Input: 0.075, Output: 0.30},
			"gemini-1.5-pro":   {Input: 1.25, Output: 5.00},
			"gemini-2.0-flash": {Input: 0.10, Output: 0.40},
		},
	}
}
