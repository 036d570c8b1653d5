package config

import (
	"sort"

	"github.com/rotisserie/eris"
)

// Preset bundles the analysis knobs that trade accuracy against cost.
type Preset struct {
	Name        string
	RAGArticles int
	Threshold   float64
	ChunkSize   int
	Progressive bool
}

var presets = map[string]Preset{
	"accuracy":      {Name: "accuracy", RAGArticles: 8, Threshold: 3, ChunkSize: 1200, Progressive: true},
	"speed":         {Name: "speed", RAGArticles: 3, Threshold: 12, ChunkSize: 600, Progressive: true},
	"balanced":      {Name: "balanced", RAGArticles: 5, Threshold: 6, ChunkSize: 800, Progressive: true},
	"comprehensive": {Name: "comprehensive", RAGArticles: 10, Threshold: 1, ChunkSize: 1000, Progressive: false},
}

// PresetNames returns the known preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupPreset returns the named preset.
func LookupPreset(name string) (Preset, bool) {
	p, ok := presets[name]
	return p, ok
}

// WithPreset returns a copy of c with the named preset applied. An empty name
// returns c unchanged. The receiver is never modified.
func (c Config) WithPreset(name string) (Config, error) {
	if name == "" {
		return c, nil
	}
	p, ok := presets[name]
	if !ok {
		return c, eris.Errorf("config: unknown preset %q", name)
	}
	c.Analysis.Preset = p.Name
	c.Analysis.RAGArticles = p.RAGArticles
	c.Analysis.HighRiskThreshold = p.Threshold
	c.Analysis.Progressive = p.Progressive
	c.Chunking.Size = p.ChunkSize
	if c.Chunking.Overlap >= c.Chunking.Size {
		c.Chunking.Overlap = c.Chunking.Size / 8
	}
	return c, nil
}
