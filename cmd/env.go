package main

import (
	"context"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/sells-group/compliance-cli/internal/analysis"
	"github.com/sells-group/compliance-cli/internal/chunker"
	"github.com/sells-group/compliance-cli/internal/config"
	"github.com/sells-group/compliance-cli/internal/framework"
	"github.com/sells-group/compliance-cli/internal/judge"
	"github.com/sells-group/compliance-cli/internal/knowledge"
)

// engine builds analyzers for the analyze and serve commands. It owns the
// framework registry, the judge and one knowledge index per framework.
type engine struct {
	base     config.Config
	registry *framework.Registry
	judge    judge.Judge
	embedder knowledge.Embedder

	mu      sync.Mutex
	indexes map[string]*knowledge.Index
}

func newEngine(base config.Config, reg *framework.Registry, j judge.Judge) *engine {
	return &engine{
		base:     base,
		registry: reg,
		judge:    j,
		embedder: knowledge.NewHashEmbedder(knowledge.DefaultDimension),
		indexes:  make(map[string]*knowledge.Index),
	}
}

// newRegistry returns the built-in frameworks plus the custom definition
// named in the config, if any.
func newRegistry(c config.Config) (*framework.Registry, error) {
	reg := framework.NewRegistry()
	if c.Framework.CustomPath == "" {
		return reg, nil
	}

	fw, err := framework.LoadCustom(c.Framework.CustomPath)
	if err != nil {
		return nil, err
	}
	if err := reg.Register(fw); err != nil {
		return nil, err
	}
	zap.L().Info("custom framework registered",
		zap.String("framework", fw.ID()),
		zap.String("path", c.Framework.CustomPath),
	)
	return reg, nil
}

// withOverrides returns a copy of base with a preset and framework override
// applied. Empty overrides keep the configured values.
func withOverrides(base config.Config, frameworkID, preset string) (config.Config, error) {
	c, err := base.WithPreset(preset)
	if err != nil {
		return c, err
	}
	if strings.TrimSpace(frameworkID) != "" {
		c.Analysis.Framework = frameworkID
	}
	return c, nil
}

// analyzer builds an analyzer for one document. opts are applied after the
// chunking and token options derived from the config.
func (e *engine) analyzer(ctx context.Context, frameworkID, preset string, opts ...analysis.Option) (*analysis.Analyzer, error) {
	c, err := withOverrides(e.base, frameworkID, preset)
	if err != nil {
		return nil, err
	}
	fw, err := e.registry.Get(c.Analysis.Framework)
	if err != nil {
		return nil, err
	}

	var retriever analysis.Retriever
	if c.Analysis.RAGArticles > 0 {
		idx, err := e.index(ctx, fw)
		if err != nil {
			return nil, err
		}
		retriever = idx
	}

	base := []analysis.Option{
		analysis.WithChunking(chunkOptions(c.Chunking)),
		analysis.WithMaxTokens(c.Judge.MaxTokens),
	}
	return analysis.New(c.Analysis, fw, retriever, e.judge, append(base, opts...)...)
}

// index returns the knowledge index for fw, building it on first use. The
// configured articles file only replaces the articles of the configured
// default framework.
func (e *engine) index(ctx context.Context, fw framework.Framework) (*knowledge.Index, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if idx, ok := e.indexes[fw.ID()]; ok {
		return idx, nil
	}

	path := ""
	if strings.EqualFold(fw.ID(), e.base.Analysis.Framework) {
		path = e.base.Framework.ArticlesPath
	}
	idx, err := knowledge.ForFramework(ctx, fw, path, e.embedder)
	if err != nil {
		return nil, err
	}
	e.indexes[fw.ID()] = idx

	zap.L().Debug("knowledge index built",
		zap.String("framework", fw.ID()),
		zap.Int("articles", idx.Len()),
	)
	return idx, nil
}

func chunkOptions(c config.ChunkingConfig) chunker.Options {
	return chunker.Options{
		Method:  chunker.Method(c.Method),
		Size:    c.Size,
		Overlap: c.Overlap,
	}
}

// closeJudge releases provider clients that hold connections.
func closeJudge(j judge.Judge) {
	if c, ok := j.(io.Closer); ok {
		if err := c.Close(); err != nil {
			zap.L().Warn("close judge", zap.Error(err))
		}
	}
}
