package knowledge

import (
	"context"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/compliance-cli/internal/framework"
	"github.com/sells-group/compliance-cli/internal/model"
)

// Index holds embedded articles. It is read-only after construction and safe
// for concurrent use.
type Index struct {
	articles []Article
	vectors  [][]float32
	embedder Embedder
}

// NewIndex embeds every article once.
func NewIndex(ctx context.Context, articles []Article, embedder Embedder) (*Index, error) {
	if embedder == nil {
		embedder = NewHashEmbedder(DefaultDimension)
	}
	idx := &Index{
		articles: append([]Article(nil), articles...),
		vectors:  make([][]float32, len(articles)),
		embedder: embedder,
	}
	for i, a := range idx.articles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := embedder.Embed(ctx, a.Title+"\n"+a.Text)
		if err != nil {
			return nil, eris.Wrapf(err, "knowledge: embed %s", a.ID)
		}
		idx.vectors[i] = v
	}
	return idx, nil
}

// ForFramework indexes fw's built-in articles, or the file at articlesPath
// when it is set.
func ForFramework(ctx context.Context, fw framework.Framework, articlesPath string, embedder Embedder) (*Index, error) {
	var (
		articles []Article
		err      error
	)
	if articlesPath != "" {
		articles, err = ParseArticlesFile(articlesPath)
	} else {
		articles, err = ParseArticles(strings.NewReader(fw.Articles()))
	}
	if err != nil {
		return nil, err
	}
	return NewIndex(ctx, articles, embedder)
}

// Len returns the number of indexed articles.
func (idx *Index) Len() int { return len(idx.articles) }

// FindSimilar returns up to k articles ordered by ascending cosine distance
// to text. Ties keep article order.
func (idx *Index) FindSimilar(ctx context.Context, text string, k int) ([]model.Regulation, error) {
	if k <= 0 || len(idx.articles) == 0 {
		return nil, nil
	}
	q, err := idx.embedder.Embed(ctx, text)
	if err != nil {
		return nil, eris.Wrap(err, "knowledge: embed query")
	}

	out := make([]model.Regulation, len(idx.articles))
	for i, a := range idx.articles {
		out[i] = model.Regulation{
			ID:       a.ID,
			Title:    a.Title,
			Text:     a.Text,
			Distance: 1 - CosineSimilarity(q, idx.vectors[i]),
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })

	if k < len(out) {
		out = out[:k]
	}
	return out, nil
}
