package knowledge

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/compliance-cli/internal/framework"
)

const sampleArticles = `Preamble that is not part of any article.

Article 5 - Principles
Data shall be kept no longer than necessary.
Storage limitation applies.

Article 7 - Conditions for consent
Consent may be withdrawn at any time.

§ 1798.120 - Right to opt out
Consumers may opt out of the sale of personal information.

12. Records of processing
Controllers keep records of processing activities.
`

func TestParseArticles(t *testing.T) {
	articles, err := ParseArticles(strings.NewReader(sampleArticles))
	require.NoError(t, err)
	require.Len(t, articles, 4)

	assert.Equal(t, "article-5", articles[0].ID)
	assert.Equal(t, "Article 5 - Principles", articles[0].Title)
	assert.Equal(t, "Data shall be kept no longer than necessary.\nStorage limitation applies.", articles[0].Text)

	assert.Equal(t, "article-7", articles[1].ID)
	assert.Equal(t, "section-1798-120", articles[2].ID)
	assert.Equal(t, "12-records-of-processing", articles[3].ID)
	assert.Equal(t, "Controllers keep records of processing activities.", articles[3].Text)
}

func TestParseArticles_DuplicateIDs(t *testing.T) {
	articles, err := ParseArticles(strings.NewReader("Article 5 - A\none\n\nArticle 5 - B\ntwo\n"))
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, "article-5", articles[0].ID)
	assert.Equal(t, "article-5-2", articles[1].ID)
}

func TestParseArticles_NoHeadingsFallsBackToPassages(t *testing.T) {
	articles, err := ParseArticles(strings.NewReader("first passage\ncontinued\n\n\nsecond passage\n"))
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, "passage-1", articles[0].ID)
	assert.Equal(t, "first passage\ncontinued", articles[0].Text)
	assert.Equal(t, "Passage 2", articles[1].Title)
}

func TestParseArticles_Empty(t *testing.T) {
	articles, err := ParseArticles(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, articles)
}

func TestParseArticlesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "articles.txt")
	require.NoError(t, os.WriteFile(path, []byte(sampleArticles), 0o600))

	articles, err := ParseArticlesFile(path)
	require.NoError(t, err)
	assert.Len(t, articles, 4)

	_, err = ParseArticlesFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestBuiltinArticleSets(t *testing.T) {
	for _, fw := range []framework.Framework{framework.GDPR(), framework.HIPAA(), framework.CCPA()} {
		articles, err := ParseArticles(strings.NewReader(fw.Articles()))
		require.NoError(t, err, fw.ID())
		assert.GreaterOrEqual(t, len(articles), 10, fw.ID())
		for _, a := range articles {
			assert.NotEmpty(t, a.Text, "%s %s", fw.ID(), a.Title)
		}
	}
}

func TestHashEmbedder(t *testing.T) {
	e := NewHashEmbedder(0)
	v1, err := e.Embed(context.Background(), "Personal data is retained indefinitely")
	require.NoError(t, err)
	require.Len(t, v1, DefaultDimension)

	var norm float64
	for _, x := range v1 {
		norm += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)

	v2, _ := e.Embed(context.Background(), "Personal data is retained indefinitely")
	assert.Equal(t, v1, v2, "deterministic")

	zero, _ := e.Embed(context.Background(), "the and of")
	for _, x := range zero {
		assert.Zero(t, x)
	}
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
	assert.Zero(t, CosineSimilarity([]float32{1}, []float32{1, 1}))
}

func TestIndex_FindSimilar(t *testing.T) {
	articles, err := ParseArticles(strings.NewReader(sampleArticles))
	require.NoError(t, err)
	idx, err := NewIndex(context.Background(), articles, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, idx.Len())

	got, err := idx.FindSimilar(context.Background(), "Users may withdraw consent at any time", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "article-7", got[0].ID)
	assert.LessOrEqual(t, got[0].Distance, got[1].Distance)

	all, err := idx.FindSimilar(context.Background(), "opt out of the sale", 10)
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, "section-1798-120", all[0].ID)
	for i := 1; i < len(all); i++ {
		assert.LessOrEqual(t, all[i-1].Distance, all[i].Distance)
	}

	none, err := idx.FindSimilar(context.Background(), "anything", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestIndex_ForFrameworkExactPassageRanksFirst(t *testing.T) {
	fw := framework.GDPR()
	articles, err := ParseArticles(strings.NewReader(fw.Articles()))
	require.NoError(t, err)
	target := articles[2]

	idx, err := ForFramework(context.Background(), fw, "", NewHashEmbedder(DefaultDimension))
	require.NoError(t, err)

	got, err := idx.FindSimilar(context.Background(), target.Text, 3)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, target.ID, got[0].ID)
	assert.Less(t, got[0].Distance, 0.5)
}

func TestIndex_ForFrameworkArticlesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.txt")
	require.NoError(t, os.WriteFile(path, []byte("Rule 1 - Only rule\nBe nice.\n"), 0o600))

	idx, err := ForFramework(context.Background(), framework.GDPR(), path, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, idx.Len())
}

func TestIndex_ConcurrentReaders(t *testing.T) {
	idx, err := ForFramework(context.Background(), framework.HIPAA(), "", nil)
	require.NoError(t, err)

	want, err := idx.FindSimilar(context.Background(), "business associate agreement", 3)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := idx.FindSimilar(context.Background(), "business associate agreement", 3)
			assert.NoError(t, err)
			assert.Equal(t, want, got)
		}()
	}
	wg.Wait()
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("model unavailable")
}

func TestNewIndex_Errors(t *testing.T) {
	articles := []Article{{ID: "a", Title: "A", Text: "x"}}

	_, err := NewIndex(context.Background(), articles, failingEmbedder{})
	assert.ErrorContains(t, err, "knowledge: embed a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewIndex(ctx, articles, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIndex_ZeroQuery(t *testing.T) {
	idx, err := NewIndex(context.Background(), []Article{{ID: "a", Title: "A", Text: "alpha"}}, nil)
	require.NoError(t, err)
	got, err := idx.FindSimilar(context.Background(), "", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, math.IsNaN(got[0].Distance))
	assert.InDelta(t, 1.0, got[0].Distance, 1e-9)
}
