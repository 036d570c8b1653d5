package scoring

import (
	"context"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/compliance-cli/internal/framework"
	"github.com/sells-group/compliance-cli/internal/model"
)

func riskyText() string {
	return strings.Repeat("We retain personal data indefinitely and rely on implied consent for retention. ", 3)
}

func benignText() string {
	return strings.Repeat("Our office is open on weekdays and the cafeteria serves lunch at noon. ", 3)
}

func testChunks(texts ...string) []model.Chunk {
	chunks := make([]model.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = model.Chunk{Index: i, Position: fmt.Sprintf("Chunk %d", i+1), Text: text, Size: len(text)}
	}
	return chunks
}

func newTestClassifier(t *testing.T, opts Options) *Classifier {
	t.Helper()
	if opts.Weights == (Weights{}) {
		opts.Weights = DefaultWeights()
	}
	c, err := NewClassifier(testFramework(), opts)
	require.NoError(t, err)
	return c
}

func TestClassify_Partition(t *testing.T) {
	t.Parallel()

	c := newTestClassifier(t, Options{Threshold: 8, MinLength: DefaultMinLength, Progressive: true})
	chunks := testChunks(riskyText(), benignText(), "short risky personal data indefinitely", riskyText())

	p, err := c.Classify(context.Background(), chunks)
	require.NoError(t, err)

	require.Len(t, p.Analyze, 2)
	assert.Equal(t, 0, p.Analyze[0].Index)
	assert.Equal(t, 3, p.Analyze[1].Index)
	require.Len(t, p.Skip, 2)
	assert.Equal(t, 1, p.Skip[0].Index)
	assert.Equal(t, 2, p.Skip[1].Index)
	assert.True(t, p.Skip[1].Score.TooShort())
	assert.Equal(t, 4, p.Total())
}

func TestClassify_TooShortAlwaysSkipped(t *testing.T) {
	t.Parallel()

	c := newTestClassifier(t, Options{Threshold: 0, MinLength: DefaultMinLength, Progressive: true})
	p, err := c.Classify(context.Background(), testChunks("GDPR consent data"))
	require.NoError(t, err)

	assert.Empty(t, p.Analyze)
	require.Len(t, p.Skip, 1)
	assert.Equal(t, "too short", p.Decisions()[0].Explain())
}

func TestClassify_ThresholdBoundaryIsInclusive(t *testing.T) {
	t.Parallel()

	text := riskyText()
	score := Score(text, testTerms(), DefaultWeights(), DefaultMinLength).TotalScore

	c := newTestClassifier(t, Options{Threshold: score, MinLength: DefaultMinLength, Progressive: true})
	p, err := c.Classify(context.Background(), testChunks(text))
	require.NoError(t, err)
	assert.Len(t, p.Analyze, 1)
}

func TestClassify_ThresholdMonotonic(t *testing.T) {
	t.Parallel()

	chunks := testChunks(riskyText(), benignText(), riskyText()+benignText(), strings.Repeat("Consent is recorded. ", 10))
	var prev map[int]bool
	for _, threshold := range []float64{0, 1, 5, 10, 25, 60, 200} {
		c := newTestClassifier(t, Options{Threshold: threshold, MinLength: DefaultMinLength, Progressive: true})
		p, err := c.Classify(context.Background(), chunks)
		require.NoError(t, err)

		cur := make(map[int]bool, len(p.Analyze))
		for _, s := range p.Analyze {
			cur[s.Index] = true
		}
		for idx := range cur {
			if prev != nil {
				assert.True(t, prev[idx], "chunk %d moved from skip to analyze at threshold %v", idx, threshold)
			}
		}
		prev = cur
	}
}

func TestClassify_Idempotent(t *testing.T) {
	t.Parallel()

	c := newTestClassifier(t, Options{Threshold: 8, MinLength: DefaultMinLength, Progressive: true, Workers: 3})
	chunks := testChunks(riskyText(), benignText(), riskyText(), benignText(), riskyText())

	first, err := c.Classify(context.Background(), chunks)
	require.NoError(t, err)
	second, err := c.Classify(context.Background(), chunks)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestClassify_OrderIndependentOfWorkers(t *testing.T) {
	t.Parallel()

	texts := make([]string, 40)
	for i := range texts {
		if i%3 == 0 {
			texts[i] = riskyText()
		} else {
			texts[i] = benignText()
		}
	}
	chunks := testChunks(texts...)

	serial := newTestClassifier(t, Options{Threshold: 8, MinLength: DefaultMinLength, Progressive: true, Workers: 1})
	parallel := newTestClassifier(t, Options{Threshold: 8, MinLength: DefaultMinLength, Progressive: true, Workers: 16})

	a, err := serial.Classify(context.Background(), chunks)
	require.NoError(t, err)
	b, err := parallel.Classify(context.Background(), chunks)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	decisions := b.Decisions()
	require.Len(t, decisions, 40)
	for i, d := range decisions {
		assert.Equal(t, i, d.ChunkIndex)
	}
}

func TestClassify_ProgressiveOff(t *testing.T) {
	t.Parallel()

	c := newTestClassifier(t, Options{Threshold: 1000, MinLength: DefaultMinLength, Progressive: false})
	p, err := c.Classify(context.Background(), testChunks(benignText(), "tiny", riskyText()))
	require.NoError(t, err)

	require.Len(t, p.Analyze, 2)
	require.Len(t, p.Skip, 1)
	assert.Equal(t, 1, p.Skip[0].Index)

	d := p.Decisions()
	assert.True(t, d[0].AnalyzeAll)
	assert.False(t, d[1].AnalyzeAll)
	assert.Equal(t, "too short", d[1].Explain())
}

func TestClassify_Empty(t *testing.T) {
	t.Parallel()

	c := newTestClassifier(t, Options{Threshold: 8, Progressive: true})
	p, err := c.Classify(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, p.Total())
	assert.Empty(t, p.Decisions())
}

func TestClassify_Cancelled(t *testing.T) {
	t.Parallel()

	c := newTestClassifier(t, Options{Threshold: 8, Progressive: true})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Classify(ctx, testChunks(riskyText(), benignText()))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewClassifier_Errors(t *testing.T) {
	t.Parallel()

	for _, threshold := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err := NewClassifier(testFramework(), Options{Threshold: threshold})
		assert.Error(t, err, "threshold %v", threshold)
	}

	terms := testTerms()
	terms.DataTerms = nil
	_, err := NewClassifier(stubFramework{Framework: framework.GDPR(), terms: terms}, Options{Threshold: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data_terms")
}

func TestPartition_DecisionsExplain(t *testing.T) {
	t.Parallel()

	c := newTestClassifier(t, Options{Threshold: 8, MinLength: DefaultMinLength, Progressive: true})
	p, err := c.Classify(context.Background(), testChunks(riskyText(), benignText()))
	require.NoError(t, err)

	d := p.Decisions()
	require.Len(t, d, 2)
	assert.True(t, d[0].ShouldAnalyze)
	assert.Contains(t, d[0].Explain(), ">= threshold 8.00")
	assert.False(t, d[1].ShouldAnalyze)
	assert.Contains(t, d[1].Explain(), "< threshold 8.00")
}
