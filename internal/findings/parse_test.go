package findings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/compliance-cli/internal/framework"
	"github.com/sells-group/compliance-cli/internal/model"
)

func TestParseIssues_JSONObject(t *testing.T) {
	t.Parallel()

	resp := `{"issues": [
		{"issue": "Personal data retained indefinitely", "regulation": "Art. 5(1)(e)", "confidence": "high",
		 "explanation": "No retention limit is stated.", "citation": "We keep your data forever"},
		{"issue": "short", "regulation": "Art. 7"}
	]}`

	res := ParseIssues(resp, "Section 3", 2, framework.GDPR())
	require.True(t, res.OK())
	assert.Equal(t, FormatJSONObject, res.Format)
	require.Len(t, res.Issues, 1)

	f := res.Issues[0]
	assert.Equal(t, "Personal data retained indefinitely", f.Issue)
	assert.Equal(t, "Article 5(1)(e)", f.Regulation)
	assert.Equal(t, model.ConfidenceHigh, f.Confidence)
	assert.Equal(t, "No retention limit is stated.", f.Explanation)
	assert.Equal(t, `"We keep your data forever"`, f.Citation)
	assert.Equal(t, "Section 3", f.Section)
	assert.Equal(t, 2, f.ChunkIndex)
}

func TestParseIssues_Violations(t *testing.T) {
	t.Parallel()

	resp := `{"violations": [{"description": "Consent bundled with terms", "regulation": "Article 7(2)", "quote": "\"By using the site you agree\""}]}`

	res := ParseIssues(resp, "Intro", 0, framework.GDPR())
	require.True(t, res.OK())
	require.Len(t, res.Issues, 1)
	assert.Equal(t, "Consent bundled with terms", res.Issues[0].Issue)
	assert.Equal(t, model.ConfidenceMedium, res.Issues[0].Confidence)
	assert.Equal(t, `"By using the site you agree"`, res.Issues[0].Citation)
}

func TestParseIssues_EmptyIssueList(t *testing.T) {
	t.Parallel()

	res := ParseIssues(`{"issues": []}`, "S", 0, nil)
	assert.True(t, res.OK())
	assert.NotNil(t, res.Issues)
	assert.Empty(t, res.Issues)
}

func TestParseIssues_ArrayOfTriples(t *testing.T) {
	t.Parallel()

	resp := `[["Data shared with advertisers without consent", "Art 6", "we share data with partners"],
	          ["Tiny", "Art 5", "x"],
	          ["No erasure mechanism offered", "Article 17", ""]]`

	res := ParseIssues(resp, "S2", 1, framework.GDPR())
	require.True(t, res.OK())
	assert.Equal(t, FormatJSONArray, res.Format)
	require.Len(t, res.Issues, 2)
	assert.Equal(t, "Article 6", res.Issues[0].Regulation)
	assert.Equal(t, `"we share data with partners"`, res.Issues[0].Citation)
	assert.Equal(t, NoQuote, res.Issues[1].Citation)
}

func TestParseIssues_ArrayOfObjectsInProse(t *testing.T) {
	t.Parallel()

	resp := "Here is my analysis [see below]:\n```json\n" +
		`[{"issue": "Retention period not defined", "regulation": "Article 5", "confidence": "Low"},` +
		` {"issue": "Security measures deferred", "regulation": "Article 32", "confidence": "High"}]` +
		"\n```\nLet me know if you need more."

	res := ParseIssues(resp, "S", 0, framework.GDPR())
	require.True(t, res.OK())
	assert.Equal(t, FormatEmbeddedJSON, res.Format)
	require.Len(t, res.Issues, 2)
	assert.Equal(t, "Security measures deferred", res.Issues[1].Issue)
}

func TestParseIssues_CodeFence(t *testing.T) {
	t.Parallel()

	resp := "```json\n{\"issues\": [{\"issue\": \"Automatic enrollment in marketing\", \"regulation\": \"art 7\"}]}\n```"
	res := ParseIssues(resp, "S", 0, framework.GDPR())
	require.True(t, res.OK())
	assert.Equal(t, FormatJSONObject, res.Format)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, "Article 7", res.Issues[0].Regulation)
}

func TestParseIssues_RegexFallback(t *testing.T) {
	t.Parallel()

	resp := `Violations found:
["Data kept with no deletion policy", "Article 5(1)(e)", "retained as long as needed"]
['Users cannot withdraw consent', 'Article 7(3)', 'consent is irrevocable']
["Mixed quoting is tolerated too", 'Article 12', "hard to read"],
and an invalid trailing comma makes this not JSON.`

	res := ParseIssues(resp, "S", 4, framework.GDPR())
	require.True(t, res.OK())
	assert.Equal(t, FormatTextTriples, res.Format)
	require.Len(t, res.Issues, 3)
	assert.Equal(t, "Users cannot withdraw consent", res.Issues[1].Issue)
	assert.Equal(t, `"consent is irrevocable"`, res.Issues[1].Citation)
	assert.Equal(t, "Article 12", res.Issues[2].Regulation)
	assert.Equal(t, 4, res.Issues[2].ChunkIndex)
}

func TestParseIssues_Unparseable(t *testing.T) {
	t.Parallel()

	for _, resp := range []string{"", "The section looks compliant to me.", "{not json", "Issues: none"} {
		res := ParseIssues(resp, "S", 0, nil)
		assert.False(t, res.OK(), resp)
		assert.ErrorIs(t, res.Err, ErrUnparseable)
		assert.NotNil(t, res.Issues)
		assert.Empty(t, res.Issues)
	}
}

func TestParseIssues_BracketedNumbersAreNotAnAnswer(t *testing.T) {
	t.Parallel()

	for _, resp := range []string{
		"The policy is vague here, see note [1] for the retention clause.",
		"Sections [2, 3] look fine but I cannot say more.",
		"[1]",
		`{"issues": [1, 2]}`,
	} {
		res := ParseIssues(resp, "S", 0, nil)
		assert.False(t, res.OK(), resp)
		assert.ErrorIs(t, res.Err, ErrUnparseable, resp)
		assert.Empty(t, res.Issues, resp)
	}

	res := ParseIssues("Nothing to report: []", "S", 0, nil)
	require.True(t, res.OK())
	assert.Equal(t, FormatEmbeddedJSON, res.Format)
	assert.Empty(t, res.Issues)
}

func TestParseIssues_SkipsMalformedItems(t *testing.T) {
	t.Parallel()

	resp := `[42, "text", {"issue": ""}, ["a", "b"], {"issue": "Valid finding here", "confidence": 0.9}]`
	res := ParseIssues(resp, "S", 0, nil)
	require.True(t, res.OK())
	require.Len(t, res.Issues, 1)
	assert.Equal(t, "Valid finding here", res.Issues[0].Issue)
	assert.Equal(t, model.Confidence("0.9"), res.Issues[0].Confidence)
}

func TestWrapQuote(t *testing.T) {
	t.Parallel()

	assert.Equal(t, NoQuote, WrapQuote("  "))
	assert.Equal(t, `"abc"`, WrapQuote("abc"))
	assert.Equal(t, `"abc"`, WrapQuote(`"abc"`))
	assert.Equal(t, `"abc"`, WrapQuote("“abc”"))
}

func TestExtractJSONArray(t *testing.T) {
	t.Parallel()

	got, ok := ExtractJSONArray(`prefix [1, "]", [2, 3]] suffix`)
	require.True(t, ok)
	assert.Equal(t, `[1, "]", [2, 3]]`, got)

	_, ok = ExtractJSONArray("[unterminated")
	assert.False(t, ok)

	got, ok = ExtractJSONArray("[broken then [1]")
	require.True(t, ok)
	assert.Equal(t, "[1]", got)
}

func TestStripCodeFence(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `{"a":1}`, StripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `[1]`, StripCodeFence("```\n[1]\n```"))
	assert.Equal(t, `[1]`, StripCodeFence("```[1]```"))
	assert.Equal(t, "plain", StripCodeFence("  plain "))
}
