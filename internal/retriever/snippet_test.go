package retriever

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestExtractSnippetCentersOnMatch(t *testing.T) {
	result := extractSnippet("AAAA needle BBBB", []string{"needle"}, 4)
	assert.Equal(t, "…A needle B…", result.Snippet)
	assert.Equal(t, 3, result.TextStart)
	assert.Equal(t, 13, result.TextEnd)
}

func TestExtractSnippetNoTruncation(t *testing.T) {
	text := "short needle text"
	result := extractSnippet(text, []string{"needle"}, 100)
	assert.Equal(t, text, result.Snippet)
	assert.Equal(t, 0, result.TextStart)
	assert.Equal(t, len(text), result.TextEnd)
}

func TestExtractSnippetMatchAtStart(t *testing.T) {
	result := extractSnippet("needle then a long tail of text", []string{"needle"}, 8)
	assert.Equal(t, "needle the…", result.Snippet)
	assert.Equal(t, 0, result.TextStart)
	assert.Equal(t, 10, result.TextEnd)
}

func TestExtractSnippetMatchAtEnd(t *testing.T) {
	text := "a long head of text then needle"
	result := extractSnippet(text, []string{"needle"}, 8)
	assert.Equal(t, "…hen needle", result.Snippet)
	assert.Equal(t, len(text), result.TextEnd)
}

func TestExtractSnippetCaseInsensitive(t *testing.T) {
	result := extractSnippet("The Defendant Moved To Suppress", []string{"suppress"}, 100)
	assert.Contains(t, result.Snippet, "Suppress")
}

func TestExtractSnippetNoMatchReturnsHead(t *testing.T) {
	text := strings.Repeat("x", 500)
	result := extractSnippet(text, []string{"absent"}, 100)
	assert.Equal(t, 0, result.TextStart)
	assert.Equal(t, 200, result.TextEnd)
	assert.Equal(t, strings.Repeat("x", 200)+"…", result.Snippet)
}

func TestExtractSnippetNoMatchDefaultBudget(t *testing.T) {
	text := strings.Repeat("x", 500)
	result := extractSnippet(text, []string{"absent"}, DefaultContextChars)
	assert.Equal(t, 0, result.TextStart)
	assert.Equal(t, 300, result.TextEnd)
}

func TestExtractSnippetNoMatchShortText(t *testing.T) {
	result := extractSnippet("tiny", []string{"absent"}, 100)
	assert.Equal(t, "tiny", result.Snippet)
	assert.Equal(t, 4, result.TextEnd)
}

func TestExtractSnippetEarliestTermWins(t *testing.T) {
	text := "first comes warrant, much later comes suppression"
	result := extractSnippet(text, []string{"suppression", "warrant"}, 10)
	assert.Contains(t, result.Snippet, "warrant")
	assert.Equal(t, 12-5, result.TextStart)
}

func TestExtractSnippetRuneBoundaries(t *testing.T) {
	text := "§§§§ needle §§§§"
	result := extractSnippet(text, []string{"needle"}, 4)
	// Offsets land on rune boundaries so the snippet is valid UTF-8
	assert.True(t, utf8.ValidString(result.Snippet))
	assert.Contains(t, result.Snippet, "needle")
}

func TestOffsetsBoundSnippetBody(t *testing.T) {
	text := "AAAA needle BBBB"
	result := extractSnippet(text, []string{"needle"}, 4)
	body := strings.Trim(result.Snippet, "…")
	assert.Equal(t, text[result.TextStart:result.TextEnd], body)
}

func TestQueryTerms(t *testing.T) {
	assert.Equal(t, []string{"traffic", "stop"}, queryTerms(`"traffic stop"`))
	assert.Equal(t, []string{"a", "b"}, queryTerms("a b"))
	assert.Empty(t, queryTerms(""))
}
