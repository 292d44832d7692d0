package retriever

import (
	"strings"
	"unicode/utf8"
)

// snippetResult carries an extracted snippet and its byte offsets into the
// page text. The offsets bound the snippet text itself, not the ellipses.
type snippetResult struct {
	Snippet   string
	TextStart int
	TextEnd   int
}

// extractSnippet produces a short excerpt of text centered on the first
// occurrence of any query term, with half the context budget on each side of
// the matched term. Ellipses mark truncation at either end. When no term
// occurs literally (stemmed FTS matches can do this), the head of the page is
// returned instead.
func extractSnippet(text string, terms []string, contextChars int) snippetResult {
	pos, matched := findFirstTerm(text, terms)
	if pos < 0 {
		end := snapRuneEnd(text, min(len(text), 2*contextChars))
		snippet := text[:end]
		if end < len(text) {
			snippet += "…"
		}
		return snippetResult{Snippet: snippet, TextStart: 0, TextEnd: end}
	}

	half := contextChars / 2
	start := snapRuneStart(text, max(0, pos-half))
	end := snapRuneEnd(text, min(len(text), pos+len(matched)+half))

	snippet := text[start:end]
	if start > 0 {
		snippet = "…" + snippet
	}
	if end < len(text) {
		snippet += "…"
	}
	return snippetResult{Snippet: snippet, TextStart: start, TextEnd: end}
}

// findFirstTerm returns the byte position of the earliest case-insensitive
// occurrence of any term, and the slice of text it matched. Ties on position
// go to the longer term.
func findFirstTerm(text string, terms []string) (int, string) {
	lower := strings.ToLower(text)
	bestPos := -1
	bestLen := 0
	for _, term := range terms {
		t := strings.ToLower(term)
		if t == "" {
			continue
		}
		idx := strings.Index(lower, t)
		if idx < 0 {
			continue
		}
		if bestPos < 0 || idx < bestPos || (idx == bestPos && len(t) > bestLen) {
			bestPos = idx
			bestLen = len(t)
		}
	}
	if bestPos < 0 {
		return -1, ""
	}
	return bestPos, text[bestPos : bestPos+bestLen]
}

// snapRuneStart moves a byte offset back to the nearest rune boundary
func snapRuneStart(s string, i int) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}

// snapRuneEnd moves a byte offset forward to the nearest rune boundary
func snapRuneEnd(s string, i int) int {
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return i
}

// queryTerms splits a sanitized match query into literal terms for snippet
// positioning, dropping quoting added for FTS
func queryTerms(cleaned string) []string {
	fields := strings.Fields(strings.ReplaceAll(cleaned, `"`, " "))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			terms = append(terms, f)
		}
	}
	return terms
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
