// Package reconciler matches loose document references, typically filenames
// remembered or transcribed imperfectly, against the filenames actually on
// record. Matching is pure string work: no I/O, no store access.
package reconciler

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// AcceptThreshold is the minimum score a candidate needs to be considered a
// match
const AcceptThreshold = 0.7

// Bonuses stacked on top of the base similarity. Scores can exceed 1.0;
// they are ordinal, not probabilities.
const (
	dateBonus  = 0.3
	exactBonus = 0.5
)

var (
	datePrefixRe    = regexp.MustCompile(`^(\d{8})-`)
	trailingCopyRe  = regexp.MustCompile(`-\d+$`)
	knownExtensions = []string{".pdf", ".txt", ".md", ".doc", ".docx", ".rtf"}
)

// Match is a successful reconciliation
type Match struct {
	Candidate string
	Index     int
	Score     float64
}

// Resolve picks the best-scoring candidate for a reference, or reports that
// none clears the acceptance threshold. Ties keep the earliest candidate.
func Resolve(reference string, candidates []string) (Match, bool) {
	best := Match{Index: -1}
	for i, candidate := range candidates {
		score := Score(reference, candidate)
		if score < AcceptThreshold {
			continue
		}
		if best.Index < 0 || score > best.Score {
			best = Match{Candidate: candidate, Index: i, Score: score}
		}
	}
	return best, best.Index >= 0
}

// Score computes the similarity between a reference and a candidate. The
// base is a normalized edit-distance ratio on cleaned names, with a bonus
// when both carry the same date prefix and a larger one when the cleaned
// names are identical.
func Score(reference, candidate string) float64 {
	refName, refDate := normalize(reference)
	candName, candDate := normalize(candidate)

	score := similarity(refName, candName)
	if refDate != "" && refDate == candDate {
		score += dateBonus
	}
	if refName == candName {
		score += exactBonus
	}
	return score
}

// similarity is 1 minus the edit distance over the longer name's rune length
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 1.0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(dist)/float64(maxLen)
}

// normalize cleans a filename down to its comparable stem and extracts any
// leading YYYYMMDD date. Order matters: the extension goes first so a copy
// suffix like "-2" is exposed for stripping, and the date prefix goes last
// so it can be captured off the front.
func normalize(name string) (stem, date string) {
	s := strings.ToLower(strings.TrimSpace(name))

	for _, ext := range knownExtensions {
		if strings.HasSuffix(s, ext) {
			s = strings.TrimSuffix(s, ext)
			break
		}
	}

	s = trailingCopyRe.ReplaceAllString(s, "")

	if m := datePrefixRe.FindStringSubmatch(s); m != nil {
		date = m[1]
		s = s[len(m[0]):]
	}

	return s, date
}
