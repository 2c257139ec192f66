package provenance

import (
	"strings"
	"unicode/utf8"
)

// Verify returns the longest prefix of candidate that occurs verbatim in
// source. The prefix grows one character at a time and the walk stops at the
// first prefix that is missing, so later re-matches are never considered.
func Verify(source, candidate string) string {
	if source == "" || candidate == "" {
		return ""
	}

	matched := 0
	for i := range candidate {
		if i == 0 {
			continue
		}
		if !strings.Contains(source, candidate[:i]) {
			return candidate[:matched]
		}
		matched = i
	}
	if strings.Contains(source, candidate) {
		return candidate
	}
	return candidate[:matched]
}

// Coverage is the share of candidate's characters covered by its verified
// prefix, in [0, 1].
func Coverage(source, candidate string) float64 {
	n := utf8.RuneCountInString(candidate)
	if n == 0 {
		return 0
	}
	return float64(utf8.RuneCountInString(Verify(source, candidate))) / float64(n)
}
