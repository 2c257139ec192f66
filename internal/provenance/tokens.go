// Package provenance traces extracted values and tables back to the source
// document they came from.
package provenance

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// wordRe keeps numbers such as "1,234.5" and contractions whole, and splits
// every other punctuation mark into its own token.
var wordRe = regexp.MustCompile(`[\p{L}\p{N}]+(?:[.,'\x{2019}][\p{L}\p{N}]+)*|[^\s\p{Z}\p{L}\p{N}]`)

// VisibleText returns the text content of markup with tags removed and
// entities decoded. Plain text passes through unchanged apart from entities.
func VisibleText(markup string) string {
	z := html.NewTokenizer(strings.NewReader(markup))
	var sb strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or a malformed tail; either way the text so far is all there is
			return sb.String()
		case html.TextToken:
			sb.Write(z.Text())
			sb.WriteByte(' ')
		}
	}
}

// TokenSet returns the set of lower-cased tokens of the visible text.
func TokenSet(markup string) map[string]struct{} {
	tokens := wordRe.FindAllString(strings.ToLower(VisibleText(markup)), -1)
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[tok] = struct{}{}
	}
	return set
}

// Overlap is the size of the intersection of two token sets.
func Overlap(a, b map[string]struct{}) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	n := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			n++
		}
	}
	return n
}
