package chunk

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// abbreviations never end a sentence.
var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "prof": true, "sr": true, "jr": true,
	"inc": true, "corp": true, "co": true, "ltd": true, "llc": true, "plc": true,
	"vs": true, "etc": true, "approx": true, "no": true, "st": true,
	"jan": true, "feb": true, "mar": true, "apr": true, "jun": true, "jul": true,
	"aug": true, "sep": true, "sept": true, "oct": true, "nov": true, "dec": true,
	"e.g": true, "i.e": true, "u.s": true, "u.k": true,
}

// Sentences splits text into lines and each line into sentences. A sentence
// ends at '.', '!' or '?' followed by whitespace and an upper-case letter,
// digit or opening quote, unless the word before the period is a known
// abbreviation or a single letter. Sentences are NFKC-normalized.
func Sentences(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		for _, s := range splitLine(line) {
			s = strings.TrimSpace(norm.NFKC.String(s))
			if s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func splitLine(line string) []string {
	runes := []rune(line)
	var out []string
	start := 0

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}

		// closing quotes and brackets stay with the sentence
		end := i + 1
		for end < len(runes) && strings.ContainsRune("\"')]\u201d\u2019", runes[end]) {
			end++
		}

		next := end
		for next < len(runes) && unicode.IsSpace(runes[next]) {
			next++
		}
		if next == end || next >= len(runes) {
			continue
		}
		if !startsSentence(runes[next]) {
			continue
		}
		if r == '.' && isAbbreviation(runes[start:i]) {
			continue
		}

		out = append(out, string(runes[start:end]))
		start = next
		i = next - 1
	}

	if start < len(runes) {
		out = append(out, string(runes[start:]))
	}
	return out
}

func startsSentence(r rune) bool {
	return unicode.IsUpper(r) || unicode.IsDigit(r) || r == '"' || r == '\u201c' || r == '$'
}

// isAbbreviation reports whether the word ending right before a period is an
// abbreviation.
func isAbbreviation(before []rune) bool {
	j := len(before)
	for j > 0 && !unicode.IsSpace(before[j-1]) {
		j--
	}
	word := strings.ToLower(strings.TrimLeft(string(before[j:]), `("'`))
	if word == "" {
		return false
	}
	if len([]rune(word)) == 1 && unicode.IsLetter([]rune(word)[0]) {
		return true
	}
	return abbreviations[word]
}
