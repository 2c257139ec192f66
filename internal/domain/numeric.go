package domain

import (
	"strconv"
	"strings"
)

// cleanNumeric strips the presentation of a reported figure: surrounding
// whitespace, accounting parentheses for negatives, currency signs and
// thousands separators. ok is false for blanks and dash placeholders.
func cleanNumeric(text string) (string, bool) {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return "", false
	}

	negative := false
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		cleaned = cleaned[1 : len(cleaned)-1]
		negative = true
	}

	cleaned = strings.ReplaceAll(cleaned, "$", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")

	if cleaned == "-" || cleaned == "" {
		return "", false
	}
	if negative {
		cleaned = "-" + cleaned
	}
	return cleaned, true
}

// IsNumeric reports whether text is a reported number such as "$1,200",
// "(3.5)" or "-42".
func IsNumeric(text string) bool {
	_, ok := NormalizeNumeric(text)
	return ok
}

// NormalizeNumeric returns the plain decimal form of a reported number:
// "(1,234.56)" becomes "-1234.56".
func NormalizeNumeric(text string) (string, bool) {
	cleaned, ok := cleanNumeric(text)
	if !ok {
		return "", false
	}
	if _, err := strconv.ParseFloat(cleaned, 64); err != nil {
		return "", false
	}
	return cleaned, true
}

// NormalizeValue applies the negative-in-parentheses convention to a Stage B
// value. Other values are only trimmed so they still match the source text.
func NormalizeValue(value string) string {
	v := strings.TrimSpace(value)
	if strings.HasPrefix(v, "(") && strings.HasSuffix(v, ")") {
		if n, ok := NormalizeNumeric(v); ok {
			return n
		}
	}
	return v
}
