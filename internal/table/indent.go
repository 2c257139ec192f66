package table

import (
	"regexp"
	"strconv"
)

const (
	pxPerPt    = 1.33
	pxPerEm    = 16
	pxPerSpace = 8
)

const cssLength = `(-?\d+(?:\.\d+)?)(pt|px|em|rem)?`

var (
	paddingLeftRe = regexp.MustCompile(`padding-left:\s*` + cssLength)
	textIndentRe  = regexp.MustCompile(`text-indent:\s*` + cssLength)
	marginLeftRe  = regexp.MustCompile(`margin-left:\s*` + cssLength)

	// padding: top right bottom left
	padding4Re = regexp.MustCompile(`padding:\s*` + cssLength + `\s+` + cssLength + `\s+` + cssLength + `\s+` + cssLength)
	// padding: vertical horizontal
	padding2Re = regexp.MustCompile(`padding:\s*` + cssLength + `\s+` + cssLength)
)

// cssIndentSpaces converts the horizontal indent declared in an inline style
// into a count of space units. Padding wins over text-indent, which wins over
// margin-left; a non-positive value falls through to the next property.
func cssIndentSpaces(style string) int {
	if style == "" {
		return 0
	}

	px := paddingPx(style)
	if px <= 0 {
		px = lengthPx(textIndentRe.FindStringSubmatch(style), 1)
	}
	if px <= 0 {
		px = lengthPx(marginLeftRe.FindStringSubmatch(style), 1)
	}
	if px <= 0 {
		return 0
	}
	return px / pxPerSpace
}

// paddingPx reads the left padding from the first padding form present.
func paddingPx(style string) int {
	if m := paddingLeftRe.FindStringSubmatch(style); m != nil {
		return lengthPx(m, 1)
	}
	if m := padding4Re.FindStringSubmatch(style); m != nil {
		return lengthPx(m, 7)
	}
	if m := padding2Re.FindStringSubmatch(style); m != nil {
		return lengthPx(m, 3)
	}
	return 0
}

// lengthPx converts the number at group i and the unit at group i+1 to whole
// pixels. A missing unit is read as px.
func lengthPx(m []string, i int) int {
	if m == nil {
		return 0
	}
	v, err := strconv.ParseFloat(m[i], 64)
	if err != nil {
		return 0
	}

	switch m[i+1] {
	case "pt":
		v *= pxPerPt
	case "em", "rem":
		v *= pxPerEm
	}

	if v <= 0 {
		return 0
	}
	return int(v)
}
