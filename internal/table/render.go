package table

import (
	"strings"
	"unicode"
)

const (
	placeholder = " "
	separator   = "---"
)

// Render serializes g as a pipe-delimited table with a header separator after
// the first row. Repeated neighbouring cells collapse to a placeholder, rows
// without content and with an empty first cell are dropped, and columns that
// are empty in every remaining data row are removed. An empty grid renders as "".
func Render(g Grid) string {
	if g.Empty() {
		return ""
	}

	header := collapseRepeats(g.Rows[0])
	var data [][]string
	for _, row := range g.Rows[1:] {
		cells := collapseRepeats(row)
		if keepRow(cells) {
			data = append(data, cells)
		}
	}

	drop := emptyColumns(data, len(header))

	lines := make([]string, 0, len(data)+2)
	lines = append(lines, formatRow(header, drop))
	lines = append(lines, formatRow(repeat(separator, len(header)), drop))
	for _, cells := range data {
		lines = append(lines, formatRow(cells, drop))
	}
	return strings.Join(lines, "\n")
}

// RenderHTML is Build followed by Render.
func RenderHTML(markup string) string {
	return Render(Build(markup))
}

// collapseRepeats replaces the 2nd..nth cell of a run of equal cells with the
// placeholder. Blank cells also render as the placeholder.
func collapseRepeats(row []string) []string {
	out := make([]string, len(row))
	prev := ""
	for i, cell := range row {
		if i > 0 && cell == prev {
			out[i] = placeholder
			continue
		}
		prev = cell
		if cell == "" {
			out[i] = placeholder
		} else {
			out[i] = cell
		}
	}
	return out
}

func keepRow(cells []string) bool {
	for _, cell := range cells {
		if hasContent(cell) {
			return true
		}
	}
	return len(cells) > 0 && strings.TrimSpace(cells[0]) != ""
}

// hasContent is true when a cell holds more than whitespace, BOMs and
// replacement characters.
func hasContent(cell string) bool {
	return strings.TrimFunc(cell, func(r rune) bool {
		return r == '\ufeff' || r == '\ufffd' || unicode.IsSpace(r)
	}) != ""
}

// emptyColumns returns the set of column indexes that are blank in every data
// row. With no data rows nothing is removed.
func emptyColumns(data [][]string, cols int) map[int]bool {
	drop := make(map[int]bool)
	if len(data) == 0 {
		return drop
	}
	for col := 0; col < cols; col++ {
		empty := true
		for _, row := range data {
			if col < len(row) && strings.TrimSpace(row[col]) != "" {
				empty = false
				break
			}
		}
		if empty {
			drop[col] = true
		}
	}
	return drop
}

func formatRow(cells []string, drop map[int]bool) string {
	kept := make([]string, 0, len(cells))
	for i, cell := range cells {
		if !drop[i] {
			kept = append(kept, cell)
		}
	}
	return "| " + strings.Join(kept, " | ") + " |"
}

func repeat(s string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = s
	}
	return out
}
