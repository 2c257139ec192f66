// Package table turns raw HTML table markup into a canonical grid and renders
// that grid as a compact pipe-delimited table for the extraction prompts.
package table

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	// nbspMarker is prefixed once per indent unit to the first cell of a row.
	nbspMarker = "&nbsp;"
	maxColSpan = 1000
)

var lineBreakRun = regexp.MustCompile(`\s*\n\s*`)

// Grid is a rectangular matrix of cell text. Indents holds the effective
// indent of every cell, although only the first column carries it in Rows.
type Grid struct {
	Rows    [][]string
	Indents [][]int
}

// Empty reports whether the grid has no rows.
func (g Grid) Empty() bool {
	return len(g.Rows) == 0
}

// Cols returns the column count shared by every row.
func (g Grid) Cols() int {
	if len(g.Rows) == 0 {
		return 0
	}
	return len(g.Rows[0])
}

// Build parses the first table in markup into a Grid. Colspans are expanded by
// repeating the cell text, indentation is folded into the first column, and
// rows holding only blanks or placeholder characters are dropped. Markup with
// no table or no rows yields an empty Grid.
func Build(markup string) Grid {
	// JSON-escaped exhibits keep literal "\n" sequences
	markup = strings.ReplaceAll(markup, `\n`, "\n")

	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return Grid{}
	}

	tbl := findFirst(doc, atom.Table)
	if tbl == nil {
		return Grid{}
	}

	var rows [][]string
	var indents [][]int
	width := 0

	for _, tr := range findAll(tbl, atom.Tr) {
		var row []string
		var rowIndents []int

		for idx, cell := range rowCells(tr) {
			text, indent := resolveCell(cell, idx == 0)
			span := colSpan(cell)
			for i := 0; i < span; i++ {
				row = append(row, text)
				rowIndents = append(rowIndents, indent)
			}
		}

		if blankRow(row) {
			continue
		}
		if len(row) > width {
			width = len(row)
		}
		rows = append(rows, row)
		indents = append(indents, rowIndents)
	}

	for i := range rows {
		for len(rows[i]) < width {
			rows[i] = append(rows[i], "")
			indents[i] = append(indents[i], 0)
		}
	}

	return Grid{Rows: rows, Indents: indents}
}

// resolveCell returns the display text of a cell and its effective indent.
func resolveCell(cell *html.Node, first bool) (string, int) {
	raw := textContent(cell)

	trimmedLeft := strings.TrimLeftFunc(raw, unicode.IsSpace)
	leading := utf8.RuneCountInString(raw) - utf8.RuneCountInString(trimmedLeft)
	nbsp := strings.Count(raw, "&nbsp;") + strings.Count(raw, "&#160;") + strings.Count(raw, "\u00a0")

	indent := max(leading, cssIndentSpaces(cellStyle(cell)), nbsp)
	text := strings.TrimRightFunc(trimmedLeft, unicode.IsSpace)
	// a wrapped cell must stay on one table line
	text = lineBreakRun.ReplaceAllString(text, " ")

	if first && indent > 0 && text != "" {
		text = strings.Repeat(nbspMarker, indent) + text
	}
	return text, indent
}

// cellStyle returns the style of the cell, falling back to its first <p>.
func cellStyle(cell *html.Node) string {
	if style := attr(cell, "style"); style != "" {
		return style
	}
	if p := findFirst(cell, atom.P); p != nil {
		return attr(p, "style")
	}
	return ""
}

func colSpan(cell *html.Node) int {
	n, err := strconv.Atoi(strings.TrimSpace(attr(cell, "colspan")))
	if err != nil || n < 1 {
		return 1
	}
	return min(n, maxColSpan)
}

func blankRow(row []string) bool {
	for _, cell := range row {
		switch strings.TrimSpace(cell) {
		case "", "\ufeff", "\ufffd":
		default:
			return false
		}
	}
	return true
}

// rowCells returns the td/th elements whose nearest enclosing row is tr.
func rowCells(tr *html.Node) []*html.Node {
	var cells []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Td, atom.Th:
				cells = append(cells, c)
			case atom.Tr:
				// nested rows are visited on their own
			default:
				walk(c)
			}
		}
	}
	walk(tr)
	return cells
}

func findFirst(n *html.Node, a atom.Atom) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			return c
		}
		if found := findFirst(c, a); found != nil {
			return found
		}
	}
	return nil
}

func findAll(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == a {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
