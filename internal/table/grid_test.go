package table

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const incomeStatement = `
<table>
<tr><td></td><td colspan="2">Year Ended December 31</td></tr>
<tr><td></td><td>2023</td><td>2022</td></tr>
<tr><td>Revenue</td><td>$100</td><td>$90</td></tr>
<tr><td style="padding-left:16px">Cost of sales</td><td>(40)</td><td>(35)</td></tr>
<tr><td> </td><td></td></tr>
</table>`

func TestBuild_ExpandsColspanAndDropsBlankRows(t *testing.T) {
	g := Build(incomeStatement)

	require.Len(t, g.Rows, 4)
	assert.Equal(t, []string{"", "Year Ended December 31", "Year Ended December 31"}, g.Rows[0])
	assert.Equal(t, []string{"", "2023", "2022"}, g.Rows[1])
	assert.Equal(t, []string{"Revenue", "$100", "$90"}, g.Rows[2])
	assert.Equal(t, []string{"&nbsp;&nbsp;Cost of sales", "(40)", "(35)"}, g.Rows[3])
}

func TestBuild_Rectangular(t *testing.T) {
	markup := `<table>
<tr><td>a</td></tr>
<tr><td>b</td><td colspan="4">c</td></tr>
<tr><td>d</td><td>e</td></tr>
</table>`
	g := Build(markup)

	require.Len(t, g.Rows, 3)
	for i, row := range g.Rows {
		assert.Len(t, row, 5, "row %d", i)
		assert.Len(t, g.Indents[i], 5, "indents row %d", i)
	}
	assert.Equal(t, 5, g.Cols())
	assert.Equal(t, []string{"b", "c", "c", "c", "c"}, g.Rows[1])
}

func TestBuild_NoTable(t *testing.T) {
	assert.True(t, Build("<p>Revenue grew</p>").Empty())
	assert.True(t, Build("").Empty())
	assert.True(t, Build("<table></table>").Empty())
}

func TestBuild_PlaceholderRowsDropped(t *testing.T) {
	markup := "<table><tr><td>\ufeff</td><td>\ufffd</td></tr><tr><td>x</td></tr></table>"
	g := Build(markup)

	require.Len(t, g.Rows, 1)
	assert.Equal(t, "x", g.Rows[0][0])
}

func TestBuild_IndentFromNbspAndLeadingSpace(t *testing.T) {
	markup := `<table>
<tr><td style="padding-left:8px">&nbsp;&nbsp;&nbsp;Net income</td><td>5</td></tr>
<tr><td><p style="padding-left:32px">Diluted</p></td><td>6</td></tr>
<tr><td>Total</td><td style="padding-left:32px">7</td></tr>
</table>`
	g := Build(markup)

	require.Len(t, g.Rows, 3)
	assert.Equal(t, strings.Repeat("&nbsp;", 3)+"Net income", g.Rows[0][0])
	assert.Equal(t, strings.Repeat("&nbsp;", 4)+"Diluted", g.Rows[1][0])
	assert.Equal(t, "7", g.Rows[2][1], "indent applies to the first column only")
	assert.Equal(t, 4, g.Indents[2][1])
}

func TestBuild_EscapedNewlinesAndWrappedCells(t *testing.T) {
	markup := `<table><tr><td>Operating\nincome</td><td>1</td></tr></table>`
	g := Build(markup)

	require.Len(t, g.Rows, 1)
	assert.Equal(t, "Operating income", g.Rows[0][0])
}

func TestCSSIndentSpaces(t *testing.T) {
	tests := []struct {
		style string
		want  int
	}{
		{"", 0},
		{"padding-left: 24px", 3},
		{"padding-left:1.5em", 3},
		{"padding: 0pt 0pt 0pt 12pt", 1},
		{"padding: 2px 32px", 4},
		{"text-indent: 1em", 2},
		{"margin-left: 2rem", 4},
		{"padding-left: 0px; text-indent: 24px", 3},
		{"padding-left: 8px; margin-left: 80px", 1},
		{"margin-left: -10px", 0},
		{"font-weight: bold", 0},
	}

	for _, tt := range tests {
		t.Run(tt.style, func(t *testing.T) {
			assert.Equal(t, tt.want, cssIndentSpaces(tt.style))
		})
	}
}
