package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/disclosure-extractor/internal/domain"
)

func TestLineExtractionMessages(t *testing.T) {
	msgs := LineExtractionMessages(domain.DocTypeEarningsCall, "Acme", "2023 Q4", "Revenue was $5 million.")
	require.Len(t, msgs, 2)
	assert.Equal(t, RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "earnings conference call")
	assert.Contains(t, msgs[0].Content, "%, USD")
	assert.NotContains(t, msgs[0].Content, "%!")
	assert.Contains(t, msgs[1].Content, "Acme")
	assert.Contains(t, msgs[1].Content, "Revenue was $5 million.")
}

func TestTableMessages(t *testing.T) {
	metric := domain.MetricDescriptor{Title: "Revenue", Unit: "$", Type: domain.MetricActual, Category: domain.CategoryFinancials}

	row := TableRowMessages(domain.DocTypeFiling8K, "Acme", "2023 Q4", "Results follow.", "| a | b |")
	assert.Contains(t, row[0].Content, "8-K")
	assert.Contains(t, row[1].Content, "Results follow.")
	assert.Contains(t, row[1].Content, "| a | b |")

	cell := TableCellMessages(domain.DocTypeFiling10Q, "Acme", "2023 Q4", "| a | b |", metric)
	assert.Contains(t, cell[0].Content, "10-Q")
	assert.Contains(t, cell[1].Content, "Title: Revenue")
	assert.Contains(t, cell[1].Content, "Category: Financials")
	assert.NotContains(t, cell[1].Content, "%!")
}

func TestClassificationMessages(t *testing.T) {
	msgs := ClassificationMessages(domain.DocTypePlain, "Acme", "2023 Q4", "the chunk", "the line")
	assert.Contains(t, msgs[0].Content, "corporate disclosure")
	assert.Contains(t, msgs[0].Content, `"%"`)
	assert.Contains(t, msgs[1].Content, "<chunk>\nthe chunk\n</chunk>")
}
