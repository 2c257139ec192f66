package llm

import (
	"fmt"

	"github.com/spherical/disclosure-extractor/internal/domain"
)

const categoryDefinitions = `- Financials: standard financial statement items (revenue, operating income, net income, EPS, cash flow) and growth rates derived from them. Always actual results.
- KPI: operational or non-GAAP indicators (customer counts, ARPU, retention, store count, segment revenue). Actual results.
- Guidance: forward-looking expectations, signalled by words such as "expects", "anticipates", "outlook", "will be".`

const lineExtractionSystem = `<task>
You are a financial analyst reviewing %s.
Read one sentence (the "line") and extract every company-level performance metric it states with a value.
Only metrics describing overall corporate performance count; skip individual or departmental figures.
</task>

<categories>
%s
</categories>

<guideline>
For each metric in the line return its descriptive title, its value exactly as written, and its unit (e.g. %%, USD, million, bps).
If the line holds no metric, return empty lists. The three lists must have the same length.
</guideline>

<format>
{"titles": ["Metric 1", ...], "values": ["Value 1", ...], "units": ["Unit 1", ...]}
</format>`

const lineExtractionUser = `Extract the business performance metrics stated in the line.

<company>
%s
</company>

<year_and_quarter>
%s
</year_and_quarter>

<line>
%s
</line>`

const classificationSystem = `<task>
You are a financial analyst reviewing a sentence (the "line") from %s.
Decide whether the line states a performance metric, classify it, and find its period and unit.
The surrounding "chunk" of the same document is given as context.
</task>

<categories>
%s
</categories>

<criteria>
- type_: "actual" for past results, "expected" for projections, "None" when unclear.
- period: "YYYY QN", "YYYY Full Year", "(Expected) YYYY QN" or "(Expected) YYYY Full Year"; "None" if unknown.
- unit: e.g. "$", "%%", "bps", "millions"; "None" if not applicable.
- category: "Financials", "KPI", "Guidance" or "Unclear".
</criteria>

<format>
{"title": "copy of the metric title", "type_": "...", "period": "...", "unit": "...", "category": "..."}
</format>`

const classificationUser = `Classify the metric in the line using the chunk and the reporting period.

<company>
%s
</company>

<reporting_quarter>
%s
</reporting_quarter>

<chunk>
%s
</chunk>

<line>
%s
</line>`

const tableRowSystem = `<task>
You are a financial analyst reviewing a table from %s.
This is the first of two stages: list every metric (row) the table reports.
</task>

<guideline>
1. Titles come from the row header. When column headers split one metric into several measures, combine row and column header into one title per measure (e.g. "Total Revenue" and "Total Revenue (percentage)").
2. Resolve row hierarchy: a header row without values names the metric of the rows below it ("Food & Beverage Revenue"). Each segment is a distinct metric.
3. type_: "actual" for reported results, "expected" for guidance, estimates or outlook, otherwise "None".
4. unit: from the cells, the title or a unit note elsewhere in the table; "None" if there is none. The same metric in two units is two metrics.
5. category: "Financials", "KPI", "Guidance" or "Unclear".
Merged cells were split horizontally, so adjacent cells may belong together. "&nbsp;" prefixes mark indented rows.
</guideline>

<categories>
%s
</categories>

<format>
{"data": [{"title": "...", "unit": "...", "type_": "...", "category": "..."}]}
</format>`

const tableRowUser = `Analyze the following table.

<company_name>
%s
</company_name>

<reporting_quarter>
%s
</reporting_quarter>

<context>
%s
</context>

<table>
%s
</table>`

const tableCellSystem = `<task>
You are a financial analyst reviewing a table from %s.
This is the second of two stages: for one given metric, list every value the table reports and the period of each.
</task>

<guideline>
1. Values: take every cell belonging to the metric. Join cells a split merge separated. Drop the unit. Write negatives in parentheses as -N. Use "None" when a cell has no numeric value.
2. Periods: read the column header (or the nearest non-empty header to the left) and normalise to "YYYY QN" or "YYYY Full Year"; prefix "(Expected) " for expected metrics. "Three months ended" and "Year ended" headers map to quarters and full years. Use "None" if unknown.
3. Return each (value, period) pair once.
</guideline>

<format>
{"data": [{"value": "...", "period": "..."}]}
</format>`

const tableCellUser = `Extract all values and periods for the metric below.

<company_name>
%s
</company_name>

<reporting_quarter>
%s
</reporting_quarter>

<metric>
Title: %s
Unit: %s
Type: %s
Category: %s
</metric>

<table>
%s
</table>`

// documentLabel describes a document type inside prompts.
func documentLabel(docType domain.DocType) string {
	switch docType {
	case domain.DocTypeEarningsCall:
		return "an earnings conference call transcript"
	case domain.DocTypeFiling10K:
		return "a 10-K annual report"
	case domain.DocTypeFiling10Q:
		return "a 10-Q quarterly report"
	case domain.DocTypeFilingDEF14A:
		return "a DEF 14A proxy statement"
	case domain.DocTypeFiling8K:
		return "an 8-K report or earnings release"
	default:
		return "a corporate disclosure"
	}
}

// LineExtractionMessages asks for the (title, value, unit) triples of one
// sentence. Answer with SchemaExtracted.
func LineExtractionMessages(docType domain.DocType, company, quarter, line string) []Message {
	return []Message{
		{Role: RoleSystem, Content: fmt.Sprintf(lineExtractionSystem, documentLabel(docType), categoryDefinitions)},
		{Role: RoleUser, Content: fmt.Sprintf(lineExtractionUser, company, quarter, line)},
	}
}

// ClassificationMessages asks for type, period, unit and category of a
// metric found in line. Answer with SchemaClassification.
func ClassificationMessages(docType domain.DocType, company, quarter, chunk, line string) []Message {
	return []Message{
		{Role: RoleSystem, Content: fmt.Sprintf(classificationSystem, documentLabel(docType), categoryDefinitions)},
		{Role: RoleUser, Content: fmt.Sprintf(classificationUser, company, quarter, chunk, line)},
	}
}

// TableRowMessages asks for the metrics of a rendered table. Answer with
// SchemaMetricList.
func TableRowMessages(docType domain.DocType, company, quarter, preceding, table string) []Message {
	return []Message{
		{Role: RoleSystem, Content: fmt.Sprintf(tableRowSystem, documentLabel(docType), categoryDefinitions)},
		{Role: RoleUser, Content: fmt.Sprintf(tableRowUser, company, quarter, preceding, table)},
	}
}

// TableCellMessages asks for the (value, period) pairs of one metric in a
// rendered table. Answer with SchemaCellList.
func TableCellMessages(docType domain.DocType, company, quarter, table string, metric domain.MetricDescriptor) []Message {
	return []Message{
		{Role: RoleSystem, Content: fmt.Sprintf(tableCellSystem, documentLabel(docType))},
		{Role: RoleUser, Content: fmt.Sprintf(tableCellUser, company, quarter,
			metric.Title, metric.Unit, metric.Type, metric.Category, table)},
	}
}
