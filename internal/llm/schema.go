package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/kaptinlin/jsonrepair"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/spherical/disclosure-extractor/internal/domain"
)

// Schema names one of the structured responses a call can ask for.
type Schema string

const (
	SchemaExtracted      Schema = "ExtractedOutput"
	SchemaClassification Schema = "ClassificationOutput"
	SchemaMetricList     Schema = "MetricListOutput"
	SchemaCellList       Schema = "CellListOutput"
)

// Output is a decoded structured response. Only the four schema types below
// implement it.
type Output interface {
	Schema() Schema
}

// ExtractedOutput lists the metrics found in one sentence. The three slices
// are parallel.
type ExtractedOutput struct {
	Titles []string     `json:"titles"`
	Values []FlexString `json:"values"`
	Units  []string     `json:"units"`
}

// ClassificationOutput describes a single metric found in prose.
type ClassificationOutput struct {
	Title    string `json:"title,omitempty"`
	Type     string `json:"type_"`
	Period   string `json:"period"`
	Unit     string `json:"unit"`
	Category string `json:"category"`
}

// MetricOutput is one row-level metric found in a table.
type MetricOutput struct {
	Title    string `json:"title"`
	Unit     string `json:"unit"`
	Type     string `json:"type_"`
	Category string `json:"category"`
}

// MetricListOutput is the row-wise table response.
type MetricListOutput struct {
	Data []MetricOutput `json:"data"`
}

// CellOutput is one value of a metric and the period it belongs to.
type CellOutput struct {
	Value  FlexString `json:"value"`
	Period string     `json:"period"`
}

// CellListOutput is the cell-wise table response.
type CellListOutput struct {
	Data []CellOutput `json:"data"`
}

func (ExtractedOutput) Schema() Schema      { return SchemaExtracted }
func (ClassificationOutput) Schema() Schema { return SchemaClassification }
func (MetricListOutput) Schema() Schema     { return SchemaMetricList }
func (CellListOutput) Schema() Schema       { return SchemaCellList }

// FlexString accepts a JSON string, number or null. Models often emit bare
// numbers where a value string was asked for; the literal digits are kept.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*f = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("value must be a string or number: %w", err)
		}
		*f = FlexString(n.String())
	}
	return nil
}

var (
	str       = map[string]any{"type": "string"}
	flexValue = map[string]any{"type": []any{"string", "number", "null"}}

	jsonSchemas = map[Schema]map[string]any{
		SchemaExtracted: {
			"type":     "object",
			"required": []any{"titles", "values", "units"},
			"properties": map[string]any{
				"titles": map[string]any{"type": "array", "items": str},
				"values": map[string]any{"type": "array", "items": flexValue},
				"units":  map[string]any{"type": "array", "items": str},
			},
		},
		SchemaClassification: {
			"type":     "object",
			"required": []any{"type_", "period", "unit", "category"},
			"properties": map[string]any{
				"title":    str,
				"type_":    str,
				"period":   str,
				"unit":     str,
				"category": str,
			},
		},
		SchemaMetricList: {
			"type":     "object",
			"required": []any{"data"},
			"properties": map[string]any{
				"data": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type":     "object",
						"required": []any{"title", "unit", "type_", "category"},
						"properties": map[string]any{
							"title":    str,
							"unit":     str,
							"type_":    str,
							"category": str,
						},
					},
				},
			},
		},
		SchemaCellList: {
			"type":     "object",
			"required": []any{"data"},
			"properties": map[string]any{
				"data": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type":     "object",
						"required": []any{"value", "period"},
						"properties": map[string]any{
							"value":  flexValue,
							"period": str,
						},
					},
				},
			},
		},
	}

	compileOnce sync.Once
	compiled    map[Schema]*jsonschema.Schema
	compileErr  error
)

// JSONSchema returns the JSON Schema document for s, for backends that can
// constrain generation with it.
func JSONSchema(s Schema) (map[string]any, bool) {
	m, ok := jsonSchemas[s]
	return m, ok
}

func compiledSchema(s Schema) (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiled = make(map[Schema]*jsonschema.Schema, len(jsonSchemas))
		for name, m := range jsonSchemas {
			b, err := json.Marshal(m)
			if err != nil {
				compileErr = fmt.Errorf("marshal schema %s: %w", name, err)
				return
			}
			url := string(name) + ".json"
			compiler := jsonschema.NewCompiler()
			if err := compiler.AddResource(url, bytes.NewReader(b)); err != nil {
				compileErr = fmt.Errorf("add schema %s: %w", name, err)
				return
			}
			sch, err := compiler.Compile(url)
			if err != nil {
				compileErr = fmt.Errorf("compile schema %s: %w", name, err)
				return
			}
			compiled[name] = sch
		}
	})
	if compileErr != nil {
		return nil, compileErr
	}
	sch, ok := compiled[s]
	if !ok {
		return nil, fmt.Errorf("unknown schema %q", s)
	}
	return sch, nil
}

// Decode turns a raw model reply into the Output for schema. Code fences are
// stripped, malformed JSON is repaired once, and the result must validate
// against the schema before it is decoded.
func Decode(schema Schema, raw string) (Output, error) {
	text := stripCodeFences(strings.TrimSpace(raw))
	if text == "" {
		return nil, domain.ParseError("empty response", nil)
	}

	if !json.Valid([]byte(text)) {
		repaired, err := jsonrepair.JSONRepair(text)
		if err != nil {
			return nil, domain.ParseError("response is not JSON", err)
		}
		text = repaired
	}

	sch, err := compiledSchema(schema)
	if err != nil {
		return nil, domain.ParseError("schema unavailable", err)
	}

	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, domain.ParseError("decode response", err)
	}
	if err := sch.Validate(doc); err != nil {
		return nil, domain.ParseError(fmt.Sprintf("response does not match %s", schema), err)
	}

	var out Output
	switch schema {
	case SchemaExtracted:
		var v ExtractedOutput
		err = json.Unmarshal([]byte(text), &v)
		if err == nil && (len(v.Titles) != len(v.Values) || len(v.Titles) != len(v.Units)) {
			err = fmt.Errorf("titles, values and units differ in length (%d/%d/%d)",
				len(v.Titles), len(v.Values), len(v.Units))
		}
		out = v
	case SchemaClassification:
		var v ClassificationOutput
		err = json.Unmarshal([]byte(text), &v)
		out = v
	case SchemaMetricList:
		var v MetricListOutput
		err = json.Unmarshal([]byte(text), &v)
		out = v
	case SchemaCellList:
		var v CellListOutput
		err = json.Unmarshal([]byte(text), &v)
		out = v
	}
	if err != nil {
		return nil, domain.ParseError(fmt.Sprintf("decode %s", schema), err)
	}
	return out, nil
}

// stripCodeFences removes a surrounding ```json ... ``` block, if present.
func stripCodeFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
