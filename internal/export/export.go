// Package export writes extracted records as JSONL, CSV or XLSX.
package export

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spherical/disclosure-extractor/internal/domain"
)

// Format is an output file format.
type Format string

const (
	FormatJSONL Format = "jsonl"
	FormatCSV   Format = "csv"
	FormatXLSX  Format = "xlsx"
)

// Formats lists the supported formats.
var Formats = []Format{FormatJSONL, FormatCSV, FormatXLSX}

// columns is the column order of the tabular formats.
var columns = []string{"index", "title", "value", "unit", "period", "type_", "category", "reference"}

// ParseFormat parses a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", domain.ValidationError(fmt.Sprintf("unsupported output format %q", s), nil)
}

// FormatFromPath guesses the format from a file extension. Unknown
// extensions fall back to JSONL.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case ".xlsx":
		return FormatXLSX
	default:
		return FormatJSONL
	}
}

// NewWriter returns a RecordWriter for format that writes to w.
func NewWriter(format Format, w io.Writer) (domain.RecordWriter, error) {
	switch format {
	case FormatJSONL:
		return NewJSONLWriter(w), nil
	case FormatCSV:
		return NewCSVWriter(w), nil
	case FormatXLSX:
		return NewXLSXWriter(w), nil
	default:
		return nil, domain.ValidationError(fmt.Sprintf("unsupported output format %q", format), nil)
	}
}

func row(rec domain.ExtractedRecord) []string {
	return []string{
		strconv.Itoa(rec.Index),
		rec.Title,
		rec.Value,
		rec.Unit,
		rec.Period,
		string(rec.Type),
		string(rec.Category),
		rec.Reference,
	}
}
