package export

import (
	"encoding/csv"
	"io"

	"github.com/spherical/disclosure-extractor/internal/domain"
)

// CSVWriter writes records as CSV with a header row.
type CSVWriter struct {
	w           *csv.Writer
	wroteHeader bool
}

// NewCSVWriter creates a CSVWriter.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w)}
}

// Write appends records; the header is written before the first batch only.
func (w *CSVWriter) Write(records []domain.ExtractedRecord) error {
	if !w.wroteHeader {
		if err := w.w.Write(columns); err != nil {
			return domain.IOError("write csv header", err)
		}
		w.wroteHeader = true
	}
	for _, rec := range records {
		if err := w.w.Write(row(rec)); err != nil {
			return domain.IOError("write csv record", err)
		}
	}
	w.w.Flush()
	if err := w.w.Error(); err != nil {
		return domain.IOError("flush csv", err)
	}
	return nil
}
