package export

import (
	"encoding/json"
	"io"

	"github.com/spherical/disclosure-extractor/internal/domain"
)

// JSONLWriter writes one JSON object per record and line.
type JSONLWriter struct {
	enc *json.Encoder
}

// NewJSONLWriter creates a JSONLWriter.
func NewJSONLWriter(w io.Writer) *JSONLWriter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONLWriter{enc: enc}
}

// Write appends records. It may be called once per document.
func (w *JSONLWriter) Write(records []domain.ExtractedRecord) error {
	for i := range records {
		if err := w.enc.Encode(&records[i]); err != nil {
			return domain.IOError("write jsonl record", err)
		}
	}
	return nil
}
