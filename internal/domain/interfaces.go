package domain

import "context"

// Chunker splits a whole document into ordered segments
type Chunker interface {
	// Chunk returns the segments of content in document order. An error means
	// the document cannot be read as the given type.
	Chunk(content string, docType DocType) ([]RawSegment, error)
}

// RecordWriter writes the records of one run to an output stream
type RecordWriter interface {
	Write(records []ExtractedRecord) error
}

// RunStore persists finished runs
type RunStore interface {
	SaveRun(ctx context.Context, run *RunResult) error
	ListRecords(ctx context.Context, runID string) ([]ExtractedRecord, error)
	Close() error
}
