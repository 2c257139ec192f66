package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DocType tags the layout of a source document and selects its chunker and prompts.
type DocType string

const (
	DocTypeEarningsCall DocType = "earnings_call"
	DocTypeFiling8K     DocType = "filing_8k"
	DocTypeFiling10K    DocType = "filing_10k"
	DocTypeFiling10Q    DocType = "filing_10q"
	DocTypeFilingDEF14A DocType = "filing_def14a"
	DocTypePlain        DocType = "plain"
)

// DocTypes lists every supported document type.
var DocTypes = []DocType{
	DocTypeEarningsCall,
	DocTypeFiling8K,
	DocTypeFiling10K,
	DocTypeFiling10Q,
	DocTypeFilingDEF14A,
	DocTypePlain,
}

// ParseDocType accepts the canonical tags plus the short form names used on
// filing indexes ("8-K", "10-K", "Earnings", ...).
func ParseDocType(s string) (DocType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "earnings_call", "earnings":
		return DocTypeEarningsCall, nil
	case "filing_8k", "8-k", "8k":
		return DocTypeFiling8K, nil
	case "filing_10k", "10-k", "10k":
		return DocTypeFiling10K, nil
	case "filing_10q", "10-q", "10q":
		return DocTypeFiling10Q, nil
	case "filing_def14a", "def14a", "def 14a":
		return DocTypeFilingDEF14A, nil
	case "plain", "", "text":
		return DocTypePlain, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDocType, s)
}

// SegmentKind distinguishes table markup from prose.
type SegmentKind string

const (
	SegmentTable SegmentKind = "table"
	SegmentText  SegmentKind = "text"
)

// RawSegment is one ordered fragment of a document. Index is stable for the
// whole run and is the join key between stages.
type RawSegment struct {
	Index         int         `json:"index"`
	Kind          SegmentKind `json:"kind"`
	Content       string      `json:"content"`
	PrecedingText string      `json:"preceding_text,omitempty"`
}

// MetricType is the temporal nature of a metric.
type MetricType string

const (
	MetricActual   MetricType = "actual"
	MetricExpected MetricType = "expected"
	MetricNone     MetricType = "none"
)

// ParseMetricType maps free-form model output onto the closed set; anything
// unrecognised becomes MetricNone.
func ParseMetricType(s string) MetricType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "actual":
		return MetricActual
	case "expected":
		return MetricExpected
	default:
		return MetricNone
	}
}

// Category classifies a metric.
type Category string

const (
	CategoryFinancials Category = "Financials"
	CategoryKPI        Category = "KPI"
	CategoryGuidance   Category = "Guidance"
	CategoryUnclear    Category = "Unclear"
)

// ParseCategory maps free-form model output onto the closed set; anything
// unrecognised becomes CategoryUnclear.
func ParseCategory(s string) Category {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "financials", "financial":
		return CategoryFinancials
	case "kpi":
		return CategoryKPI
	case "guidance":
		return CategoryGuidance
	default:
		return CategoryUnclear
	}
}

// MetricDescriptor is a metric discovered in Stage A, before value resolution.
// Value is only set for descriptors discovered in prose, where Stage A already
// returns the figure.
type MetricDescriptor struct {
	Index     int         `json:"index"`
	Source    SegmentKind `json:"source"`
	Title     string      `json:"title"`
	Unit      string      `json:"unit"`
	Type      MetricType  `json:"type_"`
	Category  Category    `json:"category"`
	Reference string      `json:"reference"`
	Value     string      `json:"value,omitempty"`
}

// ValidTitle reports whether a descriptor title survives the Stage A filter.
func ValidTitle(title string) bool {
	t := strings.TrimSpace(title)
	return t != "" && !strings.EqualFold(t, "none")
}

// ValuePeriodRecord is one resolved (value, period) pair for a descriptor.
type ValuePeriodRecord struct {
	Value  string `json:"value"`
	Period string `json:"period"`
}

// ValidValue reports whether a Stage B value is kept.
func ValidValue(value string) bool {
	v := strings.TrimSpace(value)
	return v != "" && !strings.EqualFold(v, "none")
}

// Provenance records how well an extracted value traces back to the source.
type Provenance struct {
	VerifiedPrefix string  `json:"verified_prefix"`
	Coverage       float64 `json:"coverage"`
	MatchedIndex   int     `json:"matched_index"`
	MatchScore     int     `json:"match_score"`
}

// ExtractedRecord is the unit written to output.
type ExtractedRecord struct {
	Index      int         `json:"index"`
	Title      string      `json:"title"`
	Value      string      `json:"value"`
	Unit       string      `json:"unit"`
	Period     string      `json:"period"`
	Type       MetricType  `json:"type_"`
	Category   Category    `json:"category"`
	Reference  string      `json:"reference"`
	Provenance *Provenance `json:"provenance,omitempty"`
}

// Document is the input of one run.
type Document struct {
	Name    string  `json:"name"`
	Company string  `json:"company"`
	Quarter string  `json:"quarter"`
	DocType DocType `json:"doc_type"`
	Content string  `json:"content"`
}

// RunState is a step of the per-document state machine.
type RunState int

const (
	StateChunking RunState = iota
	StateStageADispatch
	StateStageACollect
	StateStageBDispatch
	StateStageBCollect
	StateMerge
	StateDone
)

var runStateNames = [...]string{
	"chunking",
	"stage_a_dispatch",
	"stage_a_collect",
	"stage_b_dispatch",
	"stage_b_collect",
	"merge",
	"done",
}

func (s RunState) String() string {
	if int(s) < 0 || int(s) >= len(runStateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return runStateNames[s]
}

// RunStats summarises one run.
type RunStats struct {
	Segments      int           `json:"segments"`
	TableSegments int           `json:"table_segments"`
	StageACalls   int           `json:"stage_a_calls"`
	StageBCalls   int           `json:"stage_b_calls"`
	FailedCalls   int           `json:"failed_calls"`
	Descriptors   int           `json:"descriptors"`
	Records       int           `json:"records"`
	Duration      time.Duration `json:"duration"`
}

// RunResult is what a finished run hands back to its caller.
type RunResult struct {
	RunID          uuid.UUID         `json:"run_id"`
	Document       string            `json:"document"`
	DocType        DocType           `json:"doc_type"`
	Records        []ExtractedRecord `json:"records"`
	CategoryCounts map[Category]int  `json:"category_counts"`
	Stats          RunStats          `json:"stats"`
	Transitions    []RunState        `json:"-"`
	CreatedAt      time.Time         `json:"created_at"`
}

// EventType represents the type of progress event
type EventType string

const (
	EventStart        EventType = "start"
	EventStateChange  EventType = "state_change"
	EventTaskComplete EventType = "task_complete"
	EventTaskFailed   EventType = "task_failed"
	EventComplete     EventType = "complete"
	EventError        EventType = "error"
)

// StreamEvent represents an event emitted during a run
type StreamEvent struct {
	Type      EventType   `json:"type"`
	State     RunState    `json:"state"`
	Done      int         `json:"done,omitempty"`
	Total     int         `json:"total,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}
