package extract

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/spherical/disclosure-extractor/internal/domain"
	"github.com/spherical/disclosure-extractor/internal/observability"
)

// RunContext is the state owned by a single document run. Nothing in it is
// shared with other runs.
type RunContext struct {
	RunID          uuid.UUID
	Document       domain.Document
	Segments       []domain.RawSegment
	CategoryCounts map[domain.Category]int
	Transitions    []domain.RunState
	Stats          domain.RunStats

	state   domain.RunState
	started time.Time
	logger  *observability.Logger
	eventCh chan<- domain.StreamEvent

	// progress of the stage currently dispatched
	done  atomic.Int64
	total int
}

func newRunContext(doc domain.Document, logger *observability.Logger, eventCh chan<- domain.StreamEvent) *RunContext {
	id := uuid.New()
	return &RunContext{
		RunID:          id,
		Document:       doc,
		CategoryCounts: make(map[domain.Category]int),
		started:        time.Now(),
		logger:         logger.WithRun(id.String(), doc.Name),
		eventCh:        eventCh,
	}
}

// State returns the current state.
func (rc *RunContext) State() domain.RunState {
	return rc.state
}

// transition moves the run forward. States never go backwards.
func (rc *RunContext) transition(next domain.RunState) {
	if len(rc.Transitions) > 0 && next <= rc.state {
		rc.logger.Warn().Str("from", rc.state.String()).Str("to", next.String()).Msg("ignored backward transition")
		return
	}
	rc.state = next
	rc.Transitions = append(rc.Transitions, next)
	rc.logger.Debug().Str("state", next.String()).Msg("run state changed")
	rc.emit(domain.StreamEvent{Type: domain.EventStateChange, State: next, Payload: next.String()})
}

func (rc *RunContext) startStage(total int) {
	rc.done.Store(0)
	rc.total = total
}

func (rc *RunContext) taskFinished(failed bool, payload interface{}) {
	done := int(rc.done.Add(1))
	typ := domain.EventTaskComplete
	if failed {
		typ = domain.EventTaskFailed
	}
	rc.emit(domain.StreamEvent{Type: typ, State: rc.state, Done: done, Total: rc.total, Payload: payload})
}

// emit sends an event without blocking the run.
func (rc *RunContext) emit(event domain.StreamEvent) {
	if rc.eventCh == nil {
		return
	}
	event.Timestamp = time.Now()
	select {
	case rc.eventCh <- event:
	default:
		rc.logger.Debug().Str("event", string(event.Type)).Msg("event channel full, dropping event")
	}
}

func (rc *RunContext) emitError(err error) {
	rc.emit(domain.StreamEvent{Type: domain.EventError, State: rc.state, Payload: err.Error()})
}

func (rc *RunContext) result(records []domain.ExtractedRecord) *domain.RunResult {
	rc.Stats.Records = len(records)
	rc.Stats.Duration = time.Since(rc.started)
	return &domain.RunResult{
		RunID:          rc.RunID,
		Document:       rc.Document.Name,
		DocType:        rc.Document.DocType,
		Records:        records,
		CategoryCounts: rc.CategoryCounts,
		Stats:          rc.Stats,
		Transitions:    rc.Transitions,
		CreatedAt:      rc.started.UTC(),
	}
}
