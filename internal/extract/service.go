// Package extract runs the two-stage metric extraction over one document:
// Stage A discovers metric descriptors per table and per sentence, Stage B
// resolves their values and periods, and Merge builds the final records.
package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spherical/disclosure-extractor/internal/chunk"
	"github.com/spherical/disclosure-extractor/internal/config"
	"github.com/spherical/disclosure-extractor/internal/domain"
	"github.com/spherical/disclosure-extractor/internal/llm"
	"github.com/spherical/disclosure-extractor/internal/observability"
	"github.com/spherical/disclosure-extractor/internal/table"
)

// Options tunes a Service.
type Options struct {
	Workers          int
	CallTimeout      time.Duration
	TableCallTimeout time.Duration
	TableTopP        float64
	Verify           bool
	Match            bool
	MinCoverage      float64
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		Workers:          5,
		CallTimeout:      30 * time.Second,
		TableCallTimeout: 100 * time.Second,
		TableTopP:        0.1,
		Verify:           true,
		Match:            true,
	}
}

// OptionsFromConfig maps the extract and llm sections onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Workers:          cfg.Extract.Workers,
		CallTimeout:      cfg.LLM.CallTimeout,
		TableCallTimeout: cfg.LLM.TableCallTimeout,
		TableTopP:        cfg.LLM.TableTopP,
		Verify:           cfg.Extract.Verify,
		Match:            cfg.Extract.Match,
		MinCoverage:      cfg.Extract.MinCoverage,
	}
}

// Service orchestrates the extraction of one document at a time. It holds no
// per-run state and may run several documents concurrently.
type Service struct {
	chunker domain.Chunker
	llm     llm.Service
	opts    Options
	logger  *observability.Logger
}

// NewService creates a new extraction service
func NewService(chunker domain.Chunker, svc llm.Service, opts Options, logger *observability.Logger) *Service {
	if chunker == nil {
		chunker = chunk.New()
	}
	if logger == nil {
		logger = observability.Nop()
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Service{
		chunker: chunker,
		llm:     svc,
		opts:    opts,
		logger:  logger.WithOperation("extract"),
	}
}

// Process runs the whole pipeline for doc. Events are sent to eventCh without
// blocking; eventCh may be nil. Failed extraction calls never fail the run. A
// chunking failure does, and a cancelled ctx returns ctx.Err() without
// merging anything.
func (s *Service) Process(ctx context.Context, doc domain.Document, eventCh chan<- domain.StreamEvent) (*domain.RunResult, error) {
	rc := newRunContext(doc, s.logger, eventCh)
	rc.emit(domain.StreamEvent{Type: domain.EventStart, Payload: fmt.Sprintf("Starting extraction of %s", doc.Name)})

	rc.transition(domain.StateChunking)
	segments, err := s.chunker.Chunk(doc.Content, doc.DocType)
	if err != nil {
		err = domain.ExtractionError(fmt.Sprintf("chunking %s failed", doc.Name), err)
		rc.logger.Error().Err(err).Msg("run aborted")
		rc.emitError(err)
		return nil, err
	}
	rc.Segments = segments
	rc.Stats.Segments = len(segments)
	rc.logger.Info().Int("segments", len(segments)).Msg("document chunked")

	tasksA := s.planStageA(rc)
	rc.Stats.StageACalls = len(tasksA)

	rc.transition(domain.StateStageADispatch)
	rc.startStage(len(tasksA))
	resultsA := runPool(ctx, s.opts.Workers, len(tasksA), func(ctx context.Context, i int) stageAResult {
		return s.runStageA(ctx, rc, tasksA[i])
	})
	if err := ctx.Err(); err != nil {
		return nil, s.abort(rc, err)
	}

	rc.transition(domain.StateStageACollect)
	pending := collectStageA(rc, tasksA, resultsA)
	rc.Stats.Descriptors = len(pending)

	rc.transition(domain.StateStageBDispatch)
	rc.Stats.StageBCalls = len(pending)
	rc.startStage(len(pending))
	resultsB := runPool(ctx, s.opts.Workers, len(pending), func(ctx context.Context, i int) stageBResult {
		return s.runStageB(ctx, rc, pending[i])
	})
	if err := ctx.Err(); err != nil {
		return nil, s.abort(rc, err)
	}

	rc.transition(domain.StateStageBCollect)
	for _, r := range resultsB {
		if r.failed {
			rc.Stats.FailedCalls++
		}
	}

	rc.transition(domain.StateMerge)
	records := s.merge(rc, pending, resultsB)

	rc.transition(domain.StateDone)
	result := rc.result(records)

	rc.logger.Info().
		Int("records", result.Stats.Records).
		Int("descriptors", result.Stats.Descriptors).
		Int("failed_calls", result.Stats.FailedCalls).
		Dur("duration", result.Stats.Duration).
		Msg("extraction complete")
	rc.emit(domain.StreamEvent{
		Type:    domain.EventComplete,
		State:   domain.StateDone,
		Payload: fmt.Sprintf("Extraction complete: %d records in %v", result.Stats.Records, result.Stats.Duration),
	})

	return result, nil
}

func (s *Service) abort(rc *RunContext, err error) error {
	rc.logger.Warn().Err(err).Str("state", rc.State().String()).Msg("run cancelled")
	rc.emitError(err)
	return err
}

// callContext bounds a single extraction call.
func callContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// renderSegment returns the canonical table text of a table segment.
func renderSegment(seg domain.RawSegment) string {
	return strings.TrimSpace(table.RenderHTML(seg.Content))
}
