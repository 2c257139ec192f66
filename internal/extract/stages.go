package extract

import (
	"context"
	"strings"

	"github.com/spherical/disclosure-extractor/internal/chunk"
	"github.com/spherical/disclosure-extractor/internal/domain"
	"github.com/spherical/disclosure-extractor/internal/llm"
)

// stageATask is one Stage A call: a rendered table or a single sentence.
type stageATask struct {
	segment domain.RawSegment
	kind    domain.SegmentKind
	text    string // rendered table or sentence
}

type stageAResult struct {
	out    llm.Output
	failed bool
}

// pendingMetric is a kept descriptor waiting for Stage B, plus what its
// Stage B prompt needs.
type pendingMetric struct {
	desc  domain.MetricDescriptor
	chunk string // text segment holding the sentence
}

type stageBResult struct {
	out    llm.Output
	failed bool
}

var (
	emptyMetricList       = llm.MetricListOutput{}
	emptyExtracted        = llm.ExtractedOutput{}
	emptyCellList         = llm.CellListOutput{}
	unknownClassification = llm.ClassificationOutput{
		Type:     string(domain.MetricNone),
		Period:   "none",
		Unit:     "none",
		Category: string(domain.CategoryUnclear),
	}
)

// planStageA lists the Stage A calls in segment order. Tables that render to
// nothing are skipped, so they never reach Stage B.
func (s *Service) planStageA(rc *RunContext) []stageATask {
	var tasks []stageATask
	for _, seg := range rc.Segments {
		switch seg.Kind {
		case domain.SegmentTable:
			rc.Stats.TableSegments++
			rendered := renderSegment(seg)
			if rendered == "" {
				rc.logger.Debug().Int("segment_index", seg.Index).Msg("table has no rows, skipped")
				continue
			}
			tasks = append(tasks, stageATask{segment: seg, kind: domain.SegmentTable, text: rendered})
		default:
			for _, sentence := range chunk.Sentences(seg.Content) {
				tasks = append(tasks, stageATask{segment: seg, kind: domain.SegmentText, text: sentence})
			}
		}
	}
	return tasks
}

func (s *Service) runStageA(ctx context.Context, rc *RunContext, task stageATask) stageAResult {
	doc := rc.Document

	var (
		messages []llm.Message
		schema   llm.Schema
		opts     []llm.CallOption
		timeout  = s.opts.CallTimeout
		fallback llm.Output
	)
	if task.kind == domain.SegmentTable {
		messages = llm.TableRowMessages(doc.DocType, doc.Company, doc.Quarter, task.segment.PrecedingText, task.text)
		schema = llm.SchemaMetricList
		opts = []llm.CallOption{llm.WithTopP(s.opts.TableTopP)}
		timeout = s.opts.TableCallTimeout
		fallback = emptyMetricList
	} else {
		messages = llm.LineExtractionMessages(doc.DocType, doc.Company, doc.Quarter, task.text)
		schema = llm.SchemaExtracted
		fallback = emptyExtracted
	}

	callCtx, cancel := callContext(ctx, timeout)
	defer cancel()

	out, err := s.llm.Extract(callCtx, messages, schema, opts...)
	if err == nil {
		err = checkSchema(out, schema)
	}
	if err != nil {
		if ctx.Err() == nil {
			rc.logger.Warn().
				Int("segment_index", task.segment.Index).
				Str("schema", string(schema)).
				Err(err).
				Msg("stage A call failed, using empty result")
		}
		rc.taskFinished(true, task.segment.Index)
		return stageAResult{out: fallback, failed: true}
	}

	rc.taskFinished(false, task.segment.Index)
	return stageAResult{out: out}
}

// collectStageA expands Stage A outputs into kept descriptors, in task order.
func collectStageA(rc *RunContext, tasks []stageATask, results []stageAResult) []pendingMetric {
	var pending []pendingMetric
	for i, res := range results {
		task := tasks[i]
		if res.failed {
			rc.Stats.FailedCalls++
		}

		switch out := res.out.(type) {
		case llm.MetricListOutput:
			for _, m := range out.Data {
				if !domain.ValidTitle(m.Title) {
					continue
				}
				pending = append(pending, pendingMetric{desc: domain.MetricDescriptor{
					Index:     task.segment.Index,
					Source:    domain.SegmentTable,
					Title:     strings.TrimSpace(m.Title),
					Unit:      strings.TrimSpace(m.Unit),
					Type:      domain.ParseMetricType(m.Type),
					Category:  domain.ParseCategory(m.Category),
					Reference: task.text,
				}})
			}
		case llm.ExtractedOutput:
			n := min(len(out.Titles), len(out.Values), len(out.Units))
			for j, title := range out.Titles[:n] {
				if !domain.ValidTitle(title) {
					continue
				}
				pending = append(pending, pendingMetric{
					desc: domain.MetricDescriptor{
						Index:     task.segment.Index,
						Source:    domain.SegmentText,
						Title:     strings.TrimSpace(title),
						Unit:      strings.TrimSpace(out.Units[j]),
						Type:      domain.MetricNone,
						Category:  domain.CategoryUnclear,
						Reference: task.text,
						Value:     strings.TrimSpace(string(out.Values[j])),
					},
					chunk: task.segment.Content,
				})
			}
		}
	}
	return pending
}

func (s *Service) runStageB(ctx context.Context, rc *RunContext, p pendingMetric) stageBResult {
	doc := rc.Document

	var (
		messages []llm.Message
		schema   llm.Schema
		opts     []llm.CallOption
		fallback llm.Output
	)
	if p.desc.Source == domain.SegmentTable {
		messages = llm.TableCellMessages(doc.DocType, doc.Company, doc.Quarter, p.desc.Reference, p.desc)
		schema = llm.SchemaCellList
		opts = []llm.CallOption{llm.WithTopP(s.opts.TableTopP)}
		fallback = emptyCellList
	} else {
		messages = llm.ClassificationMessages(doc.DocType, doc.Company, doc.Quarter, p.chunk, p.desc.Reference)
		schema = llm.SchemaClassification
		fallback = unknownClassification
	}

	callCtx, cancel := callContext(ctx, s.opts.CallTimeout)
	defer cancel()

	out, err := s.llm.Extract(callCtx, messages, schema, opts...)
	if err == nil {
		err = checkSchema(out, schema)
	}
	if err != nil {
		if ctx.Err() == nil {
			rc.logger.Warn().
				Int("segment_index", p.desc.Index).
				Str("title", p.desc.Title).
				Str("schema", string(schema)).
				Err(err).
				Msg("stage B call failed, using default result")
		}
		rc.taskFinished(true, p.desc.Title)
		return stageBResult{out: fallback, failed: true}
	}

	rc.taskFinished(false, p.desc.Title)
	return stageBResult{out: out}
}

func checkSchema(out llm.Output, want llm.Schema) error {
	if out == nil {
		return domain.ExtractionError("backend returned no output", nil)
	}
	if out.Schema() != want {
		return domain.ExtractionError("backend answered with "+string(out.Schema()), nil)
	}
	return nil
}
