package extract

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/disclosure-extractor/internal/domain"
	"github.com/spherical/disclosure-extractor/internal/llm"
)

type stubLLM struct {
	mu    sync.Mutex
	calls map[llm.Schema]int
	fn    func(ctx context.Context, messages []llm.Message, schema llm.Schema) (llm.Output, error)
}

func newStub(fn func(ctx context.Context, messages []llm.Message, schema llm.Schema) (llm.Output, error)) *stubLLM {
	return &stubLLM{calls: make(map[llm.Schema]int), fn: fn}
}

func (s *stubLLM) Extract(ctx context.Context, messages []llm.Message, schema llm.Schema, _ ...llm.CallOption) (llm.Output, error) {
	s.mu.Lock()
	s.calls[schema]++
	s.mu.Unlock()
	return s.fn(ctx, messages, schema)
}

func (s *stubLLM) count(schema llm.Schema) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[schema]
}

type chunkerFunc func(content string, docType domain.DocType) ([]domain.RawSegment, error)

func (f chunkerFunc) Chunk(content string, docType domain.DocType) ([]domain.RawSegment, error) {
	return f(content, docType)
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Workers = 3
	return opts
}

func userContent(messages []llm.Message) string {
	return messages[len(messages)-1].Content
}

func TestProcess_EndToEndSentence(t *testing.T) {
	stub := newStub(func(_ context.Context, messages []llm.Message, schema llm.Schema) (llm.Output, error) {
		switch schema {
		case llm.SchemaExtracted:
			return llm.ExtractedOutput{
				Titles: []string{"Revenue"},
				Values: []llm.FlexString{"100"},
				Units:  []string{"million"},
			}, nil
		case llm.SchemaClassification:
			return llm.ClassificationOutput{Title: "Revenue", Type: "actual", Period: "2023 Q4", Unit: "None", Category: "Financials"}, nil
		}
		return nil, fmt.Errorf("unexpected schema %s", schema)
	})

	doc := domain.Document{
		Name:    "release.txt",
		Company: "Acme",
		Quarter: "2023 Q4",
		DocType: domain.DocTypePlain,
		Content: "Revenue grew to $100 million in Q4 2023",
	}

	res, err := NewService(nil, stub, testOptions(), nil).Process(context.Background(), doc, nil)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)

	rec := res.Records[0]
	assert.Equal(t, 0, rec.Index)
	assert.Equal(t, "Revenue", rec.Title)
	assert.Equal(t, "100", rec.Value)
	assert.Equal(t, "2023 Q4", rec.Period)
	assert.Equal(t, "million", rec.Unit)
	assert.Equal(t, domain.MetricActual, rec.Type)
	assert.Equal(t, domain.CategoryFinancials, rec.Category)
	assert.Equal(t, "Revenue grew to $100 million in Q4 2023", rec.Reference)

	require.NotNil(t, rec.Provenance)
	assert.Equal(t, "100", rec.Provenance.VerifiedPrefix)
	assert.Equal(t, 1.0, rec.Provenance.Coverage)
	assert.Equal(t, -1, rec.Provenance.MatchedIndex)

	assert.Equal(t, 1, res.CategoryCounts[domain.CategoryFinancials])
	assert.Equal(t, []domain.RunState{
		domain.StateChunking,
		domain.StateStageADispatch,
		domain.StateStageACollect,
		domain.StateStageBDispatch,
		domain.StateStageBCollect,
		domain.StateMerge,
		domain.StateDone,
	}, res.Transitions)
	assert.Equal(t, 1, res.Stats.StageACalls)
	assert.Equal(t, 1, res.Stats.StageBCalls)
	assert.Equal(t, 1, res.Stats.Records)
	assert.NotEqual(t, "", res.RunID.String())
}

const filingWithTable = `<p>Results for the quarter.</p>
<table>
<tr><td></td><td>Q4 2023</td></tr>
<tr><td>Revenue</td><td>$100</td></tr>
<tr><td>Cost of sales</td><td>(40)</td></tr>
</table>`

func TestProcess_TableDedupAndProvenance(t *testing.T) {
	var rowPrompt string
	stub := newStub(func(_ context.Context, messages []llm.Message, schema llm.Schema) (llm.Output, error) {
		switch schema {
		case llm.SchemaExtracted:
			return llm.ExtractedOutput{}, nil
		case llm.SchemaMetricList:
			rowPrompt = userContent(messages)
			return llm.MetricListOutput{Data: []llm.MetricOutput{
				{Title: "Revenue", Unit: "$", Type: "actual", Category: "Financials"},
				{Title: "None", Unit: "$", Type: "actual", Category: "KPI"},
				{Title: "  ", Unit: "", Type: "", Category: ""},
			}}, nil
		case llm.SchemaCellList:
			return llm.CellListOutput{Data: []llm.CellOutput{
				{Value: "100", Period: "2023 Q4"},
				{Value: "100", Period: "2023 Q4"},
				{Value: "(40)", Period: "2023 Q4"},
				{Value: "None", Period: "2023 Q4"},
				{Value: "", Period: "2023 Q4"},
			}}, nil
		}
		return nil, fmt.Errorf("unexpected schema %s", schema)
	})

	doc := domain.Document{Name: "10k.htm", Company: "Acme", Quarter: "2023 Q4", DocType: domain.DocTypeFiling10K, Content: filingWithTable}
	res, err := NewService(nil, stub, testOptions(), nil).Process(context.Background(), doc, nil)
	require.NoError(t, err)

	assert.Contains(t, rowPrompt, "| Revenue | $100 |")
	assert.Contains(t, rowPrompt, "Results for the quarter.")
	assert.Equal(t, 1, stub.count(llm.SchemaCellList))

	require.Len(t, res.Records, 2)
	assert.Equal(t, "100", res.Records[0].Value)
	assert.Equal(t, "-40", res.Records[1].Value)
	for _, rec := range res.Records {
		assert.Equal(t, 1, rec.Index)
		assert.Equal(t, "$", rec.Unit)
		assert.Equal(t, domain.MetricActual, rec.Type)
		require.NotNil(t, rec.Provenance)
		assert.Equal(t, 1, rec.Provenance.MatchedIndex)
		assert.Greater(t, rec.Provenance.MatchScore, 0)
	}
	assert.Equal(t, 2, res.CategoryCounts[domain.CategoryFinancials])
	assert.Equal(t, 1, res.Stats.TableSegments)
}

func TestProcess_EmptyTableSkipsBothStages(t *testing.T) {
	chunker := chunkerFunc(func(string, domain.DocType) ([]domain.RawSegment, error) {
		return []domain.RawSegment{
			{Index: 7, Kind: domain.SegmentTable, Content: "<table><tr><td>\ufeff</td><td> </td></tr></table>"},
		}, nil
	})
	stub := newStub(func(context.Context, []llm.Message, llm.Schema) (llm.Output, error) {
		return nil, errors.New("must not be called")
	})

	res, err := NewService(chunker, stub, testOptions(), nil).Process(context.Background(), domain.Document{Content: "x"}, nil)
	require.NoError(t, err)

	assert.Empty(t, res.Records)
	assert.Zero(t, stub.count(llm.SchemaMetricList))
	assert.Zero(t, stub.count(llm.SchemaCellList))
	assert.Zero(t, res.Stats.StageACalls)
	assert.Zero(t, res.Stats.Descriptors)
}

func TestProcess_FailedCallsDegrade(t *testing.T) {
	stub := newStub(func(_ context.Context, messages []llm.Message, schema llm.Schema) (llm.Output, error) {
		switch schema {
		case llm.SchemaMetricList:
			return nil, errors.New("timeout")
		case llm.SchemaExtracted:
			if strings.Contains(userContent(messages), "Margin") {
				return llm.ExtractedOutput{Titles: []string{"Gross margin"}, Values: []llm.FlexString{"45"}, Units: []string{"%"}}, nil
			}
			return llm.ExtractedOutput{}, nil
		case llm.SchemaClassification:
			return nil, errors.New("malformed output")
		}
		return nil, fmt.Errorf("unexpected schema %s", schema)
	})

	doc := domain.Document{
		Name:    "10q.htm",
		DocType: domain.DocTypeFiling10Q,
		Content: "<p>Margin was 45% this quarter.</p>" + filingWithTable,
	}
	res, err := NewService(nil, stub, testOptions(), nil).Process(context.Background(), doc, nil)
	require.NoError(t, err)

	require.Len(t, res.Records, 1)
	rec := res.Records[0]
	assert.Equal(t, "Gross margin", rec.Title)
	assert.Equal(t, "45", rec.Value)
	assert.Equal(t, "%", rec.Unit)
	assert.Equal(t, domain.MetricNone, rec.Type)
	assert.Equal(t, "none", rec.Period)
	assert.Equal(t, domain.CategoryUnclear, rec.Category)

	assert.Equal(t, 2, res.Stats.FailedCalls)
	assert.Equal(t, 1, res.CategoryCounts[domain.CategoryUnclear])
}

func TestProcess_ChunkingFailureIsFatal(t *testing.T) {
	stub := newStub(func(context.Context, []llm.Message, llm.Schema) (llm.Output, error) {
		return nil, errors.New("must not be called")
	})
	events := make(chan domain.StreamEvent, 16)

	res, err := NewService(nil, stub, testOptions(), nil).
		Process(context.Background(), domain.Document{DocType: domain.DocTypeFiling8K, Content: "{not json"}, events)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, domain.IsType(err, domain.ErrorTypeExtraction))

	close(events)
	var last domain.StreamEvent
	for ev := range events {
		last = ev
	}
	assert.Equal(t, domain.EventError, last.Type)
}

func TestProcess_CancelledRunNeverMerges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stub := newStub(func(ctx context.Context, _ []llm.Message, schema llm.Schema) (llm.Output, error) {
		cancel()
		<-ctx.Done()
		return nil, ctx.Err()
	})
	doc := domain.Document{DocType: domain.DocTypePlain, Content: "Revenue was $5.\nEPS was $1.\nMargin was 4%."}

	res, err := NewService(nil, stub, testOptions(), nil).Process(ctx, doc, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
	assert.Zero(t, stub.count(llm.SchemaClassification))
}

var metricNumber = regexp.MustCompile(`Metric (\d+)`)

func TestProcess_PreservesOrder(t *testing.T) {
	const n = 20
	var lines []string
	for i := 0; i < n; i++ {
		lines = append(lines, fmt.Sprintf("Metric %d was %d.", i, i*10))
	}

	stub := newStub(func(_ context.Context, messages []llm.Message, schema llm.Schema) (llm.Output, error) {
		m := metricNumber.FindStringSubmatch(userContent(messages))
		if m == nil {
			return nil, errors.New("no metric in prompt")
		}
		i, _ := strconv.Atoi(m[1])
		// later lines finish first
		time.Sleep(time.Duration(n-i) * time.Millisecond)

		if schema == llm.SchemaExtracted {
			return llm.ExtractedOutput{
				Titles: []string{"Metric " + m[1]},
				Values: []llm.FlexString{llm.FlexString(strconv.Itoa(i * 10))},
				Units:  []string{"units"},
			}, nil
		}
		return llm.ClassificationOutput{Type: "actual", Period: "2023 Q4", Unit: "units", Category: "KPI"}, nil
	})

	opts := testOptions()
	opts.Workers = 8
	doc := domain.Document{DocType: domain.DocTypePlain, Content: strings.Join(lines, "\n")}
	res, err := NewService(nil, stub, opts, nil).Process(context.Background(), doc, nil)
	require.NoError(t, err)

	require.Len(t, res.Records, n)
	for i, rec := range res.Records {
		assert.Equal(t, fmt.Sprintf("Metric %d", i), rec.Title)
		assert.Equal(t, i, rec.Index)
	}
	assert.Equal(t, n, res.CategoryCounts[domain.CategoryKPI])
}

func TestProcess_MinCoverageDropsUnverifiedValues(t *testing.T) {
	stub := newStub(func(_ context.Context, _ []llm.Message, schema llm.Schema) (llm.Output, error) {
		if schema == llm.SchemaExtracted {
			return llm.ExtractedOutput{
				Titles: []string{"Revenue", "Backlog"},
				Values: []llm.FlexString{"100", "999"},
				Units:  []string{"million", "million"},
			}, nil
		}
		return llm.ClassificationOutput{Type: "actual", Period: "2023 Q4", Unit: "million", Category: "Financials"}, nil
	})

	opts := testOptions()
	opts.MinCoverage = 1
	doc := domain.Document{DocType: domain.DocTypePlain, Content: "Revenue grew to $100 million."}
	res, err := NewService(nil, stub, opts, nil).Process(context.Background(), doc, nil)
	require.NoError(t, err)

	require.Len(t, res.Records, 1)
	assert.Equal(t, "Revenue", res.Records[0].Title)
}

func TestProcess_EmitsEvents(t *testing.T) {
	stub := newStub(func(_ context.Context, _ []llm.Message, schema llm.Schema) (llm.Output, error) {
		return llm.ExtractedOutput{}, nil
	})
	events := make(chan domain.StreamEvent, 64)

	_, err := NewService(nil, stub, testOptions(), nil).
		Process(context.Background(), domain.Document{DocType: domain.DocTypePlain, Content: "One.\nTwo."}, events)
	require.NoError(t, err)
	close(events)

	var types []domain.EventType
	for ev := range events {
		types = append(types, ev.Type)
	}
	require.NotEmpty(t, types)
	assert.Equal(t, domain.EventStart, types[0])
	assert.Equal(t, domain.EventComplete, types[len(types)-1])
	assert.Contains(t, types, domain.EventTaskComplete)
}

func TestRunPool(t *testing.T) {
	got := runPool(context.Background(), 4, 10, func(_ context.Context, i int) int {
		time.Sleep(time.Duration(10-i) * time.Millisecond)
		return i * i
	})
	for i, v := range got {
		assert.Equal(t, i*i, v)
	}

	assert.Empty(t, runPool(context.Background(), 4, 0, func(context.Context, int) int { return 1 }))
}

func TestRunPool_CancelledSkipsRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	got := runPool(ctx, 1, 5, func(_ context.Context, i int) int {
		if i == 1 {
			cancel()
		}
		return i + 1
	})
	assert.Equal(t, []int{1, 2, 0, 0, 0}, got)
}
