package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/disclosure-extractor/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun() *domain.RunResult {
	return &domain.RunResult{
		RunID:    uuid.New(),
		Document: "acme-8k.json",
		DocType:  domain.DocTypeFiling8K,
		Records: []domain.ExtractedRecord{
			{
				Index: 3, Title: "Revenue", Value: "100", Unit: "$", Period: "2023 Q4",
				Type: domain.MetricActual, Category: domain.CategoryFinancials,
				Reference:  "| Revenue | $100 |",
				Provenance: &domain.Provenance{VerifiedPrefix: "100", Coverage: 1, MatchedIndex: 3, MatchScore: 4},
			},
			{
				Index: 1, Title: "Store count", Value: "12", Unit: "none", Period: "none",
				Type: domain.MetricNone, Category: domain.CategoryUnclear,
				Reference: "We opened 12 stores.",
			},
		},
		Stats: domain.RunStats{Segments: 5, FailedCalls: 1, Duration: 1500 * time.Millisecond},
	}
}

func TestStore_SaveAndList(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	run := sampleRun()

	require.NoError(t, s.SaveRun(ctx, run))
	assert.False(t, run.CreatedAt.IsZero())

	got, err := s.ListRecords(ctx, run.RunID.String())
	require.NoError(t, err)
	assert.Equal(t, run.Records, got)
}

func TestStore_GetRun(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	run := sampleRun()
	require.NoError(t, s.SaveRun(ctx, run))

	got, err := s.GetRun(ctx, run.RunID.String())
	require.NoError(t, err)
	assert.Equal(t, run.RunID, got.ID)
	assert.Equal(t, "acme-8k.json", got.Document)
	assert.Equal(t, domain.DocTypeFiling8K, got.DocType)
	assert.Equal(t, 5, got.Segments)
	assert.Equal(t, 2, got.Records)
	assert.Equal(t, 1, got.FailedCalls)
	assert.Equal(t, 1500*time.Millisecond, got.Duration)
}

func TestStore_SaveRun_AssignsID(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	run := &domain.RunResult{Document: "empty.txt", DocType: domain.DocTypePlain}

	require.NoError(t, s.SaveRun(ctx, run))
	assert.NotEqual(t, uuid.Nil, run.RunID)

	got, err := s.ListRecords(ctx, run.RunID.String())
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestStore_SaveRun_DuplicateFails(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	run := sampleRun()
	require.NoError(t, s.SaveRun(ctx, run))

	err := s.SaveRun(ctx, run)
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeStorage))

	got, err := s.ListRecords(ctx, run.RunID.String())
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestStore_ListRecords_NotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.ListRecords(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ListRecords_InvalidID(t *testing.T) {
	s := openTestStore(t)

	_, err := s.ListRecords(context.Background(), "not-a-uuid")
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeValidation))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "dsn")
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeConfig))
}

func TestStore_MigrateIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	assert.NoError(t, s.Migrate(context.Background()))
}
