package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocType(t *testing.T) {
	cases := map[string]DocType{
		"filing_8k":     DocTypeFiling8K,
		"8-K":           DocTypeFiling8K,
		"10-k":          DocTypeFiling10K,
		"10-Q":          DocTypeFiling10Q,
		"DEF14A":        DocTypeFilingDEF14A,
		"Earnings":      DocTypeEarningsCall,
		"earnings_call": DocTypeEarningsCall,
		"":              DocTypePlain,
	}
	for in, want := range cases {
		got, err := ParseDocType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseDocType("S-1")
	assert.ErrorIs(t, err, ErrUnknownDocType)
}

func TestParseMetricTypeAndCategory(t *testing.T) {
	assert.Equal(t, MetricActual, ParseMetricType(" Actual "))
	assert.Equal(t, MetricExpected, ParseMetricType("expected"))
	assert.Equal(t, MetricNone, ParseMetricType("None"))
	assert.Equal(t, MetricNone, ParseMetricType("forecast"))

	assert.Equal(t, CategoryFinancials, ParseCategory("financials"))
	assert.Equal(t, CategoryKPI, ParseCategory("KPI"))
	assert.Equal(t, CategoryGuidance, ParseCategory("Guidance"))
	assert.Equal(t, CategoryUnclear, ParseCategory("None"))
}

func TestValidTitleAndValue(t *testing.T) {
	assert.True(t, ValidTitle("Revenue"))
	assert.False(t, ValidTitle(""))
	assert.False(t, ValidTitle("  "))
	assert.False(t, ValidTitle("NONE"))

	assert.True(t, ValidValue("0"))
	assert.False(t, ValidValue(" none "))
	assert.False(t, ValidValue(""))
}

func TestRunState_String(t *testing.T) {
	assert.Equal(t, "chunking", StateChunking.String())
	assert.Equal(t, "done", StateDone.String())
	assert.Equal(t, "state(42)", RunState(42).String())
}

func TestDomainError(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("wrapped: %w", IOError("read document", cause))

	assert.True(t, IsType(err, ErrorTypeIO))
	assert.False(t, IsType(err, ErrorTypeAPI))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "[config] missing key", ConfigError("missing key", nil).Error())
}
