package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "debug", Format: "json", Output: &buf, ServiceName: "test"})

	logger.WithRun("run-1", "doc.htm").Warn().
		Int("segment_index", 3).
		Err(errors.New("timeout")).
		Msg("stage A call failed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "test", entry["service"])
	assert.Equal(t, "run-1", entry["run_id"])
	assert.Equal(t, "doc.htm", entry["document"])
	assert.Equal(t, float64(3), entry["segment_index"])
	assert.Equal(t, "timeout", entry["error"])
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "warn", Format: "json", Output: &buf})

	logger.Info().Msg("dropped")
	assert.Zero(t, buf.Len())

	logger.Error().Msg("kept")
	assert.NotZero(t, buf.Len())
}

func TestTraceIDContext(t *testing.T) {
	ctx := ContextWithTraceID(context.Background(), "abc")
	assert.Equal(t, "abc", TraceIDFromContext(ctx))
	assert.Empty(t, TraceIDFromContext(context.Background()))
}
