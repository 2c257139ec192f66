package llm

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/disclosure-extractor/internal/domain"
)

func countingService(errs ...error) (Service, *int) {
	calls := 0
	return ServiceFunc(func(ctx context.Context, _ []Message, _ Schema, _ ...CallOption) (Output, error) {
		i := calls
		calls++
		if i < len(errs) && errs[i] != nil {
			return nil, errs[i]
		}
		return CellListOutput{}, nil
	}), &calls
}

func TestShouldRetry(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503, 504} {
		assert.True(t, shouldRetry(code), code)
	}
	for _, code := range []int{200, 400, 401, 404, 422} {
		assert.False(t, shouldRetry(code), code)
	}
}

func TestWithRetry_SucceedsAfterFailures(t *testing.T) {
	svc, calls := countingService(errors.New("boom"), &StatusError{StatusCode: http.StatusTooManyRequests})

	out, err := WithRetry(svc, RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond}, nil).
		Extract(context.Background(), nil, SchemaCellList)
	require.NoError(t, err)
	assert.Equal(t, CellListOutput{}, out)
	assert.Equal(t, 3, *calls)
}

func TestWithRetry_GivesUp(t *testing.T) {
	boom := errors.New("boom")
	svc, calls := countingService(boom, boom, boom, boom)

	_, err := WithRetry(svc, RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond}, nil).
		Extract(context.Background(), nil, SchemaCellList)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.True(t, domain.IsType(err, domain.ErrorTypeExtraction))
	assert.Equal(t, 3, *calls)
}

func TestWithRetry_PermanentStopsEarly(t *testing.T) {
	svc, calls := countingService(domain.APIError("rejected", &StatusError{StatusCode: http.StatusBadRequest}))

	_, err := WithRetry(svc, RetryPolicy{MaxAttempts: 5, Backoff: time.Millisecond}, nil).
		Extract(context.Background(), nil, SchemaCellList)
	require.Error(t, err)
	assert.Equal(t, 1, *calls)
}

func TestWithRetry_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	svc := ServiceFunc(func(ctx context.Context, _ []Message, _ Schema, _ ...CallOption) (Output, error) {
		cancel()
		return nil, errors.New("interrupted")
	})

	_, err := WithRetry(svc, RetryPolicy{MaxAttempts: 3, Backoff: time.Hour}, nil).
		Extract(ctx, nil, SchemaCellList)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithRetry_ZeroAttemptsMeansOne(t *testing.T) {
	svc, calls := countingService(errors.New("boom"))
	_, err := WithRetry(svc, RetryPolicy{}, nil).Extract(context.Background(), nil, SchemaCellList)
	assert.Error(t, err)
	assert.Equal(t, 1, *calls)
}
