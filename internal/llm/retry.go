package llm

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spherical/disclosure-extractor/internal/domain"
	"github.com/spherical/disclosure-extractor/internal/observability"
)

// RetryPolicy is a fixed number of attempts with a fixed pause between them.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultRetryPolicy returns three attempts one second apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Backoff: time.Second}
}

// shouldRetry determines if a status code is retryable
func shouldRetry(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests: // 429
		return true
	case http.StatusInternalServerError: // 500
		return true
	case http.StatusBadGateway: // 502
		return true
	case http.StatusServiceUnavailable: // 503
		return true
	case http.StatusGatewayTimeout: // 504
		return true
	default:
		return false
	}
}

// permanent reports errors that another attempt cannot fix.
func permanent(err error) bool {
	if errors.Is(err, context.Canceled) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= 400 && se.StatusCode < 500 && !shouldRetry(se.StatusCode)
	}
	return false
}

type retryService struct {
	next   Service
	policy RetryPolicy
	logger *observability.Logger
}

// WithRetry wraps next so that failed calls are attempted again up to
// policy.MaxAttempts times in total. Client errors other than 429 and a
// cancelled context end the loop early.
func WithRetry(next Service, policy RetryPolicy, logger *observability.Logger) Service {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if logger == nil {
		logger = observability.Nop()
	}
	return &retryService{next: next, policy: policy, logger: logger}
}

func (r *retryService) Extract(ctx context.Context, messages []Message, schema Schema, opts ...CallOption) (Output, error) {
	var lastErr error

	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		out, err := r.next.Extract(ctx, messages, schema, opts...)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if permanent(err) || attempt == r.policy.MaxAttempts {
			break
		}

		r.logger.Warn().
			Str("schema", string(schema)).
			Int("attempt", attempt).
			Int("max_attempts", r.policy.MaxAttempts).
			Dur("backoff", r.policy.Backoff).
			Err(err).
			Msg("extraction call failed, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.policy.Backoff):
		}
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return nil, domain.ExtractionError("extraction call failed", lastErr)
}
