package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/spherical/disclosure-extractor/internal/cache"
	"github.com/spherical/disclosure-extractor/internal/observability"
)

type cachedService struct {
	next      Service
	store     cache.Client
	ttl       time.Duration
	namespace string
	logger    *observability.Logger
}

// WithCache wraps next with a response cache keyed on namespace (usually the
// model name), schema, sampling options and the exact messages. Cache
// failures are logged and never fail the call.
func WithCache(next Service, store cache.Client, ttl time.Duration, namespace string, logger *observability.Logger) Service {
	if logger == nil {
		logger = observability.Nop()
	}
	return &cachedService{next: next, store: store, ttl: ttl, namespace: namespace, logger: logger}
}

func (c *cachedService) Extract(ctx context.Context, messages []Message, schema Schema, opts ...CallOption) (Output, error) {
	key, err := c.key(messages, schema, applyOptions(opts))
	if err != nil {
		return c.next.Extract(ctx, messages, schema, opts...)
	}

	raw, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		if out, derr := Decode(schema, string(raw)); derr == nil {
			return out, nil
		}
		_ = c.store.Delete(ctx, key)
	case !errors.Is(err, cache.ErrCacheMiss):
		c.logger.Warn().Err(err).Str("schema", string(schema)).Msg("cache read failed")
	}

	out, err := c.next.Extract(ctx, messages, schema, opts...)
	if err != nil {
		return nil, err
	}

	if data, merr := json.Marshal(out); merr == nil {
		if serr := c.store.Set(ctx, key, data, c.ttl); serr != nil {
			c.logger.Warn().Err(serr).Str("schema", string(schema)).Msg("cache write failed")
		}
	}
	return out, nil
}

func (c *cachedService) key(messages []Message, schema Schema, o CallOptions) (string, error) {
	b, err := json.Marshal(messages)
	if err != nil {
		return "", err
	}
	topP := "-"
	if o.TopP != nil {
		topP = strconv.FormatFloat(*o.TopP, 'g', -1, 64)
	}
	return cache.Key(c.namespace, string(schema), topP, string(b)), nil
}
