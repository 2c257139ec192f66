package llm

import (
	"context"
	"fmt"

	"github.com/spherical/disclosure-extractor/internal/cache"
	"github.com/spherical/disclosure-extractor/internal/config"
	"github.com/spherical/disclosure-extractor/internal/observability"
)

// New builds the configured backend and layers the optional response cache
// and the retry policy on top of it. The returned close function releases
// the backend; store is owned by the caller and may be nil.
func New(ctx context.Context, cfg *config.Config, store cache.Client, logger *observability.Logger) (Service, func() error, error) {
	var (
		backend Service
		model   string
		closeFn = func() error { return nil }
	)

	switch cfg.LLM.Provider {
	case "gemini":
		g, err := NewGeminiClient(ctx, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.Temperature)
		if err != nil {
			return nil, nil, err
		}
		backend, model, closeFn = g, g.Model(), g.Close
	case "openai", "openrouter":
		baseURL := cfg.LLM.BaseURL
		if baseURL == "" && cfg.LLM.Provider == "openai" {
			baseURL = openAIURL
		}
		c := NewClient(ClientConfig{
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			BaseURL:     baseURL,
			Temperature: cfg.LLM.Temperature,
		})
		backend, model = c, c.Model()
	default:
		return nil, nil, fmt.Errorf("unsupported llm provider %q", cfg.LLM.Provider)
	}

	svc := backend
	if store != nil {
		svc = WithCache(svc, store, cfg.Cache.TTL, cfg.LLM.Provider+"/"+model, logger)
	}
	svc = WithRetry(svc, RetryPolicy{
		MaxAttempts: cfg.Extract.Retry.MaxAttempts,
		Backoff:     cfg.Extract.Retry.Backoff,
	}, logger)

	return svc, closeFn, nil
}
