// Package api exposes extraction over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/spherical/disclosure-extractor/internal/domain"
	"github.com/spherical/disclosure-extractor/internal/observability"
)

// Extractor runs the extraction pipeline for one document.
type Extractor interface {
	Process(ctx context.Context, doc domain.Document, eventCh chan<- domain.StreamEvent) (*domain.RunResult, error)
}

// Config holds router settings. Store may be nil, in which case runs are not
// persisted and the records route answers 501.
type Config struct {
	Extractor      Extractor
	Store          domain.RunStore
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	Version        string
}

// DefaultMaxBodyBytes bounds request bodies.
const DefaultMaxBodyBytes = 32 << 20

// NewRouter creates the API router with all routes configured.
func NewRouter(logger *observability.Logger, cfg Config) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Minute
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(cfg.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": "disclosure-extractor",
			"version": cfg.Version,
		})
	})

	h := NewHandler(logger, cfg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/extract", h.Extract)
		r.Post("/render", h.Render)
		r.Get("/runs/{runID}/records", h.ListRecords)
	})

	return r
}
