package api

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/spherical/disclosure-extractor/internal/observability"
)

// RequestLogger logs one line per request through logger and tags the
// request context with the chi request id.
func RequestLogger(logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			ctx := r.Context()
			if reqID := chimiddleware.GetReqID(ctx); reqID != "" {
				ctx = observability.ContextWithTraceID(ctx, reqID)
				r = r.WithContext(ctx)
			}

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			evt := logger.WithContext(ctx).Info()
			if status >= 500 {
				evt = logger.WithContext(ctx).Error()
			}
			evt.Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}
