package middleware

import (
	"net/http"

	"flowboard/pkg/observability"
)

// Tracing opens a trace segment per request and annotates it with the
// route, so downstream subsegments attach to it
func Tracing(tracer *observability.Tracer) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, seg := tracer.StartSegment(r.Context(), "request")
			defer seg.Close(nil)

			tracer.AddAnnotation(ctx, "method", r.Method)
			tracer.AddAnnotation(ctx, "path", r.URL.Path)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
