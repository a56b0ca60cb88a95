package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"flowboard/pkg/observability"
)

// Metrics records request count and latency per method and status
func Metrics(m *observability.Metrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			dims := map[string]string{
				"Method": r.Method,
				"Status": strconv.Itoa(ww.Status()),
			}
			m.Count(r.Context(), "RequestCount", 1, dims)
			m.Duration(r.Context(), "RequestLatency", time.Since(start), dims)
		})
	}
}
