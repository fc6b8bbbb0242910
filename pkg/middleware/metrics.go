package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/metrics"
)

type routeKey struct{}

// Metrics instruments requests with promhttp: a counter by method, route
// and status code, a latency histogram by method and route, and the
// in-flight gauge. A nil m disables recording.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		route := promhttp.WithLabelFromCtx("path", func(ctx context.Context) string {
			path, _ := ctx.Value(routeKey{}).(string)
			return path
		})
		var h http.Handler = promhttp.InstrumentHandlerCounter(m.HTTPRequestsTotal, next, route)
		h = promhttp.InstrumentHandlerDuration(m.HTTPRequestDuration, h, route)
		h = promhttp.InstrumentHandlerInFlight(m.HTTPRequestsInFlight, h)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), routeKey{}, normalizePath(r.URL.Path))
			h.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// normalizePath replaces the owner segment of /owners/{id}/... routes so the
// path label stays low-cardinality.
func normalizePath(path string) string {
	parts := strings.Split(path, "/")
	for i := 0; i < len(parts)-1; i++ {
		if parts[i] == "owners" && parts[i+1] != "" {
			parts[i+1] = "{owner}"
		}
	}
	return strings.Join(parts, "/")
}
