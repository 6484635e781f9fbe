package middleware

import (
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/zatekoja/coachpackets/internal/infrastructure/observability"
)

// RouteResolver maps a request to its registered mux pattern. The pattern is
// only set on the request the mux hands to its handler, so middleware wrapping
// the mux has to ask for it up front.
type RouteResolver func(*http.Request) string

// MuxRoutes resolves patterns against mux.
func MuxRoutes(mux *http.ServeMux) RouteResolver {
	return func(r *http.Request) string {
		_, pattern := mux.Handler(r)
		return pattern
	}
}

// ObservabilityMiddleware traces each request and records its latency under
// the matched route, never the raw path, so packet IDs do not become metric
// labels. Unmatched requests are recorded as "unmatched".
func ObservabilityMiddleware(metrics *observability.Metrics, routes RouteResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := "unmatched"
			if routes != nil {
				if p := routes(r); p != "" {
					route = routeLabel(p)
				}
			}

			ctx, span := observability.StartSpan(r.Context(), r.Method+" "+route)
			defer span.End()

			observability.SetSpanAttributes(span,
				attribute.String("http.method", r.Method),
				attribute.String("http.route", route),
				attribute.String("http.request_id", observability.RequestIDFromContext(ctx)),
			)

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r.WithContext(ctx))

			span.SetAttributes(attribute.Int("http.status_code", rec.status))
			if rec.status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(rec.status))
			}
			observability.RecordRequestMetric(ctx, metrics, r.Method, route, rec.status, time.Since(start))
		})
	}
}

// routeLabel drops the method prefix from a "GET /path" pattern.
func routeLabel(pattern string) string {
	if i := strings.IndexByte(pattern, ' '); i >= 0 {
		return pattern[i+1:]
	}
	return pattern
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status = code
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	s.wroteHeader = true
	return s.ResponseWriter.Write(b)
}

// Flush keeps SSE streaming working through the wrapper.
func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}
