package observability

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

const traceHeader = "X-Trace-ID"

// Middleware attaches a trace id, records request metrics and, when logger
// is non-nil, writes one access log line per request. Only paths listed in
// routes keep their own metric label; everything else is reported as "other".
func Middleware(logger *slog.Logger, routes ...string) func(http.Handler) http.Handler {
	known := make(map[string]struct{}, len(routes))
	for _, route := range routes {
		known[route] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			traceID := r.Header.Get(traceHeader)
			if traceID == "" {
				traceID = NewID()
			}
			ctx := ContextWithTraceID(r.Context(), traceID)
			w.Header().Set(traceHeader, traceID)

			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r.WithContext(ctx))
			elapsed := time.Since(start)

			path := r.URL.Path
			if _, ok := known[path]; !ok {
				path = "other"
			}
			status := strconv.Itoa(recorder.status)
			httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			httpRequestDurationSeconds.WithLabelValues(r.Method, path, status).Observe(elapsed.Seconds())

			if logger != nil {
				logger.InfoContext(ctx, "http_request",
					slog.String("trace_id", traceID),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("remote_addr", r.RemoteAddr),
					slog.Int("status", recorder.status),
					slog.String("duration", elapsed.String()),
					slog.Int("bytes", recorder.bytes),
				)
			}
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(body []byte) (int, error) {
	n, err := r.ResponseWriter.Write(body)
	r.bytes += n
	return n, err
}

// NewID returns 32 random hex characters.
func NewID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 16)
	}
	return hex.EncodeToString(buf)
}
