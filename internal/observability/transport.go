package observability

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"syscall"
	"time"
)

// InstrumentTransport wraps next so every Drill API round trip is counted,
// timed and logged at debug level.
func InstrumentTransport(next http.RoundTripper, logger *slog.Logger) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &instrumentedTransport{next: next, logger: logger}
}

type instrumentedTransport struct {
	next   http.RoundTripper
	logger *slog.Logger
}

func (t *instrumentedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	elapsed := time.Since(start)

	outcome := clientOutcome(resp, err)
	clientRequestsTotal.WithLabelValues(req.Method, req.URL.Path, outcome).Inc()
	clientRequestDurationSeconds.WithLabelValues(req.Method, req.URL.Path).Observe(elapsed.Seconds())

	if t.logger != nil {
		attrs := []any{
			slog.String("method", req.Method),
			slog.String("url", req.URL.String()),
			slog.String("outcome", outcome),
			slog.String("duration", elapsed.String()),
		}
		if err != nil {
			attrs = append(attrs, slog.Any("error", err))
		}
		t.logger.DebugContext(req.Context(), "drill_request", attrs...)
	}
	return resp, err
}

func clientOutcome(resp *http.Response, err error) string {
	switch {
	case err != nil && errors.Is(err, syscall.ECONNREFUSED):
		return "refused"
	case err != nil:
		return "error"
	default:
		return strconv.Itoa(resp.StatusCode)
	}
}
