package observability

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/drillkit/drill/internal/config"
)

func TestMiddlewarePreservesIncomingTraceID(t *testing.T) {
	h := Middleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := TraceIDFromContext(r.Context()); got != "trace-1" {
			t.Fatalf("TraceIDFromContext() = %q", got)
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/cluster.json", nil)
	req.Header.Set(traceHeader, "trace-1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get(traceHeader); got != "trace-1" {
		t.Fatalf("trace header = %q", got)
	}
}

func TestMiddlewareGeneratesTraceID(t *testing.T) {
	h := Middleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if TraceIDFromContext(r.Context()) == "" {
			t.Fatal("expected generated trace id")
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/cluster.json", nil))

	if len(rr.Header().Get(traceHeader)) != 32 {
		t.Fatalf("trace header = %q", rr.Header().Get(traceHeader))
	}
}

func TestMiddlewareRecordsKnownAndUnknownRoutes(t *testing.T) {
	h := Middleware(nil, "/options.json")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	beforeKnown := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/options.json", "418"))
	beforeOther := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "other", "418"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/options.json", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/random/path", nil))

	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/options.json", "418")); got != beforeKnown+1 {
		t.Fatalf("known route count = %v", got)
	}
	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "other", "418")); got != beforeOther+1 {
		t.Fatalf("other route count = %v", got)
	}
}

func TestMiddlewareLogsRequests(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	h := Middleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

	if !strings.Contains(logs.String(), `"status":202`) {
		t.Fatalf("log = %s", logs.String())
	}
}

func TestTraceIDContextHelpers(t *testing.T) {
	ctx := ContextWithTraceID(context.Background(), "abc123")
	if got := TraceIDFromContext(ctx); got != "abc123" {
		t.Fatalf("TraceIDFromContext() = %q", got)
	}
	if got := TraceIDFromContext(context.Background()); got != "" {
		t.Fatalf("TraceIDFromContext() = %q", got)
	}
}

func TestInstrumentTransportCountsRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	client := &http.Client{Transport: InstrumentTransport(nil, logger)}

	before := testutil.ToFloat64(clientRequestsTotal.WithLabelValues(http.MethodGet, "/cluster.json", "200"))
	resp, err := client.Get(srv.URL + "/cluster.json")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	if got := testutil.ToFloat64(clientRequestsTotal.WithLabelValues(http.MethodGet, "/cluster.json", "200")); got != before+1 {
		t.Fatalf("client request count = %v", got)
	}
	if !strings.Contains(logs.String(), "drill_request") {
		t.Fatalf("log = %s", logs.String())
	}
}

func TestInstrumentTransportReportsRefusedConnections(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := &http.Client{Transport: InstrumentTransport(nil, nil)}
	before := testutil.ToFloat64(clientRequestsTotal.WithLabelValues(http.MethodGet, "/profiles.json", "refused"))
	if _, err := client.Get(url + "/profiles.json"); err == nil {
		t.Fatal("expected connection error")
	}
	if got := testutil.ToFloat64(clientRequestsTotal.WithLabelValues(http.MethodGet, "/profiles.json", "refused")); got != before+1 {
		t.Fatalf("refused count = %v", got)
	}
}

func TestNewLoggerAttachesServiceAttributes(t *testing.T) {
	var logs bytes.Buffer
	logger := NewLogger(testConfig(), &logs)
	logger.Warn("hello")
	if !strings.Contains(logs.String(), `"service":"drillctl"`) {
		t.Fatalf("log = %s", logs.String())
	}
}

func testConfig() config.Config {
	return config.Config{
		Profile:       config.ProfileTest,
		Service:       config.ServiceConfig{Name: "drillctl"},
		Observability: config.ObservabilityConfig{LogLevel: slog.LevelInfo, LogJSON: true},
	}
}
