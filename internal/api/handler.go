package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/drillkit/drill/internal/config"
	"github.com/drillkit/drill/internal/observability"
	"github.com/drillkit/drill/internal/query"
)

type Dependencies struct {
	Logger            *slog.Logger
	QueryEngine       query.Engine
	Profiles          *ProfileLog
	DependencyTimeout time.Duration
	Hostname          string
	Now               func() time.Time
}

// NewHandler serves the subset of the Drill REST API the client consumes.
func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	if deps.Hostname == "" {
		deps.Hostname = "localhost"
	}
	if deps.Profiles == nil {
		deps.Profiles = NewProfileLog(cfg.Sandbox.ProfileLimit, deps.Hostname)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /query.json", func(w http.ResponseWriter, r *http.Request) {
		handleQuery(cfg, deps, w, r)
	})
	mux.HandleFunc("GET /profiles.json", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, deps.Profiles.Snapshot())
	})
	mux.HandleFunc("GET /storage.json", func(w http.ResponseWriter, _ *http.Request) {
		handleStorage(deps, w)
	})
	mux.HandleFunc("GET /cluster.json", func(w http.ResponseWriter, r *http.Request) {
		handleCluster(cfg, deps, w, r)
	})
	mux.HandleFunc("GET /options.json", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, sandboxOptions(cfg))
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	return observability.Middleware(deps.Logger,
		"/query.json", "/profiles.json", "/storage.json", "/cluster.json", "/options.json", "/metrics",
	)(mux)
}

func pingEngine(ctx context.Context, deps Dependencies) error {
	if deps.QueryEngine == nil {
		return errEngineMissing
	}
	timeout := deps.DependencyTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return deps.QueryEngine.Ping(ctx)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"errorMessage": message})
}
