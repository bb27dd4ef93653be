package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/drillkit/drill/internal/config"
	"github.com/drillkit/drill/internal/observability"
	"github.com/drillkit/drill/internal/query"
)

var errEngineMissing = errors.New("query engine is not configured")

type queryRequest struct {
	QueryType     string `json:"queryType"`
	Query         string `json:"query"`
	AutoLimit     string `json:"autoLimit"`
	DefaultSchema string `json:"defaultSchema"`
}

type queryResponse struct {
	QueryID            string           `json:"queryId"`
	Columns            []string         `json:"columns"`
	Rows               []map[string]any `json:"rows"`
	QueryState         string           `json:"queryState"`
	AttemptedAutoLimit int              `json:"attemptedAutoLimit"`
}

type queryFailure struct {
	QueryID      string `json:"queryId,omitempty"`
	QueryState   string `json:"queryState"`
	ErrorMessage string `json:"errorMessage"`
}

func handleQuery(cfg config.Config, deps Dependencies, w http.ResponseWriter, r *http.Request) {
	var request queryRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid query request body: %v", err))
		return
	}
	if !strings.EqualFold(request.QueryType, "sql") {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported queryType %q", request.QueryType))
		return
	}
	if strings.TrimSpace(request.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	if deps.QueryEngine == nil {
		writeError(w, http.StatusNotImplemented, errEngineMissing.Error())
		return
	}

	autoLimit := 0
	if raw := strings.TrimSpace(request.AutoLimit); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid autoLimit %q", request.AutoLimit))
			return
		}
		autoLimit = parsed
	}
	rowLimit := effectiveRowLimit(cfg.Sandbox.RowLimit, autoLimit)

	queryID := newQueryID()
	started := deps.Now()
	deps.Profiles.Start(queryID, request.Query, started)

	result, err := deps.QueryEngine.Execute(r.Context(), query.Request{SQL: request.Query, RowLimit: rowLimit})
	finished := deps.Now()
	if err != nil {
		deps.Profiles.Finish(queryID, StateFailed, finished)
		observability.ObserveSandboxQuery(StateFailed, -1, finished.Sub(started))
		if deps.Logger != nil {
			deps.Logger.WarnContext(r.Context(), "sandbox query failed",
				slog.String("query_id", queryID),
				slog.Any("error", err),
			)
		}
		writeJSON(w, http.StatusInternalServerError, queryFailure{
			QueryID:      queryID,
			QueryState:   StateFailed,
			ErrorMessage: formatQueryError(err, request.Query, queryID, deps.Hostname),
		})
		return
	}

	deps.Profiles.Finish(queryID, StateCompleted, finished)
	observability.ObserveSandboxQuery(StateCompleted, len(result.Rows), finished.Sub(started))

	writeJSON(w, http.StatusOK, queryResponse{
		QueryID:            queryID,
		Columns:            result.Columns,
		Rows:               rowMaps(result),
		QueryState:         StateCompleted,
		AttemptedAutoLimit: autoLimit,
	})
}

func rowMaps(result query.Result) []map[string]any {
	rows := make([]map[string]any, 0, len(result.Rows))
	for _, values := range result.Rows {
		row := make(map[string]any, len(result.Columns))
		for i, column := range result.Columns {
			if i < len(values) {
				row[column] = values[i]
			} else {
				row[column] = nil
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func effectiveRowLimit(configured, autoLimit int) int {
	switch {
	case autoLimit <= 0:
		return configured
	case configured <= 0 || autoLimit < configured:
		return autoLimit
	default:
		return configured
	}
}

// formatQueryError mirrors Drill's multi-line errorMessage: a one-line
// summary, then the statement and the error id.
func formatQueryError(err error, statement, queryID, hostname string) string {
	summary, _, _ := strings.Cut(err.Error(), "\n")
	return fmt.Sprintf("SYSTEM ERROR: %s\n\nSQL Query: %s\n\n[Error Id: %s on %s:31010]",
		summary, strings.TrimSpace(statement), queryID, hostname)
}

func newQueryID() string {
	id := observability.NewID()
	if len(id) < 32 {
		id = strings.Repeat("0", 32-len(id)) + id
	}
	return fmt.Sprintf("%s-%s-%s-%s-%s", id[0:8], id[8:12], id[12:16], id[16:20], id[20:32])
}

