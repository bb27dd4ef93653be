package drillctl

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/drillkit/drill"
	"github.com/drillkit/drill/internal/export"
	"github.com/drillkit/drill/internal/observability"
	"github.com/drillkit/drill/internal/storage"
)

const (
	formatJSON  = "json"
	formatTable = "table"
)

type Options struct {
	URL         string
	OpenTimeout time.Duration
	ReadTimeout time.Duration
	HTTPClient  *http.Client
	Lookup      drill.LookupFunc
	Logger      *slog.Logger
	// OpenStore is called only when -upload is given.
	OpenStore func(ctx context.Context) (storage.ExportStore, error)
	Now       func() time.Time
	Stdout    io.Writer
	Stderr    io.Writer
}

type usageError struct {
	msg string
}

func (e usageError) Error() string { return e.msg }

func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("drillctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	baseURL := fs.String("url", defaults.URL, "Drill web server URL (default $DRILL_URL, then "+drill.DefaultURL+")")
	openTimeout := fs.Duration("open-timeout", durationOr(defaults.OpenTimeout, drill.DefaultOpenTimeout), "connection timeout; negative disables it")
	readTimeout := fs.Duration("read-timeout", defaults.ReadTimeout, "response timeout; zero disables it")
	format := fs.String("format", formatJSON, "output format: json or table")
	exportPath := fs.String("export", "", "write query rows to this Parquet file")
	uploadName := fs.String("upload", "", "upload query rows as Parquet under this export name")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		writeUsage(stderr)
		return 2
	}
	*format = strings.ToLower(strings.TrimSpace(*format))
	if *format != formatJSON && *format != formatTable {
		_, _ = fmt.Fprintf(stderr, "unknown format %q\n", *format)
		return 2
	}

	logger := defaults.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	client, err := drill.New(drill.Options{
		URL:         *baseURL,
		OpenTimeout: *openTimeout,
		ReadTimeout: *readTimeout,
		HTTPClient:  defaults.HTTPClient,
		Logger:      logger,
		Lookup:      defaults.Lookup,
		Transport: func(next http.RoundTripper) http.RoundTripper {
			return observability.InstrumentTransport(next, logger)
		},
	})
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "%v\n", err)
		return 2
	}

	command := strings.TrimSpace(fs.Arg(0))
	if command != "query" && (*exportPath != "" || *uploadName != "") {
		_, _ = fmt.Fprintln(stderr, "-export and -upload apply to the query command only")
		return 2
	}

	var fetch func(context.Context) (any, error)
	switch command {
	case "query":
		statement := strings.TrimSpace(strings.Join(fs.Args()[1:], " "))
		if statement == "" {
			_, _ = fmt.Fprintln(stderr, "query requires a SQL statement")
			writeUsage(stderr)
			return 2
		}
		job := queryJob{
			client:     client,
			statement:  statement,
			format:     *format,
			exportPath: *exportPath,
			uploadName: strings.TrimSpace(*uploadName),
			defaults:   defaults,
			stdout:     stdout,
			stderr:     stderr,
		}
		return exitCode(stderr, job.run(ctx))
	case "profiles":
		fetch = client.Profiles
	case "storage":
		fetch = client.Storage
	case "cluster":
		fetch = client.Cluster
	case "options":
		fetch = client.Options
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n", command)
		writeUsage(stderr)
		return 2
	}

	value, err := fetch(ctx)
	if err != nil {
		return exitCode(stderr, err)
	}
	return exitCode(stderr, writeValue(stdout, *format, value))
}

type queryJob struct {
	client     *drill.Client
	statement  string
	format     string
	exportPath string
	uploadName string
	defaults   Options
	stdout     io.Writer
	stderr     io.Writer
}

func (j queryJob) run(ctx context.Context) error {
	var store storage.ExportStore
	if j.uploadName != "" {
		if err := storage.ValidateExportName(j.uploadName); err != nil {
			return usageError{msg: err.Error()}
		}
		if j.defaults.OpenStore == nil {
			return usageError{msg: "-upload requires DRILL_EXPORT_ENDPOINT and DRILL_EXPORT_BUCKET"}
		}
		opened, err := j.defaults.OpenStore(ctx)
		if err != nil {
			return fmt.Errorf("open export store: %w", err)
		}
		store = opened
	}

	result, err := j.client.Query(ctx, j.statement)
	if err != nil {
		return err
	}
	if err := writeResult(j.stdout, j.format, result); err != nil {
		return err
	}
	if j.exportPath == "" && store == nil {
		return nil
	}

	encoded, err := export.EncodeParquet(result)
	if err != nil {
		return fmt.Errorf("encode parquet: %w", err)
	}
	if j.exportPath != "" {
		if err := os.WriteFile(j.exportPath, encoded.Data, 0o644); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		_, _ = fmt.Fprintf(j.stderr, "exported %d rows to %s\n", encoded.RecordCount, j.exportPath)
	}
	if store != nil {
		return j.upload(ctx, store, encoded)
	}
	return nil
}

func (j queryJob) upload(ctx context.Context, store storage.ExportStore, encoded export.ParquetEncodeResult) error {
	now := time.Now
	if j.defaults.Now != nil {
		now = j.defaults.Now
	}
	info, err := store.PutExport(ctx, storage.Export{
		Name:        j.uploadName,
		Statement:   j.statement,
		RecordCount: encoded.RecordCount,
		CreatedAt:   now().UTC(),
		Data:        encoded.Data,
	})
	if err != nil {
		return fmt.Errorf("upload export: %w", err)
	}

	location := info.URI
	if location == "" {
		location = info.Key
	}
	_, _ = fmt.Fprintf(j.stderr, "uploaded %d rows to %s (%d bytes)\n", encoded.RecordCount, location, info.Size)
	return nil
}

func exitCode(stderr io.Writer, err error) int {
	if err == nil {
		return 0
	}
	var usageErr usageError
	var queryErr *drill.QueryError
	var connErr *drill.ConnectionError
	switch {
	case errors.As(err, &usageErr):
		_, _ = fmt.Fprintln(stderr, usageErr.msg)
		return 2
	case errors.As(err, &queryErr):
		_, _ = fmt.Fprintf(stderr, "query failed: %s\n", queryErr.Message)
	case errors.As(err, &connErr):
		_, _ = fmt.Fprintf(stderr, "connection failed: %v\n", connErr)
	default:
		_, _ = fmt.Fprintf(stderr, "request failed: %v\n", err)
	}
	return 1
}

func writeResult(w io.Writer, format string, result drill.Result) error {
	if format == formatJSON {
		return writeJSON(w, result.Rows)
	}
	data := pterm.TableData{result.Columns}
	for _, row := range result.Rows {
		cells := make([]string, 0, row.Len())
		for _, value := range row.Values() {
			cells = append(cells, formatCell(value))
		}
		data = append(data, cells)
	}
	return writeTable(w, data)
}

func writeValue(w io.Writer, format string, value any) error {
	if format == formatJSON {
		return writeJSON(w, value)
	}
	return writeTable(w, tableFor(value))
}

func writeJSON(w io.Writer, value any) error {
	formatted, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(formatted))
	return err
}

func writeTable(w io.Writer, data pterm.TableData) error {
	rendered, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, rendered)
	return err
}

// tableFor flattens decoded metadata: a list of objects becomes one row per
// object, an object with a single list of objects (drillbits, profiles) is
// unwrapped, anything else renders as key/value pairs.
func tableFor(value any) pterm.TableData {
	switch typed := value.(type) {
	case []any:
		if records, ok := objects(typed); ok {
			return recordTable(records)
		}
		data := pterm.TableData{{"value"}}
		for _, item := range typed {
			data = append(data, []string{formatCell(item)})
		}
		return data
	case map[string]any:
		keys := sortedKeys(typed)
		for _, key := range keys {
			if list, ok := typed[key].([]any); ok && len(list) > 0 {
				if records, ok := objects(list); ok {
					return recordTable(records)
				}
			}
		}
		data := pterm.TableData{{"key", "value"}}
		for _, key := range keys {
			data = append(data, []string{key, formatCell(typed[key])})
		}
		return data
	default:
		return pterm.TableData{{"value"}, {formatCell(value)}}
	}
}

func objects(list []any) ([]map[string]any, bool) {
	if len(list) == 0 {
		return nil, false
	}
	records := make([]map[string]any, 0, len(list))
	for _, item := range list {
		record, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		records = append(records, record)
	}
	return records, true
}

func recordTable(records []map[string]any) pterm.TableData {
	seen := map[string]bool{}
	var header []string
	for _, record := range records {
		for key := range record {
			if !seen[key] {
				seen[key] = true
				header = append(header, key)
			}
		}
	}
	sort.Strings(header)
	data := pterm.TableData{header}
	for _, record := range records {
		cells := make([]string, 0, len(header))
		for _, key := range header {
			cells = append(cells, formatCell(record[key]))
		}
		data = append(data, cells)
	}
	return data
}

func formatCell(value any) string {
	switch typed := value.(type) {
	case nil:
		return "null"
	case string:
		return typed
	default:
		encoded, err := json.Marshal(typed)
		if err != nil {
			return fmt.Sprint(typed)
		}
		return string(encoded)
	}
}

func sortedKeys(values map[string]any) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func writeUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: drillctl [flags] <command> [sql]")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "commands:")
	_, _ = fmt.Fprintln(w, "  query <sql>   POST /query.json")
	_, _ = fmt.Fprintln(w, "  profiles      GET /profiles.json")
	_, _ = fmt.Fprintln(w, "  storage       GET /storage.json")
	_, _ = fmt.Fprintln(w, "  cluster       GET /cluster.json")
	_, _ = fmt.Fprintln(w, "  options       GET /options.json")
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v != 0 {
		return v
	}
	return fallback
}
