// Package drill is a client for the Apache Drill REST API.
//
// It runs SQL through POST /query.json and reads the profiles, storage,
// cluster and options endpoints:
//
//	client, err := drill.New(drill.Options{URL: "http://localhost:8047"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := client.Query(ctx, "SELECT * FROM cp.`employee.json` LIMIT 5")
//
// Query results keep the column order reported by the server. Numbers are
// decoded as json.Number so large integers survive unchanged. Server-side
// failures surface as *QueryError, refused connections as *ConnectionError.
//
// A Client is immutable after New and safe for concurrent use.
package drill

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const (
	// DefaultURL is used when neither Options.URL nor DRILL_URL is set.
	DefaultURL = "http://localhost:8047"
	// DefaultOpenTimeout bounds connection setup when Options.OpenTimeout is zero.
	DefaultOpenTimeout = 3 * time.Second
	// URLEnv names the environment variable consulted for the base URL.
	URLEnv = "DRILL_URL"
)

// Options configures New.
type Options struct {
	// URL of the Drill web server. Empty falls back to DRILL_URL, then DefaultURL.
	URL string
	// OpenTimeout bounds connection setup. Zero means DefaultOpenTimeout,
	// negative leaves the transport default in place.
	OpenTimeout time.Duration
	// ReadTimeout bounds every read from the connection, response headers
	// and body alike. Zero or negative leaves it unset.
	ReadTimeout time.Duration
	// Transport wraps the configured transport, e.g. for instrumentation.
	// It also wraps HTTPClient's transport when one is given.
	Transport func(http.RoundTripper) http.RoundTripper
	// HTTPClient replaces the constructed client. Timeouts are then the
	// caller's responsibility. The client itself is not modified.
	HTTPClient *http.Client
	Logger     *slog.Logger
	// Lookup reads environment variables; nil means os.LookupEnv.
	Lookup LookupFunc
}

// Client talks to one Drill web server. Create it with New.
type Client struct {
	base        *url.URL
	host        string
	port        int
	openTimeout time.Duration
	readTimeout time.Duration
	httpClient  *http.Client
	logger      *slog.Logger
}

type queryRequest struct {
	QueryType string `json:"queryType"`
	Query     string `json:"query"`
}

type queryResponse struct {
	QueryID      string           `json:"queryId"`
	QueryState   string           `json:"queryState"`
	Columns      []string         `json:"columns"`
	Rows         []map[string]any `json:"rows"`
	ErrorMessage *string          `json:"errorMessage"`
}

// New validates the base URL and builds a Client. It does no network I/O.
func New(opts Options) (*Client, error) {
	raw := ResolveURL(opts.URL, opts.Lookup)
	base, host, port, err := parseBaseURL(raw)
	if err != nil {
		return nil, err
	}

	openTimeout := opts.OpenTimeout
	if openTimeout == 0 {
		openTimeout = DefaultOpenTimeout
	}
	if openTimeout < 0 {
		openTimeout = 0
	}
	readTimeout := opts.ReadTimeout
	if readTimeout < 0 {
		readTimeout = 0
	}

	var client *http.Client
	if opts.HTTPClient != nil {
		copied := *opts.HTTPClient
		client = &copied
	} else {
		client = &http.Client{Transport: newTransport(base.Scheme == "https", openTimeout, readTimeout)}
	}
	if opts.Transport != nil {
		next := client.Transport
		if next == nil {
			next = http.DefaultTransport
		}
		client.Transport = opts.Transport(next)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		base:        base,
		host:        host,
		port:        port,
		openTimeout: openTimeout,
		readTimeout: readTimeout,
		httpClient:  client,
		logger:      logger,
	}, nil
}

func newTransport(useTLS bool, openTimeout, readTimeout time.Duration) *http.Transport {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	dialer := &net.Dialer{KeepAlive: 30 * time.Second}
	if openTimeout > 0 {
		dialer.Timeout = openTimeout
		transport.TLSHandshakeTimeout = openTimeout
	}
	transport.DialContext = dialer.DialContext
	if readTimeout > 0 {
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			return &deadlineConn{Conn: conn, timeout: readTimeout}, nil
		}
		transport.ResponseHeaderTimeout = readTimeout
		// Idle pooled connections would trip the read deadline between calls.
		transport.DisableKeepAlives = true
	}
	if useTLS {
		transport.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return transport
}

// deadlineConn restarts the read deadline before every read and write, so a
// server that stalls mid-body fails after timeout instead of hanging.
type deadlineConn struct {
	net.Conn
	timeout time.Duration
}

func (c *deadlineConn) Read(p []byte) (int, error) {
	if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Read(p)
}

func (c *deadlineConn) Write(p []byte) (int, error) {
	if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Write(p)
}

func parseBaseURL(raw string) (*url.URL, string, int, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, "", 0, &ConfigError{URL: raw, Err: err}
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, "", 0, &ConfigError{URL: raw, Err: fmt.Errorf("unsupported scheme %q", parsed.Scheme)}
	}
	host := parsed.Hostname()
	if host == "" {
		return nil, "", 0, &ConfigError{URL: raw, Err: errors.New("host is required")}
	}

	port := 80
	if scheme == "https" {
		port = 443
	}
	if rawPort := parsed.Port(); rawPort != "" {
		port, err = strconv.Atoi(rawPort)
		if err != nil || port <= 0 || port > 65535 {
			return nil, "", 0, &ConfigError{URL: raw, Err: fmt.Errorf("invalid port %q", rawPort)}
		}
	}

	// Requests always target the server root; any path on the base URL is ignored.
	base := &url.URL{Scheme: scheme, Host: net.JoinHostPort(host, strconv.Itoa(port))}
	return base, host, port, nil
}

func (c *Client) Host() string { return c.host }
func (c *Client) Port() int { return c.port }
func (c *Client) Scheme() string { return c.base.Scheme }
func (c *Client) UseTLS() bool { return c.base.Scheme == "https" }
func (c *Client) BaseURL() string { return c.base.String() }
func (c *Client) OpenTimeout() time.Duration { return c.openTimeout }
func (c *Client) ReadTimeout() time.Duration { return c.readTimeout }

// Query runs statement as SQL and returns its rows in column order.
func (c *Client) Query(ctx context.Context, statement string) (Result, error) {
	var body queryResponse
	if err := c.post(ctx, "/query.json", queryRequest{QueryType: "sql", Query: statement}, &body); err != nil {
		return Result{}, err
	}

	if body.ErrorMessage != nil {
		queryErr := newQueryError(*body.ErrorMessage)
		if queryErr.Detail != "" {
			c.logger.DebugContext(ctx, "drill query error detail",
				slog.String("message", queryErr.Message),
				slog.String("detail", queryErr.Detail),
			)
		}
		return Result{}, queryErr
	}

	return newResult(body.QueryID, body.QueryState, body.Columns, body.Rows), nil
}

// Profiles returns the decoded body of GET /profiles.json.
func (c *Client) Profiles(ctx context.Context) (any, error) {
	return c.getJSON(ctx, "/profiles.json")
}

// Storage returns the decoded body of GET /storage.json.
func (c *Client) Storage(ctx context.Context) (any, error) {
	return c.getJSON(ctx, "/storage.json")
}

// Cluster returns the decoded body of GET /cluster.json.
func (c *Client) Cluster(ctx context.Context) (any, error) {
	return c.getJSON(ctx, "/cluster.json")
}

// Options returns the decoded body of GET /options.json.
func (c *Client) Options(ctx context.Context) (any, error) {
	return c.getJSON(ctx, "/options.json")
}

func (c *Client) getJSON(ctx context.Context, path string) (any, error) {
	var out any
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, encoded, out)
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return decodeJSON(raw, out)
}

// decodeJSON keeps numbers as json.Number. Invalid input goes through
// json.Unmarshal so callers still see *json.SyntaxError.
func decodeJSON(raw []byte, out any) error {
	if !json.Valid(raw) {
		return json.Unmarshal(raw, out)
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	return decoder.Decode(out)
}

func transportError(err error) error {
	if !errors.Is(err, syscall.ECONNREFUSED) {
		return err
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return &ConnectionError{Err: urlErr.Err}
	}
	return &ConnectionError{Err: err}
}
