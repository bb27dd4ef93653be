package drill

import (
	"fmt"
	"strings"
)

// QueryError is returned by Query when the server reports an errorMessage.
// Message holds the first line only; Detail keeps the remaining lines,
// usually Drill's error id and stack trace.
type QueryError struct {
	Message string
	Detail  string
}

func newQueryError(raw string) *QueryError {
	message, detail, _ := strings.Cut(raw, "\n")
	return &QueryError{Message: message, Detail: detail}
}

func (e *QueryError) Error() string {
	return e.Message
}

// ConnectionError reports that the server refused the connection.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return e.Err.Error()
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ConfigError reports a base URL that cannot be used.
type ConfigError struct {
	URL string
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid drill url %q: %v", e.URL, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
