package drill

import (
	"os"
	"strings"
)

type LookupFunc func(string) (string, bool)

// ResolveURL picks the base URL: the explicit argument, then DRILL_URL,
// then DefaultURL. Blank values are treated as absent.
func ResolveURL(explicit string, lookup LookupFunc) string {
	if value := strings.TrimSpace(explicit); value != "" {
		return value
	}
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if raw, ok := lookup(URLEnv); ok {
		if value := strings.TrimSpace(raw); value != "" {
			return value
		}
	}
	return DefaultURL
}
