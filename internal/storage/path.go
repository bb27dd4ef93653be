package storage

import (
	"fmt"
	"path"
	"regexp"
	"time"
)

var pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// BuildExportPath returns exports/date=YYYY-MM-DD/<name>-<unix nanos>.parquet
// for an export created at createdAt.
func BuildExportPath(name string, createdAt time.Time) (string, error) {
	if err := ValidateExportName(name); err != nil {
		return "", err
	}
	ts := createdAt.UTC()
	return path.Join(
		"exports",
		fmt.Sprintf("date=%04d-%02d-%02d", ts.Year(), ts.Month(), ts.Day()),
		fmt.Sprintf("%s-%d.parquet", name, ts.UnixNano()),
	), nil
}

// ValidateExportName reports whether name can be used as an export file name.
func ValidateExportName(name string) error {
	return validatePathComponent(name, "export name")
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
