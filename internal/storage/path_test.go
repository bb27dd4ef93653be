package storage

import (
	"testing"
	"time"
)

func TestBuildExportPath(t *testing.T) {
	ts := time.Date(2026, time.February, 19, 22, 5, 0, 0, time.FixedZone("x", -5*3600))
	key, err := BuildExportPath("daily-orders", ts)
	if err != nil {
		t.Fatalf("BuildExportPath() error = %v", err)
	}
	want := "exports/date=2026-02-20/daily-orders-1771556700000000000.parquet"
	if key != want {
		t.Fatalf("BuildExportPath() = %q, want %q", key, want)
	}
}

func TestBuildExportPathRejectsInvalidName(t *testing.T) {
	for _, name := range []string{"", "../oops", "a/b", ".hidden"} {
		if _, err := BuildExportPath(name, time.Now()); err == nil {
			t.Fatalf("BuildExportPath(%q) expected error", name)
		}
	}
}
