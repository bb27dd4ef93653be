package migrations

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"testing/fstest"

	_ "github.com/marcboeker/go-duckdb/v2"
)

func TestLoadScriptsSortsByVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/000002_two.sql": {Data: []byte("SELECT 2;")},
		"sql/000001_one.sql": {Data: []byte("SELECT 1;")},
		"sql/README.md":      {Data: []byte("ignored")},
	}

	items, err := loadScripts(fsys)
	if err != nil {
		t.Fatalf("loadScripts() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d", len(items))
	}
	if items[0].Version != 1 || items[0].Name != "one" || items[1].Version != 2 {
		t.Fatalf("unexpected seed order: %+v", items)
	}
}

func TestLoadScriptsRejectsEmptyAndDuplicateVersions(t *testing.T) {
	empty := fstest.MapFS{"sql/000001_one.sql": {Data: []byte("  \n")}}
	if _, err := loadScripts(empty); err == nil || !strings.Contains(err.Error(), "empty SQL") {
		t.Fatalf("loadScripts(empty) error = %v", err)
	}

	duplicate := fstest.MapFS{
		"sql/000001_one.sql":   {Data: []byte("SELECT 1;")},
		"sql/000001_again.sql": {Data: []byte("SELECT 1;")},
	}
	if _, err := loadScripts(duplicate); err == nil {
		t.Fatal("expected duplicate version error")
	}
}

func TestEmbeddedScriptsLoad(t *testing.T) {
	items, err := loadScripts(embeddedFS)
	if err != nil {
		t.Fatalf("loadScripts() error = %v", err)
	}
	if len(items) == 0 || !strings.Contains(items[0].SQL, "CREATE TABLE IF NOT EXISTS employee") {
		t.Fatalf("embedded scripts = %+v", items)
	}
}

func TestApplySeedsDuckDBOnce(t *testing.T) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	defer func() { _ = db.Close() }()
	ctx := context.Background()

	runner := NewRunner()
	applied, err := runner.Apply(ctx, db)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if applied != 2 {
		t.Fatalf("Apply() = %d, want 2", applied)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT count(*) FROM employee").Scan(&count); err != nil {
		t.Fatalf("count employee: %v", err)
	}
	if count != 6 {
		t.Fatalf("employee rows = %d", count)
	}

	again, err := runner.Apply(ctx, db)
	if err != nil {
		t.Fatalf("second Apply() error = %v", err)
	}
	if again != 0 {
		t.Fatalf("second Apply() = %d, want 0", again)
	}
}
