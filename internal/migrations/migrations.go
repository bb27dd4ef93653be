// Package migrations seeds the sandbox database with the sample tables that
// Drill ships in its classpath storage plugin, so queries such as
// SELECT * FROM employee work against a fresh sandbox.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

//go:embed sql/*.sql
var embeddedFS embed.FS

const seedTable = "drill_sandbox_seeds"

var scriptNamePattern = regexp.MustCompile(`^([0-9]+)_(.+)\.sql$`)

type Runner struct {
	fsys fs.FS
}

func NewRunner() *Runner {
	return &Runner{fsys: embeddedFS}
}

type script struct {
	Version int64
	Name    string
	SQL     string
}

// Apply runs every script not yet recorded in the seed table, in version
// order, each in its own transaction. It returns how many scripts ran.
func (r *Runner) Apply(ctx context.Context, db *sql.DB) (int, error) {
	scripts, err := loadScripts(r.fsys)
	if err != nil {
		return 0, err
	}
	if err := ensureSeedTable(ctx, db); err != nil {
		return 0, err
	}
	applied, err := listAppliedVersions(ctx, db)
	if err != nil {
		return 0, err
	}

	runCount := 0
	for _, item := range scripts {
		if _, ok := applied[item.Version]; ok {
			continue
		}
		if err := applyScript(ctx, db, item); err != nil {
			return runCount, err
		}
		runCount++
	}
	return runCount, nil
}

func ensureSeedTable(ctx context.Context, db *sql.DB) error {
	query := `
CREATE TABLE IF NOT EXISTS ` + seedTable + ` (
	version BIGINT PRIMARY KEY,
	name VARCHAR NOT NULL
)`
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ensure seed table: %w", err)
	}
	return nil
}

func applyScript(ctx context.Context, db *sql.DB, item script) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, item.SQL); err != nil {
		return fmt.Errorf("apply seed %d (%s): %w", item.Version, item.Name, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO `+seedTable+` (version, name) VALUES ($1, $2)`, item.Version, item.Name); err != nil {
		return fmt.Errorf("mark seed %d: %w", item.Version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed %d: %w", item.Version, err)
	}
	return nil
}

func listAppliedVersions(ctx context.Context, db *sql.DB) (map[int64]struct{}, error) {
	rows, err := db.QueryContext(ctx, `SELECT version FROM `+seedTable)
	if err != nil {
		return nil, fmt.Errorf("query applied seeds: %w", err)
	}
	defer func() { _ = rows.Close() }()

	versions := map[int64]struct{}{}
	for rows.Next() {
		var version int64
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions[version] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return versions, nil
}

func loadScripts(fsys fs.FS) ([]script, error) {
	entries, err := fs.ReadDir(fsys, "sql")
	if err != nil {
		return nil, fmt.Errorf("read seed dir: %w", err)
	}

	byVersion := map[int64]script{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		base := path.Base(entry.Name())
		matches := scriptNamePattern.FindStringSubmatch(base)
		if len(matches) != 3 {
			continue
		}
		version, err := strconv.ParseInt(matches[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse seed version for %q: %w", base, err)
		}
		if existing, dup := byVersion[version]; dup {
			return nil, fmt.Errorf("seed version %d used by %q and %q", version, existing.Name, matches[2])
		}

		body, err := fs.ReadFile(fsys, path.Join("sql", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read seed %q: %w", entry.Name(), err)
		}
		if strings.TrimSpace(string(body)) == "" {
			return nil, fmt.Errorf("seed %d has empty SQL", version)
		}
		byVersion[version] = script{Version: version, Name: matches[2], SQL: string(body)}
	}

	scripts := make([]script, 0, len(byVersion))
	for _, item := range byVersion {
		scripts = append(scripts, item)
	}
	sort.Slice(scripts, func(i, j int) bool { return scripts[i].Version < scripts[j].Version })
	return scripts, nil
}
