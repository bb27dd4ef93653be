package sqlengine

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/drillkit/drill/internal/config"
	"github.com/drillkit/drill/internal/query"
)

// Open connects the backend named in cfg. DuckDB runs in memory unless a
// DSN (a database file path) is configured.
func Open(ctx context.Context, cfg config.SandboxConfig) (*Engine, error) {
	var driver string
	var plugin query.Plugin
	switch cfg.Backend {
	case config.BackendDuckDB:
		driver = "duckdb"
		plugin = query.Plugin{Name: "dfs", Type: "file", Enabled: true}
	case config.BackendPostgres:
		driver = "pgx"
		plugin = query.Plugin{Name: "pg", Type: "jdbc", Enabled: true}
	default:
		return nil, fmt.Errorf("unsupported sandbox backend %q", cfg.Backend)
	}

	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Backend, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Backend, err)
	}
	return New(db, plugin), nil
}
