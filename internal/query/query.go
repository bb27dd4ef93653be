package query

import (
	"context"
	"time"
)

type Request struct {
	SQL      string
	RowLimit int
}

type Result struct {
	Columns  []string
	Rows     [][]any
	Duration time.Duration
}

type Engine interface {
	Execute(ctx context.Context, request Request) (Result, error)
	// Plugins lists the storage plugin names the engine exposes.
	Plugins() []Plugin
	Ping(ctx context.Context) error
}

type Plugin struct {
	Name    string
	Type    string
	Enabled bool
}
