package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var ErrObjectNotFound = errors.New("object not found")

// ParquetContentType labels exported query results.
const ParquetContentType = "application/vnd.apache.parquet"

type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}

type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// ObjectStore receives exported query results.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, opts PutOptions) (ObjectInfo, error)
	Stat(ctx context.Context, key string) (ObjectInfo, error)
}

// Export is one query result encoded as Parquet, ready to upload.
type Export struct {
	Name        string
	Statement   string
	RecordCount int64
	CreatedAt   time.Time
	Data        []byte
}

type ExportInfo struct {
	ObjectInfo
	URI string
}

// ExportStore places exports under BuildExportPath keys and verifies them
// after upload.
type ExportStore interface {
	PutExport(ctx context.Context, export Export) (ExportInfo, error)
}
