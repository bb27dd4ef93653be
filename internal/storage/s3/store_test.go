package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/drillkit/drill/internal/storage"
)

func TestPutUsesPrefixAndNormalizedKey(t *testing.T) {
	fake := &fakeClient{}
	store, err := NewWithClient("bucket-a", "drill/prod", fake)
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}

	info, err := store.Put(context.Background(), "/exports/date=2026-02-19/orders-1.parquet", bytes.NewBufferString("abc"), 3, storage.PutOptions{ContentType: storage.ParquetContentType})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if fake.lastPutBucket != "bucket-a" {
		t.Fatalf("bucket = %q", fake.lastPutBucket)
	}
	if fake.lastPutKey != "drill/prod/exports/date=2026-02-19/orders-1.parquet" {
		t.Fatalf("key = %q", fake.lastPutKey)
	}
	if fake.lastOpts.ContentType != storage.ParquetContentType {
		t.Fatalf("content type = %q", fake.lastOpts.ContentType)
	}
	if info.ETag != "etag-1" {
		t.Fatalf("etag = %q", info.ETag)
	}
}

func TestPutExportStoresDatedParquetObject(t *testing.T) {
	fake := &fakeClient{}
	store, err := NewWithClient("bucket-a", "team", fake)
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}

	info, err := store.PutExport(context.Background(), storage.Export{
		Name:        "daily-orders",
		Statement:   "SELECT id,\n\tname\nFROM orders -- café",
		RecordCount: 42,
		CreatedAt:   time.Date(2026, time.February, 19, 22, 5, 0, 0, time.FixedZone("x", -5*3600)),
		Data:        []byte("PAR1data"),
	})
	if err != nil {
		t.Fatalf("PutExport() error = %v", err)
	}
	wantKey := "team/exports/date=2026-02-20/daily-orders-1771556700000000000.parquet"
	if fake.lastPutKey != wantKey || info.Key != wantKey {
		t.Fatalf("key = %q / %q", fake.lastPutKey, info.Key)
	}
	if info.URI != "s3://bucket-a/"+wantKey {
		t.Fatalf("URI = %q", info.URI)
	}
	if info.Size != 8 {
		t.Fatalf("size = %d", info.Size)
	}
	if fake.lastOpts.ContentType != storage.ParquetContentType {
		t.Fatalf("content type = %q", fake.lastOpts.ContentType)
	}
	if fake.lastOpts.Metadata["drill-record-count"] != "42" {
		t.Fatalf("metadata = %v", fake.lastOpts.Metadata)
	}
	if got := fake.lastOpts.Metadata["drill-statement"]; got != "SELECT id, name FROM orders -- caf?" {
		t.Fatalf("statement metadata = %q", got)
	}
}

func TestPutExportRejectsSizeMismatchAndBadName(t *testing.T) {
	fake := &fakeClient{statSize: 3}
	store, err := NewWithClient("bucket-a", "", fake)
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}
	export := storage.Export{Name: "orders", CreatedAt: time.Now(), Data: []byte("PAR1data")}
	if _, err := store.PutExport(context.Background(), export); err == nil || !strings.Contains(err.Error(), "stored 3 bytes") {
		t.Fatalf("PutExport() error = %v", err)
	}

	export.Name = "../orders"
	if _, err := store.PutExport(context.Background(), export); err == nil {
		t.Fatal("expected invalid export name error")
	}
}

func TestStatementMetadataIsTruncated(t *testing.T) {
	got := statementMetadata(strings.Repeat("x", 5000))
	if len(got) != maxStatementMeta {
		t.Fatalf("len = %d", len(got))
	}
}

func TestPutRejectsPathTraversal(t *testing.T) {
	store, err := NewWithClient("bucket-a", "", &fakeClient{})
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}
	_, err = store.Put(context.Background(), "../secrets.txt", bytes.NewBufferString("x"), 1, storage.PutOptions{})
	if err == nil {
		t.Fatal("expected path traversal validation error")
	}
}

func TestStatMapsMissingObject(t *testing.T) {
	store, err := NewWithClient("bucket-a", "", &fakeClient{statErr: storage.ErrObjectNotFound})
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}
	_, err = store.Stat(context.Background(), "exports/missing.parquet")
	if !errors.Is(err, storage.ErrObjectNotFound) {
		t.Fatalf("Stat() error = %v", err)
	}
}

func TestURIIncludesBucketAndPrefix(t *testing.T) {
	store, err := NewWithClient("bucket-a", "/team/", &fakeClient{})
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}
	uri, err := store.URI("exports/a.parquet")
	if err != nil {
		t.Fatalf("URI() error = %v", err)
	}
	if uri != "s3://bucket-a/team/exports/a.parquet" {
		t.Fatalf("URI() = %q", uri)
	}
}

func TestEnsureBucketCreatesWhenMissing(t *testing.T) {
	fake := &fakeClient{bucketExists: false}
	store, err := NewWithClient("bucket-a", "", fake)
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}

	if err := store.ensureBucket(context.Background(), "us-east-1"); err != nil {
		t.Fatalf("ensureBucket() error = %v", err)
	}
	if !fake.createBucketCalled {
		t.Fatal("expected CreateBucket to be called")
	}
}

func TestNewRequiresEndpointAndBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{Bucket: "b"}); err == nil {
		t.Fatal("expected endpoint error")
	}
	if _, err := New(context.Background(), Config{Endpoint: "localhost:9000"}); err == nil {
		t.Fatal("expected bucket error")
	}
}

func TestParseEndpoint(t *testing.T) {
	endpoint, secure, err := parseEndpoint("https://minio.example.com", false)
	if err != nil {
		t.Fatalf("parseEndpoint() error = %v", err)
	}
	if endpoint != "minio.example.com" || !secure {
		t.Fatalf("endpoint/secure = %q/%v", endpoint, secure)
	}

	endpoint, secure, err = parseEndpoint("localhost:9000", false)
	if err != nil {
		t.Fatalf("parseEndpoint() error = %v", err)
	}
	if endpoint != "localhost:9000" || secure {
		t.Fatalf("endpoint/secure = %q/%v", endpoint, secure)
	}
}

type fakeClient struct {
	lastPutBucket      string
	lastPutKey         string
	lastOpts           storage.PutOptions
	lastSize           int64
	bucketExists       bool
	createBucketCalled bool
	statErr            error
	statSize           int64
}

func (f *fakeClient) Put(_ context.Context, bucket, key string, reader io.Reader, size int64, opts storage.PutOptions) (storage.ObjectInfo, error) {
	f.lastPutBucket = bucket
	f.lastPutKey = key
	f.lastOpts = opts
	f.lastSize = size
	_, _ = io.Copy(io.Discard, reader)
	return storage.ObjectInfo{Key: key, Size: size, ETag: "etag-1"}, nil
}

func (f *fakeClient) Stat(_ context.Context, _, key string) (storage.ObjectInfo, error) {
	if f.statErr != nil {
		return storage.ObjectInfo{}, f.statErr
	}
	size := f.lastSize
	if f.statSize != 0 {
		size = f.statSize
	}
	return storage.ObjectInfo{Key: key, Size: size, LastModified: time.Now().UTC()}, nil
}

func (f *fakeClient) BucketExists(_ context.Context, _ string) (bool, error) {
	return f.bucketExists, nil
}

func (f *fakeClient) CreateBucket(_ context.Context, _, _ string) error {
	f.createBucketCalled = true
	return nil
}
