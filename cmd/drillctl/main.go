package main

import (
	"context"
	"fmt"
	"os"

	"github.com/drillkit/drill/internal/cli/drillctl"
	"github.com/drillkit/drill/internal/config"
	"github.com/drillkit/drill/internal/observability"
	"github.com/drillkit/drill/internal/storage"
	s3store "github.com/drillkit/drill/internal/storage/s3"
)

func main() {
	cfg, err := config.LoadFromEnv("drillctl")
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}

	options := drillctl.Options{
		URL:         cfg.Client.URL,
		OpenTimeout: cfg.Client.OpenTimeout,
		ReadTimeout: cfg.Client.ReadTimeout,
		Lookup:      os.LookupEnv,
		Logger:      observability.NewLogger(cfg, os.Stderr),
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
	}
	if cfg.ExportEnabled() {
		options.OpenStore = func(ctx context.Context) (storage.ExportStore, error) {
			store, err := s3store.New(ctx, s3store.Config{
				Endpoint:         cfg.Export.Endpoint,
				Region:           cfg.Export.Region,
				Bucket:           cfg.Export.Bucket,
				AccessKeyID:      cfg.Export.AccessKeyID,
				SecretAccessKey:  cfg.Export.SecretAccessKey,
				UseSSL:           cfg.Export.UseSSL,
				Prefix:           cfg.Export.Prefix,
				AutoCreateBucket: cfg.Export.AutoCreateBucket,
			})
			if err != nil {
				return nil, err
			}
			return store, nil
		}
	}

	code := drillctl.Run(context.Background(), os.Args[1:], options)
	os.Exit(code)
}
