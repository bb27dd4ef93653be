package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	Client        ClientConfig
	Sandbox       SandboxConfig
	Export        ExportConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Name string
}

type ClientConfig struct {
	URL         string
	OpenTimeout time.Duration
	ReadTimeout time.Duration
}

type SandboxConfig struct {
	Address      string
	Backend      string
	DSN          string
	RowLimit     int
	ProfileLimit int
	Version      string
	Seed         bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type ExportConfig struct {
	Endpoint         string
	Region           string
	Bucket           string
	AccessKeyID      string
	SecretAccessKey  string
	UseSSL           bool
	Prefix           string
	AutoCreateBucket bool
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

const (
	BackendDuckDB   = "duckdb"
	BackendPostgres = "postgres"
)

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("DRILL_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid DRILL_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	appliers := []func() error{
		func() error { return applyString(lookup, "DRILL_SERVICE_NAME", &cfg.Service.Name) },
		func() error { return applyString(lookup, "DRILL_URL", &cfg.Client.URL) },
		func() error { return applyDuration(lookup, "DRILL_OPEN_TIMEOUT", &cfg.Client.OpenTimeout) },
		func() error { return applyDuration(lookup, "DRILL_READ_TIMEOUT", &cfg.Client.ReadTimeout) },
		func() error { return applyString(lookup, "DRILL_SANDBOX_ADDR", &cfg.Sandbox.Address) },
		func() error { return applyString(lookup, "DRILL_SANDBOX_BACKEND", &cfg.Sandbox.Backend) },
		func() error { return applyString(lookup, "DRILL_SANDBOX_DSN", &cfg.Sandbox.DSN) },
		func() error { return applyInt(lookup, "DRILL_SANDBOX_ROW_LIMIT", &cfg.Sandbox.RowLimit) },
		func() error { return applyInt(lookup, "DRILL_SANDBOX_PROFILE_LIMIT", &cfg.Sandbox.ProfileLimit) },
		func() error { return applyString(lookup, "DRILL_SANDBOX_VERSION", &cfg.Sandbox.Version) },
		func() error { return applyBool(lookup, "DRILL_SANDBOX_SEED", &cfg.Sandbox.Seed) },
		func() error { return applyDuration(lookup, "DRILL_SANDBOX_READ_TIMEOUT", &cfg.Sandbox.ReadTimeout) },
		func() error { return applyDuration(lookup, "DRILL_SANDBOX_WRITE_TIMEOUT", &cfg.Sandbox.WriteTimeout) },
		func() error { return applyDuration(lookup, "DRILL_SANDBOX_IDLE_TIMEOUT", &cfg.Sandbox.IdleTimeout) },
		func() error { return applyString(lookup, "DRILL_EXPORT_ENDPOINT", &cfg.Export.Endpoint) },
		func() error { return applyString(lookup, "DRILL_EXPORT_REGION", &cfg.Export.Region) },
		func() error { return applyString(lookup, "DRILL_EXPORT_BUCKET", &cfg.Export.Bucket) },
		func() error { return applyString(lookup, "DRILL_EXPORT_ACCESS_KEY", &cfg.Export.AccessKeyID) },
		func() error { return applyString(lookup, "DRILL_EXPORT_SECRET_KEY", &cfg.Export.SecretAccessKey) },
		func() error { return applyBool(lookup, "DRILL_EXPORT_USE_SSL", &cfg.Export.UseSSL) },
		func() error { return applyString(lookup, "DRILL_EXPORT_PREFIX", &cfg.Export.Prefix) },
		func() error { return applyBool(lookup, "DRILL_EXPORT_AUTO_CREATE_BUCKET", &cfg.Export.AutoCreateBucket) },
		func() error { return applyBool(lookup, "DRILL_LOG_JSON", &cfg.Observability.LogJSON) },
		func() error { return applyLogLevel(lookup, "DRILL_LOG_LEVEL", &cfg.Observability.LogLevel) },
	}
	for _, apply := range appliers {
		if err := apply(); err != nil {
			return Config{}, err
		}
	}

	cfg.Sandbox.Backend = strings.ToLower(cfg.Sandbox.Backend)
	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.Sandbox.Backend != BackendDuckDB && cfg.Sandbox.Backend != BackendPostgres {
		return Config{}, fmt.Errorf("invalid DRILL_SANDBOX_BACKEND: %q", cfg.Sandbox.Backend)
	}
	if cfg.Sandbox.Backend == BackendPostgres && cfg.Sandbox.DSN == "" {
		return Config{}, fmt.Errorf("DRILL_SANDBOX_DSN is required for the postgres backend")
	}
	if cfg.Sandbox.RowLimit < 0 {
		return Config{}, fmt.Errorf("invalid DRILL_SANDBOX_ROW_LIMIT: %d", cfg.Sandbox.RowLimit)
	}
	if cfg.Sandbox.ProfileLimit <= 0 {
		return Config{}, fmt.Errorf("invalid DRILL_SANDBOX_PROFILE_LIMIT: %d", cfg.Sandbox.ProfileLimit)
	}
	return cfg, nil
}

// ExportEnabled reports whether an object store is configured for exports.
func (c Config) ExportEnabled() bool {
	return c.Export.Endpoint != "" && c.Export.Bucket != ""
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "drillctl"},
		Client: ClientConfig{
			URL:         "",
			OpenTimeout: 3 * time.Second,
			ReadTimeout: 0,
		},
		Sandbox: SandboxConfig{
			Address:      ":8047",
			Backend:      BackendDuckDB,
			DSN:          "",
			RowLimit:     10000,
			ProfileLimit: 100,
			Version:      "1.21.2",
			Seed:         true,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Export: ExportConfig{
			Endpoint:         "",
			Region:           "us-east-1",
			Bucket:           "",
			UseSSL:           false,
			Prefix:           "",
			AutoCreateBucket: true,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  false,
		},
	}

	switch profile {
	case ProfileTest:
		cfg.Sandbox.Address = ":18047"
		cfg.Observability.LogLevel = slog.LevelWarn
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.Observability.LogJSON = true
		cfg.Export.UseSSL = true
		cfg.Export.AutoCreateBucket = false
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
