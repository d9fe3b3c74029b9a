// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the beliefgraph YAML configuration.
//
// Every field has a default (DefaultConfig), so a missing file is not an
// error unless the caller named it explicitly. Values from the file
// override defaults field by field; a few environment variables override
// the file. The result is validated with struct tags.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the configuration file looked up in the working
// directory when no path is given.
const DefaultFileName = "beliefgraph.yaml"

// Environment variables that override file values.
const (
	EnvEnvironment    = "BELIEFGRAPH_ENV"
	EnvTraceExporter  = "OTEL_TRACES_EXPORTER"
	EnvMetricExporter = "OTEL_METRICS_EXPORTER"
	EnvOTLPEndpoint   = "OTEL_EXPORTER_OTLP_ENDPOINT"
)

// ErrInvalidConfig is returned when validation fails.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the root configuration.
type Config struct {
	// Sources lists the source table files in build order.
	Sources []string `yaml:"sources" validate:"dive,required"`

	Build     BuildConfig     `yaml:"build"`
	Artifact  ArtifactConfig  `yaml:"artifact"`
	Server    ServerConfig    `yaml:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Log       LogConfig       `yaml:"log"`
}

// BuildConfig configures graph construction.
type BuildConfig struct {
	// RequireRoot fails builds whose sources declare no root.
	RequireRoot bool `yaml:"require_root"`

	// Delimiter separates record fields.
	Delimiter string `yaml:"delimiter" validate:"required,delimiter"`

	// MaxNodes caps the graph size. Zero uses the builder default.
	MaxNodes int `yaml:"max_nodes" validate:"gte=0"`
}

// ArtifactConfig selects where artifacts are stored.
type ArtifactConfig struct {
	// Store is file, badger or gcs.
	Store string `yaml:"store" validate:"oneof=file badger gcs"`

	// Name is the artifact name within the store.
	Name string `yaml:"name" validate:"required,excludesall=/\\"`

	// Dir is the file store root.
	Dir string `yaml:"dir" validate:"required_if=Store file"`

	// BadgerPath is the badger database directory.
	BadgerPath string `yaml:"badger_path" validate:"required_if=Store badger"`

	GCS GCSConfig `yaml:"gcs"`
}

// GCSConfig configures the Cloud Storage store.
type GCSConfig struct {
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	CredentialsFile string `yaml:"credentials_file"`
}

// ServerConfig configures the HTTP query server.
type ServerConfig struct {
	Port  int  `yaml:"port" validate:"gte=1,lte=65535"`
	Debug bool `yaml:"debug"`

	// Watch reloads the artifact when the file store replaces it.
	Watch bool `yaml:"watch"`

	// WatchDebounce coalesces bursts of file events into one reload.
	WatchDebounce time.Duration `yaml:"watch_debounce" validate:"gte=0"`

	// RateLimit is the sustained request rate per second. Zero disables
	// limiting.
	RateLimit float64 `yaml:"rate_limit" validate:"gte=0"`

	// Burst is the rate limiter bucket size.
	Burst int `yaml:"burst" validate:"gte=0"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
}

// TelemetryConfig configures tracing and metrics export.
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name" validate:"required"`
	Environment    string `yaml:"environment"`
	TraceExporter  string `yaml:"trace_exporter" validate:"oneof=none stdout otlp"`
	MetricExporter string `yaml:"metric_exporter" validate:"oneof=none stdout prometheus"`
	OTLPEndpoint   string `yaml:"otlp_endpoint" validate:"required_if=TraceExporter otlp"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// DefaultConfig returns a configuration that builds into and serves from
// ./artifacts with no telemetry export.
func DefaultConfig() Config {
	return Config{
		Build: BuildConfig{
			RequireRoot: true,
			Delimiter:   "|",
		},
		Artifact: ArtifactConfig{
			Store:      "file",
			Name:       "belief",
			Dir:        "artifacts",
			BadgerPath: "artifacts/badger",
		},
		Server: ServerConfig{
			Port:            12230,
			WatchDebounce:   500 * time.Millisecond,
			RateLimit:       200,
			Burst:           400,
			ShutdownTimeout: 10 * time.Second,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "beliefgraph",
			Environment:    "development",
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			OTLPEndpoint:   "localhost:4317",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the configuration.
//
// Description:
//
//	An empty path reads DefaultFileName if it exists and falls back to
//	defaults otherwise. A non-empty path must exist.
//
// Outputs:
//
//	*Config - The validated configuration.
//	error - Read, parse or validation failure. Validation failures wrap
//	        ErrInvalidConfig.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultFileName
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv overrides telemetry settings from the environment.
func (c *Config) applyEnv() {
	c.Telemetry.Environment = getEnvOr(EnvEnvironment, c.Telemetry.Environment)
	c.Telemetry.TraceExporter = getEnvOr(EnvTraceExporter, c.Telemetry.TraceExporter)
	c.Telemetry.MetricExporter = getEnvOr(EnvMetricExporter, c.Telemetry.MetricExporter)
	c.Telemetry.OTLPEndpoint = getEnvOr(EnvOTLPEndpoint, c.Telemetry.OTLPEndpoint)
}

func getEnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
