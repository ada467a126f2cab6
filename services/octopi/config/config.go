// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the octopus server configuration.
//
// # Layering
//
// Later layers override earlier ones:
//
//	DefaultConfig() ──► YAML file (--config) ──► environment ──► CLI flags
//
// Flags are applied by the caller (cmd/octo-journey) after Load returns,
// then Validate is called once on the final value.
//
// # Environment Variables
//
//   - OCTO_SERVER_ADDRESS: bind address (default: 0.0.0.0)
//   - OCTO_SERVER_PORT: bind port (default: 8080)
//   - OCTO_SERVER_VERBOSITY: log verbosity, same as repeating -v
//   - OCTO_TAG_DELAY: per-octopus tagging delay, Go duration syntax
//   - OTEL_TRACES_EXPORTER: otlp, stdout, or none
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP collector address
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Environment variable names.
const (
	EnvAddress      = "OCTO_SERVER_ADDRESS"
	EnvPort         = "OCTO_SERVER_PORT"
	EnvVerbosity    = "OCTO_SERVER_VERBOSITY"
	EnvTagDelay     = "OCTO_TAG_DELAY"
	EnvTraceExport  = "OTEL_TRACES_EXPORTER"
	EnvOTLPEndpoint = "OTEL_EXPORTER_OTLP_ENDPOINT"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

var configValidate = validator.New()

// Config is the complete server configuration.
type Config struct {
	// Address is the interface to bind (default: 0.0.0.0).
	Address string `yaml:"address" validate:"required"`

	// Port is the TCP port to bind (default: 8080).
	Port int `yaml:"port" validate:"min=1,max=65535"`

	// Verbosity is the -v count: 0 info, 1 debug, 2+ debug with source.
	Verbosity int `yaml:"verbosity" validate:"gte=0"`

	// TagDelay is slept per octopus while tagging. Load-testing knob.
	TagDelay time.Duration `yaml:"tag_delay" validate:"gte=0"`

	// LogDir, when set, also writes JSON logs to a daily file there.
	LogDir string `yaml:"log_dir"`

	// LogJSON switches stderr logging from text to JSON.
	LogJSON bool `yaml:"log_json"`

	// GinMode is passed to gin.SetMode.
	GinMode string `yaml:"gin_mode" validate:"oneof=debug release test"`

	// TraceExporter selects the span exporter.
	TraceExporter string `yaml:"trace_exporter" validate:"oneof=otlp stdout none"`

	// OTLPEndpoint is the collector address used by the otlp exporter.
	OTLPEndpoint string `yaml:"otlp_endpoint" validate:"required_if=TraceExporter otlp"`

	// MetricsEnabled serves /metrics and records HTTP metrics.
	MetricsEnabled bool `yaml:"metrics_enabled"`

	// WatchBuffer is the per-subscriber event buffer of /v1/watch.
	WatchBuffer int `yaml:"watch_buffer" validate:"gte=0"`

	// ShutdownTimeout bounds how long in-flight requests may drain.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Address:         "0.0.0.0",
		Port:            8080,
		GinMode:         "release",
		TraceExporter:   "none",
		OTLPEndpoint:    "localhost:4317",
		MetricsEnabled:  true,
		WatchBuffer:     64,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load builds a Config from defaults, an optional YAML file and the
// environment. It does not validate.
//
// # Inputs
//
//   - path: YAML file to read. Empty skips the file layer.
//
// # Outputs
//
//   - *Config: Merged configuration.
//   - error: File read, YAML or environment parse failure.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = LoadFromFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile reads a YAML file on top of DefaultConfig. Keys absent from
// the file keep their default.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the OCTO_* and OTEL_* variables that are set.
func (c *Config) ApplyEnv() error {
	if v, ok := os.LookupEnv(EnvAddress); ok && v != "" {
		c.Address = v
	}
	if v, ok := os.LookupEnv(EnvPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", EnvPort, err)
		}
		c.Port = port
	}
	if v, ok := os.LookupEnv(EnvVerbosity); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", EnvVerbosity, err)
		}
		c.Verbosity = n
	}
	if v, ok := os.LookupEnv(EnvTagDelay); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", EnvTagDelay, err)
		}
		c.TagDelay = d
	}
	if v, ok := os.LookupEnv(EnvTraceExport); ok && v != "" {
		c.TraceExporter = v
	}
	if v, ok := os.LookupEnv(EnvOTLPEndpoint); ok && v != "" {
		c.OTLPEndpoint = v
	}
	return nil
}

// Validate checks the struct tags. Failures wrap ErrInvalidConfig.
func (c *Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Address, strconv.Itoa(c.Port))
}
