// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Crosscall Contributors

// Package config loads router configuration from a YAML file and
// command-line flags. Flags take precedence over the file.
package config

import (
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/Choochmeque/crosscall/internal/xdg"
)

// Config holds the router configuration.
type Config struct {
	// SocketPath is the control socket location.
	SocketPath string `koanf:"socket-path"`
	// MetricsAddr is the metrics/health HTTP address; empty disables
	// the observability server.
	MetricsAddr string `koanf:"metrics-addr"`
	// PluginsDir is scanned for plugin manifests.
	PluginsDir string `koanf:"plugins-dir"`
	// QueueDepth bounds the dispatch queue.
	QueueDepth int    `koanf:"queue-depth"`
	LogFormat  string `koanf:"log-format"`
	LogLevel   string `koanf:"log-level"`
}

// Defaults used when neither file nor flags set a value.
const (
	defaultMetricsAddr = "127.0.0.1:9100"
	defaultQueueDepth  = 128
	defaultLogFormat   = "json"
	defaultLogLevel    = "info"
)

// Default returns the configuration defaults.
func Default() Config {
	return Config{
		SocketPath:  xdg.SocketPath(),
		MetricsAddr: defaultMetricsAddr,
		PluginsDir:  xdg.PluginsDir(),
		QueueDepth:  defaultQueueDepth,
		LogFormat:   defaultLogFormat,
		LogLevel:    defaultLogLevel,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.SocketPath == "" {
		return fmt.Errorf("socket-path is required")
	}
	if c.QueueDepth <= 0 {
		return fmt.Errorf("queue-depth must be positive, got %d", c.QueueDepth)
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("log-format must be 'json' or 'text', got %q", c.LogFormat)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log-level must be one of debug, info, warn, error, got %q", c.LogLevel)
	}
	return nil
}

// Load builds the configuration from defaults, an optional YAML file,
// and the given flag set, in increasing precedence. path may be empty.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	cfg := Default()

	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return Config{}, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if flags != nil {
		// Only flags the user actually set participate, so unset flags
		// don't clobber file values or defaults.
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			return f.Name, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return Config{}, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
