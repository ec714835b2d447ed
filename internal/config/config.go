// Package config provides configuration types for Helios.
//
// Configuration is file-based (helios.yaml) with environment variable
// overrides under the HELIOS_ prefix. The schema covers the server
// listener, the rules file, metrics provider selection, and the optional
// evaluation record store.
package config

import (
	"log/slog"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration for Helios.
type Config struct {
	// Server configures the HTTP server listener.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Rules configures the compiled rule source.
	Rules RulesConfig `yaml:"rules" mapstructure:"rules"`

	// Metrics configures metrics provider selection.
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`

	// Store configures the optional SQLite evaluation record log.
	Store StoreConfig `yaml:"store" mapstructure:"store"`

	// DevMode enables development features (verbose logging, etc).
	DevMode bool `yaml:"dev_mode" mapstructure:"dev_mode"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// HTTPAddr is the listen address. Default: "127.0.0.1:8080".
	HTTPAddr string `yaml:"http_addr" mapstructure:"http_addr" validate:"required,hostname_port"`
	// LogLevel is one of debug, info, warn, error. Default: "info".
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
	// ShutdownTimeout is a positive duration string (e.g. "10s"), parsed by
	// Config.ShutdownTimeout. Default: "10s". The serve command does not pass
	// it to the HTTP transport, whose graceful shutdown is bounded at a fixed
	// 10s.
	ShutdownTimeout string `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout" validate:"omitempty,duration"`
}

// RulesConfig configures the rule source file.
type RulesConfig struct {
	// Path is the rules file (one JSON array of rules per line).
	Path string `yaml:"path" mapstructure:"path" validate:"required"`
	// MaxRules is the advisory ceiling for pooled context sizing.
	// Models above it still load, with a warning. 0 disables the check.
	MaxRules int `yaml:"max_rules" mapstructure:"max_rules" validate:"omitempty,gt=0"`
}

// MetricsConfig configures metrics provider selection.
type MetricsConfig struct {
	// Provider selects the backend: "auto" (highest-priority available),
	// "prometheus", "otel", or "none". Default: "auto".
	Provider string `yaml:"provider" mapstructure:"provider" validate:"omitempty,oneof=auto prometheus otel none"`
	// Namespace prefixes Prometheus metric names. Default: "helios".
	Namespace string `yaml:"namespace" mapstructure:"namespace"`
}

// StoreConfig configures the evaluation record store.
type StoreConfig struct {
	// Enabled turns the store on. Default: false.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Path is the SQLite database file. Required when enabled.
	Path string `yaml:"path" mapstructure:"path" validate:"required_if=Enabled true"`
	// MaxRecords bounds the log; older rows are pruned. Default: 10000.
	MaxRecords int `yaml:"max_records" mapstructure:"max_records" validate:"omitempty,gt=0"`
}

// Load unmarshals the configuration from Viper (file + env overrides),
// applies defaults and validates. InitViper must have been called first.
func Load() (*Config, error) {
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine: defaults + env vars apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers the default value for every key.
func setDefaults() {
	viper.SetDefault("server.http_addr", "127.0.0.1:8080")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("server.shutdown_timeout", "10s")
	viper.SetDefault("rules.path", "rules.jsonl")
	viper.SetDefault("rules.max_rules", 0)
	viper.SetDefault("metrics.provider", "auto")
	viper.SetDefault("metrics.namespace", "helios")
	viper.SetDefault("store.enabled", false)
	viper.SetDefault("store.max_records", 10000)
}

// SlogLevel converts the configured log level to a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch c.Server.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ShutdownTimeout parses the configured graceful shutdown bound.
func (c *Config) ShutdownTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.ShutdownTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}
