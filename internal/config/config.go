// Package config holds client configuration: environment-driven settings,
// saved connection profiles, and connect parameter validation.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all client configuration.
type Config struct {
	Bridge      BridgeConfig
	Logging     LogConfig
	Diagnostics DiagnosticsConfig
	Surface     SurfaceConfig
}

// BridgeConfig holds shell bridge transport configuration.
type BridgeConfig struct {
	URL              string        `envconfig:"BRIDGE_URL" default:"ws://localhost:8080/shell"`
	HandshakeTimeout time.Duration `envconfig:"BRIDGE_HANDSHAKE_TIMEOUT" default:"10s"`
	WriteTimeout     time.Duration `envconfig:"BRIDGE_WRITE_TIMEOUT" default:"10s"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// DiagnosticsConfig holds the optional local ops server configuration.
// The server stays disabled while Addr is empty.
type DiagnosticsConfig struct {
	Addr              string `envconfig:"DIAG_ADDR" default:""`
	RequestsPerSecond int    `envconfig:"DIAG_RATE_LIMIT_RPS" default:"10"`
	Burst             int    `envconfig:"DIAG_RATE_LIMIT_BURST" default:"20"`
}

// SurfaceConfig holds rendering surface readiness configuration.
type SurfaceConfig struct {
	ReadyProbeDelay    time.Duration `envconfig:"SURFACE_READY_PROBE_DELAY" default:"50ms"`
	ReadyFallbackDelay time.Duration `envconfig:"SURFACE_READY_FALLBACK_DELAY" default:"250ms"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("TERMBRIDGE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Bridge: BridgeConfig{
			URL:              "ws://localhost:8080/shell",
			HandshakeTimeout: 10 * time.Second,
			WriteTimeout:     10 * time.Second,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		Diagnostics: DiagnosticsConfig{
			RequestsPerSecond: 10,
			Burst:             20,
		},
		Surface: SurfaceConfig{
			ReadyProbeDelay:    50 * time.Millisecond,
			ReadyFallbackDelay: 250 * time.Millisecond,
		},
	}
}
