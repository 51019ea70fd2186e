package config

import (
	"fmt"
	"net"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all host configuration.
type Config struct {
	Server    ServerConfig
	Tray      TrayConfig
	Relay     RelayConfig
	Manifest  ManifestConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds the local HTTP surface configuration.
type ServerConfig struct {
	Port string `envconfig:"DESKTOP_PORT" default:"4000"`
	Host string `envconfig:"DESKTOP_HOST" default:"127.0.0.1"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, s.Port)
}

// TrayConfig holds system tray integration configuration.
type TrayConfig struct {
	Disabled bool   `envconfig:"DESKTOP_TRAY_DISABLED" default:"false"`
	IconName string `envconfig:"DESKTOP_TRAY_ICON" default:"application-default-icon"`
}

// RelayConfig holds single-instance forwarding configuration.
type RelayConfig struct {
	Enabled bool   `envconfig:"DESKTOP_SINGLE_INSTANCE" default:"true"`
	BaseURL string `envconfig:"DESKTOP_RELAY_URL" default:""`
}

// ManifestConfig holds host manifest configuration.
type ManifestConfig struct {
	Path string `envconfig:"DESKTOP_MANIFEST" default:""`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"DESKTOP_LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"DESKTOP_LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"DESKTOP_RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"DESKTOP_RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"DESKTOP_RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
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
		Server: ServerConfig{
			Port: "4000",
			Host: "127.0.0.1",
		},
		Tray: TrayConfig{
			Disabled: false,
			IconName: "application-default-icon",
		},
		Relay: RelayConfig{
			Enabled: true,
			BaseURL: "",
		},
		Manifest: ManifestConfig{
			Path: "",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
