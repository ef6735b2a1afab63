package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	DatabaseURL       string        `mapstructure:"database_url" yaml:"database_url"`
	WebhookSecret     string        `mapstructure:"webhook_secret" yaml:"webhook_secret"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Default returns configuration with reasonable starter defaults.
// The webhook secret has no default: without one the service starts but
// never becomes ready and rejects every webhook delivery.
func Default() Config {
	return Config{
		Addr:              ":8080",
		DatabaseURL:       "data/app.db",
		LogLevel:          "info",
		AllowedOrigins:    []string{"*"},
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
	}
}

// SecretConfigured reports whether a non-empty webhook secret is set.
func (c *Config) SecretConfigured() bool {
	return c.WebhookSecret != ""
}
