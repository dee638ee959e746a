// Package config loads FlagLite's process configuration from
// environment variables and an optional .env file, with sensible
// defaults for everything except the JWT secret. Load fails loudly on
// anything that would make the server unsafe to start.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// MinJWTSecretBytes is the minimum HMAC signing-secret length; the
// server refuses to start below it.
const MinJWTSecretBytes = 32

// Config holds every environment-variable-driven setting FlagLite
// reads at startup. Nothing here changes after Load returns.
type Config struct {
	DatabaseURL string // DATABASE_URL: selects the storage adapter by prefix
	JWTSecret   string // JWT_SECRET: HMAC signing key, required, >= MinJWTSecretBytes
	Host        string // HOST: bind address
	Port        int    // PORT: HTTP listen port
	LogLevel    string // LOG_LEVEL: structured-log verbosity
}

// Load reads configuration from the environment (and an optional
// .env file, silently ignored if absent), applies defaults, and
// validates it. A missing or too-short JWT_SECRET is a startup error,
// never a warning: an orchestrator restart beats serving forgeable
// tokens.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	_ = v.ReadInConfig()
	v.AutomaticEnv()

	v.SetDefault("DATABASE_URL", "sqlite:flaglite.db?mode=rwc")
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")

	cfg := &Config{
		DatabaseURL: strings.TrimSpace(v.GetString("DATABASE_URL")),
		JWTSecret:   v.GetString("JWT_SECRET"),
		Host:        strings.TrimSpace(v.GetString("HOST")),
		Port:        v.GetInt("PORT"),
		LogLevel:    strings.ToLower(strings.TrimSpace(v.GetString("LOG_LEVEL"))),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("config: DATABASE_URL must not be empty")
	}
	if len(cfg.JWTSecret) < MinJWTSecretBytes {
		return fmt.Errorf("config: JWT_SECRET must be set and at least %d bytes (got %d)", MinJWTSecretBytes, len(cfg.JWTSecret))
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("config: PORT must be a valid TCP port, got %d", cfg.Port)
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: LOG_LEVEL must be one of debug|info|warn|error, got %q", cfg.LogLevel)
	}
	return nil
}

// Addr returns the host:port string the HTTP server binds to.
func (c *Config) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
