package config

import (
	"strings"
	"testing"
)

const validSecret = "0123456789abcdef0123456789abcdef"

func setValidEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "sqlite:test.db")
	t.Setenv("JWT_SECRET", validSecret)
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", "9191")
	t.Setenv("LOG_LEVEL", "debug")
}

func TestLoad(t *testing.T) {
	setValidEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DatabaseURL != "sqlite:test.db" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.Addr() != "127.0.0.1:9191" {
		t.Errorf("Addr() = %q, want 127.0.0.1:9191", cfg.Addr())
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
}

func TestLoad_MissingJWTSecretFails(t *testing.T) {
	setValidEnv(t)
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Errorf("Load() without JWT_SECRET = %v, want error naming JWT_SECRET", err)
	}
}

func TestLoad_ShortJWTSecretFails(t *testing.T) {
	setValidEnv(t)
	t.Setenv("JWT_SECRET", "too-short")

	if _, err := Load(); err == nil {
		t.Error("Load() with short JWT_SECRET should fail")
	}
}

func TestLoad_BadLogLevelFails(t *testing.T) {
	setValidEnv(t)
	t.Setenv("LOG_LEVEL", "loud")

	if _, err := Load(); err == nil {
		t.Error("Load() with unknown LOG_LEVEL should fail")
	}
}

func TestLoad_Defaults(t *testing.T) {
	setValidEnv(t)
	t.Setenv("DATABASE_URL", "")
	t.Setenv("HOST", "")
	t.Setenv("PORT", "")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DatabaseURL != "sqlite:flaglite.db?mode=rwc" {
		t.Errorf("default DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.Addr() != "0.0.0.0:8080" {
		t.Errorf("default Addr() = %q", cfg.Addr())
	}
	if cfg.LogLevel != "info" {
		t.Errorf("default LogLevel = %q", cfg.LogLevel)
	}
}
