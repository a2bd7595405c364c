package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("FETCH_TIMEOUT", "")
	cfg := Load()

	if cfg.DBDriver != DriverPostgres {
		t.Errorf("DBDriver: got %q, want %q", cfg.DBDriver, DriverPostgres)
	}
	if cfg.CurrencySymbol != "£" {
		t.Errorf("CurrencySymbol: got %q, want £", cfg.CurrencySymbol)
	}
	if cfg.FetchTimeout != 30*time.Second {
		t.Errorf("FetchTimeout: got %v, want 30s", cfg.FetchTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("FETCH_TIMEOUT", "45")
	t.Setenv("RATE_LIMIT_MS", "250")
	cfg := Load()

	if cfg.DBDriver != DriverSQLite {
		t.Errorf("DBDriver: got %q, want sqlite", cfg.DBDriver)
	}
	if cfg.FetchTimeout != 45*time.Second {
		t.Errorf("FetchTimeout: got %v, want 45s", cfg.FetchTimeout)
	}
	if cfg.RateLimit != 250*time.Millisecond {
		t.Errorf("RateLimit: got %v, want 250ms", cfg.RateLimit)
	}
}

func TestValidateRejectsUnknownValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"driver", func(c *Config) { c.DBDriver = "mysql" }},
		{"fetch mode", func(c *Config) { c.FetchMode = "carrier-pigeon" }},
		{"currency", func(c *Config) { c.CurrencySymbol = "" }},
		{"timeout", func(c *Config) { c.FetchTimeout = 0 }},
	}
	for _, tt := range tests {
		cfg := Load()
		tt.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tt.name)
		}
	}
}

func TestDSN(t *testing.T) {
	cfg := &Config{
		PostgresHost: "db", PostgresPort: "5432", PostgresUser: "u",
		PostgresPassword: "p@ss", PostgresDB: "cars", PostgresSSLMode: "disable",
	}
	dsn := cfg.DSN()
	if !strings.HasPrefix(dsn, "postgres://u:p%40ss@db:5432/cars") {
		t.Errorf("DSN: got %q", dsn)
	}
	if !strings.Contains(dsn, "sslmode=disable") {
		t.Errorf("DSN missing sslmode: %q", dsn)
	}

	cfg.DatabaseURL = "postgres://override"
	if cfg.DSN() != "postgres://override" {
		t.Errorf("DATABASE_URL should win, got %q", cfg.DSN())
	}
}

func TestLoadWatchList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watch.yaml")
	body := `cron: "0 30 * * * *"
urls:
  - https://dealer.example/cars/1
  - " https://dealer.example/cars/1 "
  - ""
  - https://dealer.example/cars/2
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	wl, err := LoadWatchList(path, "")
	if err != nil {
		t.Fatalf("LoadWatchList: %v", err)
	}
	if len(wl.URLs) != 2 {
		t.Errorf("URLs: got %v, want 2 unique", wl.URLs)
	}
	if wl.Skipped != 2 {
		t.Errorf("Skipped: got %d, want 2", wl.Skipped)
	}
	if wl.Cron != "0 30 * * * *" {
		t.Errorf("Cron: got %q", wl.Cron)
	}

	wl, err = LoadWatchList(path, "@every 1h")
	if err != nil {
		t.Fatalf("LoadWatchList override: %v", err)
	}
	if wl.Cron != "@every 1h" {
		t.Errorf("Cron override: got %q", wl.Cron)
	}
}

func TestLoadWatchListEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watch.yaml")
	if err := os.WriteFile(path, []byte("urls: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadWatchList(path, ""); err == nil {
		t.Error("expected error for empty watch list")
	}
}
