package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DOTENV_FILE", filepath.Join(t.TempDir(), "empty.env"))
	if err := os.WriteFile(os.Getenv("DOTENV_FILE"), nil, 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddress() != ":8090" || cfg.CacheMaxAge() != 15*time.Minute || cfg.Storage.Driver != StorageFile {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.LiveURL() != "ws://localhost:3000/ws" {
		t.Fatalf("unexpected derived live url %q", cfg.LiveURL())
	}
	if cfg.HealthURL() != "http://localhost:3000/api/health" {
		t.Fatalf("unexpected health url %q", cfg.HealthURL())
	}
}

func TestLoadFromYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "station-sync.yaml")
	yaml := []byte(`
backend:
  baseUrl: https://api.example.ee/v1
storage:
  driver: redis
  redis:
    addr: cache:6379
location:
  defaultLatitude: 58.38
  defaultLongitude: 26.72
`)
	if err := os.WriteFile(path, yaml, 0o600); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("DOTENV_FILE", filepath.Join(dir, "none.env"))
	if err := os.WriteFile(os.Getenv("DOTENV_FILE"), nil, 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}
	t.Setenv("STATION_SYNC_HTTP_PORT", "9100")
	t.Setenv("STORAGE_REDIS_DB", "2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddress() != ":9100" || cfg.Storage.Redis.DB != 2 || cfg.Storage.Redis.Addr != "cache:6379" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.LiveURL() != "wss://api.example.ee/ws" {
		t.Fatalf("expected wss derived url, got %q", cfg.LiveURL())
	}
	if cfg.Location.DefaultLatitude != 58.38 {
		t.Fatalf("expected yaml location, got %v", cfg.Location.DefaultLatitude)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"unknown driver":   func(c *Config) { c.Storage.Driver = "mongo" },
		"postgres no dsn":  func(c *Config) { c.Storage.Driver = StoragePostgres },
		"empty base url":   func(c *Config) { c.Backend.BaseURL = "" },
		"latitude too big": func(c *Config) { c.Location.DefaultLatitude = 120 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Defaults()
			mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults should be valid: %v", err)
	}
}
