package config

import (
	"os"
	"path/filepath"
	"testing"
)

type testConfig struct {
	API struct {
		BaseURL string `yaml:"baseUrl" env:"TEST_API_BASE_URL"`
		Timeout int    `yaml:"timeout"`
	} `yaml:"api"`
	Location struct {
		DefaultLatitude float64 `yaml:"defaultLatitude"`
	} `yaml:"location"`
	Debug   bool   `yaml:"debug" env:"TEST_DEBUG"`
	Ignored string `env:"-"`
}

func TestLoadConfigFromYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlBody := "api:\n  baseUrl: http://file.example/api\n  timeout: 3\nlocation:\n  defaultLatitude: 1.5\n"
	if err := os.WriteFile(path, []byte(yamlBody), 0o600); err != nil {
		t.Fatalf("write yaml: %v", err)
	}

	t.Setenv(defaultConfigPathEnv, path)
	t.Setenv(dotenvPathEnv, "")
	t.Setenv("TEST_API_BASE_URL", "http://env.example/api")
	t.Setenv("API_TIMEOUT", "9")
	t.Setenv("TEST_DEBUG", "true")
	t.Setenv("IGNORED", "nope")

	var cfg testConfig
	if err := LoadConfig(&cfg); err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.API.BaseURL != "http://env.example/api" {
		t.Fatalf("expected env override for base url, got %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 9 {
		t.Fatalf("expected generated env key to override timeout, got %d", cfg.API.Timeout)
	}
	if cfg.Location.DefaultLatitude != 1.5 {
		t.Fatalf("expected latitude from yaml, got %v", cfg.Location.DefaultLatitude)
	}
	if !cfg.Debug {
		t.Fatalf("expected debug from env")
	}
	if cfg.Ignored != "" {
		t.Fatalf("expected ignored field to stay empty, got %q", cfg.Ignored)
	}
}

func TestLoadConfigReadsDotenv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("TEST_DOTENV_ONLY_URL=http://dotenv.example\n"), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}
	t.Setenv(defaultConfigPathEnv, "")
	t.Setenv(dotenvPathEnv, path)
	t.Cleanup(func() { os.Unsetenv("TEST_DOTENV_ONLY_URL") })

	var cfg struct {
		URL string `env:"TEST_DOTENV_ONLY_URL"`
	}
	if err := LoadConfig(&cfg); err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.URL != "http://dotenv.example" {
		t.Fatalf("expected value from dotenv, got %q", cfg.URL)
	}
}

func TestLoadConfigRejectsNonPointer(t *testing.T) {
	if err := LoadConfig(testConfig{}); err == nil {
		t.Fatalf("expected error for non-pointer target")
	}
	if err := LoadConfig(nil); err == nil {
		t.Fatalf("expected error for nil target")
	}
}

func TestLoadConfigReportsParseErrors(t *testing.T) {
	t.Setenv(defaultConfigPathEnv, "")
	t.Setenv(dotenvPathEnv, "")
	t.Setenv("API_TIMEOUT", "soon")

	var cfg testConfig
	if err := LoadConfig(&cfg); err == nil {
		t.Fatalf("expected parse error for non-numeric timeout")
	}
}
