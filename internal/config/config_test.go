package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad_AppliesDefaultsForUnsetFields(t *testing.T) {
	path := writeConfigFile(t, `
postgres:
  dsn: postgres://localhost/test
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level info, got %q", cfg.LogLevel)
	}
	if cfg.Postgres.MaxConns != 10 {
		t.Errorf("expected default max conns 10, got %d", cfg.Postgres.MaxConns)
	}
	if cfg.Vector.Dimensions != 1536 {
		t.Errorf("expected default vector dimensions 1536, got %d", cfg.Vector.Dimensions)
	}
	if cfg.Vector.Metric != "cosine" {
		t.Errorf("expected default vector metric cosine, got %q", cfg.Vector.Metric)
	}
	if cfg.LLM.Backend != "anthropic" {
		t.Errorf("expected default llm backend anthropic, got %q", cfg.LLM.Backend)
	}
	if cfg.Timeouts != DefaultTimeouts() {
		t.Errorf("expected Timeouts to always be DefaultTimeouts(), got %#v", cfg.Timeouts)
	}
}

func TestLoad_PreservesExplicitYAMLValuesOverDefaults(t *testing.T) {
	path := writeConfigFile(t, `
log_level: debug
postgres:
  max_conns: 25
vector:
  dimensions: 768
  metric: l2
llm:
  backend: openai
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected explicit log level debug, got %q", cfg.LogLevel)
	}
	if cfg.Postgres.MaxConns != 25 {
		t.Errorf("expected explicit max conns 25, got %d", cfg.Postgres.MaxConns)
	}
	if cfg.Vector.Dimensions != 768 {
		t.Errorf("expected explicit vector dimensions 768, got %d", cfg.Vector.Dimensions)
	}
	if cfg.Vector.Metric != "l2" {
		t.Errorf("expected explicit vector metric l2, got %q", cfg.Vector.Metric)
	}
	if cfg.LLM.Backend != "openai" {
		t.Errorf("expected explicit llm backend openai, got %q", cfg.LLM.Backend)
	}
}

func TestLoad_EnvOverridesTakePrecedenceOverYAML(t *testing.T) {
	path := writeConfigFile(t, `
postgres:
  dsn: postgres://yaml-value/test
redis:
  addr: yaml-redis:6379
`)
	t.Setenv("POSTGRES_DSN", "postgres://env-value/test")
	t.Setenv("ANTHROPIC_API_KEY", "env-anthropic-key")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Postgres.DSN != "postgres://env-value/test" {
		t.Errorf("expected env override to win, got %q", cfg.Postgres.DSN)
	}
	if cfg.Redis.Addr != "yaml-redis:6379" {
		t.Errorf("expected unset env var to leave yaml value intact, got %q", cfg.Redis.Addr)
	}
	if cfg.LLM.Anthropic.APIKey != "env-anthropic-key" {
		t.Errorf("expected ANTHROPIC_API_KEY to populate LLM.Anthropic.APIKey, got %q", cfg.LLM.Anthropic.APIKey)
	}
}

func TestLoad_MissingFileReturnsError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected an error for a missing config file")
	}
}
