package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("STRICT_CONFIG", "")
	t.Setenv("DB_PATH", "")
	t.Setenv("HTTP_PORT", "")
	t.Setenv("IDLE_THRESHOLD_MIN", "")
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPPort != ":8000" {
		t.Fatalf("port = %s, want :8000", cfg.HTTPPort)
	}
	if cfg.IdleThresholdMin != 10 {
		t.Fatalf("idle threshold = %d, want 10", cfg.IdleThresholdMin)
	}
	if cfg.LLM.Model != "gpt-4o-mini" || cfg.LLM.TimeoutSec != 120 {
		t.Fatalf("bad llm defaults %+v", cfg.LLM)
	}
	if cfg.LLM.CostPerRequest != 0.001 {
		t.Fatalf("cost = %v, want 0.001", cfg.LLM.CostPerRequest)
	}
	if len(cfg.LLM.AllowedDomains) != 3 {
		t.Fatalf("allowed domains = %v", cfg.LLM.AllowedDomains)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("DB_PATH", "/tmp/custom.db")
	t.Setenv("HTTP_PORT", "9100")
	t.Setenv("WORKER_COUNT", "8")
	t.Setenv("IDLE_THRESHOLD_MIN", "15")
	t.Setenv("OPENAI_API_KEY", "env-key")
	t.Setenv("LLM_MODEL", "gpt-4o")
	t.Setenv("FETCH_ALL", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "/tmp/custom.db" {
		t.Fatalf("db path = %s", cfg.DBPath)
	}
	if cfg.HTTPPort != ":9100" {
		t.Fatalf("port = %s, want :9100 (prefix added)", cfg.HTTPPort)
	}
	if cfg.WorkerCount != 8 || cfg.IdleThresholdMin != 15 {
		t.Fatalf("workers=%d idle=%d", cfg.WorkerCount, cfg.IdleThresholdMin)
	}
	if cfg.LLM.APIKey != "env-key" || cfg.LLM.Model != "gpt-4o" {
		t.Fatalf("llm overrides not applied: %+v", cfg.LLM)
	}
	if !cfg.FetchAll {
		t.Fatalf("fetch_all not applied")
	}
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `db_path: /data/analytics.db
http_port: ":8200"
worker_count: 2
idle_threshold_min: 20
llm:
  model: local-model
  base_url: http://localhost:11434
  timeout_sec: 30
  cost_per_request: 0
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("DB_PATH", "")
	t.Setenv("HTTP_PORT", "")
	t.Setenv("WORKER_COUNT", "")
	t.Setenv("IDLE_THRESHOLD_MIN", "")
	t.Setenv("LLM_MODEL", "")
	t.Setenv("LLM_BASE_URL", "")
	t.Setenv("OPENAI_BASE_URL", "")
	t.Setenv("OPENAI_API_BASE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "/data/analytics.db" || cfg.HTTPPort != ":8200" {
		t.Fatalf("file overrides not applied: db=%s port=%s", cfg.DBPath, cfg.HTTPPort)
	}
	if cfg.WorkerCount != 2 || cfg.IdleThresholdMin != 20 {
		t.Fatalf("workers=%d idle=%d", cfg.WorkerCount, cfg.IdleThresholdMin)
	}
	if cfg.LLM.Model != "local-model" || cfg.LLM.BaseURL != "http://localhost:11434" || cfg.LLM.TimeoutSec != 30 {
		t.Fatalf("llm file config not applied: %+v", cfg.LLM)
	}
	if cfg.LLM.CostPerRequest != 0 {
		t.Fatalf("cost = %v, want 0", cfg.LLM.CostPerRequest)
	}
}

func TestStrictModeRejectsBadValues(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("STRICT_CONFIG", "true")

	if _, err := Load(); err == nil {
		t.Fatalf("expected strict mode to fail on missing config file")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	body := "MY_TEST_VAR=hello\n# comment line\nQUOTED_VAR=\"quoted value\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("MY_TEST_VAR", "")
	os.Unsetenv("MY_TEST_VAR")
	t.Setenv("QUOTED_VAR", "")
	os.Unsetenv("QUOTED_VAR")

	LoadDotEnv(path)
	if got := os.Getenv("MY_TEST_VAR"); got != "hello" {
		t.Fatalf("MY_TEST_VAR = %q", got)
	}
	if got := os.Getenv("QUOTED_VAR"); got != "quoted value" {
		t.Fatalf("QUOTED_VAR = %q", got)
	}
}
