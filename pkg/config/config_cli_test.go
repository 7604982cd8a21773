package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadWithCLIOverrides(t *testing.T) {
	clearKeys(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	content := []byte(`{
  "llm": {"provider": "ollama", "model": "model-a"},
  "telemetry": {"exporter": "stdout"}
}`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("WARROOM_LLM_MODEL", "model-b")

	cfg, err := LoadWithCLI([]string{
		"run",
		"--config", path,
		"--set", "llm.provider=openai",
		"--set=llm.temperature=0.2",
		"--set", "telemetry.otlp_timeout_seconds=12",
		"--set", "commander.delegation_wait_ms=0",
		`--set`, `mcp.servers={"ops":{"transport":"http","url":"http://localhost:8080/mcp"}}`,
	})
	if err != nil {
		t.Fatalf("LoadWithCLI failed: %v", err)
	}
	if cfg.LLM.Provider != "openai" {
		t.Fatalf("expected cli override provider, got %s", cfg.LLM.Provider)
	}
	if cfg.LLM.Model != "model-b" {
		t.Fatalf("expected env to override file model, got %s", cfg.LLM.Model)
	}
	if cfg.LLM.Temperature != 0.2 {
		t.Fatalf("expected temperature override, got %v", cfg.LLM.Temperature)
	}
	if cfg.Telemetry.Exporter != "stdout" || cfg.Telemetry.OTLPTimeoutSeconds != 12 {
		t.Fatalf("unexpected telemetry %+v", cfg.Telemetry)
	}
	if cfg.Commander.DelegationWaitMS != 0 {
		t.Fatalf("expected delegation wait override")
	}
	server, ok := cfg.MCP.Servers["ops"]
	if !ok {
		t.Fatalf("expected ops MCP server override")
	}
	if server.URL != "http://localhost:8080/mcp" || server.Transport != "http" {
		t.Fatalf("unexpected MCP server: %+v", server)
	}
}

func TestParseCLIOverridesErrors(t *testing.T) {
	if _, _, err := parseCLIOverrides([]string{"--config"}); err == nil {
		t.Fatalf("expected error for missing --config value")
	}
	if _, _, err := parseCLIOverrides([]string{"--set"}); err == nil {
		t.Fatalf("expected error for missing --set value")
	}
	if _, _, err := parseCLIOverrides([]string{"--set", "invalid"}); err == nil {
		t.Fatalf("expected error for invalid --set value")
	}
	if _, _, err := parseCLIOverrides([]string{"--set", "=x"}); err == nil {
		t.Fatalf("expected error for empty key")
	}
}

func TestParseCLIOverridesEmptyValue(t *testing.T) {
	_, overrides, err := parseCLIOverrides([]string{"--set", "llm.api_key="})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if overrides["llm.api_key"] != "" {
		t.Fatalf("expected empty string, got %#v", overrides["llm.api_key"])
	}
}
