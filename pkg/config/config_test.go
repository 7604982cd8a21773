package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearKeys(t *testing.T) {
	t.Helper()
	t.Setenv("NVIDIA_API_KEY", "")
	t.Setenv("NGC_API_KEY", "")
}

func TestLoadDefaults(t *testing.T) {
	clearKeys(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.LLM.Provider != "openai" {
		t.Errorf("expected default provider openai, got %s", cfg.LLM.Provider)
	}
	if cfg.LLM.Model != "nvidia/llama-3.3-nemotron-super-49b-v1.5" {
		t.Errorf("unexpected default model %s", cfg.LLM.Model)
	}
	if cfg.LLM.BaseURL != DefaultOpenAIBaseURL {
		t.Errorf("unexpected base url %s", cfg.LLM.BaseURL)
	}
	if cfg.LLM.MinThinkingTokens != 512 || cfg.LLM.MaxThinkingTokens != 2048 {
		t.Errorf("unexpected thinking budget %d..%d", cfg.LLM.MinThinkingTokens, cfg.LLM.MaxThinkingTokens)
	}
	if cfg.LLM.Temperature != 0.6 || cfg.LLM.TopP != 0.95 || cfg.LLM.ThinkingDirective != "/think" {
		t.Errorf("unexpected sampling defaults %+v", cfg.LLM)
	}
	if cfg.Commander.DelegationWait() != 500*time.Millisecond || cfg.Commander.CollectionWait() != 300*time.Millisecond {
		t.Errorf("unexpected pauses %+v", cfg.Commander)
	}
	if cfg.Commander.BreakerFailures != 3 || cfg.Commander.BreakerCooldown() != time.Minute {
		t.Errorf("unexpected breaker defaults %+v", cfg.Commander)
	}
	if cfg.Telemetry.Exporter != "none" || cfg.Journal.Driver != "memory" {
		t.Errorf("unexpected telemetry/journal defaults")
	}
	if cfg.LLM.APIKey != "" {
		t.Errorf("expected no api key, got %q", cfg.LLM.APIKey)
	}
}

func TestLoadEnv(t *testing.T) {
	clearKeys(t)
	t.Setenv("WARROOM_LLM_PROVIDER", "ollama")
	t.Setenv("WARROOM_LLM_MAX_THINKING_TOKENS", "4096")
	t.Setenv("WARROOM_COMMANDER_DELEGATION_WAIT_MS", "0")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LLM.Provider != "ollama" {
		t.Errorf("expected provider ollama from env, got %s", cfg.LLM.Provider)
	}
	if cfg.LLM.BaseURL != DefaultOllamaBaseURL {
		t.Errorf("expected ollama base url, got %s", cfg.LLM.BaseURL)
	}
	if cfg.LLM.MaxThinkingTokens != 4096 {
		t.Errorf("expected max thinking tokens from env, got %d", cfg.LLM.MaxThinkingTokens)
	}
	if cfg.Commander.DelegationWaitMS != 0 {
		t.Errorf("expected delegation wait 0, got %d", cfg.Commander.DelegationWaitMS)
	}
}

func TestAPIKeyFallback(t *testing.T) {
	clearKeys(t)
	t.Setenv("NGC_API_KEY", "ngc-key")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LLM.APIKey != "ngc-key" {
		t.Fatalf("expected NGC key, got %q", cfg.LLM.APIKey)
	}

	t.Setenv("NVIDIA_API_KEY", "nvapi-key")
	cfg, _ = Load("")
	if cfg.LLM.APIKey != "nvapi-key" {
		t.Fatalf("expected NVIDIA key to win, got %q", cfg.LLM.APIKey)
	}

	t.Setenv("WARROOM_LLM_API_KEY", "explicit")
	cfg, _ = Load("")
	if cfg.LLM.APIKey != "explicit" {
		t.Fatalf("expected explicit key, got %q", cfg.LLM.APIKey)
	}
}

func TestLoadFile(t *testing.T) {
	clearKeys(t)
	path := filepath.Join(t.TempDir(), "warroom.yaml")
	content := `
llm:
  provider: none
log:
  level: debug
  format: json
commander:
  evidence_tools:
    metrics: query_metrics
    logs: search_logs
journal:
  driver: sqlite
  dsn: file:events.db
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LLM.Provider != "none" || cfg.LLM.BaseURL != "" {
		t.Errorf("unexpected llm config %+v", cfg.LLM)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("unexpected log config %+v", cfg.Log)
	}
	if cfg.Commander.EvidenceTools["metrics"] != "query_metrics" || len(cfg.Commander.EvidenceTools) != 2 {
		t.Errorf("unexpected evidence tools %v", cfg.Commander.EvidenceTools)
	}
	if cfg.Journal.Driver != "sqlite" || cfg.Journal.DSN != "file:events.db" {
		t.Errorf("unexpected journal config %+v", cfg.Journal)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"WARROOM_LLM_BASE_URL":                       "llm.base_url",
		"WARROOM_LOG_LEVEL":                          "log.level",
		"WARROOM_COMMANDER_BREAKER_COOLDOWN_SECONDS": "commander.breaker_cooldown_seconds",
		"WARROOM_DEBUG":                              "debug",
	}
	for in, want := range tests {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}
