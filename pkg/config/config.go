// Package config loads war room settings from defaults, an optional YAML
// file, WARROOM_ environment variables and --set command line overrides, in
// that order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override (WARROOM_LLM_MODEL -> llm.model).
const EnvPrefix = "WARROOM_"

// Default endpoints per reasoning provider.
const (
	DefaultOpenAIBaseURL = "https://integrate.api.nvidia.com/v1"
	DefaultOllamaBaseURL = "http://localhost:11434"
)

type Config struct {
	Log       LogConfig       `koanf:"log"`
	LLM       LLMConfig       `koanf:"llm"`
	Commander CommanderConfig `koanf:"commander"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Journal   JournalConfig   `koanf:"journal"`
	MCP       MCPConfig       `koanf:"mcp"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type LLMConfig struct {
	Provider          string  `koanf:"provider"` // openai, ollama, none
	Model             string  `koanf:"model"`
	BaseURL           string  `koanf:"base_url"`
	APIKey            string  `koanf:"api_key"`
	MinThinkingTokens int     `koanf:"min_thinking_tokens"`
	MaxThinkingTokens int     `koanf:"max_thinking_tokens"`
	Temperature       float64 `koanf:"temperature"`
	TopP              float64 `koanf:"top_p"`
	MaxTokens         int     `koanf:"max_tokens"`
	ThinkingDirective string  `koanf:"thinking_directive"`
	MaxRetries        int     `koanf:"max_retries"`
}

type CommanderConfig struct {
	DelegationWaitMS       int               `koanf:"delegation_wait_ms"`
	CollectionWaitMS       int               `koanf:"collection_wait_ms"`
	BreakerFailures        int               `koanf:"breaker_failures"`
	BreakerCooldownSeconds int               `koanf:"breaker_cooldown_seconds"`
	EvidenceTools          map[string]string `koanf:"evidence_tools"`
}

// DelegationWait is the pause after delegating.
func (c CommanderConfig) DelegationWait() time.Duration {
	return time.Duration(c.DelegationWaitMS) * time.Millisecond
}

// CollectionWait is the pause before theories are collected.
func (c CommanderConfig) CollectionWait() time.Duration {
	return time.Duration(c.CollectionWaitMS) * time.Millisecond
}

// BreakerCooldown is how long an open breaker waits before probing.
func (c CommanderConfig) BreakerCooldown() time.Duration {
	return time.Duration(c.BreakerCooldownSeconds) * time.Second
}

type TelemetryConfig struct {
	Exporter           string `koanf:"exporter"` // none, stdout, otlp
	OTLPEndpoint       string `koanf:"otlp_endpoint"`
	OTLPInsecure       bool   `koanf:"otlp_insecure"`
	OTLPTimeoutSeconds int    `koanf:"otlp_timeout_seconds"`
}

type JournalConfig struct {
	Driver string `koanf:"driver"` // memory, sqlite
	DSN    string `koanf:"dsn"`
}

// MCPConfig lists external MCP servers whose tools are offered to the commander.
type MCPConfig struct {
	Servers map[string]MCPServerConfig `koanf:"servers"`
}

type MCPServerConfig struct {
	Transport string   `koanf:"transport"` // stdio, http
	Command   string   `koanf:"command"`
	Args      []string `koanf:"args"`
	URL       string   `koanf:"url"`
}

func setDefaults(k *koanf.Koanf) {
	defaults := map[string]any{
		"log.level":                          "info",
		"log.format":                         "text",
		"llm.provider":                       "openai",
		"llm.model":                          "nvidia/llama-3.3-nemotron-super-49b-v1.5",
		"llm.min_thinking_tokens":            512,
		"llm.max_thinking_tokens":            2048,
		"llm.temperature":                    0.6,
		"llm.top_p":                          0.95,
		"llm.max_tokens":                     2048,
		"llm.thinking_directive":             "/think",
		"llm.max_retries":                    2,
		"commander.delegation_wait_ms":       500,
		"commander.collection_wait_ms":       300,
		"commander.breaker_failures":         3,
		"commander.breaker_cooldown_seconds": 60,
		"telemetry.exporter":                 "none",
		"telemetry.otlp_timeout_seconds":     10,
		"journal.driver":                     "memory",
	}
	for key, v := range defaults {
		_ = k.Set(key, v)
	}
}

// Load reads configuration from defaults, path (optional) and the environment.
func Load(path string) (*Config, error) {
	return load(path, nil)
}

// LoadWithCLI is Load with "--config <path>" and repeated "--set key=value"
// arguments. Values are parsed as YAML, so numbers, booleans and inline
// objects keep their types. Other arguments are ignored.
func LoadWithCLI(args []string) (*Config, error) {
	path, overrides, err := parseCLIOverrides(args)
	if err != nil {
		return nil, err
	}
	return load(path, overrides)
}

func load(path string, overrides map[string]any) (*Config, error) {
	k := koanf.New(".")
	setDefaults(k)

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	for key, v := range overrides {
		if err := k.Set(key, v); err != nil {
			return nil, fmt.Errorf("apply --set %s: %w", key, err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	cfg.resolve()
	return &cfg, nil
}

// envKey maps WARROOM_LLM_BASE_URL to llm.base_url: the first segment names
// the section and the rest is the field.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, ok := strings.Cut(s, "_")
	if !ok {
		return s
	}
	return section + "." + field
}

func (c *Config) resolve() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.BaseURL == "" {
		switch c.LLM.Provider {
		case "openai":
			c.LLM.BaseURL = DefaultOpenAIBaseURL
		case "ollama":
			c.LLM.BaseURL = DefaultOllamaBaseURL
		}
	}
	if c.LLM.APIKey == "" {
		for _, name := range []string{"NVIDIA_API_KEY", "NGC_API_KEY"} {
			if v := os.Getenv(name); v != "" {
				c.LLM.APIKey = v
				break
			}
		}
	}
}

func parseCLIOverrides(args []string) (string, map[string]any, error) {
	var path string
	overrides := make(map[string]any)
	for i := 0; i < len(args); i++ {
		arg := args[i]
		var value string
		switch {
		case arg == "--config" || arg == "--set":
			if i+1 >= len(args) {
				return "", nil, fmt.Errorf("%s requires a value", arg)
			}
			i++
			value = args[i]
		case strings.HasPrefix(arg, "--config="):
			arg, value = "--config", strings.TrimPrefix(arg, "--config=")
		case strings.HasPrefix(arg, "--set="):
			arg, value = "--set", strings.TrimPrefix(arg, "--set=")
		default:
			continue
		}

		if arg == "--config" {
			path = value
			continue
		}
		key, raw, ok := strings.Cut(value, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return "", nil, fmt.Errorf("invalid --set %q, expected key=value", value)
		}
		var parsed any
		if err := yamlv3.Unmarshal([]byte(raw), &parsed); err != nil {
			return "", nil, fmt.Errorf("invalid --set value for %s: %w", key, err)
		}
		if parsed == nil {
			parsed = raw
		}
		overrides[key] = parsed
	}
	return path, overrides, nil
}
