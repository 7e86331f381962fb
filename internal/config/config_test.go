package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Anthropic.MaxTokens != 4096 {
		t.Errorf("expected max tokens 4096, got %d", cfg.Anthropic.MaxTokens)
	}
	if cfg.Anthropic.Timeout != 5*time.Minute {
		t.Errorf("expected timeout 5m, got %v", cfg.Anthropic.Timeout)
	}
	if !cfg.Search.Enabled || cfg.Search.MaxUses != 5 {
		t.Errorf("unexpected search defaults: %+v", cfg.Search)
	}
	if cfg.Pipeline.AnswerKey != "final_summary" {
		t.Errorf("expected answer key final_summary, got %q", cfg.Pipeline.AnswerKey)
	}
	if cfg.Pipeline.MaxParallel != 3 {
		t.Errorf("expected max parallel 3, got %d", cfg.Pipeline.MaxParallel)
	}
	if cfg.State.Driver != "sqlite" {
		t.Errorf("expected driver sqlite, got %q", cfg.State.Driver)
	}
	if cfg.Anthropic.Bedrock.Enabled {
		t.Error("bedrock should be disabled by default")
	}
}

func TestLoadFromPath(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	configContent := `
anthropic:
  api_key: sk-ant-file-key-123456
  model: claude-haiku-4-5
  max_tokens: 2048
  timeout: 90s
  bedrock:
    enabled: true
    region: eu-west-1
search:
  enabled: false
pipeline:
  answer_key: plan
  max_parallel: 5
state:
  driver: sqlite3
  path: /tmp/relay-test.db
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Anthropic.APIKey != "sk-ant-file-key-123456" {
		t.Errorf("api key = %q", cfg.Anthropic.APIKey)
	}
	if cfg.Anthropic.Model != "claude-haiku-4-5" || cfg.Anthropic.MaxTokens != 2048 {
		t.Errorf("anthropic = %+v", cfg.Anthropic)
	}
	if cfg.Anthropic.Timeout != 90*time.Second {
		t.Errorf("timeout = %v, want 90s", cfg.Anthropic.Timeout)
	}
	if !cfg.Anthropic.Bedrock.Enabled || cfg.Anthropic.Bedrock.Region != "eu-west-1" {
		t.Errorf("bedrock = %+v", cfg.Anthropic.Bedrock)
	}
	if cfg.Search.Enabled {
		t.Error("search should be disabled")
	}
	if cfg.Search.MaxUses != 5 {
		t.Errorf("unset max_uses should keep default, got %d", cfg.Search.MaxUses)
	}
	if cfg.Pipeline.AnswerKey != "plan" || cfg.Pipeline.MaxParallel != 5 {
		t.Errorf("pipeline = %+v", cfg.Pipeline)
	}
	if cfg.State.Driver != "sqlite3" || cfg.State.Path != "/tmp/relay-test.db" {
		t.Errorf("state = %+v", cfg.State)
	}
}

func TestLoadFromPath_EnvOverrides(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("anthropic:\n  model: from-file\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("RELAY_ANTHROPIC_MODEL", "from-env")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-env-key-1234567")

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Anthropic.Model != "from-env" {
		t.Errorf("model = %q, want from-env", cfg.Anthropic.Model)
	}
	if cfg.Anthropic.APIKey != "sk-ant-env-key-1234567" {
		t.Errorf("api key = %q", cfg.Anthropic.APIKey)
	}
}

func TestLoadFromPath_ExpandsEnvReferences(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("MY_RELAY_KEY", "sk-ant-expanded-key-99")
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("anthropic:\n  api_key: ${MY_RELAY_KEY}\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Anthropic.APIKey != "sk-ant-expanded-key-99" {
		t.Errorf("api key = %q", cfg.Anthropic.APIKey)
	}
}

func TestLoadFromPath_Missing(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSaveTo_RoundTrip(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	path := filepath.Join(t.TempDir(), "relay", "config.yaml")

	cfg := Default()
	cfg.Anthropic.APIKey = "sk-ant-saved-key-0000"
	cfg.Pipeline.MaxParallel = 7
	cfg.Anthropic.Timeout = 2 * time.Minute
	cfg.Log.Path = "/tmp/relay.log"

	if err := SaveTo(path, cfg); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if loaded.Anthropic.APIKey != "sk-ant-saved-key-0000" {
		t.Errorf("api key = %q", loaded.Anthropic.APIKey)
	}
	if loaded.Pipeline.MaxParallel != 7 {
		t.Errorf("max parallel = %d", loaded.Pipeline.MaxParallel)
	}
	if loaded.Anthropic.Timeout != 2*time.Minute {
		t.Errorf("timeout = %v", loaded.Anthropic.Timeout)
	}
	if loaded.Log.Path != "/tmp/relay.log" {
		t.Errorf("log path = %q", loaded.Log.Path)
	}
}

func TestGetUserConfigPath_UsesXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")
	if got := GetUserConfigPath(); got != "/tmp/xdg-config/relay/config.yaml" {
		t.Errorf("GetUserConfigPath() = %q", got)
	}
}
