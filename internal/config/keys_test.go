package config

import (
	"testing"
)

func TestGetAPIKey(t *testing.T) {
	tests := []struct {
		name       string
		env        string
		cfgKey     string
		want       string
		wantErr    error
		wantSource KeySource
	}{
		{"environment wins", "sk-ant-env-key", "sk-ant-config-key", "sk-ant-env-key", nil, KeySourceEnv},
		{"from config", "", "sk-ant-config-key", "sk-ant-config-key", nil, KeySourceConfig},
		{"unexpanded reference", "", "${UNSET_RELAY_VAR_X}", "", ErrNoAPIKey, KeySourceNone},
		{"nothing configured", "", "", "", ErrNoAPIKey, KeySourceNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ANTHROPIC_API_KEY", tt.env)
			cfg := &Config{Anthropic: AnthropicConfig{APIKey: tt.cfgKey}}

			got, err := GetAPIKey(cfg)
			if err != tt.wantErr {
				t.Errorf("GetAPIKey() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("GetAPIKey() = %q, want %q", got, tt.want)
			}
			if src := GetAPIKeySource(cfg); src != tt.wantSource {
				t.Errorf("GetAPIKeySource() = %q, want %q", src, tt.wantSource)
			}
		})
	}
}

func TestGetAPIKeySource_Bedrock(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	cfg := &Config{Anthropic: AnthropicConfig{Bedrock: BedrockConfig{Enabled: true}}}

	if src := GetAPIKeySource(cfg); src != KeySourceBedrock {
		t.Errorf("GetAPIKeySource() = %q, want bedrock", src)
	}
	if err := RequireCredentials(cfg); err != nil {
		t.Errorf("RequireCredentials with bedrock = %v, want nil", err)
	}
}

func TestRequireCredentials(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	if err := RequireCredentials(&Config{}); err != ErrNoAPIKey {
		t.Errorf("RequireCredentials(empty) = %v, want ErrNoAPIKey", err)
	}
	bad := &Config{Anthropic: AnthropicConfig{APIKey: "not-a-real-key-at-all"}}
	if err := RequireCredentials(bad); err == nil {
		t.Error("expected format error")
	}
	good := &Config{Anthropic: AnthropicConfig{APIKey: "sk-ant-api03-valid-key"}}
	if err := RequireCredentials(good); err != nil {
		t.Errorf("RequireCredentials(good) = %v", err)
	}
}

func TestValidateAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"valid key", "sk-ant-api03-abcdefghij", false},
		{"empty key", "", true},
		{"wrong prefix", "sk-openai-abcdefghijklmnop", true},
		{"too short", "sk-ant-abc", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateAPIKey(tt.key); (err != nil) != tt.wantErr {
				t.Errorf("ValidateAPIKey() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", "(not set)"},
		{"short", "***"},
		{"sk-ant-api03-abcdefghijkl", "sk-ant-...ijkl"},
	}

	for _, tt := range tests {
		if got := MaskAPIKey(tt.key); got != tt.want {
			t.Errorf("MaskAPIKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
