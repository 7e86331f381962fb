// Package config handles configuration loading and management for relay.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ProjectConfigName is the per-project override file, searched upward from the cwd.
const ProjectConfigName = ".relay.yaml"

// EnvPrefix prefixes environment overrides, e.g. RELAY_ANTHROPIC_MODEL.
const EnvPrefix = "RELAY"

// Config holds all configuration for relay.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Search    SearchConfig    `mapstructure:"search"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	State     StateConfig     `mapstructure:"state"`
	Log       LogConfig       `mapstructure:"log"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	MaxTokens int64  `mapstructure:"max_tokens"`
	// BaseURL overrides the API endpoint, e.g. for a proxy.
	BaseURL    string        `mapstructure:"base_url"`
	MaxRetries int           `mapstructure:"max_retries"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Bedrock    BedrockConfig `mapstructure:"bedrock"`
}

// BedrockConfig selects AWS Bedrock as the Anthropic backend.
type BedrockConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Region  string `mapstructure:"region"`
	Profile string `mapstructure:"profile"`
}

// SearchConfig controls the web search capability offered to research units.
type SearchConfig struct {
	Enabled bool  `mapstructure:"enabled"`
	MaxUses int64 `mapstructure:"max_uses"`
}

// PipelineConfig holds settings for the weekend planner pipeline.
type PipelineConfig struct {
	// PromptsFile overlays prompt text on the built-in defaults.
	PromptsFile string `mapstructure:"prompts_file"`
	AnswerKey   string `mapstructure:"answer_key"`
	MaxParallel int    `mapstructure:"max_parallel"`
}

// StateConfig selects the run history database.
type StateConfig struct {
	// Driver is "sqlite" (pure Go) or "sqlite3" (cgo).
	Driver string `mapstructure:"driver"`
	// Path defaults to the user-level database when empty.
	Path string `mapstructure:"path"`
}

// LogConfig holds debug log settings.
type LogConfig struct {
	// Path of the debug log. Empty disables it.
	Path string `mapstructure:"path"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, RELAY_*)
// 2. Project config (.relay.yaml in current directory or parent)
// 3. User config (~/.config/relay/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	return unmarshal(v)
}

// LoadFromPath loads configuration from a specific path (for testing).
// Environment overrides still apply.
func LoadFromPath(path string) (*Config, error) {
	v := newViper()

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	return unmarshal(v)
}

// Save writes the configuration to the user config file.
func Save(cfg *Config) error {
	return SaveTo(GetUserConfigPath(), cfg)
}

// SaveTo writes the configuration to path.
func SaveTo(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	for _, key := range Keys() {
		v.Set(key, rawValue(cfg, key))
	}

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// StateDir returns the project-local directory holding logs and signals.
func StateDir() string {
	if project := findProjectConfig(); project != "" {
		return filepath.Join(filepath.Dir(project), ".relay")
	}
	return ".relay"
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY", EnvPrefix+"_ANTHROPIC_API_KEY")

	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)
	cfg.State.Path = expandEnv(cfg.State.Path)
	cfg.Log.Path = expandEnv(cfg.Log.Path)
	cfg.Pipeline.PromptsFile = expandEnv(cfg.Pipeline.PromptsFile)

	return cfg, nil
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("anthropic.api_key", d.Anthropic.APIKey)
	v.SetDefault("anthropic.model", d.Anthropic.Model)
	v.SetDefault("anthropic.max_tokens", d.Anthropic.MaxTokens)
	v.SetDefault("anthropic.base_url", d.Anthropic.BaseURL)
	v.SetDefault("anthropic.max_retries", d.Anthropic.MaxRetries)
	v.SetDefault("anthropic.timeout", d.Anthropic.Timeout.String())
	v.SetDefault("anthropic.bedrock.enabled", d.Anthropic.Bedrock.Enabled)
	v.SetDefault("anthropic.bedrock.region", d.Anthropic.Bedrock.Region)
	v.SetDefault("anthropic.bedrock.profile", d.Anthropic.Bedrock.Profile)

	v.SetDefault("search.enabled", d.Search.Enabled)
	v.SetDefault("search.max_uses", d.Search.MaxUses)

	v.SetDefault("pipeline.prompts_file", d.Pipeline.PromptsFile)
	v.SetDefault("pipeline.answer_key", d.Pipeline.AnswerKey)
	v.SetDefault("pipeline.max_parallel", d.Pipeline.MaxParallel)

	v.SetDefault("state.driver", d.State.Driver)
	v.SetDefault("state.path", d.State.Path)
	v.SetDefault("log.path", d.Log.Path)
}

// getUserConfigDir returns the XDG config directory for relay.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "relay")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "relay")
	}
	return filepath.Join(home, ".config", "relay")
}

// findProjectConfig searches for .relay.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ProjectConfigName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Anthropic: AnthropicConfig{
			Model:      "claude-sonnet-4-5-20250929",
			MaxTokens:  4096,
			MaxRetries: 2,
			Timeout:    5 * time.Minute,
			Bedrock: BedrockConfig{
				Region: "us-east-1",
			},
		},
		Search: SearchConfig{
			Enabled: true,
			MaxUses: 5,
		},
		Pipeline: PipelineConfig{
			AnswerKey:   "final_summary",
			MaxParallel: 3,
		},
		State: StateConfig{
			Driver: "sqlite",
		},
	}
}
