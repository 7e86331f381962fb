package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// keys lists every settable configuration key in display order.
var keys = []string{
	"anthropic.api_key",
	"anthropic.model",
	"anthropic.max_tokens",
	"anthropic.base_url",
	"anthropic.max_retries",
	"anthropic.timeout",
	"anthropic.bedrock.enabled",
	"anthropic.bedrock.region",
	"anthropic.bedrock.profile",
	"search.enabled",
	"search.max_uses",
	"pipeline.prompts_file",
	"pipeline.answer_key",
	"pipeline.max_parallel",
	"state.driver",
	"state.path",
	"log.path",
}

// Keys returns every settable configuration key in display order.
func Keys() []string {
	return append([]string(nil), keys...)
}

// Value returns the display form of key. The API key is masked.
func Value(cfg *Config, key string) (string, error) {
	key = strings.ToLower(key)
	if key == "anthropic.api_key" {
		return MaskAPIKey(cfg.Anthropic.APIKey), nil
	}

	raw := rawValue(cfg, key)
	if raw == nil {
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
	return fmt.Sprint(raw), nil
}

// rawValue returns the typed value for key, or nil if key is unknown.
func rawValue(cfg *Config, key string) any {
	switch key {
	case "anthropic.api_key":
		return cfg.Anthropic.APIKey
	case "anthropic.model":
		return cfg.Anthropic.Model
	case "anthropic.max_tokens":
		return cfg.Anthropic.MaxTokens
	case "anthropic.base_url":
		return cfg.Anthropic.BaseURL
	case "anthropic.max_retries":
		return cfg.Anthropic.MaxRetries
	case "anthropic.timeout":
		return cfg.Anthropic.Timeout.String()
	case "anthropic.bedrock.enabled":
		return cfg.Anthropic.Bedrock.Enabled
	case "anthropic.bedrock.region":
		return cfg.Anthropic.Bedrock.Region
	case "anthropic.bedrock.profile":
		return cfg.Anthropic.Bedrock.Profile
	case "search.enabled":
		return cfg.Search.Enabled
	case "search.max_uses":
		return cfg.Search.MaxUses
	case "pipeline.prompts_file":
		return cfg.Pipeline.PromptsFile
	case "pipeline.answer_key":
		return cfg.Pipeline.AnswerKey
	case "pipeline.max_parallel":
		return cfg.Pipeline.MaxParallel
	case "state.driver":
		return cfg.State.Driver
	case "state.path":
		return cfg.State.Path
	case "log.path":
		return cfg.Log.Path
	default:
		return nil
	}
}

// SetValue parses value and assigns it to key.
func SetValue(cfg *Config, key, value string) error {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		cfg.Anthropic.APIKey = value
	case "anthropic.model":
		cfg.Anthropic.Model = value
	case "anthropic.max_tokens":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid value for anthropic.max_tokens: %q", value)
		}
		cfg.Anthropic.MaxTokens = n
	case "anthropic.base_url":
		cfg.Anthropic.BaseURL = value
	case "anthropic.max_retries":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid value for anthropic.max_retries: %q", value)
		}
		cfg.Anthropic.MaxRetries = n
	case "anthropic.timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for anthropic.timeout: %w", err)
		}
		cfg.Anthropic.Timeout = d
	case "anthropic.bedrock.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for anthropic.bedrock.enabled: %w", err)
		}
		cfg.Anthropic.Bedrock.Enabled = b
	case "anthropic.bedrock.region":
		cfg.Anthropic.Bedrock.Region = value
	case "anthropic.bedrock.profile":
		cfg.Anthropic.Bedrock.Profile = value
	case "search.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for search.enabled: %w", err)
		}
		cfg.Search.Enabled = b
	case "search.max_uses":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid value for search.max_uses: %q", value)
		}
		cfg.Search.MaxUses = n
	case "pipeline.prompts_file":
		cfg.Pipeline.PromptsFile = value
	case "pipeline.answer_key":
		cfg.Pipeline.AnswerKey = value
	case "pipeline.max_parallel":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("invalid value for pipeline.max_parallel: %q", value)
		}
		cfg.Pipeline.MaxParallel = n
	case "state.driver":
		if value != "sqlite" && value != "sqlite3" {
			return fmt.Errorf("invalid value for state.driver: %q (want sqlite or sqlite3)", value)
		}
		cfg.State.Driver = value
	case "state.path":
		cfg.State.Path = value
	case "log.path":
		cfg.Log.Path = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
