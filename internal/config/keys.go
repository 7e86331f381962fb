package config

import (
	"errors"
	"os"
	"strings"
)

// ErrNoAPIKey is returned when no API key is configured.
var ErrNoAPIKey = errors.New("no Anthropic API key configured")

// KeySource represents where an API key was loaded from.
type KeySource string

const (
	KeySourceEnv     KeySource = "environment"
	KeySourceConfig  KeySource = "config_file"
	KeySourceBedrock KeySource = "bedrock"
	KeySourceNone    KeySource = "none"
)

// resolveAPIKey finds the API key and where it came from. ANTHROPIC_API_KEY
// wins over the config file; unexpanded ${VAR} references count as unset.
func resolveAPIKey(cfg *Config) (string, KeySource) {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		return key, KeySourceEnv
	}

	if cfg != nil && cfg.Anthropic.APIKey != "" {
		key := os.ExpandEnv(cfg.Anthropic.APIKey)
		if key != "" && !strings.HasPrefix(key, "${") {
			return key, KeySourceConfig
		}
	}

	return "", KeySourceNone
}

// GetAPIKey returns the Anthropic API key from the environment or config.
func GetAPIKey(cfg *Config) (string, error) {
	key, source := resolveAPIKey(cfg)
	if source == KeySourceNone {
		return "", ErrNoAPIKey
	}
	return key, nil
}

// GetAPIKeySource returns where the API key was sourced from. Bedrock
// authenticates through AWS credentials, so no key is needed.
func GetAPIKeySource(cfg *Config) KeySource {
	if cfg != nil && cfg.Anthropic.Bedrock.Enabled {
		return KeySourceBedrock
	}
	_, source := resolveAPIKey(cfg)
	return source
}

// RequireCredentials checks that the configured backend can authenticate.
func RequireCredentials(cfg *Config) error {
	if cfg != nil && cfg.Anthropic.Bedrock.Enabled {
		return nil
	}
	key, err := GetAPIKey(cfg)
	if err != nil {
		return err
	}
	return ValidateAPIKey(key)
}

// ValidateAPIKey performs basic format validation on an API key.
// It does not verify the key with Anthropic's API.
func ValidateAPIKey(key string) error {
	if key == "" {
		return ErrNoAPIKey
	}
	if !strings.HasPrefix(key, "sk-ant-") {
		return errors.New("invalid API key format: expected 'sk-ant-' prefix")
	}
	if len(key) < 20 {
		return errors.New("invalid API key format: key too short")
	}
	return nil
}

// MaskAPIKey returns a masked version of the API key for display.
// Shows the first 7 characters (sk-ant-) and last 4 characters.
func MaskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 15 {
		return "***"
	}
	return key[:7] + "..." + key[len(key)-4:]
}
