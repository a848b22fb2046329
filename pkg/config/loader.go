package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, KANAL_CONFIG env, ./config.yaml, /etc/kanal/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. KANAL_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/kanal/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("KANAL_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{
		"config.yaml",
		"/etc/kanal/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps KANAL_* environment variables to config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("KANAL_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("KANAL_DEFAULT_MODEL"); v != "" {
		cfg.Gateway.DefaultModel = v
	}

	if v := os.Getenv("KANAL_OPENAI_API_KEY"); v != "" {
		cfg.Vendors.OpenAI.APIKey = v
	}
	if v := os.Getenv("KANAL_OPENAI_BASE_URL"); v != "" {
		cfg.Vendors.OpenAI.BaseURL = v
	}
	if v := os.Getenv("KANAL_ANTHROPIC_API_KEY"); v != "" {
		cfg.Vendors.Anthropic.APIKey = v
	}
	if v := os.Getenv("KANAL_ANTHROPIC_BASE_URL"); v != "" {
		cfg.Vendors.Anthropic.BaseURL = v
	}
	if v := os.Getenv("KANAL_GEMINI_API_KEY"); v != "" {
		cfg.Vendors.Gemini.APIKey = v
	}
	if v := os.Getenv("KANAL_GEMINI_BASE_URL"); v != "" {
		cfg.Vendors.Gemini.BaseURL = v
	}
	if v := os.Getenv("KANAL_RELAY_BASE_URL"); v != "" {
		cfg.Vendors.Relay.BaseURL = v
	}
	if v := os.Getenv("KANAL_RELAY_API_KEY"); v != "" {
		cfg.Vendors.Relay.APIKey = v
	}

	if v := os.Getenv("KANAL_VENDOR_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Vendors.OpenAI.Timeout = d
			cfg.Vendors.Anthropic.Timeout = d
			cfg.Vendors.Gemini.Timeout = d
			cfg.Vendors.Relay.Timeout = d
		}
	}

	if v := os.Getenv("KANAL_USAGE_SINK"); v != "" {
		cfg.Usage.Sink = v
	}
	if v := os.Getenv("KANAL_POSTGRES_DSN"); v != "" {
		cfg.Usage.Postgres.DSN = v
	}
}

// resolveFileReferences reads _file fields and populates the corresponding
// value fields. For each field ending in _file, if the value field is empty
// and the file field is set, the file is read, whitespace is trimmed, and
// the value field is populated.
func resolveFileReferences(cfg *Config) error {
	refs := []struct {
		name  string
		file  string
		value *string
	}{
		{"vendors.openai.api_key_file", cfg.Vendors.OpenAI.APIKeyFile, &cfg.Vendors.OpenAI.APIKey},
		{"vendors.anthropic.api_key_file", cfg.Vendors.Anthropic.APIKeyFile, &cfg.Vendors.Anthropic.APIKey},
		{"vendors.gemini.api_key_file", cfg.Vendors.Gemini.APIKeyFile, &cfg.Vendors.Gemini.APIKey},
		{"vendors.relay.api_key_file", cfg.Vendors.Relay.APIKeyFile, &cfg.Vendors.Relay.APIKey},
		{"usage.postgres.dsn_file", cfg.Usage.Postgres.DSNFile, &cfg.Usage.Postgres.DSN},
	}

	for _, ref := range refs {
		if ref.file == "" || *ref.value != "" {
			continue
		}
		val, err := readSecretFile(ref.file)
		if err != nil {
			return fmt.Errorf("%s: %w", ref.name, err)
		}
		*ref.value = val
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding
// whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
