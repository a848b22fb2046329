// Package config provides unified configuration for the kanal gateway.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (KANAL_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the kanal gateway.
type Config struct {
	Server        ServerConfig               `yaml:"server"`
	Gateway       GatewayConfig              `yaml:"gateway"`
	Vendors       VendorsConfig              `yaml:"vendors"`
	Models        []ModelConfig              `yaml:"models"`
	Constraints   map[string]ConstraintRules `yaml:"constraints"`
	Usage         UsageConfig                `yaml:"usage"`
	Observability ObservabilityConfig        `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`             // default: 8080
	MaxBodySize     int64         `yaml:"max_body_size"`    // default: 10 MB
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 30s
}

// GatewayConfig holds routing and validation settings.
type GatewayConfig struct {
	DefaultModel   string `yaml:"default_model"`    // default: "gpt-4o-mini"
	MaxMessages    int    `yaml:"max_messages"`     // default: 1000
	MaxContentSize int    `yaml:"max_content_size"` // default: 10 MB
	MaxStopEntries int    `yaml:"max_stop_entries"` // default: 4
}

// VendorsConfig holds the per-vendor backend settings. A vendor with no
// API key (or base URL for the relay) is simply not wired.
type VendorsConfig struct {
	OpenAI    VendorConfig `yaml:"openai"`
	Anthropic VendorConfig `yaml:"anthropic"`
	Gemini    VendorConfig `yaml:"gemini"`
	Relay     RelayConfig  `yaml:"relay"`
}

// VendorConfig holds settings for one upstream vendor.
type VendorConfig struct {
	APIKey     string        `yaml:"api_key"`
	APIKeyFile string        `yaml:"api_key_file"` // _file variant for api_key
	BaseURL    string        `yaml:"base_url"`     // optional endpoint override
	Timeout    time.Duration `yaml:"timeout"`      // default: 120s
}

// RelayConfig holds settings for the OpenAI-compatible relay backend.
type RelayConfig struct {
	BaseURL      string            `yaml:"base_url"` // required to enable the relay
	APIKey       string            `yaml:"api_key"`
	APIKeyFile   string            `yaml:"api_key_file"`
	Timeout      time.Duration     `yaml:"timeout"`       // default: 120s
	ModelMapping map[string]string `yaml:"model_mapping"` // caller id -> backend id
}

// ModelConfig describes one registry entry. Entries extend or replace the
// built-in model table.
type ModelConfig struct {
	ID        string `yaml:"id"`
	Vendor    string `yaml:"vendor"`
	Endpoint  string `yaml:"endpoint"` // "standard" (default) or "reasoning"
	WireID    string `yaml:"wire_id"`  // defaults to id
	MaxTokens int    `yaml:"max_tokens"`
	Streaming *bool  `yaml:"streaming"` // default: true
}

// ConstraintRules holds the per-parameter rules of one model.
type ConstraintRules map[string]ConstraintRule

// ConstraintRule is the YAML form of one parameter constraint.
type ConstraintRule struct {
	Min        *float64  `yaml:"min"`
	Max        *float64  `yaml:"max"`
	Default    *float64  `yaml:"default"`
	Disallowed []float64 `yaml:"disallowed"`
	Remove     bool      `yaml:"remove"`
}

// UsageConfig holds outcome reporting settings.
type UsageConfig struct {
	Sink     string         `yaml:"sink"` // "log", "postgres", or "none", default: "log"
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings for the usage sink.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 25
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: false
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			MaxBodySize:     10 << 20,
			ShutdownTimeout: 30 * time.Second,
		},
		Gateway: GatewayConfig{
			DefaultModel:   "gpt-4o-mini",
			MaxMessages:    1000,
			MaxContentSize: 10 << 20,
			MaxStopEntries: 4,
		},
		Vendors: VendorsConfig{
			OpenAI:    VendorConfig{Timeout: 120 * time.Second},
			Anthropic: VendorConfig{Timeout: 120 * time.Second},
			Gemini:    VendorConfig{Timeout: 120 * time.Second},
			Relay:     RelayConfig{Timeout: 120 * time.Second},
		},
		Usage: UsageConfig{
			Sink: "log",
			Postgres: PostgresConfig{
				MaxConns: 25,
			},
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}
