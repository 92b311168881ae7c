// Package config holds process configuration: defaults, an optional JSON5
// config file, and env overrides. Secrets are env-only and never read from
// or written to the file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/titanous/json5"
)

// Config is the root configuration for the API process.
type Config struct {
	Server    ServerConfig    `json:"server"`
	OpenAI    OpenAIConfig    `json:"openai"`
	Telemetry TelemetryConfig `json:"telemetry,omitempty"`

	// PostgresConnStr comes from env POSTGRES_CONN_STR only.
	PostgresConnStr string `json:"-"`

	// TableName is the conversation store table (env TABLE_NAME).
	TableName string `json:"table_name,omitempty"`

	// DynamoEndpointURL switches the store to a local DynamoDB and enables
	// table auto-creation. Dev/test only (env DYNAMODB_ENDPOINT_URL).
	DynamoEndpointURL string `json:"-"`

	// APIURL is the externally visible base URL used in tile templates when
	// the API sits behind a proxy (env API_URL).
	APIURL string `json:"api_url,omitempty"`
}

// ServerConfig is the listen address.
type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// Addr renders host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// OpenAIConfig selects the LLM endpoint. The key is env-only.
type OpenAIConfig struct {
	APIKey  string `json:"-"` // from env OPENAI_API_KEY only
	APIBase string `json:"api_base,omitempty"`
}

// TelemetryConfig enables OTLP trace export.
type TelemetryConfig struct {
	Enabled  bool   `json:"enabled,omitempty"`
	Endpoint string `json:"endpoint,omitempty"` // host:port, insecure HTTP
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 9000,
		},
	}
}

// Load reads config from a JSON5 file (missing file is fine), then overlays
// env vars. Validation of required values happens in Validate.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := json5.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("POSTGRES_CONN_STR"); v != "" {
		c.PostgresConnStr = v
	}
	if v := os.Getenv("TABLE_NAME"); v != "" {
		c.TableName = v
	}
	if v := os.Getenv("DYNAMODB_ENDPOINT_URL"); v != "" {
		c.DynamoEndpointURL = v
	}
	if v := os.Getenv("API_URL"); v != "" {
		c.APIURL = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_BASE"); v != "" {
		c.OpenAI.APIBase = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
}

// Validate checks the values every run needs.
func (c *Config) Validate() error {
	if c.PostgresConnStr == "" {
		return fmt.Errorf("config: POSTGRES_CONN_STR must be set")
	}
	if c.TableName == "" {
		return fmt.Errorf("config: TABLE_NAME must be set")
	}
	return nil
}
