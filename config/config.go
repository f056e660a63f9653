// Package config provides configuration loading and management for archipilot.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete archipilot configuration
type Config struct {
	Vault  VaultConfig  `yaml:"vault"`
	Model  ModelConfig  `yaml:"model"`
	NATS   NATSConfig   `yaml:"nats"`
	HTTP   HTTPConfig   `yaml:"http"`
	Ingest IngestConfig `yaml:"ingest"`
}

// VaultConfig configures the architecture vault settings
type VaultConfig struct {
	// Path is the vault root path (auto-detected from git if empty)
	Path string `yaml:"path"`
	// Watch enables the fsnotify vault watcher in serve mode
	Watch bool `yaml:"watch"`
	// BackupKeep is how many timestamped backups to retain per document
	BackupKeep int `yaml:"backup_keep"`
}

// ModelConfig configures the LLM model settings
type ModelConfig struct {
	// Default is the default registry model to use (e.g., "claude-sonnet")
	Default string `yaml:"default"`
	// OllamaEndpoint is the local Ollama API endpoint used by ollama-backed models
	OllamaEndpoint string `yaml:"ollama_endpoint"`
	// Temperature controls randomness (0.0-1.0, default: 0.2)
	Temperature float64 `yaml:"temperature"`
	// Timeout is the maximum time to wait for model responses
	Timeout time.Duration `yaml:"timeout"`
}

// NATSConfig configures the NATS connection for serve mode
type NATSConfig struct {
	// URL is the NATS server URL (empty = use embedded server)
	URL string `yaml:"url"`
	// Embedded indicates whether to run an in-process NATS server
	Embedded bool `yaml:"embedded"`
}

// HTTPConfig configures the metrics/health HTTP listener for serve mode
type HTTPConfig struct {
	// Addr is the listen address for /metrics and /healthz
	Addr string `yaml:"addr"`
}

// IngestConfig configures reference snapshotting for /adr
type IngestConfig struct {
	// Enabled turns URL snapshotting on or off
	Enabled bool `yaml:"enabled"`
	// Timeout is the per-fetch timeout
	Timeout time.Duration `yaml:"timeout"`
	// MaxBytes caps the fetched content size
	MaxBytes int64 `yaml:"max_bytes"`
	// UserAgent is sent on outbound fetches
	UserAgent string `yaml:"user_agent"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Vault: VaultConfig{
			Path:       "", // Auto-detect
			Watch:      true,
			BackupKeep: 20,
		},
		Model: ModelConfig{
			Default:        "claude-sonnet",
			OllamaEndpoint: "http://localhost:11434/v1",
			Temperature:    0.2,
			Timeout:        2 * time.Minute,
		},
		NATS: NATSConfig{
			URL:      "",
			Embedded: true,
		},
		HTTP: HTTPConfig{
			Addr: ":8089",
		},
		Ingest: IngestConfig{
			Enabled:   true,
			Timeout:   30 * time.Second,
			MaxBytes:  5 * 1024 * 1024,
			UserAgent: "archipilot/1.0 (+https://github.com/enzomar/archipilot)",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Model.Default == "" {
		return fmt.Errorf("model.default is required")
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 1 {
		return fmt.Errorf("model.temperature must be between 0 and 1")
	}
	if c.Vault.BackupKeep < 1 {
		return fmt.Errorf("vault.backup_keep must be at least 1")
	}
	if c.NATS.URL == "" && !c.NATS.Embedded {
		return fmt.Errorf("nats.url is required when the embedded server is disabled")
	}
	if c.Ingest.Enabled && c.Ingest.MaxBytes <= 0 {
		return fmt.Errorf("ingest.max_bytes must be positive when ingest is enabled")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Vault
	if other.Vault.Path != "" {
		c.Vault.Path = other.Vault.Path
	}
	if other.Vault.BackupKeep != 0 {
		c.Vault.BackupKeep = other.Vault.BackupKeep
	}
	c.Vault.Watch = other.Vault.Watch

	// Model
	if other.Model.Default != "" {
		c.Model.Default = other.Model.Default
	}
	if other.Model.OllamaEndpoint != "" {
		c.Model.OllamaEndpoint = other.Model.OllamaEndpoint
	}
	if other.Model.Temperature != 0 {
		c.Model.Temperature = other.Model.Temperature
	}
	if other.Model.Timeout != 0 {
		c.Model.Timeout = other.Model.Timeout
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
		c.NATS.Embedded = false
	}

	// HTTP
	if other.HTTP.Addr != "" {
		c.HTTP.Addr = other.HTTP.Addr
	}

	// Ingest
	c.Ingest.Enabled = other.Ingest.Enabled
	if other.Ingest.Timeout != 0 {
		c.Ingest.Timeout = other.Ingest.Timeout
	}
	if other.Ingest.MaxBytes != 0 {
		c.Ingest.MaxBytes = other.Ingest.MaxBytes
	}
	if other.Ingest.UserAgent != "" {
		c.Ingest.UserAgent = other.Ingest.UserAgent
	}
}
