package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	// API Keys
	AnthropicKey string `yaml:"anthropic_key"`
	GoogleKey    string `yaml:"google_key"`

	// Generation Configuration
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`

	// Storage Configuration
	DataDir string `yaml:"data_dir"`

	// Autosave Configuration
	Autosave AutosaveConfig `yaml:"autosave"`

	// Mirror Configuration
	Mirror MirrorConfig `yaml:"mirror"`
}

// AutosaveConfig holds the background snapshot schedule
type AutosaveConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"`
}

// MirrorConfig holds the read-only HTTP mirror configuration
type MirrorConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Load loads configuration from a YAML file. A missing file is not an
// error; defaults and environment variables apply either way.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Apply defaults
	if cfg.Provider == "" {
		cfg.Provider = "anthropic"
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 1.0
	}
	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".nexus")
	}
	if cfg.Autosave.Schedule == "" {
		cfg.Autosave.Schedule = "@every 5m"
	}
	if cfg.Mirror.Addr == "" {
		cfg.Mirror.Addr = ":8080"
	}

	// Load API keys from environment if not in config
	if cfg.AnthropicKey == "" {
		cfg.AnthropicKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if cfg.GoogleKey == "" {
		cfg.GoogleKey = os.Getenv("GOOGLE_API_KEY")
	}

	return &cfg, nil
}

// Save saves configuration to a YAML file
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid. API keys are not checked
// here: credentials are validated lazily, on first use, so a missing key
// surfaces as an authentication error the caller can recover from by
// prompting.
func (c *Config) Validate() error {
	switch c.Provider {
	case "anthropic", "google":
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	return nil
}

// SetKey stores an API key for the named provider.
func (c *Config) SetKey(provider, key string) {
	switch provider {
	case "anthropic":
		c.AnthropicKey = key
	case "google":
		c.GoogleKey = key
	}
}

// Key returns the configured API key for the named provider, or "" when
// none is set.
func (c *Config) Key(provider string) string {
	switch provider {
	case "anthropic":
		return c.AnthropicKey
	case "google":
		return c.GoogleKey
	}
	return ""
}

// SnapshotDir returns the directory session snapshots are written to.
func (c *Config) SnapshotDir() string {
	return filepath.Join(c.DataDir, "sessions")
}

// ContinuityDir returns the directory continuity documents live in.
func (c *Config) ContinuityDir() string {
	return filepath.Join(c.DataDir, "continuity")
}
