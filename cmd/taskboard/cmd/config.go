package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the client configuration.
type Config struct {
	Store StoreConfig `yaml:"store"`
	State StateConfig `yaml:"state"`
}

// StoreConfig contains remote store connection settings.
type StoreConfig struct {
	URL     string        `yaml:"url"`     // remote store base URL (required)
	AnonKey string        `yaml:"anon_key"` // public API key sent with every request
	Timeout time.Duration `yaml:"timeout"` // per-request timeout (default: 15s)
}

// StateConfig contains local state cache settings.
type StateConfig struct {
	Path string `yaml:"path"` // state cache path (default: ~/.taskboard/state.db)
}

// LoadConfig loads configuration from a YAML file. An empty path uses
// the default location; a missing file at the default location yields
// defaults plus environment overrides.
func LoadConfig(path string) (*Config, error) {
	usedDefault := false
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, ".taskboard.yaml")
		usedDefault = true
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if !(usedDefault && os.IsNotExist(err)) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnv()
	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// applyEnv lets environment variables override file values.
func (c *Config) applyEnv() {
	if v := os.Getenv("TASKBOARD_STORE_URL"); v != "" {
		c.Store.URL = v
	}
	if v := os.Getenv("TASKBOARD_ANON_KEY"); v != "" {
		c.Store.AnonKey = v
	}
	if v := os.Getenv("TASKBOARD_STATE_PATH"); v != "" {
		c.State.Path = v
	}
}

// setDefaults sets default values for missing config fields.
func (c *Config) setDefaults() {
	if c.Store.Timeout <= 0 {
		c.Store.Timeout = 15 * time.Second
	}
	if c.State.Path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.State.Path = filepath.Join(home, ".taskboard", "state.db")
		}
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Store.URL == "" {
		return fmt.Errorf("store.url is required (or set TASKBOARD_STORE_URL)")
	}
	if c.State.Path == "" {
		return fmt.Errorf("state.path is required")
	}
	return nil
}
