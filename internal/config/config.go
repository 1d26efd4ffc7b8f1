// Package config loads and validates the application configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	store "contactdb/internal/store/config"
)

// Config holds the application configuration.
type Config struct {
	Storage store.Config  `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
}

// Default returns the configuration with all defaults applied.
func Default() *Config {
	return &Config{
		Storage: store.DefaultConfig(),
		Logging: DefaultLoggingConfig(),
	}
}

// Load builds the configuration in lifecycle order: defaults, then the
// optional YAML file at path, then CONTACTDB_* environment overrides, then
// validation. An empty path or a missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.Storage.ApplyDefaults()
	cfg.Storage.ApplyEnvOverrides()
	cfg.Logging.ApplyDefaults()
	cfg.Logging.ApplyEnvOverrides()

	if err := cfg.Storage.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Logging.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
