package config

import (
	"fmt"
	"os"
)

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level   string         `yaml:"level"`  // debug, info, warn, error
	Format  string         `yaml:"format"` // text, json
	Dir     string         `yaml:"dir"`    // log directory path
	Console ConsoleConfig  `yaml:"console"`
	File    FileConfig     `yaml:"file"`
	Rotate  RotationConfig `yaml:"rotation"`
}

// ConsoleConfig controls log output to stderr.
type ConsoleConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"` // optional override of LoggingConfig.Level
}

// FileConfig controls log output to rotated files under Dir.
type FileConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"` // optional override of LoggingConfig.Level
}

// RotationConfig holds log rotation settings.
type RotationConfig struct {
	MaxSize    int  `yaml:"max_size"`    // MB per file
	MaxBackups int  `yaml:"max_backups"` // retained files
	MaxAge     int  `yaml:"max_age"`     // days
	Compress   bool `yaml:"compress"`
}

// DefaultLoggingConfig returns the default logging configuration.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:   "info",
		Format:  "text",
		Dir:     "logs",
		Console: ConsoleConfig{Enabled: true},
		File:    FileConfig{Enabled: false},
		Rotate: RotationConfig{
			MaxSize:    50,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		},
	}
}

// ApplyDefaults fills in missing values with defaults.
func (c *LoggingConfig) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "text"
	}
	if c.Dir == "" {
		c.Dir = "logs"
	}
	if c.Rotate.MaxSize == 0 {
		c.Rotate.MaxSize = 50
	}
	if c.Rotate.MaxBackups == 0 {
		c.Rotate.MaxBackups = 5
	}
	if c.Rotate.MaxAge == 0 {
		c.Rotate.MaxAge = 30
	}
}

// ApplyEnvOverrides applies CONTACTDB_* environment variables.
func (c *LoggingConfig) ApplyEnvOverrides() {
	if val := os.Getenv("CONTACTDB_LOG_LEVEL"); val != "" {
		c.Level = val
	}
	if val := os.Getenv("CONTACTDB_LOG_DIR"); val != "" {
		c.Dir = val
	}
}

// Validate returns an error if the configuration is invalid.
func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging: unknown level %q", c.Level)
	}
	switch c.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging: unknown format %q", c.Format)
	}
	return nil
}
