// Package config provides configuration for the contact store.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Config holds the contact store configuration.
type Config struct {
	// Dir is the directory holding the snapshot and WAL files.
	// Defaults to "data".
	Dir string `yaml:"dir"`

	// SnapshotFile is the snapshot file name inside Dir.
	// Defaults to "contacts.json".
	SnapshotFile string `yaml:"snapshot_file"`

	// WALFile is the write-ahead log file name inside Dir.
	// Defaults to "contacts.wal".
	WALFile string `yaml:"wal_file"`

	// Fsync controls whether WAL appends fsync before returning.
	// Defaults to true; disabling it voids the durability guarantee and
	// exists for benchmarking only.
	Fsync *bool `yaml:"fsync"`
}

// DefaultConfig returns the default store configuration.
func DefaultConfig() Config {
	fsync := true
	return Config{
		Dir:          "data",
		SnapshotFile: "contacts.json",
		WALFile:      "contacts.wal",
		Fsync:        &fsync,
	}
}

// ApplyDefaults fills in missing values with defaults.
func (c *Config) ApplyDefaults() {
	if c.Dir == "" {
		c.Dir = "data"
	}
	if c.SnapshotFile == "" {
		c.SnapshotFile = "contacts.json"
	}
	if c.WALFile == "" {
		c.WALFile = "contacts.wal"
	}
	if c.Fsync == nil {
		fsync := true
		c.Fsync = &fsync
	}
}

// ApplyEnvOverrides applies CONTACTDB_* environment variables.
func (c *Config) ApplyEnvOverrides() {
	if val := os.Getenv("CONTACTDB_DATA_DIR"); val != "" {
		c.Dir = val
	}
	if val := os.Getenv("CONTACTDB_FSYNC"); val != "" {
		fsync := val == "true" || val == "1"
		c.Fsync = &fsync
	}
}

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("store: dir must not be empty")
	}
	if c.SnapshotFile == c.WALFile {
		return fmt.Errorf("store: snapshot_file and wal_file must differ")
	}
	return nil
}

// SnapshotPath returns the full snapshot path.
func (c *Config) SnapshotPath() string {
	return filepath.Join(c.Dir, c.SnapshotFile)
}

// WALPath returns the full write-ahead log path.
func (c *Config) WALPath() string {
	return filepath.Join(c.Dir, c.WALFile)
}

// FsyncEnabled reports whether WAL appends must fsync.
func (c *Config) FsyncEnabled() bool {
	return c.Fsync == nil || *c.Fsync
}
