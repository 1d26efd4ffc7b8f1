// Package snapshot persists the full contact store state as one atomically
// installed JSON file.
//
// A snapshot is self-sufficient: next_id plus every live contact. Indexes
// are derived data and are deliberately not persisted; they are rebuilt from
// the contact list on load, so there is no second on-disk structure that can
// drift out of sync with the records.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"contactdb/internal/contact"
)

// ErrCorruptSnapshot is returned by Load when the snapshot file exists but
// cannot be parsed. This is fatal at startup: once the snapshot is corrupt
// there is no automatic rollback target.
var ErrCorruptSnapshot = errors.New("corrupt snapshot")

// State is the complete reconstructable store state at one instant.
type State struct {
	// NextID is the next id the store will assign. Monotonic, never reused.
	NextID int64 `json:"next_id"`

	// Contacts holds every live contact, in id order.
	Contacts []contact.Contact `json:"contacts"`
}

// Manager writes and loads snapshots at a fixed path.
type Manager struct {
	path string
	dir  string
}

// NewManager creates a Manager for the snapshot file at path.
func NewManager(path string) *Manager {
	return &Manager{
		path: path,
		dir:  filepath.Dir(path),
	}
}

// Write serializes state to a temporary file in the snapshot's directory,
// syncs it, then atomically renames it over the canonical path. The prior
// snapshot stays intact until the rename; a reader never observes a
// partially written snapshot.
func (m *Manager) Write(state State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tmp := filepath.Join(m.dir, "snapshot-"+uuid.NewString()+".tmp")
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create snapshot temp file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close snapshot temp file: %w", err)
	}

	if err := os.Rename(tmp, m.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("install snapshot: %w", err)
	}

	// Make the rename itself durable.
	if err := syncDir(m.dir); err != nil {
		return fmt.Errorf("sync snapshot dir: %w", err)
	}
	return nil
}

// Load reads the snapshot. It returns (nil, nil) when no snapshot exists
// yet, and wraps ErrCorruptSnapshot when the file exists but does not parse.
func (m *Manager) Load() (*State, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptSnapshot, m.path, err)
	}
	return &state, nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
