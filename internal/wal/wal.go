// Package wal implements the write-ahead log for the contact store.
//
// Every mutation is appended here and made durable before it is applied in
// memory. Entries are newline-delimited JSON frames in append order; the log
// is replayed on startup and truncated once a snapshot has captured its
// effects.
package wal

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"contactdb/internal/contact"
)

// Op identifies the kind of logged mutation.
type Op string

const (
	OpAdd    Op = "add"
	OpDelete Op = "delete"
	OpEdit   Op = "edit"
)

// Entry is one logged mutation. Exactly one of the payload shapes is
// populated depending on Op: Contact for add, ID for delete, ID plus Fields
// for edit.
type Entry struct {
	Op      Op               `json:"op"`
	Contact *contact.Contact `json:"contact,omitempty"`
	ID      int64            `json:"id,omitempty"`
	Fields  *contact.Patch   `json:"fields,omitempty"`
}

// SyncMode determines whether appends fsync before returning.
type SyncMode int

const (
	// SyncAlways fsyncs after every append. This is the durability contract
	// live operations rely on.
	SyncAlways SyncMode = iota
	// SyncNone skips the fsync. Only the benchmark harness uses this.
	SyncNone
)

// Log is an append-only operation log backed by a single file. Appends block
// until the entry is durable; replay tolerates a torn final frame.
type Log struct {
	mu       sync.Mutex
	file     *os.File
	path     string
	syncMode SyncMode
}

// Open opens or creates the log file at path.
func Open(path string, syncMode SyncMode) (*Log, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open wal %s: %w", path, err)
	}
	return &Log{
		file:     file,
		path:     path,
		syncMode: syncMode,
	}, nil
}

// Append serializes e, writes it to the end of the log and waits for it to
// reach stable storage. Once Append returns nil the entry will survive a
// crash and be replayed on the next open.
func (l *Log) Append(e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode wal entry: %w", err)
	}
	data = append(data, '\n')

	if _, err := l.file.Write(data); err != nil {
		return fmt.Errorf("append wal entry: %w", err)
	}
	if l.syncMode == SyncAlways {
		if err := l.file.Sync(); err != nil {
			return fmt.Errorf("sync wal: %w", err)
		}
	}
	return nil
}

// Replay reads all entries in append order and discards any torn tail.
//
// Append writes each frame and its newline in a single write, so an
// acknowledged entry always ends with a newline; a frame without one, or
// one that does not parse, is a crash mid-append. Everything before it is
// still good and everything from it on is truncated away, so a later
// Append can never concatenate onto torn bytes and hide an acknowledged
// entry from the next replay. Malformed frames are never an error.
func (l *Log) Replay() ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek wal: %w", err)
	}

	var entries []Entry
	var valid int64
	reader := bufio.NewReader(l.file)
	for {
		line, err := reader.ReadBytes('\n')
		if err == io.EOF {
			// No trailing newline: the final write never completed.
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read wal: %w", err)
		}

		frame := bytes.TrimSpace(line)
		if len(frame) == 0 {
			valid += int64(len(line))
			continue
		}
		var e Entry
		if jsonErr := json.Unmarshal(frame, &e); jsonErr != nil {
			break
		}
		if !validOp(e.Op) {
			break
		}
		entries = append(entries, e)
		valid += int64(len(line))
	}

	info, err := l.file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat wal: %w", err)
	}
	if valid < info.Size() {
		if err := l.file.Truncate(valid); err != nil {
			return nil, fmt.Errorf("truncate torn wal tail: %w", err)
		}
		if err := l.file.Sync(); err != nil {
			return nil, fmt.Errorf("sync wal: %w", err)
		}
	}
	return entries, nil
}

// Clear empties the log. Callers invoke this only after a snapshot has
// durably captured every logged entry's effect.
func (l *Log) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.file.Truncate(0); err != nil {
		return fmt.Errorf("truncate wal: %w", err)
	}
	if _, err := l.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seek wal: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("sync wal: %w", err)
	}
	return nil
}

// Size returns the current log file size in bytes.
func (l *Log) Size() (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	info, err := l.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat wal: %w", err)
	}
	return info.Size(), nil
}

// Close releases the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

func validOp(op Op) bool {
	switch op {
	case OpAdd, OpDelete, OpEdit:
		return true
	}
	return false
}
