// Package store implements the durable contact store: an in-memory record
// set with prefix indexes on name and phone, backed by a write-ahead log
// and atomic snapshots.
//
// Every mutation follows the same sequence: append the intent to the WAL
// and wait for it to be durable, apply the change in memory together with
// all index updates, then fold the state into a fresh snapshot and truncate
// the log. Open replays whatever an interrupted prior run left in the log,
// so an acknowledged mutation is never lost.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"contactdb/internal/contact"
	"contactdb/internal/snapshot"
	"contactdb/internal/store/config"
	"contactdb/internal/trie"
	"contactdb/internal/wal"
)

var (
	// ErrNotFound is returned when the referenced contact does not exist.
	ErrNotFound = errors.New("contact not found")
	// ErrDuplicatePhone is returned when a phone number is already in use
	// by another live contact.
	ErrDuplicatePhone = errors.New("phone number already in use")
	// ErrEmptyName is returned when a contact name is empty.
	ErrEmptyName = errors.New("contact name must not be empty")
	// ErrEmptyPhone is returned when a contact phone is empty.
	ErrEmptyPhone = errors.New("contact phone must not be empty")
)

// Store is a single-process contact store. All operations serialize through
// one mutex: the WAL-append-then-snapshot sequence must never interleave
// with another writer.
type Store struct {
	mu     sync.Mutex
	cfg    config.Config
	logger *slog.Logger

	contacts   map[int64]*contact.Contact
	phoneIndex map[string]int64
	nameTrie   *trie.Trie
	phoneTrie  *trie.Trie
	nextID     int64

	log       *wal.Log
	snapshots *snapshot.Manager
}

// Open opens the store in the configured directory and runs recovery:
// load snapshot, replay the WAL, fold replayed entries into a fresh
// snapshot. It fails if a snapshot exists but cannot be parsed
// (snapshot.ErrCorruptSnapshot); there is no safe automatic repair for
// that case. A nil logger defaults to slog.Default().
func Open(cfg config.Config, logger *slog.Logger) (*Store, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	syncMode := wal.SyncAlways
	if !cfg.FsyncEnabled() {
		syncMode = wal.SyncNone
	}
	log, err := wal.Open(cfg.WALPath(), syncMode)
	if err != nil {
		return nil, err
	}

	s := &Store{
		cfg:        cfg,
		logger:     logger,
		contacts:   make(map[int64]*contact.Contact),
		phoneIndex: make(map[string]int64),
		nameTrie:   trie.New(),
		phoneTrie:  trie.New(),
		nextID:     1,
		log:        log,
		snapshots:  snapshot.NewManager(cfg.SnapshotPath()),
	}

	if err := s.recover(); err != nil {
		log.Close()
		return nil, err
	}
	return s, nil
}

// OpenDir opens a store with default configuration rooted at dir.
func OpenDir(dir string) (*Store, error) {
	cfg := config.DefaultConfig()
	cfg.Dir = dir
	return Open(cfg, nil)
}

// Close releases the WAL file. The store must not be used afterwards.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.Close()
}

// Add creates a new contact and returns its id. The phone number must not
// be in use by a live contact.
func (s *Store) Add(name, phone, note string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name == "" {
		return 0, ErrEmptyName
	}
	if phone == "" {
		return 0, ErrEmptyPhone
	}
	if _, taken := s.phoneIndex[phone]; taken {
		return 0, ErrDuplicatePhone
	}

	c := &contact.Contact{ID: s.nextID, Name: name, Phone: phone, Note: note}
	if err := s.log.Append(wal.Entry{Op: wal.OpAdd, Contact: c}); err != nil {
		// Nothing was applied; the id is not consumed.
		return 0, err
	}

	s.nextID++
	s.applyAdd(c)

	if err := s.checkpoint(); err != nil {
		return 0, err
	}
	return c.ID, nil
}

// Delete removes the contact with the given id. The id is retired
// permanently and never reassigned.
func (s *Store) Delete(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.contacts[id]
	if !ok {
		return ErrNotFound
	}

	if err := s.log.Append(wal.Entry{Op: wal.OpDelete, ID: id}); err != nil {
		return err
	}

	s.applyDelete(c)
	return s.checkpoint()
}

// DeleteByPhone removes the contact holding the given phone number and
// returns its id.
func (s *Store) DeleteByPhone(phone string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.phoneIndex[phone]
	if !ok {
		return 0, ErrNotFound
	}
	c := s.contacts[id]

	if err := s.log.Append(wal.Entry{Op: wal.OpDelete, ID: id}); err != nil {
		return 0, err
	}

	s.applyDelete(c)
	if err := s.checkpoint(); err != nil {
		return 0, err
	}
	return id, nil
}

// Edit applies a partial update to the contact with the given id. Omitted
// fields are unchanged; a phone change must not collide with another live
// contact. An empty patch is a no-op.
func (s *Store) Edit(id int64, p contact.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.contacts[id]
	if !ok {
		return ErrNotFound
	}
	if p.Name != nil && *p.Name == "" {
		return ErrEmptyName
	}
	if p.Phone != nil {
		if *p.Phone == "" {
			return ErrEmptyPhone
		}
		if other, taken := s.phoneIndex[*p.Phone]; taken && other != id {
			return ErrDuplicatePhone
		}
	}
	if p.IsEmpty() {
		return nil
	}

	if err := s.log.Append(wal.Entry{Op: wal.OpEdit, ID: id, Fields: &p}); err != nil {
		return err
	}

	s.applyEdit(c, p)
	return s.checkpoint()
}

// List returns all live contacts ordered by id ascending.
func (s *Store) List() []contact.Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotContacts()
}

// Count returns the number of live contacts.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.contacts)
}

// FindByNamePrefix returns the contacts whose name starts with prefix,
// ordered by id ascending.
func (s *Store) FindByNamePrefix(prefix string) []contact.Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collect(s.nameTrie.Lookup(prefix))
}

// FindByPhonePrefix returns the contacts whose phone starts with prefix,
// ordered by id ascending.
func (s *Store) FindByPhonePrefix(prefix string) []contact.Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collect(s.phoneTrie.Lookup(prefix))
}

// FindByName returns the contacts whose name equals name exactly.
func (s *Store) FindByName(name string) []contact.Contact {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []contact.Contact
	for _, c := range s.collect(s.nameTrie.Lookup(name)) {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// FindByPhone returns the contact holding exactly the given phone number.
func (s *Store) FindByPhone(phone string) (contact.Contact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.phoneIndex[phone]
	if !ok {
		return contact.Contact{}, false
	}
	return *s.contacts[id], true
}

// ScanNamePrefix answers the same query as FindByNamePrefix with a linear
// scan over all contacts. Kept for the index performance comparison.
func (s *Store) ScanNamePrefix(prefix string) []contact.Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scan(func(c *contact.Contact) bool {
		return strings.HasPrefix(c.Name, prefix)
	})
}

// ScanPhonePrefix is the linear-scan twin of FindByPhonePrefix.
func (s *Store) ScanPhonePrefix(prefix string) []contact.Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scan(func(c *contact.Contact) bool {
		return strings.HasPrefix(c.Phone, prefix)
	})
}

// applyAdd installs c in the record set and all indexes. In-memory only;
// callers have already made the intent durable.
func (s *Store) applyAdd(c *contact.Contact) {
	s.contacts[c.ID] = c
	s.phoneIndex[c.Phone] = c.ID
	s.nameTrie.Insert(c.Name, c.ID)
	s.phoneTrie.Insert(c.Phone, c.ID)
}

// applyDelete removes c from the record set and all indexes.
func (s *Store) applyDelete(c *contact.Contact) {
	if id, ok := s.phoneIndex[c.Phone]; ok && id != c.ID {
		// Record and index disagree about who owns this phone. Lookups are
		// permanently wrong from here on; there is no safe way to continue.
		panic(fmt.Sprintf("store: phone index diverged for %q: record %d, index %d", c.Phone, c.ID, id))
	}
	s.nameTrie.Remove(c.Name, c.ID)
	s.phoneTrie.Remove(c.Phone, c.ID)
	delete(s.phoneIndex, c.Phone)
	delete(s.contacts, c.ID)
}

// applyEdit mutates c in place, keeping both tries and the phone map in
// step. Old keys are removed before new keys are inserted.
func (s *Store) applyEdit(c *contact.Contact, p contact.Patch) {
	nameChanged := p.Name != nil && *p.Name != c.Name
	phoneChanged := p.Phone != nil && *p.Phone != c.Phone

	if nameChanged {
		s.nameTrie.Remove(c.Name, c.ID)
	}
	if phoneChanged {
		s.phoneTrie.Remove(c.Phone, c.ID)
		delete(s.phoneIndex, c.Phone)
	}

	p.Apply(c)

	if nameChanged {
		s.nameTrie.Insert(c.Name, c.ID)
	}
	if phoneChanged {
		s.phoneTrie.Insert(c.Phone, c.ID)
		s.phoneIndex[c.Phone] = c.ID
	}
}

// checkpoint folds the current state into a fresh snapshot and truncates
// the WAL. On failure the in-memory state stays applied and the WAL entry
// remains as durable intent; recovery reproduces the same state on the
// next open.
func (s *Store) checkpoint() error {
	state := snapshot.State{NextID: s.nextID, Contacts: s.snapshotContacts()}
	if err := s.snapshots.Write(state); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	if err := s.log.Clear(); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	return nil
}

// snapshotContacts copies all live contacts ordered by id ascending.
func (s *Store) snapshotContacts() []contact.Contact {
	out := make([]contact.Contact, 0, len(s.contacts))
	for _, c := range s.contacts {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// collect resolves index ids to contact copies ordered by id ascending.
func (s *Store) collect(ids []int64) []contact.Contact {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]contact.Contact, 0, len(ids))
	for _, id := range ids {
		c, ok := s.contacts[id]
		if !ok {
			panic(fmt.Sprintf("store: index refers to dead contact %d", id))
		}
		out = append(out, *c)
	}
	return out
}

func (s *Store) scan(match func(*contact.Contact) bool) []contact.Contact {
	out := make([]contact.Contact, 0)
	for _, c := range s.contacts {
		if match(c) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
