package store

import (
	"fmt"

	"contactdb/internal/wal"
)

// recover brings the store to a consistent ready state at open:
//
//  1. Load the snapshot (or start empty) and rebuild the record set, the
//     phone map and both tries from its contact list.
//  2. Replay any WAL entries an interrupted prior run left behind, through
//     the same mutation helpers live operations use.
//  3. If anything was replayed, fold it into a fresh snapshot and clear the
//     log, restoring the quiescent invariant: snapshot only, empty WAL.
func (s *Store) recover() error {
	state, err := s.snapshots.Load()
	if err != nil {
		// Includes the corrupt-snapshot case, which is fatal: the log was
		// cleared after this snapshot was installed, so there is nothing to
		// rebuild from.
		return err
	}
	if state != nil {
		s.nextID = state.NextID
		if s.nextID < 1 {
			s.nextID = 1
		}
		for i := range state.Contacts {
			c := state.Contacts[i]
			s.applyAdd(&c)
			if c.ID >= s.nextID {
				s.nextID = c.ID + 1
			}
		}
	}

	entries, err := s.log.Replay()
	if err != nil {
		return fmt.Errorf("replay wal: %w", err)
	}
	for _, e := range entries {
		s.applyReplay(e)
	}

	if len(entries) > 0 {
		if err := s.checkpoint(); err != nil {
			return fmt.Errorf("reconcile after replay: %w", err)
		}
	}

	s.logger.Info("contact store ready",
		"dir", s.cfg.Dir,
		"contacts", len(s.contacts),
		"replayed", len(entries),
		"next_id", s.nextID,
	)
	return nil
}

// applyReplay applies one logged entry during recovery. Replay trusts the
// log: entries reflect decisions that were already committed, so business
// rules are not re-validated. Every id encountered pushes nextID forward so
// ids are never reused.
func (s *Store) applyReplay(e wal.Entry) {
	switch e.Op {
	case wal.OpAdd:
		if e.Contact == nil {
			return
		}
		c := *e.Contact
		// Re-applying an add whose effect already reached a snapshot must
		// not duplicate the record.
		if old, ok := s.contacts[c.ID]; ok {
			s.applyDelete(old)
		}
		s.applyAdd(&c)
		s.advanceNextID(c.ID)
	case wal.OpDelete:
		if c, ok := s.contacts[e.ID]; ok {
			s.applyDelete(c)
		}
		s.advanceNextID(e.ID)
	case wal.OpEdit:
		if e.Fields == nil {
			return
		}
		if c, ok := s.contacts[e.ID]; ok {
			s.applyEdit(c, *e.Fields)
		}
		s.advanceNextID(e.ID)
	}
}

func (s *Store) advanceNextID(id int64) {
	if id >= s.nextID {
		s.nextID = id + 1
	}
}
