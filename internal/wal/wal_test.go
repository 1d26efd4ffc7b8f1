package wal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contactdb/internal/contact"
)

func openTestLog(t *testing.T) (*Log, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "contacts.wal")
	l, err := Open(path, SyncAlways)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l, path
}

func strptr(s string) *string { return &s }

func TestLog_AppendReplay(t *testing.T) {
	l, _ := openTestLog(t)

	entries := []Entry{
		{Op: OpAdd, Contact: &contact.Contact{ID: 1, Name: "Alice", Phone: "111"}},
		{Op: OpEdit, ID: 1, Fields: &contact.Patch{Phone: strptr("222")}},
		{Op: OpDelete, ID: 1},
	}
	for _, e := range entries {
		require.NoError(t, l.Append(e))
	}

	got, err := l.Replay()
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, OpAdd, got[0].Op)
	require.NotNil(t, got[0].Contact)
	assert.Equal(t, "Alice", got[0].Contact.Name)

	assert.Equal(t, OpEdit, got[1].Op)
	assert.Equal(t, int64(1), got[1].ID)
	require.NotNil(t, got[1].Fields)
	require.NotNil(t, got[1].Fields.Phone)
	assert.Equal(t, "222", *got[1].Fields.Phone)
	assert.Nil(t, got[1].Fields.Name)

	assert.Equal(t, OpDelete, got[2].Op)
	assert.Equal(t, int64(1), got[2].ID)
}

func TestLog_ReplayEmpty(t *testing.T) {
	l, _ := openTestLog(t)

	got, err := l.Replay()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLog_ReplayTornTail(t *testing.T) {
	l, path := openTestLog(t)

	require.NoError(t, l.Append(Entry{Op: OpAdd, Contact: &contact.Contact{ID: 1, Name: "Alice", Phone: "111"}}))
	require.NoError(t, l.Append(Entry{Op: OpDelete, ID: 1}))
	require.NoError(t, l.Close())

	// Simulate a crash mid-append by chopping bytes off the last frame.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:len(data)-5], 0o644))

	reopened, err := Open(path, SyncAlways)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Replay()
	require.NoError(t, err)
	require.Len(t, got, 1, "torn tail must end the log, not fail it")
	assert.Equal(t, OpAdd, got[0].Op)
}

func TestLog_ReplayGarbageTail(t *testing.T) {
	l, path := openTestLog(t)

	require.NoError(t, l.Append(Entry{Op: OpAdd, Contact: &contact.Contact{ID: 1, Name: "Alice", Phone: "111"}}))
	require.NoError(t, l.Close())

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("{\"op\":\"nonsense\"}\nnot json at all")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	reopened, err := Open(path, SyncAlways)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Replay()
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

// TestLog_TornTailNeverSwallowsLaterAppends: a torn tail has no newline, so
// without truncation the next append would land on the same line and both
// would parse as one malformed frame. Replay must cut the torn bytes so
// entries appended afterwards stay visible.
func TestLog_TornTailNeverSwallowsLaterAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.wal")
	require.NoError(t, os.WriteFile(path, []byte(`{"op":"add","contact":{"id":1,"na`), 0o644))

	l, err := Open(path, SyncAlways)
	require.NoError(t, err)
	defer l.Close()

	got, err := l.Replay()
	require.NoError(t, err)
	require.Empty(t, got)

	require.NoError(t, l.Append(Entry{Op: OpAdd, Contact: &contact.Contact{ID: 2, Name: "Bob", Phone: "222"}}))

	got, err = l.Replay()
	require.NoError(t, err)
	require.Len(t, got, 1, "acknowledged append must survive a replay after a torn tail")
	assert.Equal(t, int64(2), got[0].Contact.ID)
}

func TestLog_ReplayTruncatesTornTail(t *testing.T) {
	l, path := openTestLog(t)

	require.NoError(t, l.Append(Entry{Op: OpAdd, Contact: &contact.Contact{ID: 1, Name: "Alice", Phone: "111"}}))
	size, err := l.Size()
	require.NoError(t, err)
	require.NoError(t, l.Close())

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"op":"delete","i`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	reopened, err := Open(path, SyncAlways)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Replay()
	require.NoError(t, err)
	require.Len(t, got, 1)

	// The torn suffix is gone from disk, not just skipped.
	after, err := reopened.Size()
	require.NoError(t, err)
	assert.Equal(t, size, after)
}

// A frame larger than any fixed scanner buffer must still replay.
func TestLog_LargeEntry(t *testing.T) {
	l, _ := openTestLog(t)

	note := strings.Repeat("x", 2<<20)
	require.NoError(t, l.Append(Entry{Op: OpAdd, Contact: &contact.Contact{ID: 1, Name: "Alice", Phone: "111", Note: note}}))
	require.NoError(t, l.Append(Entry{Op: OpDelete, ID: 1}))

	got, err := l.Replay()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Len(t, got[0].Contact.Note, 2<<20)
	assert.Equal(t, OpDelete, got[1].Op)
}

func TestLog_Clear(t *testing.T) {
	l, _ := openTestLog(t)

	require.NoError(t, l.Append(Entry{Op: OpDelete, ID: 7}))
	size, err := l.Size()
	require.NoError(t, err)
	assert.Positive(t, size)

	require.NoError(t, l.Clear())

	size, err = l.Size()
	require.NoError(t, err)
	assert.Zero(t, size)

	got, err := l.Replay()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLog_AppendAfterClear(t *testing.T) {
	l, _ := openTestLog(t)

	require.NoError(t, l.Append(Entry{Op: OpDelete, ID: 1}))
	require.NoError(t, l.Clear())
	require.NoError(t, l.Append(Entry{Op: OpDelete, ID: 2}))

	got, err := l.Replay()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].ID)
}

func TestLog_ReopenPreservesEntries(t *testing.T) {
	l, path := openTestLog(t)

	require.NoError(t, l.Append(Entry{Op: OpAdd, Contact: &contact.Contact{ID: 1, Name: "Alice", Phone: "111"}}))
	require.NoError(t, l.Close())

	reopened, err := Open(path, SyncAlways)
	require.NoError(t, err)
	defer reopened.Close()

	require.NoError(t, reopened.Append(Entry{Op: OpDelete, ID: 1}))

	got, err := reopened.Replay()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, OpAdd, got[0].Op)
	assert.Equal(t, OpDelete, got[1].Op)
}
