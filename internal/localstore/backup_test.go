package localstore

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monalisamaguruwada102-web/studysync/pkg/types"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestStampRoundTrip(t *testing.T) {
	ts := time.Date(2026, 10, 18, 9, 5, 7, 42_000_000, time.UTC)
	s := stamp(ts)
	assert.Equal(t, "2026-10-18T09-05-07-042Z", s)
	assert.Len(t, s, stampLen)

	back, err := parseStamp(s)
	require.NoError(t, err)
	assert.True(t, ts.Equal(back))

	_, err = parseStamp("2026-10-18")
	assert.Error(t, err)
}

func TestStampsSortChronologically(t *testing.T) {
	base := time.Date(2026, 1, 1, 23, 59, 59, 998_000_000, time.UTC)
	var stamps []string
	for i := range 5 {
		stamps = append(stamps, stamp(base.Add(time.Duration(i)*time.Millisecond)))
	}
	assert.True(t, sort.StringsAreSorted(stamps), "%v", stamps)
}

func TestBackupRotationKeepsNewestTen(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	attach(t, s)

	var created []string
	for range 15 {
		path, err := s.CreateBackup(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, path)
		created = append(created, filepath.Base(path))
	}

	infos, err := s.ListBackups()
	require.NoError(t, err)
	require.Len(t, infos, 10)

	var kept []string
	for _, info := range infos {
		kept = append(kept, info.Name)
	}
	sort.Strings(kept)
	assert.Equal(t, created[5:], kept)

	entries, err := os.ReadDir(s.BackupDir())
	require.NoError(t, err)
	assert.Len(t, entries, 10)
}

func TestListBackupsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	attach(t, s)

	for range 3 {
		_, err := s.CreateBackup(ctx)
		require.NoError(t, err)
	}
	// Files that are not this store's backups are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(s.BackupDir(), "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(s.BackupDir(), "other-backup-2026-01-01T00-00-00-000Z.json"), []byte("{}"), 0o644))

	infos, err := s.ListBackups()
	require.NoError(t, err)
	require.Len(t, infos, 3)
	assert.True(t, infos[0].CreatedAt.After(infos[1].CreatedAt))
	assert.True(t, infos[1].CreatedAt.After(infos[2].CreatedAt))
	assert.Positive(t, infos[0].Size)
}

func TestWritesTriggerPeriodicBackups(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)}
	s := newTestStore(t, func(c *Config) {
		c.Now = clock.Now
		c.BackupInterval = 5 * time.Minute
	})
	attach(t, s)

	count := func() int {
		infos, err := s.ListBackups()
		require.NoError(t, err)
		return len(infos)
	}

	_, err := s.Insert(ctx, types.CollectionNotes, types.Record{})
	require.NoError(t, err)
	assert.Equal(t, 1, count(), "the first write backs up")

	clock.Advance(time.Minute)
	_, err = s.Insert(ctx, types.CollectionNotes, types.Record{})
	require.NoError(t, err)
	assert.Equal(t, 1, count(), "no backup inside the interval")

	clock.Advance(5 * time.Minute)
	_, err = s.Insert(ctx, types.CollectionNotes, types.Record{})
	require.NoError(t, err)
	assert.Equal(t, 2, count())
}

func TestAttachResumesBackupClock(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)}
	dir := t.TempDir()
	cfg := Config{Dir: dir, Name: "studysync", Now: clock.Now}

	s := New(cfg, nil)
	require.NoError(t, s.Attach())
	_, err := s.Insert(ctx, types.CollectionNotes, types.Record{})
	require.NoError(t, err)
	require.NoError(t, s.Detach())

	clock.Advance(time.Minute)
	s = New(cfg, nil)
	attach(t, s)
	_, err = s.Insert(ctx, types.CollectionNotes, types.Record{})
	require.NoError(t, err)

	infos, err := s.ListBackups()
	require.NoError(t, err)
	assert.Len(t, infos, 1, "the backup from the previous run counts toward the interval")
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	attach(t, s)

	current, err := s.Insert(ctx, types.CollectionNotes, types.Record{OwnerID: "u1"})
	require.NoError(t, err)
	before, err := s.ListBackups()
	require.NoError(t, err)

	t.Run("rejects an invalid payload before writing", func(t *testing.T) {
		for _, payload := range []string{`null`, `[]`, `{"notes":"x"}`, `{"notes":[`} {
			err := s.RestoreJSON(ctx, []byte(payload))
			assert.ErrorIs(t, err, types.ErrInvalidState, "payload %s", payload)
		}
		err := s.Restore(ctx, nil)
		assert.ErrorIs(t, err, types.ErrInvalidState)

		after, err := s.ListBackups()
		require.NoError(t, err)
		assert.Len(t, after, len(before), "no backup is taken for a rejected payload")
		_, ok := s.GetByID(types.CollectionNotes, current.ID)
		assert.True(t, ok)
	})

	t.Run("backs up current state and fills missing collections", func(t *testing.T) {
		err := s.RestoreJSON(ctx, []byte(`{"tasks":[{"id":"t1","ownerId":"u1","title":"Restored"}]}`))
		require.NoError(t, err)

		after, err := s.ListBackups()
		require.NoError(t, err)
		require.Len(t, after, len(before)+1)

		pre := readFile(t, after[0].Path)
		assert.Len(t, pre.Collections[types.CollectionNotes], 1, "newest backup holds the pre-restore state")

		onDisk := readFile(t, s.Path())
		assert.Len(t, onDisk.Collections[types.CollectionTasks], 1)
		assert.Empty(t, onDisk.Collections[types.CollectionNotes])
		assert.Contains(t, onDisk.Collections, types.CollectionConversations)

		_, ok := s.GetByID(types.CollectionTasks, "t1")
		assert.True(t, ok)
	})

	t.Run("restores a named backup", func(t *testing.T) {
		infos, err := s.ListBackups()
		require.NoError(t, err)
		require.NoError(t, s.RestoreBackup(ctx, infos[0].Name))
		_, ok := s.GetByID(types.CollectionNotes, current.ID)
		assert.True(t, ok)
	})

	t.Run("rejects names outside the backup set", func(t *testing.T) {
		for _, name := range []string{"../studysync.json", "studysync.json", "other-backup-2026-01-01T00-00-00-000Z.json"} {
			assert.ErrorIs(t, s.RestoreBackup(ctx, name), ErrInvalidBackupName, name)
		}
		missing := s.backupName(time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC))
		assert.ErrorIs(t, s.RestoreBackup(ctx, missing), types.ErrNotFound)
	})
}
