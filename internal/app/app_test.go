package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monalisamaguruwada102-web/studysync/internal/lifecycle"
	"github.com/monalisamaguruwada102-web/studysync/internal/remote/remotetest"
	"github.com/monalisamaguruwada102-web/studysync/pkg/types"
)

func testConfig(t *testing.T) types.Config {
	t.Helper()
	cfg := types.DefaultConfig()
	cfg.DataDir = filepath.Join(t.TempDir(), "data")
	return cfg
}

func TestNewRejectsBadConfig(t *testing.T) {
	ctx := context.Background()

	cfg := testConfig(t)
	cfg.DataDir = ""
	_, err := New(ctx, cfg, nil, Options{})
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.MergeStrategy = "local-wins"
	_, err = New(ctx, cfg, nil, Options{})
	assert.ErrorIs(t, err, types.ErrUnknownStrategy)

	cfg = testConfig(t)
	cfg.Remote.SchemaFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = New(ctx, cfg, nil, Options{})
	assert.Error(t, err)
}

func TestLocalOnlyEngine(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t), nil, Options{})
	require.NoError(t, err)
	require.NoError(t, a.Open())
	defer a.Close()

	assert.False(t, a.Remote.Configured())

	_, err = a.Store.Insert(ctx, types.CollectionTasks, types.Record{OwnerID: "u1", Fields: map[string]any{"title": "Revise"}})
	require.NoError(t, err)

	view := a.Engine.View(ctx, types.CollectionTasks, "u1")
	require.Len(t, view, 1)
	assert.Equal(t, "Revise", view[0].Fields["title"])

	res, _ := a.Reconciler.RunOnce(ctx)
	assert.True(t, res.Skipped)
}

func TestSQLiteRemoteEndToEnd(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Remote = types.RemoteConfig{
		Backend: types.BackendSQLite,
		DSN:     filepath.Join(t.TempDir(), "remote.db"),
		Timeout: types.DefaultRemoteTimeout,
	}

	a, err := New(ctx, cfg, nil, Options{})
	require.NoError(t, err)
	require.NoError(t, a.Open())
	defer a.Close()
	require.True(t, a.Remote.Configured())
	require.NoError(t, a.Remote.Ping(ctx))

	for _, title := range []string{"Entropy", "Enthalpy", "Gibbs"} {
		_, err := a.Store.Insert(ctx, types.CollectionNotes, types.Record{
			OwnerID: "u1",
			Fields:  map[string]any{"title": title, "isDirty": true},
		})
		require.NoError(t, err)
	}

	res, skipped := a.Reconciler.RunOnce(ctx)
	require.False(t, skipped)
	assert.Equal(t, 3, res.Synced)
	assert.Empty(t, res.Failures)
	assert.Empty(t, a.Store.Unsynced(types.CollectionNotes))

	remoteRecs := a.Remote.FetchOwned(ctx, types.CollectionNotes, "u1")
	require.Len(t, remoteRecs, 3)
	for _, r := range remoteRecs {
		assert.NotContains(t, r.Fields, "isDirty", "local-only fields stay local")
	}

	view := a.Engine.View(ctx, types.CollectionNotes, "u1")
	assert.Len(t, view, 3, "synced records are not duplicated")
}

func TestRunFlushesOnShutdown(t *testing.T) {
	ctx := context.Background()
	driver := remotetest.NewDriver()
	a, err := New(ctx, testConfig(t), nil, Options{Driver: driver, Exit: func(int) {}})
	require.NoError(t, err)

	var inserted types.Record
	err = a.Run(ctx, func(context.Context) error {
		var err error
		inserted, err = a.Store.Insert(ctx, types.CollectionFlashcards, types.Record{OwnerID: "u1"})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StateShuttingDown, a.Lifecycle.State())

	backups, err := a.Store.ListBackups()
	require.NoError(t, err)
	assert.NotEmpty(t, backups, "shutdown takes a final backup")

	rows := driver.Rows("flashcards")
	require.Len(t, rows, 1)
	assert.Equal(t, inserted.ID, rows[0][types.ColumnID])
}

func TestMigrateWithoutRemote(t *testing.T) {
	assert.ErrorIs(t, Migrate(types.RemoteConfig{}, nil), types.ErrRemoteNotConfigured)
	assert.NoError(t, Migrate(types.RemoteConfig{Backend: types.BackendSQLite, DSN: ":memory:"}, nil))
}
