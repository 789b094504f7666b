package remote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monalisamaguruwada102-web/studysync/internal/remote/remotetest"
	"github.com/monalisamaguruwada102-web/studysync/pkg/types"
)

func TestUnconfiguredAdapterDegrades(t *testing.T) {
	ctx := context.Background()
	a := NewAdapter(nil, nil, 0, nil)

	assert.False(t, a.Configured())
	assert.Nil(t, a.FetchOwned(ctx, types.CollectionNotes, "u1"))
	assert.Nil(t, a.FetchByID(ctx, types.CollectionNotes, "n1"))
	assert.Nil(t, a.Upsert(ctx, types.CollectionNotes, types.Record{ID: "n1"}))
	assert.False(t, a.Delete(ctx, types.CollectionNotes, "n1"))
	assert.ErrorIs(t, a.Ping(ctx), types.ErrRemoteNotConfigured)
	assert.NoError(t, a.Close())
}

func TestAdapterUpsertAndFetch(t *testing.T) {
	ctx := context.Background()
	d := remotetest.NewDriver()
	a := NewAdapter(d, nil, time.Second, nil)
	require.True(t, a.Configured())

	rec := types.Record{
		ID:        "local-1",
		OwnerID:   "u1",
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Fields:    map[string]any{"durationMinutes": 25, "isDirty": true},
	}

	stored := a.Upsert(ctx, types.CollectionPomodoroSessions, rec)
	require.NotNil(t, stored)
	assert.Equal(t, "local-1", stored.ID, "without a remote id the local id keys the row")
	assert.Equal(t, 25, stored.Fields["durationMinutes"])
	assert.NotContains(t, stored.Fields, "isDirty")

	rows := d.Rows("pomodoro_sessions")
	require.Len(t, rows, 1)
	assert.Equal(t, 25, rows[0]["duration_minutes"])

	again := a.Upsert(ctx, types.CollectionPomodoroSessions, rec)
	require.NotNil(t, again)
	assert.Len(t, d.Rows("pomodoro_sessions"), 1, "upsert is idempotent by id")

	got := a.FetchByID(ctx, types.CollectionPomodoroSessions, "local-1")
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.OwnerID)
	assert.Nil(t, a.FetchByID(ctx, types.CollectionPomodoroSessions, "missing"))

	owned := a.FetchOwned(ctx, types.CollectionPomodoroSessions, "u1")
	require.Len(t, owned, 1)
	assert.Equal(t, "local-1", owned[0].ID)

	none := a.FetchOwned(ctx, types.CollectionPomodoroSessions, "u2")
	assert.NotNil(t, none, "a reachable remote returns a non-nil slice")
	assert.Empty(t, none)

	assert.True(t, a.Delete(ctx, types.CollectionPomodoroSessions, "local-1"))
	assert.Empty(t, d.Rows("pomodoro_sessions"))
	assert.True(t, a.Delete(ctx, types.CollectionPomodoroSessions, "local-1"), "deleting a missing row succeeds")
}

func TestAdapterUsesRemoteIDAsKey(t *testing.T) {
	ctx := context.Background()
	d := remotetest.NewDriver()
	a := NewAdapter(d, nil, time.Second, nil)

	stored := a.Upsert(ctx, types.CollectionNotes, types.Record{ID: "local-1", RemoteID: "remote-1", OwnerID: "u1"})
	require.NotNil(t, stored)
	assert.Equal(t, "remote-1", stored.ID)
	assert.Empty(t, stored.RemoteID)
}

func TestAdapterDegradesWhenRemoteFails(t *testing.T) {
	ctx := context.Background()
	d := remotetest.NewDriver()
	a := NewAdapter(d, nil, time.Second, nil)
	require.NotNil(t, a.Upsert(ctx, types.CollectionNotes, types.Record{ID: "n1", OwnerID: "u1"}))

	d.SetDown(true)
	assert.Nil(t, a.FetchOwned(ctx, types.CollectionNotes, "u1"), "failure must be nil, not empty")
	assert.Nil(t, a.FetchByID(ctx, types.CollectionNotes, "n1"))
	assert.Nil(t, a.Upsert(ctx, types.CollectionNotes, types.Record{ID: "n2"}))
	assert.False(t, a.Delete(ctx, types.CollectionNotes, "n1"))
	assert.ErrorIs(t, a.Ping(ctx), remotetest.ErrUnavailable)

	d.SetDown(false)
	assert.Len(t, a.FetchOwned(ctx, types.CollectionNotes, "u1"), 1)
}

func TestAdapterRejectsRecordWithoutID(t *testing.T) {
	d := remotetest.NewDriver()
	a := NewAdapter(d, nil, time.Second, nil)
	assert.Nil(t, a.Upsert(context.Background(), types.CollectionNotes, types.Record{OwnerID: "u1"}))
	assert.Zero(t, d.Upserts())
}

func TestAdapterPerCallFailure(t *testing.T) {
	ctx := context.Background()
	d := remotetest.NewDriver()
	d.FailUpsert = func(_ string, row types.Row) error {
		if row["id"] == "bad" {
			return errors.New("constraint violation")
		}
		return nil
	}
	a := NewAdapter(d, nil, time.Second, nil)

	assert.Nil(t, a.Upsert(ctx, types.CollectionNotes, types.Record{ID: "bad"}))
	assert.NotNil(t, a.Upsert(ctx, types.CollectionNotes, types.Record{ID: "good"}))
}
