package remote

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monalisamaguruwada102-web/studysync/pkg/types"
)

func TestDefaultSchemaCoversEveryCollection(t *testing.T) {
	s := DefaultSchema()
	for _, c := range types.StandardCollections {
		require.Contains(t, s.Collections, c)
		assert.Equal(t, types.RemoteTable(c), s.Table(c), "table of %s", c)
	}
	assert.Equal(t, "study_logs", s.Table(types.CollectionStudyLogs))
	assert.Equal(t, "quizzes", s.Table("quizzes"), "unknown collections keep their name")
}

func TestSchemaFieldMapIsBidirectional(t *testing.T) {
	s := DefaultSchema()
	for name, cs := range s.Collections {
		for field, column := range cs.Fields {
			assert.Equal(t, column, s.Column(name, field), "%s.%s", name, field)
			assert.Equal(t, field, s.Field(name, column), "%s.%s", name, column)
		}
	}
	assert.Equal(t, "avatar_url", s.Column(types.CollectionUsers, "avatarURL"))
	assert.Equal(t, "avatarURL", s.Field(types.CollectionUsers, "avatar_url"))
	assert.Equal(t, "owner_id", s.Column(types.CollectionNotes, "ownerId"))
	assert.Equal(t, "ownerId", s.Field(types.CollectionNotes, "owner_id"))
	assert.Equal(t, "word_count", s.Column(types.CollectionNotes, "wordCount"), "fallback")
}

func TestToRemote(t *testing.T) {
	s := DefaultSchema()
	created := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	rec := types.Record{
		ID:        "local-1",
		OwnerID:   "u1",
		CreatedAt: created,
		Fields: map[string]any{
			"title":       "Finish lab",
			"dueDate":     "2026-03-10",
			"isOverdue":   true,
			"isEditing":   true,
			"_local":      map[string]any{"draft": true},
			"description": "bring goggles",
		},
	}

	row := s.ToRemote(types.CollectionTasks, rec)

	assert.Equal(t, types.Row{
		"id":          "local-1",
		"owner_id":    "u1",
		"created_at":  created,
		"title":       "Finish lab",
		"due_date":    "2026-03-10",
		"description": "bring goggles",
	}, row)

	t.Run("row id is the remote id when set", func(t *testing.T) {
		rec.RemoteID = "remote-9"
		row := s.ToRemote(types.CollectionTasks, rec)
		assert.Equal(t, "remote-9", row["id"])
		assert.NotContains(t, row, "remote_id")
	})

	t.Run("per-collection local-only fields apply to their collection only", func(t *testing.T) {
		row := s.ToRemote(types.CollectionFlashcardDecks, types.Record{ID: "d1", Fields: map[string]any{"cardCount": 3}})
		assert.NotContains(t, row, "card_count")
		row = s.ToRemote(types.CollectionNotes, types.Record{ID: "n1", Fields: map[string]any{"cardCount": 3}})
		assert.Equal(t, 3, row["card_count"])
	})
}

func TestFromRemote(t *testing.T) {
	s := DefaultSchema()
	created := time.Date(2026, 3, 4, 5, 6, 7, 800_000_000, time.UTC)

	rec, err := s.FromRemote(types.CollectionStudyLogs, types.Row{
		"id":               "r1",
		"owner_id":         "u1",
		"created_at":       created,
		"duration_minutes": float64(30),
		"module_id":        "m1",
		"remote_id":        "ignored",
		"free_text":        "x",
	})
	require.NoError(t, err)

	assert.Equal(t, "r1", rec.ID)
	assert.Equal(t, "u1", rec.OwnerID)
	assert.Empty(t, rec.RemoteID)
	assert.True(t, created.Equal(rec.CreatedAt))
	assert.Equal(t, float64(30), rec.Fields["durationMinutes"])
	assert.Equal(t, "m1", rec.Fields["moduleId"])
	assert.Equal(t, "x", rec.Fields["freeText"])
	assert.NotContains(t, rec.Fields, "remoteId")

	_, err = s.FromRemote(types.CollectionNotes, types.Row{"id": "n1", "created_at": 12})
	assert.ErrorIs(t, err, types.ErrInvalidData)
}

func TestRoundTripThroughSchema(t *testing.T) {
	s := DefaultSchema()
	rec := types.Record{
		ID:      "e1",
		OwnerID: "u1",
		Fields: map[string]any{
			"startsAt":   "2026-05-01T09:00:00Z",
			"externalID": "gcal-123",
			"allDay":     false,
		},
	}
	back, err := s.FromRemote(types.CollectionCalendarEvents, s.ToRemote(types.CollectionCalendarEvents, rec))
	require.NoError(t, err)
	assert.Equal(t, rec.Fields, back.Fields)
	assert.Equal(t, rec.ID, back.ID)
}

func TestParseSchemaRejectsBadMaps(t *testing.T) {
	tests := map[string]string{
		"duplicate column": "collections:\n  notes:\n    fields:\n      a: x\n      b: x\n",
		"fixed field":      "collections:\n  notes:\n    fields:\n      ownerId: owner\n",
		"empty column":     "collections:\n  notes:\n    fields:\n      a: \"\"\n",
		"not yaml":         "collections: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSchema([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadSchema(t *testing.T) {
	s, err := LoadSchema("")
	require.NoError(t, err)
	assert.NotEmpty(t, s.Collections)

	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte("local_only: [secret]\ncollections:\n  notes:\n    table: lecture_notes\n"), 0o644))
	s, err = LoadSchema(path)
	require.NoError(t, err)
	assert.Equal(t, "lecture_notes", s.Table(types.CollectionNotes))
	assert.True(t, s.IsLocalOnly(types.CollectionNotes, "secret"))
	assert.Equal(t, "study_logs", s.Table(types.CollectionStudyLogs))

	_, err = LoadSchema(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
