package types

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordMarshalFlattensFields(t *testing.T) {
	created := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	rec := Record{
		ID:        "rec-1",
		RemoteID:  "rem-1",
		OwnerID:   "user-1",
		CreatedAt: created,
		Fields: map[string]any{
			"title": "Linear algebra",
			// A fixed key in Fields must not shadow the struct field.
			"id": "shadow",
		},
	}

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "rec-1", m["id"])
	assert.Equal(t, "rem-1", m["remoteId"])
	assert.Equal(t, "user-1", m["ownerId"])
	assert.Equal(t, "2026-03-01T09:30:00.000Z", m["createdAt"])
	assert.Equal(t, "Linear algebra", m["title"])
	assert.NotContains(t, m, "updatedAt", "zero UpdatedAt must be omitted")
}

func TestRecordUnmarshal(t *testing.T) {
	t.Run("splits fixed and open fields", func(t *testing.T) {
		var rec Record
		err := json.Unmarshal([]byte(`{
			"id": "a",
			"ownerId": "u",
			"createdAt": "2026-01-02T03:04:05.678Z",
			"updatedAt": "2026-01-03T00:00:00Z",
			"targetHours": 12,
			"status": "open"
		}`), &rec)
		require.NoError(t, err)

		assert.Equal(t, "a", rec.ID)
		assert.Equal(t, "u", rec.OwnerID)
		assert.Empty(t, rec.RemoteID)
		assert.Equal(t, 678*time.Millisecond, time.Duration(rec.CreatedAt.Nanosecond()))
		assert.Equal(t, 3, rec.UpdatedAt.Day())
		assert.Equal(t, float64(12), rec.Fields["targetHours"])
		assert.Equal(t, "open", rec.Fields["status"])
		assert.NotContains(t, rec.Fields, "id")
	})

	t.Run("accepts the legacy remote id key", func(t *testing.T) {
		var rec Record
		require.NoError(t, json.Unmarshal([]byte(`{"id":"a","supabaseId":"remote-a"}`), &rec))
		assert.Equal(t, "remote-a", rec.RemoteID)

		data, err := json.Marshal(rec)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"remoteId":"remote-a"`)
		assert.NotContains(t, string(data), "supabaseId")
	})

	t.Run("rejects wrong fixed field types", func(t *testing.T) {
		var rec Record
		err := json.Unmarshal([]byte(`{"id":"a","createdAt":false}`), &rec)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidData))
	})

	t.Run("rejects null", func(t *testing.T) {
		var rec Record
		err := json.Unmarshal([]byte(`null`), &rec)
		require.Error(t, err)
	})
}

func TestRecordApplyIgnoresFixedKeys(t *testing.T) {
	rec := Record{ID: "a", RemoteID: "r"}
	rec.Apply(map[string]any{"id": "b", "remoteId": "x", "title": "new"})

	assert.Equal(t, "a", rec.ID)
	assert.Equal(t, "r", rec.RemoteID)
	assert.Equal(t, "new", rec.Fields["title"])
}

func TestRecordCloneIsIndependent(t *testing.T) {
	rec := Record{ID: "a", Fields: map[string]any{"title": "one"}}
	c := rec.Clone()
	c.Fields["title"] = "two"
	assert.Equal(t, "one", rec.Fields["title"])
}
