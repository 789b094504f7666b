package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monalisamaguruwada102-web/studysync/pkg/types"
)

func TestBuildUpsert(t *testing.T) {
	query, args, err := buildUpsert("study_logs", types.Row{
		"id":               "log-1",
		"owner_id":         "u1",
		"duration_minutes": 30.0,
		"tags":             []any{"a", "b"},
	})
	require.NoError(t, err)

	assert.Equal(t,
		`INSERT INTO "study_logs" ("duration_minutes", "id", "owner_id", "tags") VALUES ($1, $2, $3, $4) `+
			`ON CONFLICT ("id") DO UPDATE SET "duration_minutes" = EXCLUDED."duration_minutes", `+
			`"owner_id" = EXCLUDED."owner_id", "tags" = EXCLUDED."tags" RETURNING *`,
		query)
	assert.Equal(t, []any{30.0, "log-1", "u1", `["a","b"]`}, args)
}

func TestBuildUpsertIDOnly(t *testing.T) {
	query, args, err := buildUpsert("notes", types.Row{"id": "n1"})
	require.NoError(t, err)
	assert.Contains(t, query, `DO UPDATE SET "id" = EXCLUDED."id" RETURNING *`)
	assert.Equal(t, []any{"n1"}, args)
}

func TestBuildUpsertRejectsMissingID(t *testing.T) {
	for _, row := range []types.Row{{}, {"id": ""}, {"id": 7}} {
		_, _, err := buildUpsert("notes", row)
		assert.ErrorIs(t, err, types.ErrInvalidID)
	}
}

func TestBuildUpsertQuotesIdentifiers(t *testing.T) {
	query, _, err := buildUpsert(`notes"; DROP TABLE users; --`, types.Row{"id": "n1"})
	require.NoError(t, err)
	assert.Contains(t, query, `INSERT INTO "notes""; DROP TABLE users; --"`)
}

func TestMigrationURL(t *testing.T) {
	tests := []struct {
		dsn     string
		want    string
		wantErr bool
	}{
		{dsn: "postgres://u:p@localhost:5432/db?sslmode=disable", want: "pgx5://u:p@localhost:5432/db?sslmode=disable"},
		{dsn: "postgresql://u@db/studysync", want: "pgx5://u@db/studysync"},
		{dsn: "pgx5://u@db/studysync", want: "pgx5://u@db/studysync"},
		{dsn: "host=localhost user=u password=secret", wantErr: true},
	}
	for _, tt := range tests {
		got, err := MigrationURL(tt.dsn)
		if tt.wantErr {
			require.Error(t, err)
			assert.NotContains(t, err.Error(), "secret")
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

// Runs against a real database when STUDYSYNC_TEST_POSTGRES_DSN is set.
func TestDriverAgainstPostgres(t *testing.T) {
	dsn := os.Getenv("STUDYSYNC_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("STUDYSYNC_TEST_POSTGRES_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, Migrate(dsn, nil))
	require.NoError(t, Migrate(dsn, nil), "migrating twice is a no-op")

	d, err := Connect(ctx, dsn, nil)
	require.NoError(t, err)
	defer d.Close()
	require.NoError(t, d.Ping(ctx))

	owner := uuid.NewString()
	id := uuid.NewString()
	created := time.Now().UTC().Truncate(time.Millisecond)

	stored, err := d.Upsert(ctx, "notes", types.Row{
		"id":         id,
		"owner_id":   owner,
		"created_at": created,
		"title":      "Thermodynamics",
		"tags":       []any{"physics"},
	})
	require.NoError(t, err)
	assert.Equal(t, id, stored["id"])

	_, err = d.Upsert(ctx, "notes", types.Row{"id": id, "title": "Thermodynamics II"})
	require.NoError(t, err)

	rows, err := d.FetchOwned(ctx, "notes", owner)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Thermodynamics II", rows[0]["title"])
	assert.Equal(t, []any{"physics"}, rows[0]["tags"])

	got, err := d.FetchByID(ctx, "notes", id)
	require.NoError(t, err)
	assert.Equal(t, owner, got["owner_id"])

	removed, err := d.Delete(ctx, "notes", id)
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = d.FetchByID(ctx, "notes", id)
	assert.ErrorIs(t, err, types.ErrNotFound)
}
