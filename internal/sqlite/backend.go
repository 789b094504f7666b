// Package sqlite implements a remote store driver on SQLite
// (modernc.org/sqlite, no cgo). It stands in for the hosted remote during
// development and in tests: every remote table lives in one remote_rows
// table keyed by (table_name, id), with the row stored as JSON and the owner
// and creation time extracted for filtering and ordering.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/monalisamaguruwada102-web/studysync/pkg/types"
)

//go:embed schema.sql
var schemaSQL string

// Driver implements types.RemoteDriver on SQLite.
type Driver struct {
	mu     sync.RWMutex
	db     *sql.DB
	logger *slog.Logger
}

var _ types.RemoteDriver = (*Driver)(nil)

// Open opens (creating if needed) the database at dsn and applies the
// schema. dsn is a file path or a "file:" URI; ":memory:" gives a private
// in-memory database.
func Open(dsn string, logger *slog.Logger) (*Driver, error) {
	if dsn == "" {
		return nil, errors.New("sqlite: empty dsn")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if path := filePath(dsn); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection: SQLite serializes writers anyway, and an in-memory
	// database exists per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	logger = logger.With(slog.String("component", "sqlite"))
	logger.Info("sqlite remote opened", slog.String("dsn", dsn))
	return &Driver{db: db, logger: logger}, nil
}

// filePath returns the file a dsn refers to, or "" for in-memory databases.
func filePath(dsn string) string {
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		return ""
	}
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return path
}

func (d *Driver) conn() (*sql.DB, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.db == nil {
		return nil, types.ErrStoreDetached
	}
	return d.db, nil
}

// FetchOwned returns the rows of table owned by ownerID, newest first.
func (d *Driver) FetchOwned(ctx context.Context, table, ownerID string) ([]types.Row, error) {
	db, err := d.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx,
		`SELECT data FROM remote_rows
		 WHERE table_name = ? AND owner_id = ?
		 ORDER BY created_at DESC, rowid DESC`,
		table, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	out := []types.Row{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		row, err := decodeRow(data)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", table, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return out, nil
}

// FetchByID returns the row with the given id.
// Returns ErrNotFound if no row exists.
func (d *Driver) FetchByID(ctx context.Context, table, id string) (types.Row, error) {
	db, err := d.conn()
	if err != nil {
		return nil, err
	}
	return fetchByID(ctx, db, table, id)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func fetchByID(ctx context.Context, q queryer, table, id string) (types.Row, error) {
	var data string
	err := q.QueryRowContext(ctx,
		`SELECT data FROM remote_rows WHERE table_name = ? AND id = ?`,
		table, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query %s/%s: %w", table, id, err)
	}
	return decodeRow(data)
}

// Upsert inserts row, or merges its columns onto the existing row with the
// same id, and returns the stored row.
func (d *Driver) Upsert(ctx context.Context, table string, row types.Row) (types.Row, error) {
	id, ok := row[types.ColumnID].(string)
	if !ok || id == "" {
		return nil, types.ErrInvalidID
	}
	db, err := d.conn()
	if err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stored, err := fetchByID(ctx, tx, table, id)
	switch {
	case errors.Is(err, types.ErrNotFound):
		stored = types.Row{}
	case err != nil:
		return nil, err
	}
	for k, v := range normalizeRow(row) {
		stored[k] = v
	}

	data, err := encodeRow(stored)
	if err != nil {
		return nil, fmt.Errorf("encode %s/%s: %w", table, id, err)
	}
	owner, _ := stored[types.ColumnOwnerID].(string)
	created, _ := stored[types.ColumnCreatedAt].(string)

	_, err = tx.ExecContext(ctx,
		`INSERT INTO remote_rows (table_name, id, owner_id, created_at, data)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (table_name, id) DO UPDATE SET
		   owner_id = excluded.owner_id,
		   created_at = excluded.created_at,
		   data = excluded.data`,
		table, id, owner, created, data)
	if err != nil {
		return nil, fmt.Errorf("upsert %s/%s: %w", table, id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	d.logger.Debug("row upserted", slog.String("table", table), slog.String("id", id))
	return decodeRow(data)
}

// Delete removes the row with the given id and reports whether a row was
// removed.
func (d *Driver) Delete(ctx context.Context, table, id string) (bool, error) {
	db, err := d.conn()
	if err != nil {
		return false, err
	}
	res, err := db.ExecContext(ctx,
		`DELETE FROM remote_rows WHERE table_name = ? AND id = ?`, table, id)
	if err != nil {
		return false, fmt.Errorf("delete %s/%s: %w", table, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Ping checks the database connection.
func (d *Driver) Ping(ctx context.Context) error {
	db, err := d.conn()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

// Close closes the database. Close is idempotent.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	return err
}
