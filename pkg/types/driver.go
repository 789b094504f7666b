package types

import (
	"context"
	"errors"
)

// Row is one remote table row keyed by column name.
type Row map[string]any

// RemoteDriver is the low-level access to one remote tabular store. Table
// and column names are already in the remote naming convention; the remote
// adapter owns the translation.
type RemoteDriver interface {
	// FetchOwned returns the rows of table whose owner column equals
	// ownerID, newest first.
	FetchOwned(ctx context.Context, table, ownerID string) ([]Row, error)

	// FetchByID returns the row with the given id.
	// Returns ErrNotFound if no row exists.
	FetchByID(ctx context.Context, table, id string) (Row, error)

	// Upsert inserts the row, or updates the existing row with the same id,
	// and returns the stored row.
	Upsert(ctx context.Context, table string, row Row) (Row, error)

	// Delete removes the row with the given id and reports whether a row
	// was removed.
	Delete(ctx context.Context, table, id string) (bool, error)

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error

	// Close releases the connection.
	Close() error
}

// Remote column names every table carries.
const (
	ColumnID        = "id"
	ColumnOwnerID   = "owner_id"
	ColumnCreatedAt = "created_at"
	ColumnUpdatedAt = "updated_at"
)

// Record and row errors.
var (
	ErrNotFound          = errors.New("record not found")
	ErrInvalidID         = errors.New("invalid record ID")
	ErrInvalidData       = errors.New("invalid record data")
	ErrInvalidState      = errors.New("invalid store state")
	ErrUnknownCollection = errors.New("unknown collection")
	ErrRemoteIDAssigned  = errors.New("remote id already assigned")
)
