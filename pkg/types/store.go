package types

import (
	"context"
	"errors"
)

// LocalStore is the contract route handlers use for the durable local
// store. Mutations are serialized and complete in submission order; reads
// observe the last completed write.
type LocalStore interface {
	// Insert assigns a fresh ID and CreatedAt, appends the record to the
	// collection and persists the store.
	Insert(ctx context.Context, collection string, rec Record) (Record, error)

	// Update merges patch onto the record with the given ID and stamps
	// UpdatedAt. Returns nil and no error when no record matched.
	Update(ctx context.Context, collection, id string, patch map[string]any) (*Record, error)

	// Delete removes every record with the given ID.
	Delete(ctx context.Context, collection, id string) error

	// SetRemoteID records the remote id of a record. It can be set once;
	// setting the same value again is a no-op, a different value returns
	// ErrRemoteIDAssigned.
	SetRemoteID(ctx context.Context, collection, id, remoteID string) error

	// Get returns every record of the collection.
	Get(collection string) []Record

	// ListOwned returns the records of the collection owned by ownerID.
	ListOwned(collection, ownerID string) []Record

	// GetByID returns the record with the given ID.
	GetByID(collection, id string) (Record, bool)
}

// RemoteStore is the contract for the remote tabular store. Every method
// degrades to a nil or false result when the remote is not configured or
// unreachable; none of them fails the caller.
type RemoteStore interface {
	// Configured reports whether remote credentials are present.
	Configured() bool

	// FetchOwned returns the owner's remote records, newest first. A nil
	// result means the remote was unavailable; an empty non-nil slice means
	// the owner has no remote records.
	FetchOwned(ctx context.Context, collection, ownerID string) []Record

	// FetchByID returns the remote record with the given id, or nil.
	FetchByID(ctx context.Context, collection, id string) *Record

	// Upsert writes the record keyed by id and returns the stored remote
	// record, or nil on failure.
	Upsert(ctx context.Context, collection string, rec Record) *Record

	// Delete removes the remote row and reports whether it succeeded.
	Delete(ctx context.Context, collection, id string) bool
}

// Store lifecycle errors.
var (
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
)

// Remote errors.
var (
	ErrRemoteNotConfigured = errors.New("remote store is not configured")
)
