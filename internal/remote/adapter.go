// Package remote is the remote store adapter: typed record access to the
// remote tabular store over a types.RemoteDriver, with field-name
// translation between record fields and table columns.
//
// The remote is optional. Every adapter call degrades to a nil or false
// result when no driver is configured or the call fails; failures are
// logged, never returned.
package remote

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/monalisamaguruwada102-web/studysync/pkg/types"
)

// Adapter implements types.RemoteStore.
type Adapter struct {
	driver  types.RemoteDriver
	schema  *Schema
	timeout time.Duration
	logger  *slog.Logger
}

var _ types.RemoteStore = (*Adapter)(nil)

// NewAdapter creates an adapter over driver. A nil driver gives an adapter
// that is not configured. A nil schema uses DefaultSchema.
func NewAdapter(driver types.RemoteDriver, schema *Schema, timeout time.Duration, logger *slog.Logger) *Adapter {
	if schema == nil {
		schema = DefaultSchema()
	}
	if timeout <= 0 {
		timeout = types.DefaultRemoteTimeout
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Adapter{
		driver:  driver,
		schema:  schema,
		timeout: timeout,
		logger:  logger.With(slog.String("component", "remote")),
	}
}

// Schema returns the naming schema in use.
func (a *Adapter) Schema() *Schema { return a.schema }

// Configured reports whether a driver is present.
func (a *Adapter) Configured() bool { return a.driver != nil }

// Ping checks that the remote is reachable.
func (a *Adapter) Ping(ctx context.Context) error {
	if a.driver == nil {
		return types.ErrRemoteNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return a.driver.Ping(ctx)
}

// Close releases the driver.
func (a *Adapter) Close() error {
	if a.driver == nil {
		return nil
	}
	return a.driver.Close()
}

// ToRemote converts a record to a row of the collection's table.
func (a *Adapter) ToRemote(collection string, rec types.Record) types.Row {
	return a.schema.ToRemote(collection, rec)
}

// FromRemote converts a row of the collection's table to a record.
func (a *Adapter) FromRemote(collection string, row types.Row) (types.Record, error) {
	return a.schema.FromRemote(collection, row)
}

// FetchOwned returns the owner's remote records, newest first. It returns
// nil when the remote is not configured or the call failed, and a non-nil
// slice otherwise. Rows that cannot be converted are skipped.
func (a *Adapter) FetchOwned(ctx context.Context, collection, ownerID string) []types.Record {
	if a.driver == nil {
		return nil
	}
	table := a.schema.Table(collection)
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	rows, err := a.driver.FetchOwned(ctx, table, ownerID)
	if err != nil {
		a.fail("fetch_owned", collection, table, err)
		return nil
	}
	callsTotal.WithLabelValues("fetch_owned", "ok").Inc()

	recs := make([]types.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := a.schema.FromRemote(collection, row)
		if err != nil {
			a.logger.Warn("skipping remote row",
				slog.String("collection", collection),
				slog.String("table", table),
				slog.String("error", err.Error()),
			)
			continue
		}
		recs = append(recs, rec)
	}
	return recs
}

// FetchByID returns the remote record with the given id, or nil.
func (a *Adapter) FetchByID(ctx context.Context, collection, id string) *types.Record {
	if a.driver == nil || id == "" {
		return nil
	}
	table := a.schema.Table(collection)
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	row, err := a.driver.FetchByID(ctx, table, id)
	if errors.Is(err, types.ErrNotFound) {
		callsTotal.WithLabelValues("fetch_by_id", "not_found").Inc()
		return nil
	}
	if err != nil {
		a.fail("fetch_by_id", collection, table, err)
		return nil
	}
	callsTotal.WithLabelValues("fetch_by_id", "ok").Inc()
	return a.toRecord(collection, table, row)
}

// Upsert writes rec keyed by its remote id (or local id when it has none)
// and returns the stored record, whose ID is the remote id. It returns nil
// on failure.
func (a *Adapter) Upsert(ctx context.Context, collection string, rec types.Record) *types.Record {
	if a.driver == nil {
		return nil
	}
	table := a.schema.Table(collection)
	row := a.schema.ToRemote(collection, rec)
	if row[types.ColumnID] == "" {
		a.fail("upsert", collection, table, types.ErrInvalidID)
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	stored, err := a.driver.Upsert(ctx, table, row)
	if err != nil {
		a.fail("upsert", collection, table, err)
		return nil
	}
	callsTotal.WithLabelValues("upsert", "ok").Inc()
	return a.toRecord(collection, table, stored)
}

// Delete removes the remote row and reports whether the call succeeded.
// Deleting a row that does not exist counts as success.
func (a *Adapter) Delete(ctx context.Context, collection, id string) bool {
	if a.driver == nil || id == "" {
		return false
	}
	table := a.schema.Table(collection)
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	if _, err := a.driver.Delete(ctx, table, id); err != nil {
		a.fail("delete", collection, table, err)
		return false
	}
	callsTotal.WithLabelValues("delete", "ok").Inc()
	return true
}

func (a *Adapter) toRecord(collection, table string, row types.Row) *types.Record {
	rec, err := a.schema.FromRemote(collection, row)
	if err != nil {
		a.logger.Warn("converting remote row failed",
			slog.String("collection", collection),
			slog.String("table", table),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return &rec
}

func (a *Adapter) fail(op, collection, table string, err error) {
	callsTotal.WithLabelValues(op, "error").Inc()
	a.logger.Warn("remote call failed",
		slog.String("op", op),
		slog.String("collection", collection),
		slog.String("table", table),
		slog.String("error", err.Error()),
	)
}
