// Package studysync is the public entry point to the sync engine. It opens
// the local store and the configured remote, and exposes the contracts
// route handlers program against: the local store, the remote store, and
// the merged read view.
//
// Example:
//
//	eng, err := studysync.Open(ctx, cfg, logger)
//	if err != nil {
//	    return err
//	}
//	defer eng.Close()
//	notes := eng.View(ctx, types.CollectionNotes, userID)
package studysync

import (
	"context"
	"log/slog"

	"github.com/monalisamaguruwada102-web/studysync/internal/app"
	"github.com/monalisamaguruwada102-web/studysync/internal/merge"
	"github.com/monalisamaguruwada102-web/studysync/pkg/types"
)

// Version is the release version, overridden at build time with -ldflags.
var Version = "0.1.0"

// Engine is an opened sync engine.
type Engine struct {
	app *app.App
}

// Open assembles the engine for cfg and attaches the local store. The
// reconciliation loop is not started; use Run for a managed lifecycle.
func Open(ctx context.Context, cfg types.Config, logger *slog.Logger) (*Engine, error) {
	a, err := app.New(ctx, cfg, logger, app.Options{})
	if err != nil {
		return nil, err
	}
	if err := a.Open(); err != nil {
		_ = a.Remote.Close()
		return nil, err
	}
	return &Engine{app: a}, nil
}

// Local returns the local store.
func (e *Engine) Local() types.LocalStore { return e.app.Store }

// Remote returns the remote store. It degrades to empty results when no
// remote is configured.
func (e *Engine) Remote() types.RemoteStore { return e.app.Remote }

// View returns the merged records of collection for ownerID.
func (e *Engine) View(ctx context.Context, collection, ownerID string) []types.Record {
	return e.app.Engine.View(ctx, collection, ownerID)
}

// Reconcile runs one reconciliation pass and reports how many records were
// pushed and how many failed.
func (e *Engine) Reconcile(ctx context.Context) (synced, failed int) {
	res, _ := e.app.Reconciler.RunOnce(ctx)
	return res.Synced, len(res.Failures)
}

// Run starts the reconciliation loop, runs serve until SIGINT or SIGTERM,
// then flushes and shuts down. The engine must not be used afterwards
// except to Close it.
func (e *Engine) Run(ctx context.Context, serve func(ctx context.Context) error) error {
	return e.app.Lifecycle.Run(ctx, serve)
}

// Close detaches the local store and closes the remote connection.
func (e *Engine) Close() error { return e.app.Close() }

// Merge combines remote and local records with the default remote-wins
// policy. A nil remote slice means the remote was unavailable.
func Merge(remote, local []types.Record) []types.Record {
	return merge.Merge(remote, local)
}
