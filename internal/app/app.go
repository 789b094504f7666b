// Package app assembles the engine from a validated configuration: the local
// store, the remote adapter over the configured driver, the merge engine,
// the reconciliation service, and the lifecycle controller.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/monalisamaguruwada102-web/studysync/internal/lifecycle"
	"github.com/monalisamaguruwada102-web/studysync/internal/localstore"
	"github.com/monalisamaguruwada102-web/studysync/internal/merge"
	"github.com/monalisamaguruwada102-web/studysync/internal/postgres"
	"github.com/monalisamaguruwada102-web/studysync/internal/reconcile"
	"github.com/monalisamaguruwada102-web/studysync/internal/remote"
	"github.com/monalisamaguruwada102-web/studysync/internal/sqlite"
	"github.com/monalisamaguruwada102-web/studysync/pkg/types"
)

// App is the assembled engine.
type App struct {
	Config     types.Config
	Store      *localstore.Store
	Remote     *remote.Adapter
	Engine     *merge.Engine
	Reconciler *reconcile.Service
	Lifecycle  *lifecycle.Controller

	logger *slog.Logger
}

// Options holds the pieces tests replace.
type Options struct {
	// Driver, when set, is used instead of opening cfg.Remote.
	Driver types.RemoteDriver
	// Exit is passed to the lifecycle watchdog.
	Exit func(int)
}

// New builds the engine. cfg.DataDir must already be resolved. The local
// store is not attached yet; call Open.
func New(ctx context.Context, cfg types.Config, logger *slog.Logger, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.DataDir == "" {
		return nil, errors.New("data directory is not set")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	schema := remote.DefaultSchema()
	if cfg.Remote.SchemaFile != "" {
		var err error
		if schema, err = remote.LoadSchema(cfg.Remote.SchemaFile); err != nil {
			return nil, err
		}
	}

	strategy, err := merge.ByName(cfg.MergeStrategy)
	if err != nil {
		return nil, err
	}

	driver := opts.Driver
	if driver == nil {
		if driver, err = OpenDriver(ctx, cfg.Remote, logger); err != nil {
			return nil, err
		}
	}

	store := localstore.New(localstore.Config{
		Dir:            cfg.DataDir,
		Name:           cfg.StoreName,
		BackupDir:      cfg.BackupDir,
		BackupInterval: cfg.BackupInterval,
		MaxBackups:     cfg.MaxBackups,
	}, logger)
	adapter := remote.NewAdapter(driver, schema, cfg.Remote.Timeout, logger)
	reconciler := reconcile.NewService(store, adapter, cfg.ReconcileInterval, logger)

	a := &App{
		Config:     cfg,
		Store:      store,
		Remote:     adapter,
		Engine:     merge.NewEngine(adapter, store, strategy),
		Reconciler: reconciler,
		Lifecycle: lifecycle.New(store, reconciler, lifecycle.Options{
			ShutdownTimeout: cfg.ShutdownTimeout,
			Exit:            opts.Exit,
			Logger:          logger,
		}),
		logger: logger,
	}
	logger.Info("engine assembled",
		slog.String("data_dir", cfg.DataDir),
		slog.String("store", store.Path()),
		slog.String("remote_backend", cfg.Remote.Backend),
		slog.Bool("remote_configured", adapter.Configured()),
		slog.String("merge_strategy", strategy.Name()),
	)
	return a, nil
}

// OpenDriver opens the driver rc selects. It returns nil, and no error, when
// no remote is configured.
func OpenDriver(ctx context.Context, rc types.RemoteConfig, logger *slog.Logger) (types.RemoteDriver, error) {
	if !rc.Configured() {
		return nil, nil
	}
	switch rc.Backend {
	case types.BackendPostgres:
		d, err := postgres.Connect(ctx, rc.DSN, logger)
		if err != nil {
			return nil, fmt.Errorf("open postgres remote: %w", err)
		}
		return d, nil
	case types.BackendSQLite:
		d, err := sqlite.Open(rc.DSN, logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite remote: %w", err)
		}
		return d, nil
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrBackendUnknown, rc.Backend)
	}
}

// Migrate applies the remote schema. Only the postgres backend has
// migrations; the sqlite driver creates its table on open.
func Migrate(rc types.RemoteConfig, logger *slog.Logger) error {
	switch {
	case !rc.Configured():
		return types.ErrRemoteNotConfigured
	case rc.Backend == types.BackendPostgres:
		return postgres.Migrate(rc.DSN, logger)
	default:
		return nil
	}
}

// Open attaches the local store.
func (a *App) Open() error {
	if err := a.Store.Attach(); err != nil {
		return fmt.Errorf("attach local store: %w", err)
	}
	return nil
}

// Close detaches the local store and closes the remote driver.
func (a *App) Close() error {
	return errors.Join(a.Store.Detach(), a.Remote.Close())
}

// Run opens the engine, runs it under the lifecycle controller with serve
// as the foreground work, and closes it.
func (a *App) Run(ctx context.Context, serve func(ctx context.Context) error) (err error) {
	if err := a.Open(); err != nil {
		return err
	}
	defer func() { err = errors.Join(err, a.Close()) }()
	return a.Lifecycle.Run(ctx, serve)
}

// Logger returns the engine logger.
func (a *App) Logger() *slog.Logger { return a.logger }
