// Package lifecycle drives the engine from startup to shutdown.
//
// States move forward only: starting, running, shutting down. Shutdown stops
// the reconciliation loop, takes a final backup, and runs one last pass. A
// watchdog exits the process with status 1 if that takes longer than the
// shutdown timeout.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/monalisamaguruwada102-web/studysync/internal/reconcile"
	"github.com/monalisamaguruwada102-web/studysync/pkg/types"
)

// State is the controller's lifecycle state.
type State string

const (
	StateStarting     State = "starting"
	StateRunning      State = "running"
	StateShuttingDown State = "shutting_down"
)

// ErrInvalidTransition is returned when a state change is out of order.
var ErrInvalidTransition = errors.New("invalid lifecycle transition")

var validTransitions = map[State]map[State]bool{
	StateStarting:     {StateRunning: true},
	StateRunning:      {StateShuttingDown: true},
	StateShuttingDown: {},
}

// Backupper takes a backup of the local store.
type Backupper interface {
	CreateBackup(ctx context.Context) (string, error)
}

// Reconciler runs reconciliation passes.
type Reconciler interface {
	Start(ctx context.Context)
	Stop()
	RunOnce(ctx context.Context) (reconcile.Result, bool)
}

// Options configures a Controller.
type Options struct {
	ShutdownTimeout time.Duration
	// Exit ends the process when the watchdog fires. Defaults to os.Exit.
	Exit   func(code int)
	Logger *slog.Logger
}

// Controller owns the lifecycle state.
type Controller struct {
	store      Backupper
	reconciler Reconciler
	timeout    time.Duration
	exit       func(int)
	logger     *slog.Logger

	mu    sync.RWMutex
	state State
}

// New creates a controller in the starting state.
func New(store Backupper, reconciler Reconciler, opts Options) *Controller {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = types.DefaultShutdownTimeout
	}
	if opts.Exit == nil {
		opts.Exit = os.Exit
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Controller{
		store:      store,
		reconciler: reconciler,
		timeout:    opts.ShutdownTimeout,
		exit:       opts.Exit,
		logger:     opts.Logger.With(slog.String("component", "lifecycle")),
		state:      StateStarting,
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Controller) transition(target State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !validTransitions[c.state][target] {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.state, target)
	}
	c.logger.Info("lifecycle transition",
		slog.String("from", string(c.state)),
		slog.String("to", string(target)),
	)
	c.state = target
	return nil
}

// Start moves to running and starts the reconciliation loop in the
// background.
func (c *Controller) Start(ctx context.Context) error {
	if err := c.transition(StateRunning); err != nil {
		return err
	}
	c.reconciler.Start(ctx)
	return nil
}

// Shutdown moves to shutting down, arms the watchdog, stops the loop, and
// flushes: one backup and one final reconciliation pass. A backup failure is returned after the
// final pass has run.
func (c *Controller) Shutdown(ctx context.Context) error {
	if err := c.transition(StateShuttingDown); err != nil {
		return err
	}
	watchdog := time.AfterFunc(c.timeout, func() {
		c.logger.Error("shutdown timed out, forcing exit",
			slog.String("timeout", c.timeout.String()),
		)
		c.exit(1)
	})
	defer watchdog.Stop()

	// Stop waits for an in-flight pass, so it runs under the watchdog.
	c.reconciler.Stop()

	name, backupErr := c.store.CreateBackup(ctx)
	if backupErr != nil {
		c.logger.Error("final backup failed", slog.String("error", backupErr.Error()))
		backupErr = fmt.Errorf("final backup: %w", backupErr)
	} else {
		c.logger.Info("final backup created", slog.String("name", name))
	}

	if _, skipped := c.reconciler.RunOnce(ctx); skipped {
		c.logger.Warn("final reconciliation skipped, a pass was still running")
	}

	c.logger.Info("shutdown complete")
	return backupErr
}

// Run starts the controller, calls serve with a context that is cancelled
// on SIGINT or SIGTERM, and shuts down once serve returns. A serve error
// other than context cancellation is returned joined with any shutdown
// error.
func (c *Controller) Run(ctx context.Context, serve func(ctx context.Context) error) error {
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := c.Start(ctx); err != nil {
		return err
	}

	serveErr := serve(sigCtx)
	if errors.Is(serveErr, context.Canceled) {
		serveErr = nil
	}
	if serveErr != nil {
		c.logger.Error("serve failed", slog.String("error", serveErr.Error()))
	} else {
		c.logger.Info("shutdown requested")
	}

	return errors.Join(serveErr, c.Shutdown(context.WithoutCancel(ctx)))
}
