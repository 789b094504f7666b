// Package cli implements the studysync command-line interface.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/monalisamaguruwada102-web/studysync/internal/app"
	"github.com/monalisamaguruwada102-web/studysync/internal/config"
	"github.com/monalisamaguruwada102-web/studysync/internal/paths"
	"github.com/monalisamaguruwada102-web/studysync/pkg/types"
)

// Exit codes.
const (
	exitSuccess = 0
	exitFailure = 1
)

// rootOptions holds the global flag values.
type rootOptions struct {
	configDir string
	dataDir   string
	logLevel  string
	jsonMode  bool
}

// NewRootCmd creates the top-level "studysync" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "studysync",
		Short: "Local-first sync engine for StudySync data",
		Long: "studysync keeps a durable local JSON store, pushes unsynced records to the\n" +
			"remote store, and serves health, metrics and admin endpoints.",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.configDir, "config-dir", "", "configuration directory (env STUDYSYNC_CONFIG_DIR)")
	root.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "data directory (env STUDYSYNC_DATA_DIR)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&opts.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(newVersionCmd(opts))
	root.AddCommand(newInitCmd(opts))
	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newReconcileCmd(opts))
	root.AddCommand(newBackupCmd(opts))
	root.AddCommand(newRestoreCmd(opts))
	root.AddCommand(newMigrateCmd(opts))

	return root
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		return exitFailure
	}
	return exitSuccess
}

// env is what a command needs after flags and configuration are resolved.
type env struct {
	configDir string
	cfg       types.Config
	logger    *slog.Logger
	logCloser io.Closer
}

func (e *env) close() { _ = e.logCloser.Close() }

// loadEnv resolves directories, loads the configuration and sets up logging.
// Logs go to stderr so command output on stdout stays parseable.
func loadEnv(opts *rootOptions) (*env, error) {
	configDir, err := paths.ResolveConfigDir(opts.configDir)
	if err != nil {
		return nil, fmt.Errorf("resolve config dir: %w", err)
	}

	overrides := map[string]any{}
	if opts.logLevel != "" {
		overrides[config.KeyLogLevel] = opts.logLevel
	}
	cfg, err := config.Load(configDir, overrides)
	if err != nil {
		return nil, err
	}

	cfg.DataDir, err = paths.ResolveDataDir(opts.dataDir, cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}

	logger, closer := config.SetupLogger(cfg.Log, os.Stderr)
	return &env{configDir: configDir, cfg: cfg, logger: logger, logCloser: closer}, nil
}

// openApp assembles and opens the engine. The caller must Close it.
func (e *env) openApp(ctx context.Context, appOpts app.Options) (*app.App, error) {
	a, err := app.New(ctx, e.cfg, e.logger, appOpts)
	if err != nil {
		return nil, err
	}
	if err := a.Open(); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
