// Package config loads the engine configuration and builds the process
// logger.
//
// Values come from, highest first: explicit overrides (command-line flags),
// STUDYSYNC_* environment variables, <config-dir>/config.yaml, and the
// defaults in pkg/types. A .env file in the config directory is loaded into
// the environment first, so remote credentials can live there.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"

	"github.com/monalisamaguruwada102-web/studysync/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"

	// FileName is the configuration file inside the config directory.
	FileName = "config.yaml"
	// EnvPrefix prefixes every environment override, e.g. STUDYSYNC_REMOTE_DSN.
	EnvPrefix = "STUDYSYNC"
)

// Config keys.
const (
	KeyDataDir           = "data_dir"
	KeyStoreName         = "store_name"
	KeyBackupDir         = "backup_dir"
	KeyBackupInterval    = "backup_interval"
	KeyMaxBackups        = "max_backups"
	KeyReconcileInterval = "reconcile_interval"
	KeyShutdownTimeout   = "shutdown_timeout"
	KeyMergeStrategy     = "merge_strategy"
	KeyHTTPAddr          = "http_addr"
	KeyRemoteBackend     = "remote.backend"
	KeyRemoteDSN         = "remote.dsn"
	KeyRemoteSchemaFile  = "remote.schema_file"
	KeyRemoteTimeout     = "remote.timeout"
	KeyLogLevel          = "log.level"
	KeyLogFormat         = "log.format"
	KeyLogFile           = "log.file"
	KeyLogMaxSizeMB      = "log.max_size_mb"
	KeyLogMaxBackups     = "log.max_backups"
)

func setDefaults(v *viper.Viper) {
	d := types.DefaultConfig()
	v.SetDefault(KeyDataDir, d.DataDir)
	v.SetDefault(KeyStoreName, d.StoreName)
	v.SetDefault(KeyBackupDir, d.BackupDir)
	v.SetDefault(KeyBackupInterval, d.BackupInterval)
	v.SetDefault(KeyMaxBackups, d.MaxBackups)
	v.SetDefault(KeyReconcileInterval, d.ReconcileInterval)
	v.SetDefault(KeyShutdownTimeout, d.ShutdownTimeout)
	v.SetDefault(KeyMergeStrategy, d.MergeStrategy)
	v.SetDefault(KeyHTTPAddr, d.HTTPAddr)
	v.SetDefault(KeyRemoteBackend, d.Remote.Backend)
	v.SetDefault(KeyRemoteDSN, d.Remote.DSN)
	v.SetDefault(KeyRemoteSchemaFile, d.Remote.SchemaFile)
	v.SetDefault(KeyRemoteTimeout, d.Remote.Timeout)
	v.SetDefault(KeyLogLevel, d.Log.Level)
	v.SetDefault(KeyLogFormat, d.Log.Format)
	v.SetDefault(KeyLogFile, d.Log.File)
	v.SetDefault(KeyLogMaxSizeMB, 100)
	v.SetDefault(KeyLogMaxBackups, 3)
}

// Load reads the configuration for configDir. A missing config.yaml or
// .env file is not an error. Overrides are applied last, keyed by the Key*
// constants. The result is validated.
func Load(configDir string, overrides map[string]any) (types.Config, error) {
	envPath := filepath.Join(configDir, ".env")
	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return types.Config{}, fmt.Errorf("load %s: %w", envPath, err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return types.Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	for k, val := range overrides {
		v.Set(k, val)
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

const defaultFileHeader = `# studysync configuration
#
# Every key can be overridden with a STUDYSYNC_ environment variable, e.g.
# STUDYSYNC_REMOTE_DSN. Keep credentials in the .env file next to this one.
#
# remote.backend: postgres | sqlite | empty for local-only operation
# merge_strategy: remote-wins | last-write-wins

`

// WriteDefault writes cfg to <configDir>/config.yaml unless the file already
// exists. The remote DSN is never written. It reports whether a file was
// created.
func WriteDefault(configDir string, cfg types.Config) (bool, error) {
	path := filepath.Join(configDir, FileName)
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat config file: %w", err)
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return false, fmt.Errorf("create config dir: %w", err)
	}

	cfg.Remote.DSN = ""
	body, err := marshalConfig(cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	data := append([]byte(defaultFileHeader), body...)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("write config: %w", err)
	}
	return true, nil
}

// marshalConfig renders cfg as YAML with durations written as strings such
// as "5m0s" instead of nanosecond integers.
func marshalConfig(cfg types.Config) ([]byte, error) {
	var doc yaml.Node
	if err := doc.Encode(cfg); err != nil {
		return nil, err
	}
	durations := map[string]time.Duration{
		KeyBackupInterval:    cfg.BackupInterval,
		KeyReconcileInterval: cfg.ReconcileInterval,
		KeyShutdownTimeout:   cfg.ShutdownTimeout,
		KeyRemoteTimeout:     cfg.Remote.Timeout,
	}
	for key, d := range durations {
		if n := lookupNode(&doc, strings.Split(key, ".")); n != nil {
			n.Kind, n.Tag, n.Value = yaml.ScalarNode, "!!str", d.String()
		}
	}
	return yaml.Marshal(&doc)
}

// lookupNode walks mapping nodes along path and returns the value node.
func lookupNode(n *yaml.Node, path []string) *yaml.Node {
	if n.Kind == yaml.DocumentNode && len(n.Content) > 0 {
		n = n.Content[0]
	}
	if len(path) == 0 {
		return n
	}
	if n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == path[0] {
			return lookupNode(n.Content[i+1], path[1:])
		}
	}
	return nil
}

// SetupLogger builds the process logger and installs it as the slog default.
// When cfg.File is set, output goes to that file with size-based rotation;
// otherwise it goes to w. The returned closer releases the log file.
func SetupLogger(cfg types.LogConfig, w io.Writer) (*slog.Logger, io.Closer) {
	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			Compress:   true,
		}
		w, closer = lj, lj
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, closer
}

// ParseLevel maps debug, info, warn and error to slog levels. Anything else
// is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
