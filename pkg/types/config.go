package types

import (
	"errors"
	"time"
)

// Config holds the settings the engine is assembled from. It is filled by
// the config loader (viper) and validated before anything is opened.
type Config struct {
	DataDir           string        `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
	StoreName         string        `json:"store_name" yaml:"store_name" mapstructure:"store_name"`
	BackupDir         string        `json:"backup_dir" yaml:"backup_dir" mapstructure:"backup_dir"`
	BackupInterval    time.Duration `json:"backup_interval" yaml:"backup_interval" mapstructure:"backup_interval"`
	MaxBackups        int           `json:"max_backups" yaml:"max_backups" mapstructure:"max_backups"`
	ReconcileInterval time.Duration `json:"reconcile_interval" yaml:"reconcile_interval" mapstructure:"reconcile_interval"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	MergeStrategy     string        `json:"merge_strategy" yaml:"merge_strategy" mapstructure:"merge_strategy"`
	HTTPAddr          string        `json:"http_addr" yaml:"http_addr" mapstructure:"http_addr"`
	Remote            RemoteConfig  `json:"remote" yaml:"remote" mapstructure:"remote"`
	Log               LogConfig     `json:"log" yaml:"log" mapstructure:"log"`
}

// RemoteConfig selects and parameterizes the remote store driver. An empty
// Backend or DSN means the remote store is not configured and the engine
// runs local-only.
type RemoteConfig struct {
	Backend    string        `json:"backend" yaml:"backend" mapstructure:"backend"`
	DSN        string        `json:"dsn" yaml:"dsn" mapstructure:"dsn"`
	SchemaFile string        `json:"schema_file" yaml:"schema_file" mapstructure:"schema_file"`
	Timeout    time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// Configured reports whether remote credentials are present.
func (r RemoteConfig) Configured() bool {
	return r.Backend != "" && r.DSN != ""
}

// LogConfig controls the slog handler and optional file rotation.
type LogConfig struct {
	Level      string `json:"level" yaml:"level" mapstructure:"level"`
	Format     string `json:"format" yaml:"format" mapstructure:"format"`
	File       string `json:"file" yaml:"file" mapstructure:"file"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups" mapstructure:"max_backups"`
}

// Supported remote backends.
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Merge strategy names.
const (
	StrategyRemoteWins    = "remote-wins"
	StrategyLastWriteWins = "last-write-wins"
)

// Defaults applied by the config loader.
const (
	DefaultStoreName         = "studysync"
	DefaultBackupInterval    = 5 * time.Minute
	DefaultMaxBackups        = 10
	DefaultReconcileInterval = 5 * time.Minute
	DefaultShutdownTimeout   = 10 * time.Second
	DefaultRemoteTimeout     = 10 * time.Second
	DefaultHTTPAddr          = "127.0.0.1:8080"
)

// Config validation errors.
var (
	ErrBackendUnknown           = errors.New("unknown remote backend")
	ErrStoreNameEmpty           = errors.New("store name must not be empty")
	ErrBackupIntervalInvalid    = errors.New("backup interval must be positive")
	ErrMaxBackupsInvalid        = errors.New("max backups must be at least 1")
	ErrReconcileIntervalInvalid = errors.New("reconcile interval must be positive")
	ErrShutdownTimeoutInvalid   = errors.New("shutdown timeout must be positive")
	ErrUnknownStrategy          = errors.New("unknown merge strategy")
)

var knownBackends = map[string]bool{
	BackendPostgres: true,
	BackendSQLite:   true,
}

var knownStrategies = map[string]bool{
	"":                    true,
	StrategyRemoteWins:    true,
	StrategyLastWriteWins: true,
}

// DefaultConfig returns a Config with every default filled in and no remote.
func DefaultConfig() Config {
	return Config{
		StoreName:         DefaultStoreName,
		BackupInterval:    DefaultBackupInterval,
		MaxBackups:        DefaultMaxBackups,
		ReconcileInterval: DefaultReconcileInterval,
		ShutdownTimeout:   DefaultShutdownTimeout,
		MergeStrategy:     StrategyRemoteWins,
		HTTPAddr:          DefaultHTTPAddr,
		Remote:            RemoteConfig{Timeout: DefaultRemoteTimeout},
		Log:               LogConfig{Level: "info", Format: "text"},
	}
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.StoreName == "" {
		return ErrStoreNameEmpty
	}
	if c.BackupInterval <= 0 {
		return ErrBackupIntervalInvalid
	}
	if c.MaxBackups < 1 {
		return ErrMaxBackupsInvalid
	}
	if c.ReconcileInterval <= 0 {
		return ErrReconcileIntervalInvalid
	}
	if c.ShutdownTimeout <= 0 {
		return ErrShutdownTimeoutInvalid
	}
	if c.Remote.Backend != "" && !knownBackends[c.Remote.Backend] {
		return ErrBackendUnknown
	}
	if !knownStrategies[c.MergeStrategy] {
		return ErrUnknownStrategy
	}
	return nil
}
