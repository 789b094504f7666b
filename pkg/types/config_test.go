package types

import (
	"errors"
	"net"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	valid := DefaultConfig()

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{
			name:    "defaults are valid",
			mutate:  func(c *Config) {},
			wantErr: nil,
		},
		{
			name:    "empty store name returns ErrStoreNameEmpty",
			mutate:  func(c *Config) { c.StoreName = "" },
			wantErr: ErrStoreNameEmpty,
		},
		{
			name:    "zero backup interval returns ErrBackupIntervalInvalid",
			mutate:  func(c *Config) { c.BackupInterval = 0 },
			wantErr: ErrBackupIntervalInvalid,
		},
		{
			name:    "zero max backups returns ErrMaxBackupsInvalid",
			mutate:  func(c *Config) { c.MaxBackups = 0 },
			wantErr: ErrMaxBackupsInvalid,
		},
		{
			name:    "negative reconcile interval returns ErrReconcileIntervalInvalid",
			mutate:  func(c *Config) { c.ReconcileInterval = -time.Second },
			wantErr: ErrReconcileIntervalInvalid,
		},
		{
			name:    "zero shutdown timeout returns ErrShutdownTimeoutInvalid",
			mutate:  func(c *Config) { c.ShutdownTimeout = 0 },
			wantErr: ErrShutdownTimeoutInvalid,
		},
		{
			name:    "unknown backend returns ErrBackendUnknown",
			mutate:  func(c *Config) { c.Remote.Backend = "mongodb" },
			wantErr: ErrBackendUnknown,
		},
		{
			name:    "postgres backend is valid",
			mutate:  func(c *Config) { c.Remote.Backend = BackendPostgres },
			wantErr: nil,
		},
		{
			name:    "unknown strategy returns ErrUnknownStrategy",
			mutate:  func(c *Config) { c.MergeStrategy = "local-wins" },
			wantErr: ErrUnknownStrategy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRemoteConfigConfigured(t *testing.T) {
	if (RemoteConfig{}).Configured() {
		t.Error("empty remote config reported as configured")
	}
	if (RemoteConfig{Backend: BackendPostgres}).Configured() {
		t.Error("remote config without DSN reported as configured")
	}
	if !(RemoteConfig{Backend: BackendSQLite, DSN: "file:remote.db"}).Configured() {
		t.Error("complete remote config reported as not configured")
	}
}

func TestDefaultHTTPAddrIsLoopback(t *testing.T) {
	host, _, err := net.SplitHostPort(DefaultConfig().HTTPAddr)
	if err != nil {
		t.Fatalf("SplitHostPort: %v", err)
	}
	if ip := net.ParseIP(host); ip == nil || !ip.IsLoopback() {
		t.Errorf("default http addr host = %q, want a loopback address", host)
	}
}
