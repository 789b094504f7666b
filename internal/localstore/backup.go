package localstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/monalisamaguruwada102-web/studysync/pkg/types"
)

// Backup stamp layout. The ':' and '.' of the formatted time are replaced by
// '-' so the name is portable; every stamp has the same width, so names sort
// lexically in chronological order.
const (
	stampLayout = "2006-01-02T15:04:05.000Z"
	stampLen    = len(stampLayout)
)

// ErrInvalidBackupName is returned for a backup name that is not one of this
// store's backup files.
var ErrInvalidBackupName = errors.New("invalid backup name")

// BackupInfo describes one backup file.
type BackupInfo struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"createdAt"`
	Size      int64     `json:"size"`
}

func stamp(t time.Time) string {
	s := t.UTC().Format(stampLayout)
	return strings.NewReplacer(":", "-", ".", "-").Replace(s)
}

func parseStamp(s string) (time.Time, error) {
	if len(s) != stampLen {
		return time.Time{}, fmt.Errorf("stamp %q has wrong length", s)
	}
	b := []byte(s)
	b[13], b[16], b[19] = ':', ':', '.'
	return time.Parse(stampLayout, string(b))
}

func (s *Store) backupPrefix() string { return s.cfg.Name + "-backup-" }

func (s *Store) backupName(t time.Time) string {
	return s.backupPrefix() + stamp(t) + ".json"
}

// backupTime extracts the creation time from a backup file name.
func (s *Store) backupTime(name string) (time.Time, bool) {
	rest, ok := strings.CutPrefix(name, s.backupPrefix())
	if !ok {
		return time.Time{}, false
	}
	rest, ok = strings.CutSuffix(rest, ".json")
	if !ok {
		return time.Time{}, false
	}
	t, err := parseStamp(rest)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// nextStamp returns a backup time strictly after the previous one, so two
// backups in the same millisecond never share a name. Writer goroutine only.
func (s *Store) nextStamp() time.Time {
	t := s.timestamp()
	if !t.After(s.lastStamp) {
		t = s.lastStamp.Add(time.Millisecond)
	}
	s.lastStamp = t
	return t
}

func (s *Store) initBackupClock() {
	names, err := s.backupNames()
	if err != nil || len(names) == 0 {
		return
	}
	if t, ok := s.backupTime(names[len(names)-1]); ok {
		s.lastBackup = t
		s.lastStamp = t
	}
}

// backupNames lists this store's backup files, oldest first.
func (s *Store) backupNames() ([]string, error) {
	entries, err := os.ReadDir(s.cfg.BackupDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading backup directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := s.backupTime(e.Name()); ok {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

// CreateBackup copies the canonical file to a new timestamp-named backup and
// rotates old backups away. It returns the backup path, or "" when there is
// no canonical file to copy yet.
func (s *Store) CreateBackup(ctx context.Context) (string, error) {
	var path string
	err := s.exec(ctx, func() error {
		var err error
		path, err = s.createBackup()
		return err
	})
	return path, err
}

func (s *Store) createBackup() (string, error) {
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err := os.MkdirAll(s.cfg.BackupDir, 0o755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}

	path := filepath.Join(s.cfg.BackupDir, s.backupName(s.nextStamp()))
	if err := copyFileAtomic(s.path, path); err != nil {
		backupsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("creating backup: %w", err)
	}
	s.lastBackup = s.now()
	backupsTotal.WithLabelValues("ok").Inc()
	s.logger.Info("backup created", slog.String("path", path))

	if err := s.rotate(); err != nil {
		s.logger.Warn("backup rotation failed", slog.String("error", err.Error()))
	}
	return path, nil
}

// rotate deletes every backup except the newest MaxBackups.
func (s *Store) rotate() error {
	names, err := s.backupNames()
	if err != nil {
		return err
	}
	excess := len(names) - s.cfg.MaxBackups
	if excess <= 0 {
		return nil
	}
	var errs []error
	for _, name := range names[:excess] {
		if err := os.Remove(filepath.Join(s.cfg.BackupDir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		s.logger.Debug("backup rotated out", slog.String("name", name))
	}
	return errors.Join(errs...)
}

// ListBackups returns this store's backups, newest first.
func (s *Store) ListBackups() ([]BackupInfo, error) {
	names, err := s.backupNames()
	if err != nil {
		return nil, err
	}
	infos := make([]BackupInfo, 0, len(names))
	for i := len(names) - 1; i >= 0; i-- {
		name := names[i]
		path := filepath.Join(s.cfg.BackupDir, name)
		fi, err := os.Stat(path)
		if err != nil {
			continue
		}
		created, _ := s.backupTime(name)
		infos = append(infos, BackupInfo{Name: name, Path: path, CreatedAt: created, Size: fi.Size()})
	}
	return infos, nil
}

// newestValidBackup returns the newest backup that parses, with its schema
// completed.
func (s *Store) newestValidBackup() (*types.State, string, bool) {
	names, err := s.backupNames()
	if err != nil {
		s.logger.Warn("listing backups failed", slog.String("error", err.Error()))
		return nil, "", false
	}
	for i := len(names) - 1; i >= 0; i-- {
		data, err := os.ReadFile(filepath.Join(s.cfg.BackupDir, names[i]))
		if err != nil {
			continue
		}
		st, err := types.ParseState(data)
		if err != nil {
			s.logger.Warn("skipping invalid backup", slog.String("backup", names[i]), slog.String("error", err.Error()))
			continue
		}
		st.EnsureSchema()
		return st, names[i], true
	}
	return nil, "", false
}

// Restore replaces the store with st. Missing collections are filled in from
// the empty schema, and the current state is backed up before the write.
func (s *Store) Restore(ctx context.Context, st *types.State) error {
	if st == nil || st.Collections == nil {
		return fmt.Errorf("%w: restore payload must be an object", types.ErrInvalidState)
	}
	next := st.Clone()
	next.EnsureSchema()
	return s.exec(ctx, func() error {
		if _, err := s.createBackup(); err != nil {
			return fmt.Errorf("backup before restore: %w", err)
		}
		if err := s.persistAndCommit(next); err != nil {
			return err
		}
		s.logger.Info("store restored", slog.Int("records", next.Count()))
		return nil
	})
}

// RestoreJSON validates data as a store document and restores it. An invalid
// payload is rejected before anything is written.
func (s *Store) RestoreJSON(ctx context.Context, data []byte) error {
	st, err := types.ParseState(data)
	if err != nil {
		return err
	}
	return s.Restore(ctx, st)
}

// RestoreBackup restores the named backup file.
func (s *Store) RestoreBackup(ctx context.Context, name string) error {
	if filepath.Base(name) != name {
		return fmt.Errorf("%w: %q", ErrInvalidBackupName, name)
	}
	if _, ok := s.backupTime(name); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidBackupName, name)
	}
	data, err := os.ReadFile(filepath.Join(s.cfg.BackupDir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: backup %s", types.ErrNotFound, name)
		}
		return fmt.Errorf("reading backup: %w", err)
	}
	return s.RestoreJSON(ctx, data)
}
