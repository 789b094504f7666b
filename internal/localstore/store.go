// Package localstore implements the durable, file-backed local store: one
// JSON document holding every collection, written by a single writer
// goroutine with atomic temp-file + rename commits and rolling backups.
//
// The file is the source of truth. An in-memory snapshot of the last
// committed document serves list and lookup calls; it is replaced only after
// the corresponding file write has completed, so readers never observe an
// intermediate state.
package localstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/monalisamaguruwada102-web/studysync/pkg/types"
)

// Config parameterizes a Store.
type Config struct {
	Dir            string        // Directory holding the canonical file.
	Name           string        // Store name; the file is <Dir>/<Name>.json.
	BackupDir      string        // Defaults to <Dir>/backups.
	BackupInterval time.Duration // Minimum time between write-triggered backups.
	MaxBackups     int           // Backups kept after a rotation.
	QueueSize      int           // Buffered write jobs; 0 uses a default.

	// Now overrides the clock. Nil uses time.Now.
	Now func() time.Time
}

const defaultQueueSize = 64

// Store is the local store. Create it with New, then Attach before use and
// Detach when done.
type Store struct {
	cfg    Config
	path   string
	logger *slog.Logger
	now    func() time.Time

	mu       sync.RWMutex // guards attached and sends on jobs
	attached bool
	jobs     chan job
	done     chan struct{}

	snapMu sync.RWMutex
	snap   *types.State

	// Owned by the writer goroutine (or by Attach before it starts).
	lastBackup time.Time
	lastStamp  time.Time

	// afterPersist, when set, runs on the writer goroutine after every
	// successful file commit.
	afterPersist func(path string)
}

// New creates a Store. The store is not attached; call Attach to load the
// file and start the writer.
func New(cfg Config, logger *slog.Logger) *Store {
	if cfg.Name == "" {
		cfg.Name = types.DefaultStoreName
	}
	if cfg.Dir == "" {
		cfg.Dir = "."
	}
	if cfg.BackupDir == "" {
		cfg.BackupDir = filepath.Join(cfg.Dir, "backups")
	}
	if cfg.BackupInterval <= 0 {
		cfg.BackupInterval = types.DefaultBackupInterval
	}
	if cfg.MaxBackups < 1 {
		cfg.MaxBackups = types.DefaultMaxBackups
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{
		cfg:    cfg,
		path:   filepath.Join(cfg.Dir, cfg.Name+".json"),
		logger: logger.With(slog.String("component", "localstore")),
		now:    now,
	}
}

// Path returns the canonical file path.
func (s *Store) Path() string { return s.path }

// BackupDir returns the directory backups are written to.
func (s *Store) BackupDir() string { return s.cfg.BackupDir }

// Attach creates the data directory if needed, loads (and if necessary
// initializes or repairs) the canonical file, and starts the writer.
// Returns ErrAlreadyAttached if already attached.
func (s *Store) Attach() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attached {
		return types.ErrAlreadyAttached
	}
	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	s.initBackupClock()
	st, action := s.load()
	if action != loadOK {
		if err := s.repair(st, action); err != nil {
			s.logger.Error("repairing store file failed", slog.String("error", err.Error()))
		}
	}
	s.commit(st)

	s.jobs = make(chan job, s.cfg.QueueSize)
	s.done = make(chan struct{})
	go s.writer(s.jobs, s.done)

	s.attached = true
	s.logger.Info("local store attached",
		slog.String("path", s.path),
		slog.Int("records", st.Count()),
	)
	return nil
}

// Detach stops accepting jobs, lets the writer finish every job already
// queued, and waits for it to exit. Detach is idempotent.
func (s *Store) Detach() error {
	s.mu.Lock()
	if !s.attached {
		s.mu.Unlock()
		return nil
	}
	s.attached = false
	close(s.jobs)
	done := s.done
	s.mu.Unlock()

	<-done
	s.logger.Info("local store detached", slog.String("path", s.path))
	return nil
}

// Read loads the canonical file fresh from disk. A missing file is
// initialized with the empty schema; an unparseable file is replaced by the
// newest valid backup, or by the empty schema when there is none; missing
// collections are injected. Read never fails: the store always comes up
// usable.
func (s *Store) Read() *types.State {
	st, action := s.load()
	if action == loadOK {
		return st
	}

	err := s.exec(context.Background(), func() error {
		// Re-check on the writer: a queued write may have fixed the file.
		fresh, again := s.load()
		st = fresh
		if again == loadOK {
			return nil
		}
		if err := s.repair(fresh, again); err != nil {
			return err
		}
		s.commit(fresh)
		return nil
	})
	if errors.Is(err, types.ErrStoreDetached) {
		err = s.repair(st, action)
	}
	if err != nil {
		s.logger.Error("repairing store file failed", slog.String("error", err.Error()))
	}
	return st.Clone()
}

// Write replaces the whole store document.
func (s *Store) Write(ctx context.Context, st *types.State) error {
	if st == nil {
		return fmt.Errorf("%w: state is nil", types.ErrInvalidState)
	}
	next := st.Clone()
	next.EnsureSchema()
	return s.exec(ctx, func() error {
		return s.persistAndCommit(next)
	})
}

// Insert assigns a fresh ID and CreatedAt and appends rec to the collection.
// It returns the stored record.
func (s *Store) Insert(ctx context.Context, collection string, rec types.Record) (types.Record, error) {
	var stored types.Record
	err := s.mutate(ctx, func(st *types.State) error {
		recs, ok := st.Collections[collection]
		if !ok {
			return fmt.Errorf("%w: %s", types.ErrUnknownCollection, collection)
		}
		stored = rec.Clone()
		stored.ID = newID()
		stored.RemoteID = ""
		stored.CreatedAt = s.timestamp()
		stored.UpdatedAt = time.Time{}
		st.Collections[collection] = append(recs, stored)
		return nil
	})
	if err != nil {
		return types.Record{}, err
	}
	return stored.Clone(), nil
}

// Update merges patch onto the record with the given id and stamps
// UpdatedAt. Fixed keys in patch are ignored. It returns nil, nil when no
// record matched.
func (s *Store) Update(ctx context.Context, collection, id string, patch map[string]any) (*types.Record, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	var updated *types.Record
	err := s.mutate(ctx, func(st *types.State) error {
		recs, ok := st.Collections[collection]
		if !ok {
			return fmt.Errorf("%w: %s", types.ErrUnknownCollection, collection)
		}
		i := indexOf(recs, id)
		if i < 0 {
			return errNoChange
		}
		recs[i].Apply(patch)
		recs[i].UpdatedAt = s.timestamp()
		rec := recs[i].Clone()
		updated = &rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes every record with the given id. Deleting an id that does
// not exist is not an error.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	return s.mutate(ctx, func(st *types.State) error {
		recs, ok := st.Collections[collection]
		if !ok {
			return fmt.Errorf("%w: %s", types.ErrUnknownCollection, collection)
		}
		kept := recs[:0]
		for _, r := range recs {
			if r.ID != id {
				kept = append(kept, r)
			}
		}
		if len(kept) == len(recs) {
			return errNoChange
		}
		st.Collections[collection] = kept
		return nil
	})
}

// SetRemoteID records the remote id of a local record. A record's remote id
// is assigned at most once: the same value again is a no-op, a different
// value returns ErrRemoteIDAssigned.
func (s *Store) SetRemoteID(ctx context.Context, collection, id, remoteID string) error {
	if id == "" || remoteID == "" {
		return types.ErrInvalidID
	}
	return s.mutate(ctx, func(st *types.State) error {
		recs, ok := st.Collections[collection]
		if !ok {
			return fmt.Errorf("%w: %s", types.ErrUnknownCollection, collection)
		}
		i := indexOf(recs, id)
		if i < 0 {
			return fmt.Errorf("%w: %s/%s", types.ErrNotFound, collection, id)
		}
		switch recs[i].RemoteID {
		case remoteID:
			return errNoChange
		case "":
			recs[i].RemoteID = remoteID
			return nil
		default:
			return fmt.Errorf("%w: %s/%s has %s", types.ErrRemoteIDAssigned, collection, id, recs[i].RemoteID)
		}
	})
}

// Get returns every record of the collection.
func (s *Store) Get(collection string) []types.Record {
	return s.filter(collection, func(types.Record) bool { return true })
}

// ListOwned returns the collection's records owned by ownerID.
func (s *Store) ListOwned(collection, ownerID string) []types.Record {
	return s.filter(collection, func(r types.Record) bool { return r.OwnerID == ownerID })
}

// Unsynced returns the collection's records that have no remote id yet.
func (s *Store) Unsynced(collection string) []types.Record {
	return s.filter(collection, func(r types.Record) bool { return r.RemoteID == "" })
}

// GetByID returns the record with the given id.
func (s *Store) GetByID(collection, id string) (types.Record, bool) {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	if s.snap == nil {
		return types.Record{}, false
	}
	recs := s.snap.Collections[collection]
	if i := indexOf(recs, id); i >= 0 {
		return recs[i].Clone(), true
	}
	return types.Record{}, false
}

// Collections returns the names of every collection in the store.
func (s *Store) Collections() []string {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	if s.snap == nil {
		return nil
	}
	return s.snap.CollectionNames()
}

// Snapshot returns a copy of the last committed document.
func (s *Store) Snapshot() *types.State {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return s.snap.Clone()
}

func (s *Store) filter(collection string, keep func(types.Record) bool) []types.Record {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	if s.snap == nil {
		return []types.Record{}
	}
	out := []types.Record{}
	for _, r := range s.snap.Collections[collection] {
		if keep(r) {
			out = append(out, r.Clone())
		}
	}
	return out
}

// commit publishes st as the snapshot readers see.
func (s *Store) commit(st *types.State) {
	s.snapMu.Lock()
	s.snap = st
	s.snapMu.Unlock()
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func indexOf(recs []types.Record, id string) int {
	for i, r := range recs {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// newID generates a UUID v7 string.
func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}
