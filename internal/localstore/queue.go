package localstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/monalisamaguruwada102-web/studysync/pkg/types"
)

// errNoChange tells mutate that fn left the state unchanged; nothing is
// written and the caller sees success.
var errNoChange = errors.New("no change")

type job struct {
	ctx   context.Context
	run   func() error
	reply chan error
}

// writer owns the canonical file. It runs jobs strictly in submission order
// and keeps going after a failed job.
func (s *Store) writer(jobs <-chan job, done chan<- struct{}) {
	defer close(done)
	for j := range jobs {
		if err := j.ctx.Err(); err != nil {
			j.reply <- err
			continue
		}
		start := time.Now()
		err := j.run()
		writeDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			writesTotal.WithLabelValues("error").Inc()
		} else {
			writesTotal.WithLabelValues("ok").Inc()
		}
		j.reply <- err
	}
}

// exec queues fn for the writer and waits for it to finish. It returns
// ErrStoreDetached when the store is not attached.
func (s *Store) exec(ctx context.Context, fn func() error) error {
	j := job{ctx: ctx, run: fn, reply: make(chan error, 1)}

	s.mu.RLock()
	if !s.attached {
		s.mu.RUnlock()
		return types.ErrStoreDetached
	}
	queueDepth.Inc()
	s.jobs <- j
	s.mu.RUnlock()

	err := <-j.reply
	queueDepth.Dec()
	return err
}

// mutate runs fn against a copy of the committed state on the writer, then
// persists and commits the copy. If fn fails the committed state is
// untouched.
func (s *Store) mutate(ctx context.Context, fn func(st *types.State) error) error {
	return s.exec(ctx, func() error {
		next := s.snap.Clone()
		if err := fn(next); err != nil {
			if errors.Is(err, errNoChange) {
				return nil
			}
			return err
		}
		return s.persistAndCommit(next)
	})
}

// persistAndCommit writes st to the canonical file, publishes it, and takes
// a backup when the backup interval has elapsed. Writer goroutine only.
func (s *Store) persistAndCommit(st *types.State) error {
	if err := s.persist(st); err != nil {
		return err
	}
	s.commit(st)
	s.maybeBackup()
	return nil
}

func (s *Store) persist(st *types.State) error {
	data, err := types.EncodeState(st)
	if err != nil {
		return fmt.Errorf("encoding store: %w", err)
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("writing %s: %w", s.path, err)
	}
	if s.afterPersist != nil {
		s.afterPersist(s.path)
	}
	return nil
}

func (s *Store) maybeBackup() {
	if s.now().Sub(s.lastBackup) < s.cfg.BackupInterval {
		return
	}
	if _, err := s.createBackup(); err != nil {
		s.logger.Warn("periodic backup failed", slog.String("error", err.Error()))
	}
}

type loadAction int

const (
	loadOK loadAction = iota
	loadInitialize
	loadRecovered
	loadReset
	loadInjectSchema
)

func (a loadAction) String() string {
	switch a {
	case loadOK:
		return "ok"
	case loadInitialize:
		return "initialize"
	case loadRecovered:
		return "recovered-from-backup"
	case loadReset:
		return "reset-to-empty"
	case loadInjectSchema:
		return "inject-schema"
	default:
		return "unknown"
	}
}

// load reads the canonical file and reports what has to be written back to
// make it canonical again. It never fails; the returned state is always
// complete.
func (s *Store) load() (*types.State, loadAction) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return types.EmptyState(), loadInitialize
	}
	if err == nil {
		var st *types.State
		var issues map[string][]types.FieldIssue
		st, issues, err = types.ParseStateReport(data)
		if err == nil {
			for collection, list := range issues {
				for _, issue := range list {
					s.logger.Warn("keeping record with unreadable field",
						slog.String("collection", collection),
						slog.Int("index", issue.Index),
						slog.String("field", issue.Key),
						slog.String("error", issue.Err.Error()),
					)
				}
			}
			if added := st.EnsureSchema(); len(added) > 0 {
				s.logger.Info("injecting missing collections", slog.Any("collections", added))
				return st, loadInjectSchema
			}
			return st, loadOK
		}
	}

	s.logger.Warn("store file unreadable, falling back to backups",
		slog.String("path", s.path),
		slog.String("error", err.Error()),
	)
	if st, name, ok := s.newestValidBackup(); ok {
		s.logger.Info("recovered store from backup", slog.String("backup", name))
		return st, loadRecovered
	}
	s.logger.Warn("no valid backup found, starting from the empty schema")
	return types.EmptyState(), loadReset
}

// repair writes st as the canonical file. A file that is about to be
// replaced because it did not parse is kept beside it first.
func (s *Store) repair(st *types.State, action loadAction) error {
	if action == loadRecovered || action == loadReset {
		corrupt := fmt.Sprintf("%s.corrupt-%s.json", s.path[:len(s.path)-len(".json")], stamp(s.now()))
		if err := os.Rename(s.path, corrupt); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("could not set aside corrupt store file", slog.String("error", err.Error()))
		}
	}
	repairsTotal.WithLabelValues(action.String()).Inc()
	return s.persist(st)
}
