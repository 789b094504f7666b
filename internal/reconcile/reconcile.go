// Package reconcile pushes local records that the remote store has not
// confirmed yet. A pass walks every collection, upserts each record without
// a remote id, and writes the returned id back as the record's remote id.
// One record's failure is logged and skipped; it never aborts the pass.
//
// The service runs one pass when started, then one per interval.
package reconcile

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/monalisamaguruwada102-web/studysync/pkg/types"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "studysync",
		Subsystem: "reconcile",
		Name:      "runs_total",
		Help:      "Reconciliation passes, by outcome.",
	}, []string{"outcome"})

	recordsSyncedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "studysync",
		Subsystem: "reconcile",
		Name:      "records_synced_total",
		Help:      "Local records that received a remote id.",
	})

	recordsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "studysync",
		Subsystem: "reconcile",
		Name:      "records_failed_total",
		Help:      "Local records a pass could not push, by collection.",
	}, []string{"collection"})

	durationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "studysync",
		Subsystem: "reconcile",
		Name:      "duration_seconds",
		Help:      "Duration of a reconciliation pass.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
	})

	lastSuccess = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "studysync",
		Subsystem: "reconcile",
		Name:      "last_completed_timestamp_seconds",
		Help:      "Unix time the last pass completed.",
	})
)

// Local is the part of the local store a pass needs.
type Local interface {
	Collections() []string
	Unsynced(collection string) []types.Record
	SetRemoteID(ctx context.Context, collection, id, remoteID string) error
}

// Remote is the part of the remote store a pass needs.
type Remote interface {
	Configured() bool
	Upsert(ctx context.Context, collection string, rec types.Record) *types.Record
	Delete(ctx context.Context, collection, id string) bool
}

// Failure is one record a pass could not push.
type Failure struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
	Reason     string `json:"reason"`
}

// Result summarizes one pass.
type Result struct {
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
	Skipped   bool          `json:"skipped"` // remote not configured
	Checked   int           `json:"checked"`
	Synced    int           `json:"synced"`
	Failures  []Failure     `json:"failures,omitempty"`
}

// Service runs reconciliation passes.
type Service struct {
	local    Local
	remote   Remote
	interval time.Duration
	logger   *slog.Logger

	mu        sync.Mutex // guards inProcess, last, cancel, done
	inProcess bool
	last      *Result
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewService creates a service. A non-positive interval uses the default.
func NewService(local Local, remote Remote, interval time.Duration, logger *slog.Logger) *Service {
	if interval <= 0 {
		interval = types.DefaultReconcileInterval
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		local:    local,
		remote:   remote,
		interval: interval,
		logger:   logger.With(slog.String("component", "reconcile")),
	}
}

// Start runs one pass right away and then one per interval, in a
// background goroutine, until Stop or ctx is cancelled. Calling Start on a
// running service does nothing.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go s.run(loopCtx, done)
	s.logger.Info("reconciliation started", slog.String("interval", s.interval.String()))
}

// Stop ends the interval loop and waits for it to exit. A pass already
// running is allowed to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("reconciliation stopped")
}

// IsInProgress reports whether a pass is running.
func (s *Service) IsInProgress() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inProcess
}

// LastResult returns the result of the last completed pass.
func (s *Service) LastResult() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return Result{}, false
	}
	return *s.last, true
}

func (s *Service) run(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	// Passes are not cancelled midway; Stop waits for the current one.
	passCtx := context.WithoutCancel(ctx)
	s.RunOnce(passCtx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(passCtx)
		}
	}
}

// RunOnce runs one pass. If a pass is already running it returns at once
// with skipped set to true.
func (s *Service) RunOnce(ctx context.Context) (Result, bool) {
	s.mu.Lock()
	if s.inProcess {
		s.mu.Unlock()
		runsTotal.WithLabelValues("overlap").Inc()
		s.logger.Debug("reconciliation already in progress")
		return Result{}, true
	}
	s.inProcess = true
	s.mu.Unlock()

	res := s.pass(ctx)

	s.mu.Lock()
	s.inProcess = false
	s.last = &res
	s.mu.Unlock()
	return res, false
}

func (s *Service) pass(ctx context.Context) Result {
	res := Result{StartedAt: time.Now()}
	if !s.remote.Configured() {
		res.Skipped = true
		runsTotal.WithLabelValues("skipped").Inc()
		s.logger.Debug("remote not configured, reconciliation skipped")
		return res
	}

	for _, collection := range s.local.Collections() {
		for _, rec := range s.local.Unsynced(collection) {
			res.Checked++
			if reason := s.push(ctx, collection, rec); reason != "" {
				res.Failures = append(res.Failures, Failure{Collection: collection, ID: rec.ID, Reason: reason})
				recordsFailedTotal.WithLabelValues(collection).Inc()
				continue
			}
			res.Synced++
			recordsSyncedTotal.Inc()
		}
	}

	res.Duration = time.Since(res.StartedAt)
	durationSeconds.Observe(res.Duration.Seconds())
	runsTotal.WithLabelValues("completed").Inc()
	lastSuccess.SetToCurrentTime()

	level := slog.LevelInfo
	if len(res.Failures) > 0 {
		level = slog.LevelWarn
	}
	s.logger.Log(ctx, level, "reconciliation pass finished",
		slog.Int("checked", res.Checked),
		slog.Int("synced", res.Synced),
		slog.Int("failed", len(res.Failures)),
		slog.String("duration", res.Duration.String()),
	)
	return res
}

// push upserts one record and records its remote id. It returns the
// failure reason, or "" on success.
func (s *Service) push(ctx context.Context, collection string, rec types.Record) string {
	stored := s.remote.Upsert(ctx, collection, rec)
	if stored == nil || stored.ID == "" {
		s.logger.Warn("record not pushed",
			slog.String("collection", collection),
			slog.String("id", rec.ID),
		)
		return "remote upsert failed"
	}
	err := s.local.SetRemoteID(ctx, collection, rec.ID, stored.ID)
	if errors.Is(err, types.ErrNotFound) {
		// Deleted locally while the upsert was in flight.
		removed := s.remote.Delete(ctx, collection, stored.ID)
		s.logger.Warn("record deleted during push, removing remote copy",
			slog.String("collection", collection),
			slog.String("id", rec.ID),
			slog.Bool("removed", removed),
		)
		return err.Error()
	}
	if err != nil {
		s.logger.Warn("recording remote id failed",
			slog.String("collection", collection),
			slog.String("id", rec.ID),
			slog.String("remote_id", stored.ID),
			slog.String("error", err.Error()),
		)
		return err.Error()
	}
	return ""
}
