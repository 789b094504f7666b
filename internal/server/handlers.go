package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/monalisamaguruwada102-web/studysync/internal/lifecycle"
	"github.com/monalisamaguruwada102-web/studysync/internal/localstore"
	"github.com/monalisamaguruwada102-web/studysync/internal/reconcile"
	"github.com/monalisamaguruwada102-web/studysync/pkg/types"
)

// maxRestoreBytes caps the body of POST /admin/restore.
const maxRestoreBytes = 64 << 20

// Backups is the backup surface of the local store.
type Backups interface {
	CreateBackup(ctx context.Context) (string, error)
	ListBackups() ([]localstore.BackupInfo, error)
	RestoreJSON(ctx context.Context, data []byte) error
	RestoreBackup(ctx context.Context, name string) error
}

// Reconciler runs passes on demand.
type Reconciler interface {
	RunOnce(ctx context.Context) (reconcile.Result, bool)
	LastResult() (reconcile.Result, bool)
}

// StateProvider reports the lifecycle state.
type StateProvider interface {
	State() lifecycle.State
}

// RemotePinger checks the remote store.
type RemotePinger interface {
	Configured() bool
	Ping(ctx context.Context) error
}

// Deps are the components the handlers call.
type Deps struct {
	Backups    Backups
	Reconciler Reconciler
	Lifecycle  StateProvider
	Remote     RemotePinger
	Version    string
}

type handlers struct {
	deps Deps
}

func (h *handlers) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.deps.Version,
	})
}

// readyz is 200 while running. An unreachable remote only degrades the
// status, since the engine keeps working locally.
func (h *handlers) readyz(w http.ResponseWriter, r *http.Request) {
	state := h.deps.Lifecycle.State()
	status, code := "ok", http.StatusOK
	if state != lifecycle.StateRunning {
		status, code = "fail", http.StatusServiceUnavailable
	}

	remoteCheck := map[string]any{"status": "not_configured"}
	if h.deps.Remote.Configured() {
		if err := h.deps.Remote.Ping(r.Context()); err != nil {
			remoteCheck = map[string]any{"status": "fail", "message": err.Error()}
			if status == "ok" {
				status = "degraded"
			}
		} else {
			remoteCheck = map[string]any{"status": "ok"}
		}
	}

	body := map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.deps.Version,
		"checks": map[string]any{
			"lifecycle": map[string]any{"state": string(state)},
			"remote":    remoteCheck,
		},
	}
	if last, ok := h.deps.Reconciler.LastResult(); ok {
		body["lastReconcile"] = last
	}
	writeJSON(w, code, body)
}

func (h *handlers) reconcile(w http.ResponseWriter, r *http.Request) {
	res, inProgress := h.deps.Reconciler.RunOnce(r.Context())
	if inProgress {
		writeError(w, http.StatusConflict, codeReconcileInProgress, "a reconciliation pass is already running")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) listBackups(w http.ResponseWriter, _ *http.Request) {
	infos, err := h.deps.Backups.ListBackups()
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"backups": infos})
}

func (h *handlers) createBackup(w http.ResponseWriter, r *http.Request) {
	path, err := h.deps.Backups.CreateBackup(r.Context())
	if err != nil {
		storeError(w, err)
		return
	}
	if path == "" {
		writeError(w, http.StatusConflict, codeValidation, "nothing to back up yet")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"path": path})
}

func (h *handlers) restore(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRestoreBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, codeValidation, err.Error())
		return
	}
	if err := h.deps.Backups.RestoreJSON(r.Context(), data); err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"restored": true})
}

func (h *handlers) restoreBackup(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.deps.Backups.RestoreBackup(r.Context(), name); err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"restored": name})
}

// storeError maps local store errors to responses.
func storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, types.ErrInvalidState), errors.Is(err, localstore.ErrInvalidBackupName):
		writeError(w, http.StatusBadRequest, codeValidation, err.Error())
	case errors.Is(err, types.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, types.ErrStoreDetached):
		writeError(w, http.StatusServiceUnavailable, codeUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternal, err.Error())
	}
}
