package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monalisamaguruwada102-web/studysync/internal/localstore"
	"github.com/monalisamaguruwada102-web/studysync/pkg/types"
)

type dirs struct {
	config string
	data   string
}

func newDirs(t *testing.T) dirs {
	t.Helper()
	root := t.TempDir()
	t.Setenv("STUDYSYNC_REMOTE_BACKEND", "")
	t.Setenv("STUDYSYNC_REMOTE_DSN", "")
	return dirs{config: filepath.Join(root, "config"), data: filepath.Join(root, "data")}
}

func run(t *testing.T, d dirs, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config-dir", d.config, "--data-dir", d.data, "--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	d := newDirs(t)
	out, err := run(t, d, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "studysync v")
	assert.Contains(t, out, modulePath)

	out, err = run(t, d, "--json", "version")
	require.NoError(t, err)
	var v map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, modulePath, v["module"])
}

func TestInitCreatesConfigAndStore(t *testing.T) {
	d := newDirs(t)
	out, err := run(t, d, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote ")
	assert.Contains(t, out, "local store ready")

	_, err = os.Stat(filepath.Join(d.config, "config.yaml"))
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(d.data, "studysync.json"))
	require.NoError(t, err)
	st, err := types.ParseState(data)
	require.NoError(t, err)
	assert.Empty(t, st.EnsureSchema(), "init writes every collection")

	out, err = run(t, d, "init")
	require.NoError(t, err)
	assert.NotContains(t, out, "wrote ", "init is idempotent")
}

func TestBackupCreateListRestore(t *testing.T) {
	d := newDirs(t)
	_, err := run(t, d, "init")
	require.NoError(t, err)

	out, err := run(t, d, "backup", "create")
	require.NoError(t, err)
	backupPath := strings.TrimSpace(out)
	require.FileExists(t, backupPath)

	out, err = run(t, d, "backup", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, filepath.Base(backupPath))

	out, err = run(t, d, "--json", "backup", "list")
	require.NoError(t, err)
	var infos []localstore.BackupInfo
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	require.NotEmpty(t, infos)

	out, err = run(t, d, "restore", filepath.Base(backupPath))
	require.NoError(t, err)
	assert.Contains(t, out, "restored")

	doc := filepath.Join(t.TempDir(), "import.json")
	require.NoError(t, os.WriteFile(doc, []byte(`{"tasks":[{"id":"t1","ownerId":"u1","title":"Revise"}]}`), 0o644))
	_, err = run(t, d, "restore", doc)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(d.data, "studysync.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"t1"`)

	_, err = run(t, d, "restore", "no-such-backup.json")
	assert.Error(t, err)
}

func TestReconcileWithoutRemote(t *testing.T) {
	d := newDirs(t)
	out, err := run(t, d, "reconcile")
	require.NoError(t, err)
	assert.Contains(t, out, "not configured")
}

func TestReconcileWithSQLiteRemote(t *testing.T) {
	d := newDirs(t)
	t.Setenv("STUDYSYNC_REMOTE_BACKEND", "sqlite")
	t.Setenv("STUDYSYNC_REMOTE_DSN", filepath.Join(t.TempDir(), "remote.db"))

	_, err := run(t, d, "init")
	require.NoError(t, err)
	doc := filepath.Join(t.TempDir(), "import.json")
	require.NoError(t, os.WriteFile(doc, []byte(`{"notes":[{"id":"n1","ownerId":"u1","title":"Entropy"}]}`), 0o644))
	_, err = run(t, d, "restore", doc)
	require.NoError(t, err)

	out, err := run(t, d, "reconcile")
	require.NoError(t, err)
	assert.Contains(t, out, "synced 1")

	out, err = run(t, d, "--json", "reconcile")
	require.NoError(t, err)
	assert.Contains(t, out, `"checked": 0`)
}

func TestMigrateWithoutRemoteFails(t *testing.T) {
	d := newDirs(t)
	_, err := run(t, d, "migrate")
	assert.ErrorIs(t, err, types.ErrRemoteNotConfigured)
}
