package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dirsage/internal/cleanup"
	"dirsage/internal/database"
	"dirsage/internal/exitcodes"
	"dirsage/internal/scan"
)

// writeConfig creates a config file whose history database lives in dir.
func writeConfig(t *testing.T, dir string, extra string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	body := "database_path: " + filepath.Join(dir, "history.db") + "\n" + extra
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestScanCommand(t *testing.T) {
	work := t.TempDir()
	cfg := writeConfig(t, work, "")
	dir := filepath.Join(work, "d")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "b"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), make([]byte, 10), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b", "c"), make([]byte, 20), 0o644))

	out, _, err := run(t, "", "--config", cfg, "scan", "--json", dir)
	require.NoError(t, err)

	var entries []scan.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 3)
	assert.Equal(t, "..", entries[0].Name)
	assert.Equal(t, "b", entries[1].Name)
	assert.Equal(t, "a", entries[2].Name)

	out, _, err = run(t, "", "--config", cfg, "scan", dir)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "SIZE")
	assert.Contains(t, lines[2], "20 B")
	assert.Contains(t, lines[2], "dir")
}

func TestScanCommandMissingPath(t *testing.T) {
	work := t.TempDir()
	cfg := writeConfig(t, work, "")
	missing := filepath.Join(work, "nope")

	_, _, err := run(t, "", "--config", cfg, "scan", missing)
	require.Error(t, err)
	assert.Equal(t, "Path does not exist: "+missing, err.Error())
	assert.Equal(t, exitcodes.RuntimeError, ExitCode(err))
}

func TestDeleteCommandRecordsHistory(t *testing.T) {
	work := t.TempDir()
	cfg := writeConfig(t, work, "")
	target := filepath.Join(work, "victim")
	require.NoError(t, os.WriteFile(target, make([]byte, 5), 0o644))

	out, _, err := run(t, "", "--config", cfg, "delete", "--yes", target)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 1 path(s)")
	assert.NoFileExists(t, target)

	out, _, err = run(t, "", "--config", cfg, "history", "--recent", "5", "--json")
	require.NoError(t, err)
	var records []database.DeletionRecord
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 1)
	assert.Equal(t, target, records[0].Path)
	assert.Equal(t, database.ActionDelete, records[0].Action)

	out, _, err = run(t, "", "--config", cfg, "history", "--stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Total Deletions:  1")
}

func TestDeleteCommandConfirmation(t *testing.T) {
	work := t.TempDir()
	cfg := writeConfig(t, work, "")
	target := filepath.Join(work, "keep")
	require.NoError(t, os.WriteFile(target, nil, 0o644))

	out, _, err := run(t, "n\n", "--config", cfg, "delete", target)
	require.NoError(t, err)
	assert.Contains(t, out, "Aborted")
	assert.FileExists(t, target)

	_, _, err = run(t, "y\n", "--config", cfg, "delete", target)
	require.NoError(t, err)
	assert.NoFileExists(t, target)
}

func TestDeleteCommandStopsAtMissingPath(t *testing.T) {
	work := t.TempDir()
	cfg := writeConfig(t, work, "")
	first := filepath.Join(work, "first")
	missing := filepath.Join(work, "missing")
	last := filepath.Join(work, "last")
	require.NoError(t, os.WriteFile(first, nil, 0o644))
	require.NoError(t, os.WriteFile(last, nil, 0o644))

	_, _, err := run(t, "", "--config", cfg, "delete", "-y", first, missing, last)
	require.Error(t, err)
	assert.Equal(t, "Path does not exist: "+missing, err.Error())
	assert.NoFileExists(t, first)
	assert.FileExists(t, last)
}

func TestDeleteCommandBlockedBySafety(t *testing.T) {
	work := t.TempDir()
	allowed := filepath.Join(work, "allowed")
	require.NoError(t, os.MkdirAll(allowed, 0o755))
	outside := filepath.Join(work, "outside")
	require.NoError(t, os.WriteFile(outside, nil, 0o644))

	cfg := writeConfig(t, work, "safety:\n  enabled: true\n  allowed_roots: ["+allowed+"]\n")

	_, _, err := run(t, "", "--config", cfg, "delete", "--yes", outside)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cleanup.ErrBlocked))
	assert.Equal(t, exitcodes.SafetyViolation, ExitCode(err))
	assert.FileExists(t, outside)
}

func TestHistoryCommandRequiresMode(t *testing.T) {
	work := t.TempDir()
	cfg := writeConfig(t, work, "")

	_, _, err := run(t, "", "--config", cfg, "history")
	require.Error(t, err)
	assert.Equal(t, exitcodes.InvalidConfig, ExitCode(err))
}

func TestHistoryCommandDisabled(t *testing.T) {
	work := t.TempDir()
	path := filepath.Join(work, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database_path: \"-\"\n"), 0o644))

	_, _, err := run(t, "", "--config", path, "history", "--recent", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deletion history is disabled")
}

func TestInvalidConfig(t *testing.T) {
	work := t.TempDir()
	path := filepath.Join(work, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scan:\n  max_depth: -1\n"), 0o644))

	_, _, err := run(t, "", "--config", path, "scan", work)
	require.Error(t, err)
	assert.Equal(t, exitcodes.InvalidConfig, ExitCode(err))
}

func TestExedirCommand(t *testing.T) {
	out, _, err := run(t, "", "exedir")
	require.NoError(t, err)
	dir := strings.TrimSpace(out)
	assert.True(t, filepath.IsAbs(dir))
	assert.DirExists(t, dir)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitcodes.Success, ExitCode(nil))
	assert.Equal(t, exitcodes.RuntimeError, ExitCode(errors.New("boom")))
}
