package scan

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0644))
}

// tempDir returns a canonical temp dir so paths compare equal after
// symlink resolution (macOS /var -> /private/var).
func tempDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return dir
}

func TestScanScenario(t *testing.T) {
	d := filepath.Join(tempDir(t), "d")
	writeFile(t, filepath.Join(d, "a"), 10)
	writeFile(t, filepath.Join(d, "b", "c"), 20)

	entries, err := Scan(d)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, Entry{Path: filepath.Dir(d), Name: "..", SizeBytes: 0, IsDir: true, HumanReadableSize: "-"}, entries[0])
	assert.Equal(t, Entry{Path: filepath.Join(d, "b"), Name: "b", SizeBytes: 20, IsDir: true, HumanReadableSize: "20 B"}, entries[1])
	assert.Equal(t, Entry{Path: filepath.Join(d, "a"), Name: "a", SizeBytes: 10, IsDir: false, HumanReadableSize: "10 B"}, entries[2])
}

func TestScanSortsBySizeDescending(t *testing.T) {
	dir := tempDir(t)
	for i, size := range []int{300, 5, 4096, 0, 77, 2048} {
		writeFile(t, filepath.Join(dir, string(rune('a'+i))), size)
	}
	writeFile(t, filepath.Join(dir, "sub", "x"), 1000)
	writeFile(t, filepath.Join(dir, "sub", "y", "z"), 1000)

	entries, err := Scan(dir)
	require.NoError(t, err)
	require.True(t, entries[0].IsParent())

	children := entries[1:]
	require.Len(t, children, 7)
	for i := 1; i < len(children); i++ {
		assert.GreaterOrEqual(t, children[i-1].SizeBytes, children[i].SizeBytes,
			"%s before %s", children[i-1].Name, children[i].Name)
	}
	assert.Equal(t, "c", children[0].Name)
	assert.Equal(t, "f", children[1].Name)
	assert.Equal(t, "sub", children[2].Name)
	assert.Equal(t, uint64(2000), children[2].SizeBytes)
	assert.Equal(t, "1.95 KB", children[2].HumanReadableSize)
}

func TestScanEmptyDirectory(t *testing.T) {
	dir := tempDir(t)

	entries, err := Scan(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, filepath.Dir(dir), entries[0].Path)
}

func TestScanMissingPath(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")

	_, err := Scan(missing)
	require.Error(t, err)
	assert.Equal(t, "Path does not exist: "+missing, err.Error())
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrReadFailure))
	assert.True(t, errors.Is(err, os.ErrNotExist), "underlying cause is kept")

	var se *Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, KindNotFound, se.Kind)
	assert.Equal(t, missing, se.Path)
}

func TestScanFileIsReadFailure(t *testing.T) {
	file := filepath.Join(tempDir(t), "plain")
	writeFile(t, file, 3)

	_, err := Scan(file)
	require.Error(t, err)
	assert.Equal(t, "Failed to read directory", err.Error())
	assert.True(t, errors.Is(err, ErrReadFailure))
}

func TestScanUnreadableDirectory(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for this user")
	}

	dir := tempDir(t)
	require.NoError(t, os.Chmod(dir, 0))
	t.Cleanup(func() { os.Chmod(dir, 0755) })

	_, err := Scan(dir)
	require.Error(t, err)
	assert.Equal(t, "Failed to read directory", err.Error())
}

func TestScanRelativePathIsCanonicalized(t *testing.T) {
	dir := tempDir(t)
	writeFile(t, filepath.Join(dir, "inner", "f"), 1)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })

	entries, err := Scan("./inner/../inner")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, dir, entries[0].Path)
	assert.Equal(t, filepath.Join(dir, "inner", "f"), entries[1].Path)
}

func TestScanSymlinks(t *testing.T) {
	dir := tempDir(t)
	writeFile(t, filepath.Join(dir, "real", "data"), 64)
	require.NoError(t, os.Symlink(filepath.Join(dir, "real"), filepath.Join(dir, "alias")))
	require.NoError(t, os.Symlink(filepath.Join(dir, "nowhere"), filepath.Join(dir, "dangling")))

	entries, err := Scan(dir)
	require.NoError(t, err)

	byName := map[string]Entry{}
	for _, e := range entries[1:] {
		byName[e.Name] = e
	}
	require.Len(t, byName, 3)

	assert.True(t, byName["real"].IsDir)
	assert.False(t, byName["alias"].IsDir, "symlinks are listed by their own metadata")
	assert.Equal(t, uint64(64), byName["alias"].SizeBytes, "size follows the link")
	assert.Equal(t, uint64(0), byName["dangling"].SizeBytes)

	// scanning through the link lists the target
	viaLink, err := Scan(filepath.Join(dir, "alias"))
	require.NoError(t, err)
	assert.Equal(t, dir, viaLink[0].Path)
	assert.Equal(t, filepath.Join(dir, "real", "data"), viaLink[1].Path)
}

func TestScanRootHasNoParentEntry(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("root layout differs on windows")
	}

	entries, err := NewScanner(fixedSizer(1), nil).Scan("/")
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotEqual(t, ParentName, e.Name)
	}
}

type fixedSizer uint64

func (f fixedSizer) SizeOf(string) uint64 { return uint64(f) }

func TestScannerUsesSizerOncePerEntry(t *testing.T) {
	dir := tempDir(t)
	writeFile(t, filepath.Join(dir, "one"), 1)
	writeFile(t, filepath.Join(dir, "two"), 2)

	counter := &countingSizer{}
	entries, err := NewScanner(counter, nil).Scan(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
	assert.Equal(t, 2, counter.calls)
}

type countingSizer struct{ calls int }

func (c *countingSizer) SizeOf(string) uint64 {
	c.calls++
	return 0
}
