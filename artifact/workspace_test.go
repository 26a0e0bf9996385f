package artifact

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinex/svgpainter/tools"
)

func TestResetDirClearsContents(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "image")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "image-00001.svg"), []byte("x"), 0644))

	require.NoError(t, ResetDir(dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestResetDirCreatesMissing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "work")
	require.NoError(t, ResetDir(dir))
	assert.DirExists(t, dir)
}

func TestResetDirRefusesSystemDirs(t *testing.T) {
	for _, dir := range []string{"/", "/etc", "/usr/", "/home/../var"} {
		err := ResetDir(dir)
		var ioErr *tools.IOError
		require.True(t, errors.As(err, &ioErr), "%s: got %T", dir, err)
		assert.Contains(t, err.Error(), "system directory")
	}
}

func TestResetDirRefusesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	err := ResetDir(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
	assert.FileExists(t, path)
}

func TestPrepareWorkspace(t *testing.T) {
	root := t.TempDir()
	work := filepath.Join(root, "work")
	image := filepath.Join(root, "image")

	require.NoError(t, PrepareWorkspace(work, image))
	assert.DirExists(t, work)
	assert.DirExists(t, image)
}
