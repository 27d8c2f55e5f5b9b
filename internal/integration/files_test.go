package integration

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClearDir_KeepsGitkeepAndSubdirs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, KeepFile, "")
	writeFile(t, dir, "old.csv", "a,b\n")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive"), 0o755))

	require.NoError(t, ClearDir(dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{KeepFile, "archive"}, names)
}

func TestClearDir_CreatesMissing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Latest Report")
	require.NoError(t, ClearDir(dir))
	assert.DirExists(t, dir)
}

func TestCopyFile(t *testing.T) {
	src := writeFile(t, t.TempDir(), "report.xlsx", "content")
	mtime := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, os.Chtimes(src, mtime, mtime))

	dst := filepath.Join(t.TempDir(), "nested", "copy.xlsx")
	require.NoError(t, CopyFile(src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(mtime))
}

func TestCopyFile_MissingSource(t *testing.T) {
	err := CopyFile(filepath.Join(t.TempDir(), "nope.xlsx"), filepath.Join(t.TempDir(), "x.xlsx"))
	assert.Error(t, err)
}
