package output

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out", "schedule.xml")

	err := WriteFile(path, 0o644, func(w io.Writer) error {
		_, err := io.WriteString(w, "<ObjectSet/>\n")
		return err
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<ObjectSet/>\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestWriteFileKeepsOldContentOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schedule.xml")
	require.NoError(t, WriteBytes(path, 0o600, []byte("old")))

	boom := errors.New("boom")
	err := WriteFile(path, 0o600, func(w io.Writer) error {
		_, _ = io.WriteString(w, "partial")
		return boom
	})
	require.ErrorIs(t, err, boom)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "pending file should be cleaned up")
}

func TestWriteFileReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.ics")
	require.NoError(t, WriteBytes(path, 0o644, []byte("first")))
	require.NoError(t, WriteBytes(path, 0o644, []byte("second")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestWriteFileRejectsBadArguments(t *testing.T) {
	assert.Error(t, WriteBytes("", 0o644, nil))
	assert.Error(t, WriteFile(filepath.Join(t.TempDir(), "x"), 0o644, nil))
}
