package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/materials-commons/mcupload/pkg/mcupload/uperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskWriterWritesNestedFile(t *testing.T) {
	root := filepath.Join(t.TempDir(), "upload_1")
	w := NewDiskWriter()

	require.NoError(t, w.WriteFile([]byte("hello"), root, "docs/sub/a.txt"))

	contents, err := os.ReadFile(filepath.Join(root, "docs", "sub", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(contents))

	entries, err := os.ReadDir(filepath.Join(root, "docs", "sub"))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp file left behind")
}

func TestDiskWriterOverwritesExistingFile(t *testing.T) {
	root := t.TempDir()
	w := NewDiskWriter()

	require.NoError(t, w.WriteFile([]byte("first"), root, "a.txt"))
	require.NoError(t, w.WriteFile([]byte("second"), root, "a.txt"))

	contents, err := os.ReadFile(filepath.Join(root, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(contents))
}

func TestDiskWriterFailedRenameLeavesNothing(t *testing.T) {
	root := t.TempDir()
	w := &DiskWriter{rename: func(_, _ string) error { return errors.New("interrupted") }}

	err := w.WriteFile([]byte("hello"), root, "docs/a.txt")
	require.Error(t, err)
	assert.True(t, uperr.Is(err, uperr.FileSaveError))

	_, err = os.Stat(filepath.Join(root, "docs", "a.txt"))
	assert.True(t, os.IsNotExist(err))

	entries, err := os.ReadDir(filepath.Join(root, "docs"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDiskWriterDirectoryBlockedByFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs"), []byte("x"), 0644))

	err := NewDiskWriter().WriteFile([]byte("hello"), root, "docs/a.txt")
	require.Error(t, err)
	assert.True(t, uperr.Is(err, uperr.FileSaveError))
}

func TestEnsureDirIsIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "c")
	require.NoError(t, EnsureDir(dir))
	require.NoError(t, EnsureDir(dir))

	fi, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, fi.IsDir())
}

func TestDiskWriterTempFilesAreRecognized(t *testing.T) {
	root := t.TempDir()
	var tempName string
	w := &DiskWriter{rename: func(oldpath, _ string) error {
		tempName = filepath.Base(oldpath)
		return errors.New("interrupted")
	}}

	require.Error(t, w.WriteFile([]byte("x"), root, "a.txt"))
	assert.True(t, IsTempFile(tempName), "%s not recognized as a temp file", tempName)
	assert.False(t, IsTempFile("a.txt"))
	assert.False(t, IsTempFile(".hidden.txt"))
}
