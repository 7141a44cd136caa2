package ingest

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/materials-commons/mcupload/pkg/mcupload/uperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreeSpace(t *testing.T) {
	free, err := FreeSpace(t.TempDir())
	require.NoError(t, err)
	assert.Greater(t, free, uint64(0))

	_, err = FreeSpace(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()

	assert.NoError(t, CheckFreeSpace(dir, -1))
	assert.NoError(t, CheckFreeSpace(dir, 1024))

	err := CheckFreeSpace(dir, math.MaxInt64)
	assert.True(t, uperr.Is(err, uperr.FileSaveError), "got %v", err)

	err = CheckFreeSpace(filepath.Join(dir, "missing"), 1024)
	assert.True(t, uperr.Is(err, uperr.NoWritePermissions), "got %v", err)
}
